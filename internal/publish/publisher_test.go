package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/grumpified/researchwire/internal/domain"
)

// Throwaway key, never used outside tests.
const testPrivateKey = "0000000000000000000000000000000000000000000000000000000000000001"

type fakeSender struct {
	mu      sync.Mutex
	fail    map[string]error
	hang    map[string]bool
	sent    []nostr.Event
	delay   time.Duration
	byRelay map[string]int
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		fail:    make(map[string]error),
		hang:    make(map[string]bool),
		byRelay: make(map[string]int),
	}
}

func (s *fakeSender) Send(ctx context.Context, relayURL string, ev nostr.Event) error {
	s.mu.Lock()
	s.byRelay[relayURL]++
	hang := s.hang[relayURL]
	err := s.fail[relayURL]
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sent = append(s.sent, ev)
	s.mu.Unlock()
	return nil
}

func testPublisher(relays []string, sender Sender, opts Options) *Publisher {
	p := New(relays, testPrivateKey, opts, nil)
	p.sender = sender
	return p
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 29, 6, 0, 0, 0, time.UTC)
}

func TestPublishAllRelaysAcknowledge(t *testing.T) {
	t.Parallel()

	relays := []string{"wss://a.example", "wss://b.example", "wss://c.example"}
	sender := newFakeSender()
	p := testPublisher(relays, sender, Options{Quorum: 2, Now: fixedNow})

	record, err := p.Publish(context.Background(), "Research Intelligence 2026-08-29", "body text")
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if record.AckCount() != 3 {
		t.Fatalf("expected 3 acks, got %d", record.AckCount())
	}
	if !record.QuorumMet {
		t.Fatal("quorum of 2 with 3 acks must be met")
	}
	if record.EventID == "" || record.PublicKey == "" {
		t.Fatal("record must carry the signed event identity")
	}
	for _, url := range relays {
		if record.RelayResults[url] != domain.RelayOK {
			t.Fatalf("relay %s: expected ok, got %s", url, record.RelayResults[url])
		}
	}
}

func TestPublishQuorumAcrossMixedOutcomes(t *testing.T) {
	t.Parallel()

	var relays []string
	sender := newFakeSender()
	for _, s := range []string{"a", "b", "c"} {
		relays = append(relays, "wss://"+s+".example")
	}
	for _, s := range []string{"d", "e", "f", "g", "h", "i", "j"} {
		url := "wss://" + s + ".example"
		relays = append(relays, url)
		sender.hang[url] = true
	}

	p := testPublisher(relays, sender, Options{
		Quorum:       3,
		RelayTimeout: 50 * time.Millisecond,
		Budget:       2 * time.Second,
		Now:          fixedNow,
	})

	start := time.Now()
	record, err := p.Publish(context.Background(), "Daily Report", "content")
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("fan-out took %v, expected well under the budget", elapsed)
	}

	if record.AckCount() != 3 {
		t.Fatalf("expected 3 acks, got %d", record.AckCount())
	}
	if !record.QuorumMet {
		t.Fatal("quorum of 3 with 3 acks must be met")
	}
	timeouts := 0
	for _, st := range record.RelayResults {
		if st == domain.RelayTimeout {
			timeouts++
		}
	}
	if timeouts != 7 {
		t.Fatalf("expected 7 timeouts, got %d", timeouts)
	}
}

func TestPublishQuorumMissed(t *testing.T) {
	t.Parallel()

	relays := []string{"wss://a.example", "wss://b.example"}
	sender := newFakeSender()
	sender.fail["wss://a.example"] = errors.New("connection refused")
	sender.fail["wss://b.example"] = errors.New("connection refused")

	p := testPublisher(relays, sender, Options{Quorum: 1, Now: fixedNow})

	record, err := p.Publish(context.Background(), "Daily Report", "content")
	if err != nil {
		t.Fatalf("a missed quorum is recorded, not returned as an error: %v", err)
	}
	if record.QuorumMet {
		t.Fatal("quorum must not be met with zero acks")
	}
	for _, url := range relays {
		if record.RelayResults[url] != domain.RelayError {
			t.Fatalf("relay %s: expected error, got %s", url, record.RelayResults[url])
		}
	}
}

func TestPublishEventShape(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	p := testPublisher([]string{"wss://a.example"}, sender, Options{
		Categories:  []string{"research", "daily"},
		MaxKeywords: 3,
		Now:         fixedNow,
	})

	title := "Research Intelligence 2026-08-29"
	content := "transformer transformer transformer quantization quantization benchmark"
	if _, err := p.Publish(context.Background(), title, content); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(sender.sent))
	}
	ev := sender.sent[0]

	if ev.Kind != nostr.KindArticle {
		t.Fatalf("expected kind %d, got %d", nostr.KindArticle, ev.Kind)
	}
	if ok, err := ev.CheckSignature(); err != nil || !ok {
		t.Fatalf("event signature invalid: ok=%v err=%v", ok, err)
	}
	if ev.Content != content {
		t.Fatal("event content must be the article body verbatim")
	}

	wantTags := map[string]string{
		"d":            "research-intelligence-2026-08-29",
		"title":        title,
		"published_at": fmt.Sprintf("%d", fixedNow().Unix()),
	}
	for key, want := range wantTags {
		tag := ev.Tags.GetFirst([]string{key})
		if tag == nil {
			t.Fatalf("missing %q tag", key)
		}
		if tag.Value() != want {
			t.Fatalf("tag %q = %q, want %q", key, tag.Value(), want)
		}
	}

	var topics []string
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == "t" {
			topics = append(topics, tag[1])
		}
	}
	want := []string{"research", "daily", "transformer", "quantization", "benchmark"}
	if !reflect.DeepEqual(topics, want) {
		t.Fatalf("topic tags = %v, want %v", topics, want)
	}
}

func TestCollectVerdictsDrainsLateResults(t *testing.T) {
	t.Parallel()

	relays := []string{"wss://a.example", "wss://b.example", "wss://c.example", "wss://d.example"}
	p := testPublisher(relays, newFakeSender(), Options{Now: fixedNow})

	// Budget already expired, with two completions buffered but not yet
	// collected. Those are real acknowledgements, not timeouts.
	results := make(chan relayResult, len(relays))
	results <- relayResult{url: "wss://a.example", status: domain.RelayOK}
	results <- relayResult{url: "wss://b.example", status: domain.RelayOK}
	done := make(chan struct{})
	close(done)

	verdicts := p.collectVerdicts(results, done)

	if verdicts["wss://a.example"] != domain.RelayOK || verdicts["wss://b.example"] != domain.RelayOK {
		t.Fatalf("buffered completions lost: %v", verdicts)
	}
	if verdicts["wss://c.example"] != domain.RelayTimeout || verdicts["wss://d.example"] != domain.RelayTimeout {
		t.Fatalf("unreported relays must time out: %v", verdicts)
	}
}

func TestPublishRejectsMissingConfig(t *testing.T) {
	t.Parallel()

	p := New([]string{"wss://a.example"}, "", Options{}, nil)
	if _, err := p.Publish(context.Background(), "t", "c"); err == nil {
		t.Fatal("expected an error without a private key")
	}

	p = New(nil, testPrivateKey, Options{}, nil)
	if _, err := p.Publish(context.Background(), "t", "c"); err == nil {
		t.Fatal("expected an error without relays")
	}
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	text := "Transformer models and transformer training. Quantization results show quantization wins. Benchmark time."
	got := Keywords(text, 3)
	want := []string{"quantization", "transformer", "benchmark"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}

	if kw := Keywords("", 5); kw != nil {
		t.Fatalf("empty text must yield no keywords, got %v", kw)
	}
	if kw := Keywords("the and for", 5); kw != nil {
		t.Fatalf("stopword-only text must yield no keywords, got %v", kw)
	}
}

func TestRecordWriterRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewRecordWriter(dir)

	record := domain.PublicationRecord{
		EventID:   "abc123",
		PublicKey: "def456",
		RelayResults: map[string]domain.RelayStatus{
			"wss://a.example": domain.RelayOK,
			"wss://b.example": domain.RelayTimeout,
		},
		QuorumMet:   true,
		PublishedAt: fixedNow(),
	}

	path, err := w.WriteRecord(record)
	if err != nil {
		t.Fatalf("WriteRecord error: %v", err)
	}
	if !strings.HasSuffix(path, "2026-08-29.json") {
		t.Fatalf("unexpected record path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var loaded domain.PublicationRecord
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if loaded.EventID != record.EventID || !loaded.QuorumMet {
		t.Fatal("record lost fields on the roundtrip")
	}
	if loaded.RelayResults["wss://b.example"] != domain.RelayTimeout {
		t.Fatal("relay verdicts lost on the roundtrip")
	}
}
