package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
	"github.com/grumpified/researchwire/internal/report"
)

// Sender delivers one signed event to one relay. Split out so the
// fan-out logic can be tested without real websocket connections.
type Sender interface {
	Send(ctx context.Context, relayURL string, ev nostr.Event) error
}

type relaySender struct{}

func (relaySender) Send(ctx context.Context, relayURL string, ev nostr.Event) error {
	relay, err := nostr.RelayConnect(ctx, relayURL)
	if err != nil {
		return fmt.Errorf("connect %s: %w", relayURL, err)
	}
	defer relay.Close()

	if err := relay.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish to %s: %w", relayURL, err)
	}
	return nil
}

// Options tunes the relay fan-out.
type Options struct {
	Quorum       int
	RelayTimeout time.Duration
	Budget       time.Duration
	Categories   []string
	MaxKeywords  int
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Quorum <= 0 {
		o.Quorum = 1
	}
	if o.RelayTimeout <= 0 {
		o.RelayTimeout = 10 * time.Second
	}
	if o.Budget <= 0 {
		o.Budget = 60 * time.Second
	}
	if o.MaxKeywords <= 0 {
		o.MaxKeywords = 5
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Publisher signs a long-form event and broadcasts it to every
// configured relay concurrently.
type Publisher struct {
	relays     []string
	privateKey string
	opts       Options
	sender     Sender
	logger     *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

func New(relays []string, privateKey string, opts Options, logger *slog.Logger) *Publisher {
	return &Publisher{
		relays:     relays,
		privateKey: privateKey,
		opts:       opts.withDefaults(),
		sender:     relaySender{},
		logger:     logger,
	}
}

type relayResult struct {
	url    string
	status domain.RelayStatus
	err    error
}

// Publish signs a kind 30023 event for the given article and sends it
// to all relays within the global budget. Every relay gets a verdict:
// ok, timeout, or error. The returned record is complete even when the
// quorum is missed; the caller decides what to do with a failed quorum.
func (p *Publisher) Publish(ctx context.Context, title, content string) (domain.PublicationRecord, error) {
	if p.privateKey == "" {
		return domain.PublicationRecord{}, errors.New("publisher: private key not configured")
	}
	if len(p.relays) == 0 {
		return domain.PublicationRecord{}, errors.New("publisher: no relays configured")
	}

	ev, err := p.buildEvent(title, content)
	if err != nil {
		return domain.PublicationRecord{}, err
	}

	budgetCtx, cancel := context.WithTimeout(ctx, p.opts.Budget)
	defer cancel()

	results := make(chan relayResult, len(p.relays))
	for _, url := range p.relays {
		go func(url string) {
			relayCtx, cancel := context.WithTimeout(budgetCtx, p.opts.RelayTimeout)
			defer cancel()

			err := p.sender.Send(relayCtx, url, ev)
			switch {
			case err == nil:
				results <- relayResult{url: url, status: domain.RelayOK}
			case errors.Is(err, context.DeadlineExceeded):
				results <- relayResult{url: url, status: domain.RelayTimeout, err: err}
			default:
				results <- relayResult{url: url, status: domain.RelayError, err: err}
			}
		}(url)
	}

	verdicts := p.collectVerdicts(results, budgetCtx.Done())

	record := domain.PublicationRecord{
		EventID:      ev.ID,
		PublicKey:    ev.PubKey,
		RelayResults: verdicts,
		PublishedAt:  ev.CreatedAt.Time(),
	}
	record.QuorumMet = record.AckCount() >= p.opts.Quorum

	if p.logger != nil {
		p.logger.Info("publication finished",
			"event_id", ev.ID,
			"acks", record.AckCount(),
			"relays", len(p.relays),
			"quorum_met", record.QuorumMet)
	}
	return record, nil
}

// collectVerdicts gathers relay results until all relays reported or the
// budget expired. Results already buffered at expiry are real verdicts and
// are drained before the unreported rest defaults to timeout.
func (p *Publisher) collectVerdicts(results <-chan relayResult, done <-chan struct{}) map[string]domain.RelayStatus {
	verdicts := make(map[string]domain.RelayStatus, len(p.relays))
	note := func(res relayResult) {
		verdicts[res.url] = res.status
		if res.err != nil && p.logger != nil {
			p.logger.Warn("relay delivery failed", "relay", res.url, "status", string(res.status), "error", res.err)
		}
	}

collect:
	for len(verdicts) < len(p.relays) {
		select {
		case res := <-results:
			note(res)
		case <-done:
			break collect
		}
	}
drain:
	for {
		select {
		case res := <-results:
			note(res)
		default:
			break drain
		}
	}

	for _, url := range p.relays {
		if _, ok := verdicts[url]; !ok {
			verdicts[url] = domain.RelayTimeout
		}
	}
	return verdicts
}

func (p *Publisher) buildEvent(title, content string) (nostr.Event, error) {
	pubkey, err := nostr.GetPublicKey(p.privateKey)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("derive public key: %w", err)
	}

	now := p.opts.Now()
	tags := nostr.Tags{
		{"d", report.Slugify(title)},
		{"title", title},
		{"published_at", fmt.Sprintf("%d", now.Unix())},
	}
	for _, c := range p.opts.Categories {
		tags = append(tags, nostr.Tag{"t", c})
	}
	for _, kw := range Keywords(content, p.opts.MaxKeywords) {
		tags = append(tags, nostr.Tag{"t", kw})
	}

	ev := nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Timestamp(now.Unix()),
		Kind:      nostr.KindArticle,
		Tags:      tags,
		Content:   content,
	}
	if err := ev.Sign(p.privateKey); err != nil {
		return nostr.Event{}, fmt.Errorf("sign event: %w", err)
	}
	return ev, nil
}
