package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grumpified/researchwire/internal/config"
)

var day = time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

func writeCollection(t *testing.T, dir, sourceID, content string) {
	t.Helper()
	srcDir := filepath.Join(dir, sourceID)
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(srcDir, "2026-08-29.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCollectionsLoadsAllSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollection(t, dir, "arxiv", `[
		{"id": "2408.1234", "title": "Paper A", "summary": "about things", "date": "2026-08-28", "score": 0.9, "tags": ["nlp"]},
		{"url": "https://example.com/b", "title": "Paper B", "score": 0.5}
	]`)
	writeCollection(t, dir, "huggingface", `[
		{"title": "Model C", "date": "2026-08-29T08:00:00Z", "score": 0.7}
	]`)

	l := NewLoader(dir, []config.SourceConfig{{ID: "arxiv"}, {ID: "huggingface"}}, nil)

	collections, err := l.Collections(context.Background(), day)
	if err != nil {
		t.Fatalf("Collections error: %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(collections))
	}

	arxiv := collections[0]
	if len(arxiv) != 2 {
		t.Fatalf("expected 2 arxiv entries, got %d", len(arxiv))
	}
	if arxiv[0].Key != "2408.1234" {
		t.Fatalf("id must win as key, got %q", arxiv[0].Key)
	}
	if arxiv[0].SourceID != "arxiv" || arxiv[0].RawScore != 0.9 {
		t.Fatalf("entry fields lost: %+v", arxiv[0])
	}
	if got := arxiv[0].PublishedAt.Format("2006-01-02"); got != "2026-08-28" {
		t.Fatalf("date-only timestamp parsed as %s", got)
	}
	if arxiv[1].Key != "https://example.com/b" {
		t.Fatalf("url must be the key fallback, got %q", arxiv[1].Key)
	}

	hf := collections[1]
	if len(hf) != 1 || hf[0].Key != "Model C" {
		t.Fatalf("title must be the last key fallback: %+v", hf)
	}
	if hf[0].PublishedAt.Hour() != 8 {
		t.Fatalf("RFC3339 timestamp lost: %v", hf[0].PublishedAt)
	}
}

func TestCollectionsMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollection(t, dir, "arxiv", `[{"id": "x", "title": "Paper", "score": 0.9}]`)

	l := NewLoader(dir, []config.SourceConfig{{ID: "arxiv"}, {ID: "ghost"}}, nil)

	collections, err := l.Collections(context.Background(), day)
	if err != nil {
		t.Fatalf("a missing day file must not fail the load: %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(collections))
	}
	if len(collections[1]) != 0 {
		t.Fatalf("missing file must yield an empty collection, got %d entries", len(collections[1]))
	}
}

func TestCollectionsMalformedFileFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollection(t, dir, "arxiv", `{not json`)

	l := NewLoader(dir, []config.SourceConfig{{ID: "arxiv"}}, nil)

	if _, err := l.Collections(context.Background(), day); err == nil {
		t.Fatal("expected an error for a malformed collection file")
	}
}

func TestCollectionsEntryWithoutDateInheritsDay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollection(t, dir, "arxiv", `[{"id": "x", "title": "Paper", "score": 0.9}]`)

	l := NewLoader(dir, []config.SourceConfig{{ID: "arxiv"}}, nil)

	collections, err := l.Collections(context.Background(), day)
	if err != nil {
		t.Fatalf("Collections error: %v", err)
	}
	if !collections[0][0].PublishedAt.Equal(day) {
		t.Fatalf("dateless entry must inherit the run day, got %v", collections[0][0].PublishedAt)
	}
}
