package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/grumpified/researchwire/internal/config"
	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
)

// wireEntry is the on-disk shape collectors produce, one JSON array per
// source per day.
type wireEntry struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Date    string   `json:"date"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags"`
}

// Loader reads per-source collection files laid out as
// <dir>/<source-id>/<YYYY-MM-DD>.json.
type Loader struct {
	dir     string
	sources []config.SourceConfig
	logger  *slog.Logger
}

var _ ports.CollectionSource = (*Loader)(nil)

func NewLoader(dir string, sources []config.SourceConfig, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, sources: sources, logger: logger}
}

// Collections loads one collection per configured source for the given
// day. A source with no file for that day contributes an empty
// collection; only unreadable or malformed files are errors.
func (l *Loader) Collections(ctx context.Context, day time.Time) ([][]domain.Entry, error) {
	date := day.Format("2006-01-02")
	collections := make([][]domain.Entry, 0, len(l.sources))

	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(l.dir, src.ID, date+".json")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			if l.logger != nil {
				l.logger.Debug("no collection file", "source", src.ID, "date", date)
			}
			collections = append(collections, nil)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read collection %s: %w", path, err)
		}

		var wire []wireEntry
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", path, err)
		}

		entries := make([]domain.Entry, 0, len(wire))
		for _, w := range wire {
			entries = append(entries, toEntry(src.ID, w, day))
		}
		collections = append(collections, entries)

		if l.logger != nil {
			l.logger.Debug("collection loaded", "source", src.ID, "entries", len(entries))
		}
	}
	return collections, nil
}

func toEntry(sourceID string, w wireEntry, day time.Time) domain.Entry {
	key := w.ID
	if key == "" {
		key = w.URL
	}
	if key == "" {
		key = w.Title
	}

	published := day
	if w.Date != "" {
		if t, err := time.Parse(time.RFC3339, w.Date); err == nil {
			published = t
		} else if t, err := time.Parse("2006-01-02", w.Date); err == nil {
			published = t
		}
	}

	return domain.Entry{
		SourceID:    sourceID,
		Key:         key,
		Title:       w.Title,
		Summary:     w.Summary,
		PublishedAt: published,
		RawScore:    w.Score,
		Tags:        w.Tags,
	}
}
