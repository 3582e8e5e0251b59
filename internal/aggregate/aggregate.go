package aggregate

import (
	"errors"
	"sort"
	"time"

	"github.com/grumpified/researchwire/internal/config"
	"github.com/grumpified/researchwire/internal/domain"
)

// ErrEmptyDataset is the one fatal pipeline condition: nothing survived
// merging and relevance filtering, so no report can be produced.
var ErrEmptyDataset = errors.New("aggregate: no entries survived filtering")

// Options tune composite scoring and filtering. Zero values fall back to the
// documented defaults (threshold 0.5, 7 day horizon, weights 0.6/0.2/0.2).
type Options struct {
	TrustWeights map[string]float64
	Weights      config.ScoreWeights
	Threshold    float64
	Horizon      time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Weights.Raw+o.Weights.Trust+o.Weights.Recency == 0 {
		o.Weights = config.ScoreWeights{Raw: 0.6, Trust: 0.2, Recency: 0.2}
	}
	if o.Threshold == 0 {
		o.Threshold = 0.5
	}
	if o.Horizon == 0 {
		o.Horizon = 7 * 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Aggregate merges per-source collections into one deduplicated, scored,
// deterministically ordered dataset. Entries sharing a key collapse to the
// highest composite-scored one (tie: earliest published). Entries below the
// relevance threshold are dropped.
func Aggregate(collections [][]domain.Entry, opts Options) (domain.Dataset, error) {
	opts = opts.withDefaults()
	now := opts.Now()

	var merged []domain.Entry
	for _, collection := range collections {
		for _, entry := range collection {
			entry.Summary = SanitizeSummary(entry.Summary)
			entry.Score = compositeScore(entry, opts, now)
			merged = append(merged, entry)
		}
	}

	best := make(map[string]domain.Entry, len(merged))
	for _, entry := range merged {
		current, seen := best[entry.Key]
		if !seen {
			best[entry.Key] = entry
			continue
		}
		if entry.Score > current.Score ||
			(entry.Score == current.Score && entry.PublishedAt.Before(current.PublishedAt)) {
			best[entry.Key] = entry
		}
	}

	kept := make([]domain.Entry, 0, len(best))
	for _, entry := range best {
		if entry.Score >= opts.Threshold {
			kept = append(kept, entry)
		}
	}

	if len(kept) == 0 {
		return domain.Dataset{}, ErrEmptyDataset
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if !kept[i].PublishedAt.Equal(kept[j].PublishedAt) {
			return kept[i].PublishedAt.After(kept[j].PublishedAt)
		}
		return kept[i].Key < kept[j].Key
	})

	return domain.Dataset{Entries: kept}, nil
}

// compositeScore blends the raw score with source trust and a linear recency
// decay that reaches zero at the horizon. The result stays within [0,1] as
// long as the weights sum to at most 1.
func compositeScore(entry domain.Entry, opts Options, now time.Time) float64 {
	trust := 1.0
	if w, ok := opts.TrustWeights[entry.SourceID]; ok {
		trust = w
	}

	recency := 0.0
	if age := now.Sub(entry.PublishedAt); age < opts.Horizon {
		if age < 0 {
			age = 0
		}
		recency = 1 - float64(age)/float64(opts.Horizon)
	}

	score := opts.Weights.Raw*clamp01(entry.RawScore) +
		opts.Weights.Trust*clamp01(trust) +
		opts.Weights.Recency*recency

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
