// Package insight mines recurring patterns across the aggregated dataset.
// Mining is a pure read: it never mutates entries and may legitimately
// produce zero insights.
package insight

import (
	"sort"
	"strings"

	"github.com/grumpified/researchwire/internal/domain"
)

// Options tune pattern detection. Zero values fall back to the defaults
// (minimum support 3, title similarity 0.5).
type Options struct {
	MinSupport int
	Similarity float64
}

func (o Options) withDefaults() Options {
	if o.MinSupport == 0 {
		o.MinSupport = 3
	}
	if o.Similarity == 0 {
		o.Similarity = 0.5
	}
	return o
}

// Mine groups dataset entries by shared tags, attaches untagged entries whose
// titles are similar enough to a group member, and promotes groups with at
// least MinSupport entries to insights. Confidence is group size over dataset
// size, capped at 1. The result is ordered by (confidence desc, label asc).
func Mine(ds domain.Dataset, opts Options) []domain.Insight {
	opts = opts.withDefaults()
	if ds.Len() == 0 {
		return nil
	}

	groups := map[string][]domain.Entry{}
	for _, entry := range ds.Entries {
		for _, tag := range entry.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			groups[tag] = append(groups[tag], entry)
		}
	}

	// Untagged entries can still support a pattern when their title overlaps
	// with a tagged member's title.
	for _, entry := range ds.Entries {
		if len(entry.Tags) > 0 {
			continue
		}
		for label, members := range groups {
			if joinsGroup(entry, members, opts.Similarity) {
				groups[label] = append(groups[label], entry)
			}
		}
	}

	insights := make([]domain.Insight, 0, len(groups))
	for label, members := range groups {
		if len(members) < opts.MinSupport {
			continue
		}

		keys := make([]string, 0, len(members))
		for _, m := range members {
			keys = append(keys, m.Key)
		}
		sort.Strings(keys)

		confidence := float64(len(members)) / float64(ds.Len())
		if confidence > 1 {
			confidence = 1
		}

		insights = append(insights, domain.Insight{
			Label:      label,
			EntryKeys:  keys,
			Confidence: confidence,
		})
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Confidence != insights[j].Confidence {
			return insights[i].Confidence > insights[j].Confidence
		}
		return insights[i].Label < insights[j].Label
	})

	return insights
}

func joinsGroup(entry domain.Entry, members []domain.Entry, threshold float64) bool {
	for _, m := range members {
		if TitleSimilarity(entry.Title, m.Title) >= threshold {
			return true
		}
	}
	return false
}

// TitleSimilarity is the Jaccard index over lowercased title tokens.
func TitleSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(title string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, token := range strings.Fields(strings.ToLower(title)) {
		token = strings.Trim(token, ".,:;!?()[]\"'")
		if len(token) < 3 {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}
