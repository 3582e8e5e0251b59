package domain

import "time"

// Entry is a single piece of content contributed by an ingestion source.
// Entries are immutable once loaded; the pipeline never writes them back.
type Entry struct {
	SourceID    string
	Key         string
	Title       string
	Summary     string
	PublishedAt time.Time
	RawScore    float64
	Tags        []string
	Score       float64
}

// HasTag reports whether the entry carries the given tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Dataset is the merged, deduplicated, scored view over all source collections,
// sorted by (score desc, published desc, key asc). Keys are unique.
type Dataset struct {
	Entries []Entry
}

// Len returns the number of entries in the dataset.
func (d Dataset) Len() int {
	return len(d.Entries)
}

// Top returns up to k highest-ranked entries without copying beyond the slice header.
func (d Dataset) Top(k int) []Entry {
	if k <= 0 || k >= len(d.Entries) {
		return d.Entries
	}
	return d.Entries[:k]
}

// Insight is a recurring pattern detected across the dataset. It references
// entries by key and owns nothing.
type Insight struct {
	Label      string
	EntryKeys  []string
	Confidence float64
}
