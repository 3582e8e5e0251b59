// Package report assembles the run's analytical output and renders it into
// the two file formats. Every rendering is a pure function of the Report:
// identical input yields byte-identical output.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/grumpified/researchwire/internal/domain"
)

const (
	highlightCutoff = 0.8
	notableCutoff   = 0.6
	summaryPreview  = 250
)

// Compose builds the Report once. TopK bounds the entries carried into the
// renderings; the base analysis is derived from the full dataset.
func Compose(ds domain.Dataset, insights []domain.Insight, enh domain.EnhancementResult, topK int, date time.Time) domain.Report {
	entries := ds.Top(topK)
	kept := make([]domain.Entry, len(entries))
	copy(kept, entries)

	return domain.Report{
		Title:        fmt.Sprintf("Research Intelligence %s", date.Format("2006-01-02")),
		Date:         date,
		BaseAnalysis: BaseAnalysis(ds, insights),
		Enhancement:  enh,
		Insights:     insights,
		Entries:      kept,
	}
}

// BaseAnalysis renders the statistical overview, highlight and notable entry
// sections, and the detected patterns as markdown. It depends only on its
// arguments, so an identical dataset always produces identical text.
func BaseAnalysis(ds domain.Dataset, insights []domain.Insight) string {
	var highlights, notable []domain.Entry
	for _, e := range ds.Entries {
		switch {
		case e.Score >= highlightCutoff:
			highlights = append(highlights, e)
		case e.Score >= notableCutoff:
			notable = append(notable, e)
		}
	}

	var b strings.Builder

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Entries analyzed: %d\n", ds.Len())
	fmt.Fprintf(&b, "- Highlights (score >= %.1f): %d\n", highlightCutoff, len(highlights))
	fmt.Fprintf(&b, "- Notable (score >= %.1f): %d\n", notableCutoff, len(notable))
	fmt.Fprintf(&b, "- Patterns detected: %d\n", len(insights))

	if len(highlights) > 0 {
		b.WriteString("\n## Highlights\n")
		for i, e := range highlights {
			fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, e.Title)
			fmt.Fprintf(&b, "Score %.2f | %s | %s\n\n", e.Score, e.SourceID, e.PublishedAt.Format("2006-01-02"))
			if e.Summary != "" {
				fmt.Fprintf(&b, "%s\n", preview(e.Summary))
			}
			fmt.Fprintf(&b, "\nRef: %s\n", e.Key)
		}
	}

	if len(notable) > 0 {
		b.WriteString("\n## Notable\n\n")
		for _, e := range notable {
			fmt.Fprintf(&b, "- %s (%.2f) %s\n", e.Title, e.Score, e.Key)
		}
	}

	if len(insights) > 0 {
		b.WriteString("\n## Patterns\n")
		for _, in := range insights {
			fmt.Fprintf(&b, "\n### %s\n\n", in.Label)
			fmt.Fprintf(&b, "Signal strength: %d entries (confidence %.2f)\n", len(in.EntryKeys), in.Confidence)
			for _, key := range in.EntryKeys {
				fmt.Fprintf(&b, "- %s\n", key)
			}
		}
	}

	return b.String()
}

// Body is the canonical report text shared by both renderings and consumed
// verbatim by the relay publisher.
func Body(r domain.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	b.WriteString(r.BaseAnalysis)

	if r.Enhancement.IsEnhanced() {
		b.WriteString("\n## Persona Analysis\n\n")
		fmt.Fprintf(&b, "*%s via %s*\n\n", r.Enhancement.Persona, r.Enhancement.Backend)
		b.WriteString(r.Enhancement.Text)
		b.WriteString("\n")
	}

	return b.String()
}

func preview(summary string) string {
	if len(summary) <= summaryPreview {
		return summary
	}
	cut := summary[:summaryPreview]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
