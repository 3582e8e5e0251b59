package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grumpified/researchwire/internal/domain"
)

var slugExpr = regexp.MustCompile(`[^a-z0-9]+`)

// RenderRich produces the richly-annotated representation: a full metadata
// header (title, date, description, tags, canonical slug) followed by the
// canonical body.
func RenderRich(r domain.Report) string {
	slug := Slugify(r.Title)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("layout: report\n")
	fmt.Fprintf(&b, "title: %q\n", r.Title)
	fmt.Fprintf(&b, "date: %s\n", r.Date.Format("2006-01-02 15:04:05 -0700"))
	fmt.Fprintf(&b, "slug: %s\n", slug)
	fmt.Fprintf(&b, "permalink: /daily/%s/%s/\n", r.Date.Format("2006/01/02"), slug)
	b.WriteString("categories: [research, daily]\n")
	fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(insightLabels(r), ", "))
	fmt.Fprintf(&b, "excerpt: %q\n", fmt.Sprintf("Daily research intelligence for %s", r.Date.Format("2006-01-02")))
	b.WriteString("---\n\n")
	b.WriteString(Body(r))
	return b.String()
}

// RenderMinimal produces the backward-compatible representation: only the
// essential identifying metadata over the same canonical body.
func RenderMinimal(r domain.Report) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("layout: default\n")
	fmt.Fprintf(&b, "title: %s\n", r.Title)
	b.WriteString("---\n\n")
	b.WriteString(Body(r))
	return b.String()
}

// RichFilename names the rich rendering with a date-plus-time stamp and slug.
func RichFilename(r domain.Report) string {
	return fmt.Sprintf("%s-%s.md", r.Date.Format("2006-01-02-1504"), Slugify(r.Title))
}

// MinimalFilename names the minimal rendering with a date-only stamp.
func MinimalFilename(r domain.Report) string {
	return fmt.Sprintf("report-%s.md", r.Date.Format("2006-01-02"))
}

// Slugify converts a title to a URL-safe slug.
func Slugify(title string) string {
	slug := slugExpr.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func insightLabels(r domain.Report) []string {
	labels := make([]string, 0, len(r.Insights))
	for _, in := range r.Insights {
		labels = append(labels, in.Label)
	}
	return labels
}
