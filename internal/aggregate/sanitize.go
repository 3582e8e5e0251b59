package aggregate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SanitizeSummary flattens feed-style HTML fragments delivered by ingestion
// sources into plain text with normalized whitespace. Plain text passes
// through unchanged apart from whitespace collapsing.
func SanitizeSummary(summary string) string {
	if summary == "" {
		return ""
	}

	text := summary
	if strings.ContainsAny(summary, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
		if err == nil {
			doc.Find("script,style").Remove()
			text = doc.Text()
		}
	}

	return strings.Join(strings.Fields(text), " ")
}
