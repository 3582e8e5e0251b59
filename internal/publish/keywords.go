package publish

import (
	"regexp"
	"sort"
	"strings"
)

var wordExpr = regexp.MustCompile(`[a-z][a-z0-9-]{3,}`)

// Common words that carry no topical signal for hashtag extraction.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "against": {}, "analysis": {}, "based": {},
	"been": {}, "before": {}, "being": {}, "between": {}, "both": {},
	"could": {}, "daily": {}, "date": {}, "does": {}, "during": {},
	"each": {}, "first": {}, "from": {}, "have": {}, "highlights": {},
	"into": {}, "more": {}, "most": {}, "notable": {}, "other": {},
	"over": {}, "overview": {}, "paper": {}, "papers": {}, "patterns": {},
	"report": {}, "research": {}, "results": {}, "score": {}, "should": {},
	"show": {}, "shows": {}, "since": {}, "some": {}, "source": {},
	"such": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "through": {},
	"using": {}, "very": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "will": {}, "with": {},
	"would": {},
}

// Keywords extracts the max most frequent content words from text,
// lowercased, stopwords removed. Ties break alphabetically so the
// result is stable for identical input.
func Keywords(text string, max int) []string {
	if max <= 0 || text == "" {
		return nil
	}

	counts := make(map[string]int)
	for _, word := range wordExpr.FindAllString(strings.ToLower(text), -1) {
		if _, skip := stopwords[word]; skip {
			continue
		}
		counts[word]++
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}
