package domain

import "time"

// PersonaProfile controls LLM prompt framing and sampling for one persona.
// Profiles are validated at load time and immutable during a run.
type PersonaProfile struct {
	Name             string
	SystemPrompt     string
	Temperature      float64
	MaxTokens        int
	RequiredSections []string
	MinLength        int
	MaxLength        int
}

// EnhancementResult is the outcome of the persona enhancement stage. Exactly one
// of the two variants holds: an enhanced text or a fallback reason.
type EnhancementResult struct {
	Text    string
	Persona string
	Backend string
	Reason  string
}

// Enhanced builds the success variant.
func Enhanced(text, persona, backend string) EnhancementResult {
	return EnhancementResult{Text: text, Persona: persona, Backend: backend}
}

// Fallback builds the degraded variant carrying the reason the base analysis
// is used unmodified. Fallback is a valid pipeline outcome, not an error.
func Fallback(reason string) EnhancementResult {
	return EnhancementResult{Reason: reason}
}

// IsEnhanced reports whether an LLM backend produced the text.
func (r EnhancementResult) IsEnhanced() bool {
	return r.Reason == ""
}

// Report is the run's analytical output, built once and rendered twice.
type Report struct {
	Title        string
	Date         time.Time
	BaseAnalysis string
	Enhancement  EnhancementResult
	Insights     []Insight
	Entries      []Entry
}

// RelayStatus is the per-relay delivery outcome.
type RelayStatus string

const (
	RelayOK      RelayStatus = "ok"
	RelayTimeout RelayStatus = "timeout"
	RelayError   RelayStatus = "error"
)

// PublicationRecord captures exactly what happened during relay fan-out.
type PublicationRecord struct {
	EventID      string                 `json:"event_id"`
	PublicKey    string                 `json:"public_key"`
	RelayResults map[string]RelayStatus `json:"relay_results"`
	QuorumMet    bool                   `json:"quorum_met"`
	PublishedAt  time.Time              `json:"published_at"`
}

// AckCount returns the number of relays that acknowledged the event.
func (p PublicationRecord) AckCount() int {
	n := 0
	for _, st := range p.RelayResults {
		if st == RelayOK {
			n++
		}
	}
	return n
}

// RunSummary is the archived snapshot of one pipeline execution.
type RunSummary struct {
	Date        time.Time
	TotalLoaded int
	Kept        int
	Insights    int
	Enhanced    bool
	EventID     string
	QuorumMet   bool
	CreatedAt   time.Time
}
