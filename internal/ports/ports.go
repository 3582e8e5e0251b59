package ports

import (
	"context"
	"time"

	"github.com/grumpified/researchwire/internal/domain"
)

// CollectionSource loads per-source entry collections produced by external
// ingestion collaborators. One inner slice per source; an unavailable source
// contributes an empty collection.
type CollectionSource interface {
	Collections(ctx context.Context, day time.Time) ([][]domain.Entry, error)
}

// BackendRequest carries one enhancement call to an LLM backend.
type BackendRequest struct {
	SystemPrompt string
	UserContent  string
	Temperature  float64
	MaxTokens    int
}

// Backend is one concrete LLM integration capable of serving an enhancement
// request. Implementations must honor ctx cancellation.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req BackendRequest) (string, error)
}

// Enhancer rewrites the base analysis through a persona, falling back to the
// unmodified text when no backend succeeds. Never fails the run.
type Enhancer interface {
	Enhance(ctx context.Context, base string, persona domain.PersonaProfile) domain.EnhancementResult
}

// ReportWriter persists both renderings of a report and returns their paths.
type ReportWriter interface {
	Write(report domain.Report) (richPath, minimalPath string, err error)
}

// Publisher fans the canonical report text out to the relay set.
type Publisher interface {
	Publish(ctx context.Context, title, content string) (domain.PublicationRecord, error)
}

// PublicationStore persists the per-run publication record.
type PublicationStore interface {
	WriteRecord(record domain.PublicationRecord) (string, error)
}

// RunArchive keeps a queryable history of pipeline executions.
type RunArchive interface {
	SaveRun(ctx context.Context, run domain.RunSummary) error
	RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
