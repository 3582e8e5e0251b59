package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/grumpified/researchwire/internal/aggregate"
	"github.com/grumpified/researchwire/internal/config"
	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/insight"
	"github.com/grumpified/researchwire/internal/ports"
	"github.com/grumpified/researchwire/internal/report"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Source is mandatory; every other adapter degrades gracefully when nil.
type PipelineDeps struct {
	Source    ports.CollectionSource
	Enhancer  ports.Enhancer
	Writer    ports.ReportWriter
	Publisher ports.Publisher
	Records   ports.PublicationStore
	Archive   ports.RunArchive
	Logger    *slog.Logger
}

// PipelineOptions carries per-run policy resolved from configuration.
type PipelineOptions struct {
	Aggregate aggregate.Options
	Insight   insight.Options
	Personas  config.Catalog
	Persona   string
	TopK      int
	Now       func() time.Time
}

// Pipeline implements the daily aggregation and publication workflow.
type Pipeline struct {
	source    ports.CollectionSource
	enhancer  ports.Enhancer
	writer    ports.ReportWriter
	publisher ports.Publisher
	records   ports.PublicationStore
	archive   ports.RunArchive
	logger    *slog.Logger
	opts      PipelineOptions
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		source:    deps.Source,
		enhancer:  deps.Enhancer,
		writer:    deps.Writer,
		publisher: deps.Publisher,
		records:   deps.Records,
		archive:   deps.Archive,
		logger:    deps.Logger,
		opts:      opts,
	}
}

// ProcessDay runs the full workflow for one day: load, aggregate, mine,
// enhance, render, publish, archive. Only an unusable dataset aborts the
// run; downstream failures degrade and are logged.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) error {
	if p.source == nil {
		return errors.New("pipeline: no collection source wired")
	}

	collections, err := p.source.Collections(ctx, day)
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	total := 0
	for _, c := range collections {
		total += len(c)
	}

	ds, err := aggregate.Aggregate(collections, p.opts.Aggregate)
	if err != nil {
		if errors.Is(err, aggregate.ErrEmptyDataset) {
			return fmt.Errorf("no publishable dataset for %s: %w", day.Format("2006-01-02"), err)
		}
		return fmt.Errorf("aggregate: %w", err)
	}
	p.log("dataset ready", "date", day.Format("2006-01-02"), "loaded", total, "kept", ds.Len())

	insights := insight.Mine(ds, p.opts.Insight)
	p.log("insights mined", "count", len(insights))

	base := report.BaseAnalysis(ds, insights)
	enhancement := domain.Fallback("disabled")
	if p.enhancer != nil {
		persona := p.opts.Personas.Resolve(p.opts.Persona)
		enhancement = p.enhancer.Enhance(ctx, base, persona)
	}
	if enhancement.IsEnhanced() {
		p.log("analysis enhanced", "persona", enhancement.Persona, "backend", enhancement.Backend)
	} else {
		p.log("enhancement skipped", "reason", enhancement.Reason)
	}

	r := report.Compose(ds, insights, enhancement, p.opts.TopK, day)

	if p.writer != nil {
		richPath, minimalPath, err := p.writer.Write(r)
		if err != nil {
			p.warn("report write failed", "error", err)
		} else {
			p.log("reports written", "rich", richPath, "minimal", minimalPath)
		}
	}

	var record domain.PublicationRecord
	published := false
	if p.publisher != nil {
		record, err = p.publisher.Publish(ctx, r.Title, report.Body(r))
		if err != nil {
			p.warn("publication failed", "error", err)
		} else {
			published = true
			if !record.QuorumMet {
				p.warn("relay quorum missed", "acks", record.AckCount())
			}
			if p.records != nil {
				if path, rErr := p.records.WriteRecord(record); rErr != nil {
					p.warn("publication record write failed", "error", rErr)
				} else {
					p.log("publication record written", "path", path)
				}
			}
		}
	}

	if p.archive != nil {
		run := domain.RunSummary{
			Date:        day,
			TotalLoaded: total,
			Kept:        ds.Len(),
			Insights:    len(insights),
			Enhanced:    enhancement.IsEnhanced(),
			CreatedAt:   p.opts.Now(),
		}
		if published {
			run.EventID = record.EventID
			run.QuorumMet = record.QuorumMet
		}
		if err := p.archive.SaveRun(ctx, run); err != nil {
			p.warn("run archive failed", "error", err)
		}
	}

	return nil
}

func (p *Pipeline) log(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
