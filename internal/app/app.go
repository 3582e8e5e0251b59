package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grumpified/researchwire/internal/aggregate"
	"github.com/grumpified/researchwire/internal/config"
	"github.com/grumpified/researchwire/internal/enhance"
	"github.com/grumpified/researchwire/internal/infrastructure/llm"
	"github.com/grumpified/researchwire/internal/infrastructure/scheduler"
	"github.com/grumpified/researchwire/internal/infrastructure/source"
	"github.com/grumpified/researchwire/internal/infrastructure/storage"
	"github.com/grumpified/researchwire/internal/insight"
	"github.com/grumpified/researchwire/internal/logging"
	"github.com/grumpified/researchwire/internal/ports"
	"github.com/grumpified/researchwire/internal/publish"
	"github.com/grumpified/researchwire/internal/report"
	"github.com/grumpified/researchwire/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	archive  *storage.SQLiteArchive
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	personas, err := config.LoadPersonas(cfg.Personas.File, cfg.Personas.Default)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}

	loader := source.NewLoader(cfg.Sources.Dir, cfg.Sources.Entries, baseLogger.With("component", "source"))

	var backends []ports.Backend
	if cfg.Backends.CohereAPIKey != "" {
		backends = append(backends, llm.NewCohereBackend(cfg.Backends.CohereAPIKey, cfg.Backends.CohereModel))
	}
	if cfg.Backends.APIKey != "" {
		backends = append(backends, llm.NewOpenAIBackend(cfg.Backends.Endpoint, cfg.Backends.Model, cfg.Backends.APIKey))
	}
	enhancer := enhance.New(backends, cfg.API, baseLogger.With("component", "enhancer"))

	writer := report.NewWriter(cfg.Report.RichDir, cfg.Report.MinimalDir, baseLogger.With("component", "report"))

	var publisher ports.Publisher
	if cfg.Publish.PrivateKey != "" {
		publisher = publish.New(cfg.Publish.Relays, cfg.Publish.PrivateKey, publish.Options{
			Quorum:       cfg.Publish.Quorum,
			RelayTimeout: cfg.Publish.RelayTimeout(),
			Budget:       cfg.Publish.Budget(),
			Categories:   cfg.Publish.Categories,
			MaxKeywords:  cfg.Publish.MaxKeywords,
		}, baseLogger.With("component", "publisher"))
	} else {
		baseLogger.Warn("relay publishing disabled, no private key configured")
	}

	var archive *storage.SQLiteArchive
	var runArchive ports.RunArchive
	if cfg.Archive.Path != "" {
		archive, err = storage.OpenSQLiteArchive(cfg.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("open run archive: %w", err)
		}
		runArchive = archive
	}

	trust := make(map[string]float64, len(cfg.Sources.Entries))
	for _, src := range cfg.Sources.Entries {
		trust[src.ID] = src.Trust
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:    loader,
		Enhancer:  enhancer,
		Writer:    writer,
		Publisher: publisher,
		Records:   publish.NewRecordWriter(cfg.Publish.RecordDir),
		Archive:   runArchive,
		Logger:    baseLogger.With("component", "pipeline"),
	}, usecase.PipelineOptions{
		Aggregate: aggregate.Options{
			TrustWeights: trust,
			Weights:      cfg.Aggregation.Weights,
			Threshold:    cfg.Aggregation.Threshold,
			Horizon:      cfg.Aggregation.Horizon(),
		},
		Insight: insight.Options{
			MinSupport: cfg.Insights.MinSupport,
			Similarity: cfg.Insights.Similarity,
		},
		Personas: personas,
		Persona:  cfg.Personas.Default,
		TopK:     cfg.Report.TopK,
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, archive: archive}, nil
}

// Run executes a single pipeline pass, or keeps running on the
// configured interval when the scheduler is enabled. Blocks until ctx
// is cancelled in scheduled mode.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if a.pipeline == nil {
		return nil
	}

	if !a.cfg.Scheduler.Enabled {
		return a.pipeline.ProcessDay(ctx, time.Now())
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, a.pipeline)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

func (a *Application) close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("archive close failed", "error", err)
		}
	}
}
