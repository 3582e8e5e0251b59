package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "RESEARCHWIRE_CONFIG"
	nostrPrivateKeyEnv = "NOSTR_PRIVATE_KEY"
	cohereAPIKeyEnv    = "COHERE_API_KEY"
	cohereModelEnv     = "COHERE_MODEL"
	llmAPIKeyEnv       = "LLM_API_KEY"
	llmEndpointEnv     = "LLM_ENDPOINT"
	llmModelEnv        = "LLM_MODEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Sources     SourcesConfig     `yaml:"sources"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Insights    InsightConfig     `yaml:"insights"`
	Personas    PersonaConfig     `yaml:"personas"`
	API         APISettings       `yaml:"api"`
	Backends    BackendConfig     `yaml:"backends"`
	Report      ReportConfig      `yaml:"report"`
	Publish     PublishConfig     `yaml:"publish"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// LoggingConfig controls the slog handler level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourcesConfig points at the drop directory filled by ingestion collaborators.
type SourcesConfig struct {
	Dir     string         `yaml:"dir"`
	Entries []SourceConfig `yaml:"entries"`
}

// SourceConfig describes one ingestion source and its trust weight.
type SourceConfig struct {
	ID    string  `yaml:"id"`
	Trust float64 `yaml:"trust"`
}

// ScoreWeights blends raw score, source trust, and recency into the composite.
type ScoreWeights struct {
	Raw     float64 `yaml:"raw"`
	Trust   float64 `yaml:"trust"`
	Recency float64 `yaml:"recency"`
}

// AggregationConfig tunes composite scoring and relevance filtering.
type AggregationConfig struct {
	Threshold   float64      `yaml:"threshold"`
	HorizonDays int          `yaml:"horizonDays"`
	Weights     ScoreWeights `yaml:"weights"`
}

// Horizon returns the recency decay window as a duration.
func (a AggregationConfig) Horizon() time.Duration {
	return time.Duration(a.HorizonDays) * 24 * time.Hour
}

// InsightConfig tunes pattern mining.
type InsightConfig struct {
	MinSupport int     `yaml:"minSupport"`
	Similarity float64 `yaml:"similarity"`
}

// PersonaConfig selects the persona catalog and default persona name.
type PersonaConfig struct {
	File    string `yaml:"file"`
	Default string `yaml:"default"`
}

// APISettings bounds every LLM backend call. The worst-case enhancement wall
// clock is backends x (MaxRetries x Timeout + backoff sum), which with the
// defaults (3 attempts, 30s timeout, 1s base delay) stays under 95s per backend.
type APISettings struct {
	Disabled          bool    `yaml:"disabled"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
	MaxRetries        int     `yaml:"maxRetries"`
	RetryDelaySeconds float64 `yaml:"retryDelaySeconds"`
}

// Timeout returns the per-call deadline.
func (a APISettings) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base backoff delay between attempts.
func (a APISettings) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelaySeconds * float64(time.Second))
}

// BackendConfig resolves which LLM backends are attempted. Presence of a
// credential enables the backend; absence of all credentials is a supported
// state in which enhancement always falls back.
type BackendConfig struct {
	CohereAPIKey string `yaml:"-"`
	CohereModel  string `yaml:"cohereModel"`
	APIKey       string `yaml:"-"`
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
}

// ReportConfig describes the two report output directories.
type ReportConfig struct {
	RichDir    string `yaml:"richDir"`
	MinimalDir string `yaml:"minimalDir"`
	TopK       int    `yaml:"topK"`
}

// PublishConfig drives relay fan-out for the publication event.
type PublishConfig struct {
	Relays              []string `yaml:"relays"`
	Quorum              int      `yaml:"quorum"`
	RelayTimeoutSeconds int      `yaml:"relayTimeoutSeconds"`
	BudgetSeconds       int      `yaml:"budgetSeconds"`
	RecordDir           string   `yaml:"recordDir"`
	Categories          []string `yaml:"categories"`
	MaxKeywords         int      `yaml:"maxKeywords"`
	PrivateKey          string   `yaml:"-"`
}

// RelayTimeout returns the per-relay attempt deadline.
func (p PublishConfig) RelayTimeout() time.Duration {
	return time.Duration(p.RelayTimeoutSeconds) * time.Second
}

// Budget returns the global publishing deadline.
func (p PublishConfig) Budget() time.Duration {
	return time.Duration(p.BudgetSeconds) * time.Second
}

// ArchiveConfig points at the optional SQLite run archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig enables the recurring daily run. Disabled means a
// single run per process invocation.
type SchedulerConfig struct {
	Enabled       bool `yaml:"enabled"`
	IntervalHours int  `yaml:"intervalHours"`
}

// Interval returns the tick period between runs.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalHours) * time.Hour
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(nostrPrivateKeyEnv)); v != "" {
		c.Publish.PrivateKey = v
	}
	if v := strings.TrimSpace(os.Getenv(cohereAPIKeyEnv)); v != "" {
		c.Backends.CohereAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(cohereModelEnv)); v != "" {
		c.Backends.CohereModel = v
	}
	if v := strings.TrimSpace(os.Getenv(llmAPIKeyEnv)); v != "" {
		c.Backends.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(llmEndpointEnv)); v != "" {
		c.Backends.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(llmModelEnv)); v != "" {
		c.Backends.Model = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Sources.Dir != "" {
		base.Sources.Dir = override.Sources.Dir
	}
	if len(override.Sources.Entries) > 0 {
		base.Sources.Entries = override.Sources.Entries
	}

	if override.Aggregation.Threshold > 0 {
		base.Aggregation.Threshold = override.Aggregation.Threshold
	}
	if override.Aggregation.HorizonDays > 0 {
		base.Aggregation.HorizonDays = override.Aggregation.HorizonDays
	}
	if w := override.Aggregation.Weights; w.Raw+w.Trust+w.Recency > 0 {
		base.Aggregation.Weights = w
	}

	if override.Insights.MinSupport > 0 {
		base.Insights.MinSupport = override.Insights.MinSupport
	}
	if override.Insights.Similarity > 0 {
		base.Insights.Similarity = override.Insights.Similarity
	}

	if override.Personas.File != "" {
		base.Personas.File = override.Personas.File
	}
	if override.Personas.Default != "" {
		base.Personas.Default = override.Personas.Default
	}

	if override.API.Disabled {
		base.API.Disabled = true
	}
	if override.API.TimeoutSeconds > 0 {
		base.API.TimeoutSeconds = override.API.TimeoutSeconds
	}
	if override.API.MaxRetries > 0 {
		base.API.MaxRetries = override.API.MaxRetries
	}
	if override.API.RetryDelaySeconds > 0 {
		base.API.RetryDelaySeconds = override.API.RetryDelaySeconds
	}

	if override.Backends.CohereModel != "" {
		base.Backends.CohereModel = override.Backends.CohereModel
	}
	if override.Backends.Endpoint != "" {
		base.Backends.Endpoint = override.Backends.Endpoint
	}
	if override.Backends.Model != "" {
		base.Backends.Model = override.Backends.Model
	}

	if override.Report.RichDir != "" {
		base.Report.RichDir = override.Report.RichDir
	}
	if override.Report.MinimalDir != "" {
		base.Report.MinimalDir = override.Report.MinimalDir
	}
	if override.Report.TopK > 0 {
		base.Report.TopK = override.Report.TopK
	}

	if len(override.Publish.Relays) > 0 {
		base.Publish.Relays = override.Publish.Relays
	}
	if override.Publish.Quorum > 0 {
		base.Publish.Quorum = override.Publish.Quorum
	}
	if override.Publish.RelayTimeoutSeconds > 0 {
		base.Publish.RelayTimeoutSeconds = override.Publish.RelayTimeoutSeconds
	}
	if override.Publish.BudgetSeconds > 0 {
		base.Publish.BudgetSeconds = override.Publish.BudgetSeconds
	}
	if override.Publish.RecordDir != "" {
		base.Publish.RecordDir = override.Publish.RecordDir
	}
	if len(override.Publish.Categories) > 0 {
		base.Publish.Categories = override.Publish.Categories
	}
	if override.Publish.MaxKeywords > 0 {
		base.Publish.MaxKeywords = override.Publish.MaxKeywords
	}

	if override.Archive.Path != "" {
		base.Archive.Path = override.Archive.Path
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Sources: SourcesConfig{
			Dir: "data",
			Entries: []SourceConfig{
				{ID: "arxiv", Trust: 1.0},
				{ID: "huggingface", Trust: 0.8},
				{ID: "paperswithcode", Trust: 0.8},
			},
		},
		Aggregation: AggregationConfig{
			Threshold:   0.5,
			HorizonDays: 7,
			Weights:     ScoreWeights{Raw: 0.6, Trust: 0.2, Recency: 0.2},
		},
		Insights: InsightConfig{MinSupport: 3, Similarity: 0.5},
		Personas: PersonaConfig{File: "", Default: "scholar"},
		API: APISettings{
			TimeoutSeconds:    30,
			MaxRetries:        3,
			RetryDelaySeconds: 1,
		},
		Backends: BackendConfig{
			CohereModel: "command-r-plus",
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
		},
		Report: ReportConfig{
			RichDir:    "docs/_daily",
			MinimalDir: "docs/reports",
			TopK:       10,
		},
		Publish: PublishConfig{
			Relays: []string{
				"wss://relay.damus.io",
				"wss://relay.nostr.band",
				"wss://nostr.wine",
				"wss://relay.snort.social",
				"wss://nos.lol",
				"wss://nostr.mom",
				"wss://relay.nostr.bg",
				"wss://nostr-pub.wellorder.net",
				"wss://nostr.oxtr.dev",
				"wss://relay.mostr.pub",
			},
			Quorum:              1,
			RelayTimeoutSeconds: 10,
			BudgetSeconds:       60,
			RecordDir:           "data/publications",
			Categories:          []string{"ai", "research", "daily"},
			MaxKeywords:         5,
		},
		Archive: ArchiveConfig{Path: ""},
		Scheduler: SchedulerConfig{
			Enabled:       false,
			IntervalHours: 24,
		},
	}
}
