// Package enhance rewrites the base analysis through a persona profile using
// a prioritized chain of LLM backends. Enhancement is best-effort: every
// failure path degrades to the unmodified base analysis, never to an error.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grumpified/researchwire/internal/config"
	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
)

// Fallback reasons surfaced in EnhancementResult.
const (
	ReasonDisabled  = "disabled"
	ReasonAllFailed = "all_backends_failed"
	ReasonEmptyBase = "empty_base_analysis"
)

// Enhancer walks the backend chain in priority order and stops at the first
// valid response.
type Enhancer struct {
	backends []ports.Backend
	settings config.APISettings
	logger   *slog.Logger
	sleep    func(time.Duration)
}

var _ ports.Enhancer = (*Enhancer)(nil)

// New wires the backend chain with call budget settings.
func New(backends []ports.Backend, settings config.APISettings, logger *slog.Logger) *Enhancer {
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = 30
	}
	if settings.MaxRetries <= 0 {
		settings.MaxRetries = 3
	}
	if settings.RetryDelaySeconds <= 0 {
		settings.RetryDelaySeconds = 1
	}
	return &Enhancer{
		backends: backends,
		settings: settings,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Enhance issues one request per attempt with a hard per-call timeout,
// retrying transport failures with exponential backoff before advancing to
// the next backend. An invalid response burns the backend without further
// retries. Callers must treat a Fallback result as success.
func (e *Enhancer) Enhance(ctx context.Context, base string, persona domain.PersonaProfile) domain.EnhancementResult {
	if e.settings.Disabled || len(e.backends) == 0 {
		return domain.Fallback(ReasonDisabled)
	}
	if strings.TrimSpace(base) == "" {
		return domain.Fallback(ReasonEmptyBase)
	}

	req := ports.BackendRequest{
		SystemPrompt: persona.SystemPrompt,
		UserContent:  base,
		Temperature:  persona.Temperature,
		MaxTokens:    persona.MaxTokens,
	}

	for _, backend := range e.backends {
		text, ok := e.attemptBackend(ctx, backend, req)
		if !ok {
			continue
		}

		if err := validateResponse(text, persona); err != nil {
			e.warn("invalid backend response", "backend", backend.Name(), "error", err)
			continue
		}

		e.info("enhancement applied", "backend", backend.Name(), "persona", persona.Name)
		return domain.Enhanced(text, persona.Name, backend.Name())
	}

	return domain.Fallback(ReasonAllFailed)
}

// attemptBackend runs the per-backend retry loop. It returns ok=false once
// the retry budget for this backend is exhausted.
func (e *Enhancer) attemptBackend(ctx context.Context, backend ports.Backend, req ports.BackendRequest) (string, bool) {
	delay := e.settings.RetryDelay()

	for attempt := 1; attempt <= e.settings.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.settings.Timeout())
		text, err := backend.Complete(callCtx, req)
		cancel()

		if err == nil {
			return text, true
		}

		e.warn("backend attempt failed",
			"backend", backend.Name(),
			"attempt", attempt,
			"max", e.settings.MaxRetries,
			"error", err)

		if ctx.Err() != nil {
			return "", false
		}
		if attempt < e.settings.MaxRetries {
			e.sleep(delay)
			delay *= 2
		}
	}

	return "", false
}

func validateResponse(text string, persona domain.PersonaProfile) error {
	length := len(text)
	if length < persona.MinLength {
		return fmt.Errorf("response length %d below minimum %d", length, persona.MinLength)
	}
	if persona.MaxLength > 0 && length > persona.MaxLength {
		return fmt.Errorf("response length %d above maximum %d", length, persona.MaxLength)
	}
	for _, section := range persona.RequiredSections {
		if !strings.Contains(text, section) {
			return fmt.Errorf("required section %q missing", section)
		}
	}
	return nil
}

func (e *Enhancer) info(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Enhancer) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
