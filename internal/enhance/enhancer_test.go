package enhance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grumpified/researchwire/internal/config"
	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
)

type fakeBackend struct {
	name     string
	response string
	err      error
	calls    int
	block    bool
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Complete(ctx context.Context, req ports.BackendRequest) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var testPersona = domain.PersonaProfile{
	Name:         "scholar",
	SystemPrompt: "analyze",
	Temperature:  0.7,
	MaxTokens:    1000,
	MinLength:    5,
}

func fastSettings() config.APISettings {
	return config.APISettings{TimeoutSeconds: 1, MaxRetries: 3, RetryDelaySeconds: 0.001}
}

func TestEnhanceDisabledWithoutBackends(t *testing.T) {
	t.Parallel()

	e := New(nil, fastSettings(), nil)

	start := time.Now()
	result := e.Enhance(context.Background(), "base analysis", testPersona)
	elapsed := time.Since(start)

	if result.IsEnhanced() || result.Reason != ReasonDisabled {
		t.Fatalf("expected disabled fallback, got %+v", result)
	}
	if elapsed > 100*time.Millisecond {
		t.Fatalf("disabled path must not block, took %v", elapsed)
	}
}

func TestEnhanceDisabledByToggle(t *testing.T) {
	t.Parallel()

	settings := fastSettings()
	settings.Disabled = true
	e := New([]ports.Backend{&fakeBackend{name: "a", response: "long enough"}}, settings, nil)

	result := e.Enhance(context.Background(), "base", testPersona)
	if result.Reason != ReasonDisabled {
		t.Fatalf("expected disabled fallback, got %+v", result)
	}
}

func TestEnhanceFirstSuccessWins(t *testing.T) {
	t.Parallel()

	first := &fakeBackend{name: "cohere", response: "enhanced by first backend"}
	second := &fakeBackend{name: "openai", response: "should not be reached"}
	e := New([]ports.Backend{first, second}, fastSettings(), nil)

	result := e.Enhance(context.Background(), "base", testPersona)

	if !result.IsEnhanced() {
		t.Fatalf("expected enhancement, got fallback %q", result.Reason)
	}
	if result.Backend != "cohere" || result.Persona != "scholar" {
		t.Fatalf("unexpected provenance: %+v", result)
	}
	if second.calls != 0 {
		t.Fatalf("second backend should not be called, got %d calls", second.calls)
	}
}

func TestEnhanceAdvancesPastFailingBackend(t *testing.T) {
	t.Parallel()

	broken := &fakeBackend{name: "cohere", err: errors.New("connection refused")}
	working := &fakeBackend{name: "openai", response: "recovered output"}
	e := New([]ports.Backend{broken, working}, fastSettings(), nil)

	result := e.Enhance(context.Background(), "base", testPersona)

	if !result.IsEnhanced() || result.Backend != "openai" {
		t.Fatalf("expected second backend to serve, got %+v", result)
	}
	if broken.calls != 3 {
		t.Fatalf("expected full retry budget on first backend, got %d calls", broken.calls)
	}
}

func TestEnhanceInvalidResponseBurnsBackend(t *testing.T) {
	t.Parallel()

	tooShort := &fakeBackend{name: "cohere", response: "x"}
	working := &fakeBackend{name: "openai", response: "acceptable output text"}
	e := New([]ports.Backend{tooShort, working}, fastSettings(), nil)

	result := e.Enhance(context.Background(), "base", testPersona)

	if !result.IsEnhanced() || result.Backend != "openai" {
		t.Fatalf("expected fallthrough to second backend, got %+v", result)
	}
	if tooShort.calls != 1 {
		t.Fatalf("invalid response must not retry the same backend, got %d calls", tooShort.calls)
	}
}

func TestEnhanceRequiredSections(t *testing.T) {
	t.Parallel()

	persona := testPersona
	persona.RequiredSections = []string{"## Overview", "## Implications"}

	missing := &fakeBackend{name: "a", response: "## Overview only, long enough"}
	complete := &fakeBackend{name: "b", response: "## Overview text\n## Implications text"}
	e := New([]ports.Backend{missing, complete}, fastSettings(), nil)

	result := e.Enhance(context.Background(), "base", persona)
	if !result.IsEnhanced() || result.Backend != "b" {
		t.Fatalf("expected backend with all sections, got %+v", result)
	}
}

func TestEnhanceAllBackendsFail(t *testing.T) {
	t.Parallel()

	a := &fakeBackend{name: "a", err: errors.New("down")}
	b := &fakeBackend{name: "b", err: errors.New("down")}
	e := New([]ports.Backend{a, b}, fastSettings(), nil)

	result := e.Enhance(context.Background(), "base", testPersona)

	if result.IsEnhanced() || result.Reason != ReasonAllFailed {
		t.Fatalf("expected all_backends_failed, got %+v", result)
	}
	if a.calls != 3 || b.calls != 3 {
		t.Fatalf("expected 3 attempts per backend, got %d and %d", a.calls, b.calls)
	}
}

func TestEnhanceTimeoutBoundedByRetryBudget(t *testing.T) {
	t.Parallel()

	settings := config.APISettings{
		TimeoutSeconds:    1,
		MaxRetries:        2,
		RetryDelaySeconds: 0.01,
	}
	blocking := &fakeBackend{name: "slow", block: true}

	e := New([]ports.Backend{blocking}, settings, nil)
	var slept time.Duration
	e.sleep = func(d time.Duration) { slept += d }

	start := time.Now()
	result := e.Enhance(context.Background(), "base", testPersona)
	elapsed := time.Since(start)

	if result.Reason != ReasonAllFailed {
		t.Fatalf("expected fallback, got %+v", result)
	}
	if blocking.calls != 2 {
		t.Fatalf("expected retry budget of 2 attempts, got %d", blocking.calls)
	}

	// attempts x timeout plus a tolerance; backoff was captured, not slept.
	bound := 2*time.Second + 500*time.Millisecond
	if elapsed > bound {
		t.Fatalf("enhancement exceeded wall-clock bound: %v > %v", elapsed, bound)
	}
	wantBackoff := 10 * time.Millisecond
	if slept != wantBackoff {
		t.Fatalf("expected single backoff of %v between attempts, slept %v", wantBackoff, slept)
	}
}

func TestEnhanceEmptyBase(t *testing.T) {
	t.Parallel()

	e := New([]ports.Backend{&fakeBackend{name: "a", response: "text"}}, fastSettings(), nil)
	result := e.Enhance(context.Background(), "   ", testPersona)
	if result.Reason != ReasonEmptyBase {
		t.Fatalf("expected empty base fallback, got %+v", result)
	}
}
