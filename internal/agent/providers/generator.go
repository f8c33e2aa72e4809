// Package providers adapts hosted language models to a single prompt-in,
// text-out Generator.
//
// Every adapter shares the same call path: a tracing span per Generate, a
// per-attempt timeout, retries for transient failures, and errors classified
// into a *GenerationError.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/haasonsaas/sitechat/internal/backoff"
	"github.com/haasonsaas/sitechat/internal/observability"
)

const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 3
	DefaultMaxTokens   = 1024
)

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a generator.
type Config struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`

	// Backoff spaces retries; zero uses backoff.GenerationPolicy.
	Backoff backoff.Policy `yaml:"backoff"`
}

// Options carries the shared dependencies of every adapter.
type Options struct {
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	// Policy overrides Config.Backoff.
	Policy *backoff.Policy
}

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown llm provider")

// New builds the generator named by cfg.Provider. The default is gemini.
func New(ctx context.Context, cfg Config, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini", "google":
		return NewGemini(ctx, cfg, opts)
	case "openai":
		return NewOpenAI(cfg, opts)
	case "anthropic", "claude":
		return NewAnthropic(cfg, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// caller is the retry and instrumentation wrapper shared by the adapters.
type caller struct {
	provider    string
	model       string
	timeout     time.Duration
	maxAttempts int
	policy      backoff.Policy
	metrics     *observability.Metrics
	tracer      *observability.Tracer
}

func newCaller(provider, model string, cfg Config, opts Options) caller {
	c := caller{
		provider:    provider,
		model:       model,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		policy:      backoff.GenerationPolicy(),
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if !cfg.Backoff.IsZero() {
		c.policy = cfg.Backoff
	}
	if opts.Policy != nil {
		c.policy = *opts.Policy
	}
	return c
}

// run calls fn until it succeeds, fails permanently, or attempts run out.
// fn returns the generated text and the HTTP status of a failure, if known.
func (c caller) run(ctx context.Context, fn func(ctx context.Context) (string, int, error)) (string, error) {
	ctx, span := c.tracer.TraceGeneration(ctx, c.provider, c.model)
	defer span.End()
	start := time.Now()

	result, err := backoff.RetryWithBackoff(ctx, c.policy, c.maxAttempts, func(int) (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		text, status, err := fn(attemptCtx)
		if err == nil && strings.TrimSpace(text) == "" {
			return "", backoff.Permanent(&GenerationError{
				Provider: c.provider, Model: c.model, Reason: ReasonEmpty,
				Err: errors.New("model returned no text"),
			})
		}
		if err != nil {
			gerr := newGenerationError(c.provider, c.model, status, err)
			if !gerr.Reason.IsRetryable() {
				return "", backoff.Permanent(gerr)
			}
			return "", gerr
		}
		return text, nil
	})
	c.metrics.ObserveGeneration(c.provider, time.Since(start))
	span.SetAttributes(attribute.Int("llm.attempts", result.Attempts))

	if err != nil {
		var gerr *GenerationError
		if !errors.As(err, &gerr) {
			// Context cancellation between attempts.
			gerr = newGenerationError(c.provider, c.model, 0, err)
		}
		c.metrics.GenerationError(c.provider, string(gerr.Reason))
		c.tracer.RecordError(span, err)
		return "", gerr
	}
	return result.Value, nil
}
