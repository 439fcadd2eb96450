package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
	"github.com/neoosi/neoosi-core/internal/observability"
)

// TextGenerator is what the pipeline needs from a generation gateway
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error)
}

// Verify interface compliance
var _ TextGenerator = (*Gateway)(nil)

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// GatewayConfig holds dependencies for Gateway.
type GatewayConfig struct {
	Primary   driven.Generator
	Secondary driven.Generator // Optional

	// MaxAttempts on the primary before the secondary is tried
	MaxAttempts int
	// BaseBackoff is the wait after the first transient failure; it doubles
	// after each further one.
	BaseBackoff time.Duration

	Wait    WaitFunc // Defaults to a context-aware timer
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Gateway calls a primary generation backend with retry on transient
// failures, then hands over to a secondary backend once.
//
//	primary -> [transient] -> wait base*2^i -> primary ... (MaxAttempts)
//	        -> secondary (once) -> ok | GenerationError
//
// A non-transient primary failure skips the remaining retries and goes
// straight to the secondary. Cancellation of ctx ends the call at once.
type Gateway struct {
	primary     driven.Generator
	secondary   driven.Generator
	maxAttempts int
	baseBackoff time.Duration
	wait        WaitFunc
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewGateway creates a new Gateway
func NewGateway(cfg GatewayConfig) *Gateway {
	defaults := domain.DefaultRetrievalSettings()

	g := &Gateway{
		primary:     cfg.Primary,
		secondary:   cfg.Secondary,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		wait:        cfg.Wait,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = defaults.MaxAttempts
	}
	if g.baseBackoff <= 0 {
		g.baseBackoff = defaults.BaseBackoff
	}
	if g.wait == nil {
		g.wait = sleepContext
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// IsTransient reports whether err is worth retrying on the same backend
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrBackendOverloaded)
}

// Generate runs the retry and fallback state machine.
// Failures are returned as *domain.GenerationError carrying the last error.
func (g *Gateway) Generate(ctx context.Context, prompt string, history []*domain.ChatTurn) (text string, err error) {
	ctx, span := observability.StartSpan(ctx, "gateway.generate",
		attribute.Int("history_turns", len(history)))
	defer func() { observability.EndSpan(span, err) }()

	attempts := 0
	var lastErr error

	for i := 0; i < g.maxAttempts; i++ {
		if i > 0 {
			backoff := g.baseBackoff << (i - 1)
			g.logger.Warn("primary backend overloaded, retrying",
				"backend", g.primary.Name(), "attempt", i+1, "backoff", backoff)
			if werr := g.wait(ctx, backoff); werr != nil {
				return "", &domain.GenerationError{Backend: g.primary.Name(), Attempts: attempts, Err: werr}
			}
		}

		attempts++
		text, lastErr = g.primary.Generate(ctx, prompt, history)
		if lastErr == nil {
			g.metrics.ObserveGenerationAttempt(g.primary.Name(), "ok")
			span.SetAttributes(attribute.Int("attempts", attempts), attribute.String("backend", g.primary.Name()))
			return text, nil
		}
		if ctx.Err() != nil {
			g.metrics.ObserveGenerationAttempt(g.primary.Name(), "canceled")
			return "", &domain.GenerationError{Backend: g.primary.Name(), Attempts: attempts, Err: ctx.Err()}
		}
		if !IsTransient(lastErr) {
			g.metrics.ObserveGenerationAttempt(g.primary.Name(), "error")
			g.logger.Warn("primary backend failed", "backend", g.primary.Name(), "error", lastErr)
			break
		}
		g.metrics.ObserveGenerationAttempt(g.primary.Name(), "transient")
	}

	if g.secondary == nil {
		return "", &domain.GenerationError{Backend: g.primary.Name(), Attempts: attempts, Err: lastErr}
	}

	g.metrics.ObserveFallback()
	g.logger.Warn("switching to secondary backend",
		"primary", g.primary.Name(), "secondary", g.secondary.Name(), "attempts", attempts, "error", lastErr)

	attempts++
	text, err = g.secondary.Generate(ctx, prompt, history)
	span.SetAttributes(attribute.Int("attempts", attempts), attribute.String("backend", g.secondary.Name()))
	if err != nil {
		g.metrics.ObserveGenerationAttempt(g.secondary.Name(), "error")
		return "", &domain.GenerationError{Backend: g.secondary.Name(), Attempts: attempts, Err: err}
	}
	g.metrics.ObserveGenerationAttempt(g.secondary.Name(), "ok")
	return text, nil
}

// Ping checks the primary backend
func (g *Gateway) Ping(ctx context.Context) error {
	return g.primary.Ping(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
