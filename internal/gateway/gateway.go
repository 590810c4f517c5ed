package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/deepresearch/config"
	"github.com/mohammad-safakhou/deepresearch/internal/telemetry"
)

// Options tune a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the raw text-generation capability the gateway wraps.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Gateway retries generation calls with growing backoff and per-attempt
// timeouts. Timeouts, HTTP 503 and unparseable responses are retried; any
// other failure surfaces immediately. The last error is returned once
// attempts are exhausted.
type Gateway struct {
	provider    Provider
	logger      *log.Logger
	metrics     *telemetry.Metrics
	maxAttempts int
	baseDelay   time.Duration
	baseTimeout time.Duration

	// sleep overrides the backoff wait in tests.
	sleep func(d time.Duration)
}

func New(provider Provider, cfg config.LLMConfig, logger *log.Logger, metrics *telemetry.Metrics) *Gateway {
	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	baseDelay := cfg.RetryDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	baseTimeout := cfg.Timeout
	if baseTimeout <= 0 {
		baseTimeout = 90 * time.Second
	}
	return &Gateway{
		provider:    provider,
		logger:      logger,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		baseTimeout: baseTimeout,
	}
}

// Generate issues one generation call through the retry policy.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	delay := g.baseDelay
	var lastErr error

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			g.metrics.CountLLMRetry()
		}

		// Per-attempt timeout grows by 50% of the base per extra attempt.
		attemptTimeout := g.baseTimeout + time.Duration(float64(g.baseTimeout)*0.5*float64(attempt))
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		out, err := g.provider.Generate(attemptCtx, prompt, opts)
		cancel()

		if err == nil {
			g.metrics.CountLLM("success")
			return out, nil
		}
		lastErr = err

		if !retryable(err) {
			g.logger.Printf("generation failed without retry: %v", err)
			g.metrics.CountLLM("error")
			return "", err
		}
		if attempt == g.maxAttempts-1 {
			break
		}

		wait := delay * time.Duration(attempt+1)
		g.logger.Printf("generation attempt %d/%d failed (%v), retrying in %s", attempt+1, g.maxAttempts, err, wait)
		if err := g.wait(ctx, wait); err != nil {
			g.metrics.CountLLM("error")
			return "", lastErr
		}
		delay = time.Duration(float64(delay) * 1.5)
	}

	g.logger.Printf("generation failed after %d attempts: %v", g.maxAttempts, lastErr)
	g.metrics.CountLLM("error")
	return "", lastErr
}

func (g *Gateway) wait(ctx context.Context, d time.Duration) error {
	if g.sleep != nil {
		g.sleep(d)
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status == http.StatusServiceUnavailable
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
