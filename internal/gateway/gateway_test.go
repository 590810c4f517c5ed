package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/mohammad-safakhou/deepresearch/config"
)

type scriptedProvider struct {
	errs  []error
	out   string
	calls int
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	idx := p.calls
	p.calls++
	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", p.errs[idx]
	}
	return p.out, nil
}

func newTestGateway(p Provider) *Gateway {
	g := New(p, config.LLMConfig{MaxRetries: 4, RetryDelay: time.Millisecond, Timeout: time.Second}, log.New(io.Discard, "", 0), nil)
	g.sleep = func(time.Duration) {}
	return g
}

func TestGenerateRetriesOn503(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{&UpstreamError{Status: 503}, &UpstreamError{Status: 503}},
		out:  "plan text",
	}
	g := newTestGateway(p)

	out, err := g.Generate(context.Background(), "prompt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "plan text" {
		t.Fatalf("unexpected output: %q", out)
	}
	if p.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", p.calls)
	}
}

func TestGenerateRetriesOnParseAndTimeout(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{&ParseError{Msg: "not json"}, &TimeoutError{Err: context.DeadlineExceeded}},
		out:  "ok",
	}
	g := newTestGateway(p)

	if _, err := g.Generate(context.Background(), "p", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", p.calls)
	}
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{
			&UpstreamError{Status: 503},
			&UpstreamError{Status: 503},
			&UpstreamError{Status: 503},
			&UpstreamError{Status: 503},
		},
	}
	g := newTestGateway(p)

	_, err := g.Generate(context.Background(), "p", Options{})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != 503 {
		t.Fatalf("expected last upstream error, got %v", err)
	}
	if p.calls != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", p.calls)
	}
}

func TestGenerateDoesNotRetryOtherErrors(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{&UpstreamError{Status: 401, Body: "bad key"}},
	}
	g := newTestGateway(p)

	_, err := g.Generate(context.Background(), "p", Options{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if p.calls != 1 {
		t.Fatalf("expected a single attempt for a non-retryable error, got %d", p.calls)
	}
}
