package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/studyflow-ai/studyflow/pkg/observability"
)

// InstrumentedProvider wraps a provider with rate limiting and Prometheus
// metrics. The limiter bounds call rate only; call duration remains
// unbounded, matching the rest of the system's treatment of blocking
// external calls.
type InstrumentedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithInstrumentation wraps a provider. A non-positive requestsPerSecond
// disables rate limiting but keeps metrics.
func WithInstrumentation(inner Provider, requestsPerSecond float64, burst int) *InstrumentedProvider {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &InstrumentedProvider{inner: inner, limiter: limiter}
}

// Name returns the wrapped provider's name.
func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

// CreateCompletion implements Provider.
func (p *InstrumentedProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := p.inner.CreateCompletion(ctx, request)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordLLMCall(p.inner.Name(), status, time.Since(start))

	return resp, err
}
