// Package llm holds summarizer decorators shared by every provider.
package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// RateLimited bounds the request rate to a summarizer. Callers wait for a
// token until their context ends.
type RateLimited struct {
	next    outbound.Summarizer
	limiter *rate.Limiter
}

// NewRateLimited wraps next. A non-positive rps disables limiting.
func NewRateLimited(next outbound.Summarizer, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Summarize(ctx context.Context, req outbound.SummaryRequest) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for summarizer rate limit: %w", err)
	}
	return r.next.Summarize(ctx, req)
}

func (r *RateLimited) HealthCheck(ctx context.Context) error { return r.next.HealthCheck(ctx) }

func (r *RateLimited) ModelInfo() outbound.ModelInfo { return r.next.ModelInfo() }
