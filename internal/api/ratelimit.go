package api

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterPool keeps one token-bucket limiter per model so every call
// path hitting the same endpoint shares a request budget. The rpm comes
// from config and is fixed for the life of the limiter: the first caller's
// value wins and later mismatches are logged, not applied.
type RateLimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rates    map[string]int
}

func NewRateLimiterPool() *RateLimiterPool {
	return &RateLimiterPool{
		limiters: make(map[string]*rate.Limiter),
		rates:    make(map[string]int),
	}
}

// getOrCreate returns the limiter for modelID, building it on first use.
// rpm converts to a per-second rate with burst capacity of a fifth of the
// minute budget, at least 5.
func (p *RateLimiterPool) getOrCreate(modelID string, requestsPerMinute int) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, ok := p.limiters[modelID]; ok {
		if p.rates[modelID] != requestsPerMinute {
			slog.Warn("Rate limiter already configured for model, keeping existing rate",
				"model_id", modelID,
				"existing_rpm", p.rates[modelID],
				"requested_rpm", requestsPerMinute)
		}
		return limiter
	}

	rps := float64(requestsPerMinute) / 60.0
	burst := max(5, requestsPerMinute/5)
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	p.limiters[modelID] = limiter
	p.rates[modelID] = requestsPerMinute

	slog.Debug("Created rate limiter",
		"model_id", modelID,
		"rpm", requestsPerMinute,
		"burst", burst)
	return limiter
}

// Wait blocks until the model's limiter releases the next request or the
// context is cancelled.
func (p *RateLimiterPool) Wait(ctx context.Context, modelID string, requestsPerMinute int) error {
	return p.getOrCreate(modelID, requestsPerMinute).Wait(ctx)
}
