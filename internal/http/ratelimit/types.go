package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds rate limiting configuration for one outbound provider
type Config struct {
	MinInterval      time.Duration `json:"minInterval"`
	MaxRetries       int           `json:"maxRetries"`
	InitialBackoffMs int           `json:"initialBackoffMs"`
	MaxBackoffMs     int           `json:"maxBackoffMs"`
}

// DefaultConfig returns the default rate limit configuration
func DefaultConfig() Config {
	return Config{
		MinInterval:      time.Second,
		MaxRetries:       3,
		InitialBackoffMs: 100,
		MaxBackoffMs:     30000,
	}
}

// RateLimiter enforces a minimum delay between consecutive requests to the
// same provider. It is safe for concurrent use: callers are assigned
// consecutive slots at least MinInterval apart.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastRequest time.Time
	now         func() time.Time
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config Config) *RateLimiter {
	return &RateLimiter{
		minInterval: config.MinInterval,
		now:         time.Now,
	}
}

// NewRateLimiterDefault creates a rate limiter with default config
func NewRateLimiterDefault() *RateLimiter {
	return NewRateLimiter(DefaultConfig())
}

// MinInterval returns the configured minimum delay between requests
func (r *RateLimiter) MinInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minInterval
}

// SetMinInterval updates the minimum delay between requests
func (r *RateLimiter) SetMinInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minInterval = d
}

// Throttle waits until this caller's request slot arrives.
// Call this before making a request. Returns ctx.Err() if the context is
// done first; the reserved slot is not given back.
func (r *RateLimiter) Throttle(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	slot := now
	if !r.lastRequest.IsZero() {
		if next := r.lastRequest.Add(r.minInterval); next.After(now) {
			slot = next
		}
	}
	r.lastRequest = slot
	r.mu.Unlock()

	return Sleep(ctx, slot.Sub(now))
}

// Reset resets the rate limiter state
// Useful for testing or after long pauses
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRequest = time.Time{}
}
