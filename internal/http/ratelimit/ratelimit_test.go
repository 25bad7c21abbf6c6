package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_FirstRequestImmediate(t *testing.T) {
	r := NewRateLimiter(Config{MinInterval: time.Hour})

	start := time.Now()
	require.NoError(t, r.Throttle(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestThrottle_SpacesSequentialRequests(t *testing.T) {
	r := NewRateLimiter(Config{MinInterval: 40 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Throttle(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestThrottle_ConcurrentCallers(t *testing.T) {
	const interval = 30 * time.Millisecond
	r := NewRateLimiter(Config{MinInterval: interval})

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Throttle(context.Background()))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	require.Len(t, stamps, 5)
	// allow a little scheduler slack per gap
	assert.GreaterOrEqual(t, stamps[4].Sub(stamps[0]), 4*interval-10*time.Millisecond)
}

func TestThrottle_Cancelled(t *testing.T) {
	r := NewRateLimiter(Config{MinInterval: time.Hour})
	require.NoError(t, r.Throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Throttle(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestThrottle_Reset(t *testing.T) {
	r := NewRateLimiter(Config{MinInterval: time.Hour})
	require.NoError(t, r.Throttle(context.Background()))
	r.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Throttle(ctx))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialBackoffMs: 100, MaxBackoffMs: 1000}

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{0, 100 * time.Millisecond, 125 * time.Millisecond},
		{1, 200 * time.Millisecond, 250 * time.Millisecond},
		{2, 400 * time.Millisecond, 500 * time.Millisecond},
		{10, 1000 * time.Millisecond, 1250 * time.Millisecond},
	}

	for _, tt := range tests {
		got := CalculateBackoff(tt.attempt, cfg)
		assert.GreaterOrEqual(t, got, tt.min)
		assert.LessOrEqual(t, got, tt.max)
	}
}

func TestCalculateRateLimitBackoff(t *testing.T) {
	cfg := Config{InitialBackoffMs: 100, MaxBackoffMs: 10000}

	t.Run("retry-after header", func(t *testing.T) {
		got := CalculateRateLimitBackoff(0, cfg, "2")
		assert.GreaterOrEqual(t, got, 2*time.Second)
		assert.Less(t, got, 3*time.Second)
	})

	t.Run("exponential 3x", func(t *testing.T) {
		got := CalculateRateLimitBackoff(2, cfg, "")
		assert.GreaterOrEqual(t, got, 900*time.Millisecond)
		assert.LessOrEqual(t, got, 1125*time.Millisecond)
	})
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(429))
	assert.True(t, IsRetryableStatus(500))
	assert.True(t, IsRetryableStatus(503))
	assert.False(t, IsRetryableStatus(404))
	assert.False(t, IsRetryableStatus(401))
	assert.False(t, IsRetryableStatus(200))
}

func TestFetchRetryError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &FetchRetryError{URL: "http://x", Attempts: 3, LastStatus: 503, LastError: cause}

	assert.Equal(t, "failed to fetch http://x after 3 attempts (HTTP 503): connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}
