package providers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultSharedCallTimeout bounds a shared upstream lookup when no timeout is given
const DefaultSharedCallTimeout = 2 * time.Minute

// CachedProvider remembers lookups for a while so a product that appears on
// several receipts, or twice on one, costs one provider call. Clean misses are
// cached too; provider failures are not.
//
// Concurrent identical lookups share one upstream call. That call is detached
// from any single caller's context and bounded by callTimeout, so one caller
// giving up does not fail the others.
type CachedProvider struct {
	next        Provider
	ttl         time.Duration
	callTimeout time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	sf      singleflight.Group
	now     func() time.Time
}

type cacheEntry struct {
	match     *Match // nil for a cached miss
	expiresAt time.Time
}

// NewCachedProvider wraps next with a lookup cache. A non-positive ttl
// returns next unchanged. callTimeout bounds each upstream call; zero means
// DefaultSharedCallTimeout.
func NewCachedProvider(next Provider, ttl, callTimeout time.Duration) Provider {
	if ttl <= 0 {
		return next
	}
	if callTimeout <= 0 {
		callTimeout = DefaultSharedCallTimeout
	}
	return &CachedProvider{
		next:        next,
		ttl:         ttl,
		callTimeout: callTimeout,
		entries:     make(map[string]cacheEntry),
		now:         time.Now,
	}
}

// Name returns the wrapped provider's name
func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// Lookup serves from the cache or calls the wrapped provider. Concurrent
// lookups of the same query share one call.
func (c *CachedProvider) Lookup(ctx context.Context, q Query) (*Match, error) {
	key := cacheKey(q)

	if match, miss, ok := c.get(key); ok {
		if miss {
			return nil, ErrNotFound
		}
		return match, nil
	}

	ch := c.sf.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
		defer cancel()

		match, err := c.next.Lookup(callCtx, q)
		switch {
		case err == nil && match != nil:
			c.put(key, match)
		case err == nil, errors.Is(err, ErrNotFound):
			c.put(key, nil)
			return nil, ErrNotFound
		}
		return match, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyMatch(res.Val.(*Match)), nil
	}
}

func (c *CachedProvider) get(key string) (match *Match, miss bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		return nil, false, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, false
	}
	if e.match == nil {
		return nil, true, true
	}
	return copyMatch(e.match), false, true
}

func (c *CachedProvider) put(key string, match *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// drop expired entries while we hold the lock anyway
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{match: copyMatch(match), expiresAt: now.Add(c.ttl)}
}

// Len returns the number of cached entries, expired ones included
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(q Query) string {
	return string(q.Retailer) + "|" + q.ProductCode + "|" + strings.ToLower(strings.TrimSpace(q.Name))
}

func copyMatch(m *Match) *Match {
	if m == nil {
		return nil
	}
	out := *m
	if m.Price != nil {
		p := *m.Price
		out.Price = &p
	}
	return &out
}
