package service

import (
	"context"
	"sync"
	"time"

	"github.com/paymux/gateway/internal/scoring"
)

// WeightsSource loads the stored scoring weights. found=false means no
// row is configured.
type WeightsSource interface {
	Weights(ctx context.Context) (scoring.Weights, bool, error)
}

// WeightsCache is a short-TTL single-writer cache over the scoring
// weights. Readers share the lock; one goroutine refreshes on expiry.
type WeightsCache struct {
	source WeightsSource
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	weights  scoring.Weights
	loadedAt time.Time
}

func NewWeightsCache(source WeightsSource, ttl time.Duration, now func() time.Time) *WeightsCache {
	if now == nil {
		now = time.Now
	}
	return &WeightsCache{source: source, ttl: ttl, now: now}
}

// Weights returns the cached weights, refreshing once the TTL lapses.
// A failed refresh serves the stale value when one exists; the error
// is only surfaced on a cold cache, where the caller falls back to
// round-robin routing.
func (c *WeightsCache) Weights(ctx context.Context) (scoring.Weights, error) {
	c.mu.RLock()
	if !c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl {
		w := c.weights
		c.mu.RUnlock()
		return w, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl {
		return c.weights, nil
	}

	w, found, err := c.source.Weights(ctx)
	if err != nil {
		if !c.loadedAt.IsZero() {
			return c.weights, nil
		}
		return scoring.Weights{}, err
	}
	if !found {
		w = scoring.DefaultWeights()
	}
	c.weights = w
	c.loadedAt = c.now()
	return w, nil
}
