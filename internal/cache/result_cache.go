// Package cache provides the prediction result cache and the reference data cache.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

const defaultCleanupInterval = time.Minute

// ComputeFunc produces a fresh prediction result on a cache miss
type ComputeFunc func(ctx context.Context) (*models.PredictionResult, error)

// ResultCache is a process-wide TTL cache of prediction results. Concurrent misses
// for one key share a single computation.
type ResultCache struct {
	store *gocache.Cache
	group singleflight.Group

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewResultCache creates a new result cache. Expired items are purged every cleanupInterval.
func NewResultCache(cleanupInterval time.Duration) *ResultCache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &ResultCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// PredictionKey returns the cache key of a session's prediction
func PredictionKey(sessionKey int) string {
	return fmt.Sprintf("predict:%d", sessionKey)
}

// Get returns an unexpired entry without touching hit statistics
func (rc *ResultCache) Get(key string) (*models.PredictionResult, bool) {
	v, found := rc.store.Get(key)
	if !found {
		return nil, false
	}
	res, ok := v.(*models.PredictionResult)
	return res, ok
}

// GetOrCompute returns the unexpired entry for key, or calls compute once and stores
// its result until now+ttl. Errors from compute are returned and not stored.
// The computation runs detached from ctx cancellation so that joined callers still
// receive its result; ctx only bounds how long this caller waits.
func (rc *ResultCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (*models.PredictionResult, error) {
	if res, ok := rc.Get(key); ok {
		rc.record(true)
		return res, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := rc.group.DoChan(key, func() (interface{}, error) {
		// a flight that finished between our lookup and joining may have filled the key
		if res, ok := rc.Get(key); ok {
			return res, nil
		}
		rc.record(false)

		res, err := compute(detached)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			rc.store.Set(key, res, ttl)
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.PredictionResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes one entry
func (rc *ResultCache) Invalidate(key string) {
	rc.store.Delete(key)
}

// Clear flushes the entire cache
func (rc *ResultCache) Clear() {
	rc.store.Flush()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.hitCount = 0
	rc.missCount = 0
}

// Stats returns cache statistics
func (rc *ResultCache) Stats() (hits, misses uint64, ratio float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.statsLocked()
}

func (rc *ResultCache) statsLocked() (hits, misses uint64, ratio float64) {
	hits = rc.hitCount
	misses = rc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (rc *ResultCache) record(hit bool) {
	rc.mu.Lock()
	if hit {
		rc.hitCount++
	} else {
		rc.missCount++
	}
	_, _, ratio := rc.statsLocked()
	rc.mu.Unlock()

	metrics.RecordPredictionCacheLookup(hit, ratio)
}

// ItemCount returns the number of items in cache, including expired ones not yet purged
func (rc *ResultCache) ItemCount() int {
	return rc.store.ItemCount()
}
