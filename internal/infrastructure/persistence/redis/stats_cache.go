package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/peercall/peercall-hub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// ALLOCATION STATS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// statsKeyLastPass holds the outcome of the most recent generation pass.
const statsKeyLastPass = "allocation:last_pass"

// AllocationStatsCache stores the outcome of the last match generation pass
// so the stats endpoint can serve it without touching PostgreSQL.
// Implements query.AllocationStatsReader.
type AllocationStatsCache struct {
	cache *Cache
}

// NewAllocationStatsCache creates a new AllocationStatsCache.
func NewAllocationStatsCache(cache *Cache) *AllocationStatsCache {
	return &AllocationStatsCache{cache: cache}
}

// StoreAllocationStats records the outcome of a generation pass.
func (c *AllocationStatsCache) StoreAllocationStats(ctx context.Context, stats query.AllocationStats) error {
	key := StatsKey(statsKeyLastPass)
	if err := c.cache.Set(ctx, key, stats, TTLAllocationStats); err != nil {
		return fmt.Errorf("failed to store allocation stats: %w", err)
	}
	return nil
}

// LastAllocationStats returns the stats of the most recent generation pass,
// or nil when no pass has run within the retention window.
func (c *AllocationStatsCache) LastAllocationStats(ctx context.Context) (*query.AllocationStats, error) {
	key := StatsKey(statsKeyLastPass)

	var stats query.AllocationStats
	if err := c.cache.Get(ctx, key, &stats); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load allocation stats: %w", err)
	}

	return &stats, nil
}

// AcquirePassLock takes the distributed lock guarding a batch pass.
// Returns false when another worker instance holds it.
func (c *AllocationStatsCache) AcquirePassLock(ctx context.Context, pass string) (bool, error) {
	return c.cache.SetNX(ctx, LockKey("pass:"+pass), 1, TTLPassLock)
}

// ReleasePassLock releases the batch pass lock.
func (c *AllocationStatsCache) ReleasePassLock(ctx context.Context, pass string) error {
	return c.cache.Delete(ctx, LockKey("pass:"+pass))
}
