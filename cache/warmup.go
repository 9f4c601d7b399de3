package cache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/mediamix/observe"
)

// Warm-up grid: the common credible intervals at the default resolution.
// Callers requesting other parameters populate the cache on demand.
var DefaultWarmIntervals = []float64{0.80, 0.90, 0.95}

// DefaultWarmPoints is the spend-grid resolution used for warm-up keys.
const DefaultWarmPoints = 50

// warmConcurrency bounds parallel warm-up computations so a preload does
// not starve request traffic.
const warmConcurrency = 2

// DefaultWarmKeys returns the fixed set of keys warmed on preload:
// all-channels curves at each default interval.
func DefaultWarmKeys() []Key {
	keys := make([]Key, 0, len(DefaultWarmIntervals))
	for _, interval := range DefaultWarmIntervals {
		keys = append(keys, NewKey(nil, DefaultWarmPoints, interval))
	}
	return keys
}

// Warm populates the cache for the given keys, best effort. Each key is
// attempted independently: a failure is logged and swallowed so one bad
// key cannot block warming the rest or fail the caller. Returns the
// number of keys that ended up warm.
//
// Warm is idempotent: keys already cached are hits, and concurrent warm
// calls dedup through the same single-flight group as request traffic.
func (c *Cache) Warm(ctx context.Context, keys []Key, compute ComputeFunc) int {
	var warmed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(warmConcurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if _, err := c.GetOrCompute(ctx, key, compute); err != nil {
				c.logger.Warn(ctx, "warmup key failed",
					observe.F("key", key.String()),
					observe.F("error", err.Error()))
				return nil // best effort; never surface per-key failures
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(warmed.Load())
}
