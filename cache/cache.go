package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/mediamix/model"
	"github.com/jonwraymond/mediamix/observe"
)

// Sentinel errors for cache operations.
var (
	// ErrComputationTimeout indicates a waiter gave up on an in-flight
	// computation. The computation itself keeps running and will populate
	// the cache for later callers.
	ErrComputationTimeout = errors.New("cache: computation timed out")

	// ErrNilCompute indicates GetOrCompute was called without a compute
	// function.
	ErrNilCompute = errors.New("cache: compute function is nil")
)

// ComputeFunc produces the artifact for a key. It must be safe to invoke
// from any goroutine, must not cache anything itself, and must be
// deterministic for a fixed model handle and key.
type ComputeFunc func(ctx context.Context, key Key) (*model.ResponseCurveSet, error)

// Policy configures cache behavior.
type Policy struct {
	// TTL is how long a stored artifact is served as a hit.
	// Default: 15 minutes.
	TTL time.Duration

	// WaitTimeout bounds how long a caller waits on an in-flight
	// computation before failing with ErrComputationTimeout.
	// Default: 10 seconds.
	WaitTimeout time.Duration
}

// DefaultPolicy returns the default cache policy.
func DefaultPolicy() Policy {
	return Policy{
		TTL:         15 * time.Minute,
		WaitTimeout: 10 * time.Second,
	}
}

// Config configures a Cache.
type Config struct {
	Policy Policy

	// Logger is used for warm-up reporting. Nil means no logging.
	Logger observe.Logger

	// Metrics receives hit/miss/timeout/compute events. Nil means none.
	Metrics observe.CacheMetrics
}

// Cache maps a parameter key to a cached artifact and deduplicates
// concurrent misses for the same key into a single computation.
type Cache struct {
	policy  Policy
	logger  observe.Logger
	metrics observe.CacheMetrics

	// now is a seam for TTL tests; defaults to time.Now.
	now func() time.Time

	mu      sync.RWMutex
	entries map[Key]*entry
	group   singleflight.Group
}

// entry is an immutable cached value: replaced wholesale on refresh,
// never mutated in place.
type entry struct {
	value     *model.ResponseCurveSet
	createdAt time.Time
}

// New creates a cache, applying policy defaults.
func New(cfg Config) *Cache {
	if cfg.Policy.TTL <= 0 {
		cfg.Policy.TTL = DefaultPolicy().TTL
	}
	if cfg.Policy.WaitTimeout <= 0 {
		cfg.Policy.WaitTimeout = DefaultPolicy().WaitTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopCacheMetrics()
	}
	return &Cache{
		policy:  cfg.Policy,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     time.Now,
		entries: make(map[Key]*entry),
	}
}

// GetOrCompute returns the cached artifact for key, computing it at most
// once across all concurrent callers.
//
// Fast path: a live entry is returned as a deep copy with no blocking.
// Miss path: the caller either leads a new computation or joins the one
// already in flight; all attached callers share the leader's result or
// error. A caller that waits longer than the policy's WaitTimeout fails
// with ErrComputationTimeout without cancelling the computation.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) (*model.ResponseCurveSet, error) {
	if compute == nil {
		return nil, ErrNilCompute
	}

	if v, ok := c.lookup(key); ok {
		c.metrics.RecordHit(ctx, key.String())
		return v.Clone(), nil
	}
	c.metrics.RecordMiss(ctx, key.String())

	// The single-flight group is the in-flight table: at most one
	// computation per key, completion broadcast to every waiter, entry
	// removed when the call finishes.
	ch := c.group.DoChan(key.String(), func() (any, error) {
		// A leader that just finished may have stored an entry between
		// our miss and this call.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		// Detached from the caller: a waiter that times out, or a
		// leader whose client disconnects, must not cancel a
		// computation whose result is shared.
		cctx := context.WithoutCancel(ctx)

		start := time.Now()
		v, err := compute(cctx, key)
		c.metrics.RecordCompute(cctx, key.String(), time.Since(start), err)
		if err != nil {
			// Failures are never cached; the next caller recomputes.
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	timer := time.NewTimer(c.policy.WaitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.ResponseCurveSet).Clone(), nil
	case <-timer.C:
		c.metrics.RecordTimeout(ctx, key.String())
		return nil, ErrComputationTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup returns the live entry for key, evicting it lazily if expired.
func (c *Cache) lookup(key Key) (*model.ResponseCurveSet, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().Sub(e.createdAt) >= c.policy.TTL {
		// Expired - evict lazily so the next leader repopulates.
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

func (c *Cache) store(key Key, v *model.ResponseCurveSet) {
	c.mu.Lock()
	c.entries[key] = &entry{value: v, createdAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes the entry for key. Idempotent.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Policy returns the cache's effective policy.
func (c *Cache) Policy() Policy {
	return c.policy
}
