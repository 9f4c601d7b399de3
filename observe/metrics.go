package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics records coalescing-cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; never blocks the cache's hot path.
// - Errors: implementations must not panic.
type CacheMetrics interface {
	// RecordHit records a cache hit for the given key.
	RecordHit(ctx context.Context, key string)

	// RecordMiss records a cache miss for the given key.
	RecordMiss(ctx context.Context, key string)

	// RecordTimeout records a waiter giving up on an in-flight computation.
	RecordTimeout(ctx context.Context, key string)

	// RecordCompute records one underlying computation with its duration
	// and error status.
	RecordCompute(ctx context.Context, key string, duration time.Duration, err error)
}

// cacheMetrics is the OTel-backed implementation of CacheMetrics.
type cacheMetrics struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	timeouts     metric.Int64Counter
	computes     metric.Int64Counter
	computeErrs  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewCacheMetrics creates a CacheMetrics instance with the given meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	hits, err := meter.Int64Counter(
		"curvecache.hits",
		metric.WithDescription("Response curve cache hits"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"curvecache.misses",
		metric.WithDescription("Response curve cache misses"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter(
		"curvecache.wait_timeouts",
		metric.WithDescription("Waiters that timed out on an in-flight computation"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}

	computes, err := meter.Int64Counter(
		"curvecache.computations",
		metric.WithDescription("Underlying curve computations performed"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	computeErrs, err := meter.Int64Counter(
		"curvecache.computation_errors",
		metric.WithDescription("Underlying curve computations that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"curvecache.compute_duration_ms",
		metric.WithDescription("Curve computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		hits:         hits,
		misses:       misses,
		timeouts:     timeouts,
		computes:     computes,
		computeErrs:  computeErrs,
		durationHist: durationHist,
	}, nil
}

func (m *cacheMetrics) RecordHit(ctx context.Context, key string) {
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

func (m *cacheMetrics) RecordMiss(ctx context.Context, key string) {
	m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

func (m *cacheMetrics) RecordTimeout(ctx context.Context, key string) {
	m.timeouts.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

func (m *cacheMetrics) RecordCompute(ctx context.Context, key string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.key", key))
	m.computes.Add(ctx, 1, opt)
	if err != nil {
		m.computeErrs.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// HTTPMetrics records request-level metrics for the API surface.
type HTTPMetrics interface {
	// RecordRequest records one served request.
	RecordRequest(ctx context.Context, route string, status int, duration time.Duration)
}

type httpMetrics struct {
	total        metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewHTTPMetrics creates an HTTPMetrics instance with the given meter.
func NewHTTPMetrics(meter metric.Meter) (HTTPMetrics, error) {
	total, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.request.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{total: total, durationHist: durationHist}, nil
}

func (m *httpMetrics) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.total.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// Noop implementations for wiring without telemetry.
type noopCacheMetrics struct{}

func (noopCacheMetrics) RecordHit(context.Context, string)                           {}
func (noopCacheMetrics) RecordMiss(context.Context, string)                          {}
func (noopCacheMetrics) RecordTimeout(context.Context, string)                       {}
func (noopCacheMetrics) RecordCompute(context.Context, string, time.Duration, error) {}

// NopCacheMetrics returns a CacheMetrics that records nothing.
func NopCacheMetrics() CacheMetrics { return noopCacheMetrics{} }

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(context.Context, string, int, time.Duration) {}

// NopHTTPMetrics returns an HTTPMetrics that records nothing.
func NopHTTPMetrics() HTTPMetrics { return noopHTTPMetrics{} }

var (
	_ CacheMetrics = (*cacheMetrics)(nil)
	_ CacheMetrics = noopCacheMetrics{}
	_ HTTPMetrics  = (*httpMetrics)(nil)
	_ HTTPMetrics  = noopHTTPMetrics{}
)
