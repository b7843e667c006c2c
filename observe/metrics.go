package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMeta identifies a query for telemetry purposes.
type QueryMeta struct {
	Name  string // logical query name, e.g. "sales_by_country"
	Table string // primary table (optional)
}

// SpanName returns the deterministic span name for this query.
// Format: db.query.<name>
func (m QueryMeta) SpanName() string {
	if m.Name == "" {
		return "db.query"
	}
	return "db.query." + m.Name
}

func (m QueryMeta) attrs() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if m.Name != "" {
		attrs = append(attrs, attribute.String("query.name", m.Name))
	}
	if m.Table != "" {
		attrs = append(attrs, attribute.String("query.table", m.Table))
	}
	return attrs
}

// QueryMetrics records query execution and cache activity.
//
// Its cache methods satisfy the querycache.Recorder interface, so a
// single instance serves both the connector and the cache.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording is best-effort and must not panic.
type QueryMetrics struct {
	queryTotal    metric.Int64Counter
	queryErrors   metric.Int64Counter
	queryDuration metric.Float64Histogram

	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	cacheStores    metric.Int64Counter
	cacheBytes     metric.Int64Counter
	cacheEvictions metric.Int64Counter
}

// NewQueryMetrics creates the instruments on the given meter.
func NewQueryMetrics(meter metric.Meter) (*QueryMetrics, error) {
	m := &QueryMetrics{}
	var err error

	if m.queryTotal, err = meter.Int64Counter(
		"db.query.total",
		metric.WithDescription("Total number of executed queries"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, err
	}

	if m.queryErrors, err = meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Total number of failed queries"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.queryDuration, err = meter.Float64Histogram(
		"db.query.duration_ms",
		metric.WithDescription("Query execution duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.cacheHits, err = meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Query cache hits, by tier"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}

	if m.cacheMisses, err = meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Query cache misses"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}

	if m.cacheStores, err = meter.Int64Counter(
		"cache.stores",
		metric.WithDescription("Results stored in the query cache"),
		metric.WithUnit("{store}"),
	); err != nil {
		return nil, err
	}

	if m.cacheBytes, err = meter.Int64Counter(
		"cache.stored_bytes",
		metric.WithDescription("Serialized bytes stored in the query cache"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.cacheEvictions, err = meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Memory-tier entries evicted for capacity"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordQuery records one query execution.
func (m *QueryMetrics) RecordQuery(ctx context.Context, meta QueryMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attrs()...)

	m.queryTotal.Add(ctx, 1, opt)
	if err != nil {
		m.queryErrors.Add(ctx, 1, opt)
	}
	m.queryDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// CacheHit records a cache hit served from the given tier.
func (m *QueryMetrics) CacheHit(ctx context.Context, tier string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tier", tier)))
}

// CacheMiss records a cache miss.
func (m *QueryMetrics) CacheMiss(ctx context.Context) {
	m.cacheMisses.Add(ctx, 1)
}

// CacheStore records a stored result and its serialized size.
func (m *QueryMetrics) CacheStore(ctx context.Context, sizeBytes int) {
	m.cacheStores.Add(ctx, 1)
	m.cacheBytes.Add(ctx, int64(sizeBytes))
}

// CacheEviction records a capacity eviction of n entries.
func (m *QueryMetrics) CacheEviction(ctx context.Context, n int) {
	m.cacheEvictions.Add(ctx, int64(n))
}
