package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/querycache"
)

// Pinger is the slice of the database the checker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker verifies the analytics database answers a ping.
type DatabaseChecker struct {
	db Pinger
}

// NewDatabaseChecker wraps db in a Checker named "database".
func NewDatabaseChecker(db Pinger) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := c.db.Ping(ctx); err != nil {
		return Unhealthy("database unreachable", fmt.Errorf("%w: %v", ErrCheckFailed, err))
	}
	return Healthy("database reachable").WithDetails(map[string]any{
		"ping_ms": time.Since(start).Milliseconds(),
	})
}

// CacheChecker verifies the query cache's disk tier is writable and
// reports its counters. Cache problems degrade the service rather
// than fail it; queries still run, only slower.
type CacheChecker struct {
	store *querycache.Store
	dir   string
}

// NewCacheChecker wraps store in a Checker named "cache". dir is the
// cache's disk-tier directory.
func NewCacheChecker(store *querycache.Store, dir string) *CacheChecker {
	return &CacheChecker{store: store, dir: dir}
}

func (c *CacheChecker) Name() string { return "cache" }

func (c *CacheChecker) Check(ctx context.Context) Result {
	stats := c.store.Stats()
	if !stats.Enabled {
		return Healthy("cache disabled")
	}

	details := map[string]any{
		"hits":         stats.Hits,
		"misses":       stats.Misses,
		"entries":      stats.EntryCount,
		"memory_bytes": stats.TotalMemoryBytes,
	}

	probe, err := os.CreateTemp(c.dir, ".health-*")
	if err != nil {
		return Degraded("cache directory not writable").WithDetails(details)
	}
	probe.Close()
	os.Remove(probe.Name())

	return Healthy("cache operational").WithDetails(details)
}
