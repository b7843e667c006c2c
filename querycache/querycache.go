package querycache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/observe"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

// Config holds the cache configuration, resolved once at construction.
//
// Zero numeric fields are replaced with defaults by New; negative values
// are configuration errors. Enabled is taken as given, so build configs
// from DefaultConfig rather than a zero Config.
type Config struct {
	// Enabled turns the cache on. When false every operation is a no-op.
	Enabled bool

	// TTL is the age beyond which an entry is stale in either tier.
	// Default: 15 minutes.
	TTL time.Duration

	// MaxMemoryEntries bounds the memory tier. Exceeding it on a store
	// triggers synchronous eviction. Default: 100.
	MaxMemoryEntries int

	// MaxEntryBytes is the largest serialized result that will be
	// cached. Default: 50 MiB.
	MaxEntryBytes int

	// Dir is the disk-tier directory. Default: "cache".
	Dir string

	// SweepInterval is the period of the background expiration sweep.
	// Zero disables the sweeper. Default: 1 hour.
	SweepInterval time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		TTL:              15 * time.Minute,
		MaxMemoryEntries: 100,
		MaxEntryBytes:    50 << 20,
		Dir:              "cache",
		SweepInterval:    time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TTL == 0 {
		c.TTL = def.TTL
	}
	if c.MaxMemoryEntries == 0 {
		c.MaxMemoryEntries = def.MaxMemoryEntries
	}
	if c.MaxEntryBytes == 0 {
		c.MaxEntryBytes = def.MaxEntryBytes
	}
	if c.Dir == "" {
		c.Dir = def.Dir
	}
	return c
}

// Validate checks the configuration. Invalid numeric values are
// programmer or deployment errors and fail fast.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return ErrInvalidTTL
	}
	if c.MaxMemoryEntries <= 0 {
		return ErrInvalidMaxEntries
	}
	if c.MaxEntryBytes <= 0 {
		return ErrInvalidMaxEntryBytes
	}
	if c.SweepInterval < 0 {
		return ErrInvalidSweepInterval
	}
	if c.Dir == "" {
		return ErrMissingDir
	}
	return nil
}

// Clock abstracts time so tests can inject synthetic time instead of
// waiting for real TTL expiration.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Recorder receives cache events for metrics export.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic; recording is best-effort.
type Recorder interface {
	// CacheHit records a hit, with the tier ("memory" or "disk") it was
	// served from.
	CacheHit(ctx context.Context, tier string)

	// CacheMiss records a miss.
	CacheMiss(ctx context.Context)

	// CacheStore records a successful store and the serialized size.
	CacheStore(ctx context.Context, sizeBytes int)

	// CacheEviction records a capacity eviction of n entries.
	CacheEviction(ctx context.Context, n int)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(context.Context, string)  {}
func (nopRecorder) CacheMiss(context.Context)         {}
func (nopRecorder) CacheStore(context.Context, int)   {}
func (nopRecorder) CacheEviction(context.Context, int) {}

// entry is a memory-tier cache entry. The original query text is kept
// alongside the value because pattern invalidation matches against it;
// the derived key alone cannot support substring matching.
type entry struct {
	query     string
	value     *table.Result
	storedAt  time.Time
	sizeBytes int
}

// Store is the two-tier query result cache. One long-lived instance is
// owned by the application's composition root and shared by reference
// across all query call sites.
//
// Contract:
// - Concurrency: safe for concurrent use by query callers and the sweep.
// - Errors: no operation propagates an error to the caller; storage
//   failures degrade to misses or skipped stores.
type Store struct {
	cfg   Config
	clock Clock
	log   observe.Logger
	rec   Recorder
	disk  *diskTier

	mu      sync.Mutex
	entries map[string]*entry
	hits    uint64
	misses  uint64
	stored  uint64

	flight singleflight.Group

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for TTL tests.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithRecorder sets the metrics recorder. Default: no metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.rec = r }
}

// New creates a Store. When the cache is enabled the storage directory is
// created if missing, and the background sweeper is started if
// SweepInterval is non-zero; call Close to stop it.
func New(cfg Config, opts ...Option) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:     cfg,
		clock:   systemClock{},
		log:     observe.NopLogger(),
		rec:     nopRecorder{},
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !cfg.Enabled {
		return s, nil
	}

	disk, err := newDiskTier(cfg.Dir)
	if err != nil {
		return nil, err
	}
	s.disk = disk

	if cfg.SweepInterval > 0 {
		s.startSweeper()
	}
	return s, nil
}

// Lookup returns the cached result for a query if one exists and is
// fresh. The returned result is an independent copy; mutating it never
// reaches cache-internal state.
//
// Hit and miss counters move only for queries that pass the cacheability
// gate, so the hit ratio stays meaningful.
func (s *Store) Lookup(ctx context.Context, query string, params map[string]any) (*table.Result, bool) {
	if !s.cfg.Enabled || !IsCacheable(query) {
		return nil, false
	}

	key := DeriveKey(query, params)
	now := s.clock.Now()

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		if now.Sub(e.storedAt) < s.cfg.TTL {
			s.hits++
			res := e.value.Copy()
			s.mu.Unlock()
			s.rec.CacheHit(ctx, "memory")
			s.log.Debug(ctx, "cache hit (memory)", observe.Field{Key: "key", Value: key})
			return res, true
		}
		// Expired in memory; the disk copy may still be fresh if it was
		// rewritten since, so fall through.
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if res, ok := s.lookupDisk(ctx, key, query, now); ok {
		return res, true
	}

	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
	s.rec.CacheMiss(ctx)
	return nil, false
}

// lookupDisk serves a lookup from the disk tier. The file's modification
// time is the authoritative expiration reference; a fresh entry is
// deserialized and re-inserted into the memory tier with a fresh
// timestamp, subject to the usual eviction check.
func (s *Store) lookupDisk(ctx context.Context, key, query string, now time.Time) (*table.Result, bool) {
	data, storedAt, err := s.disk.read(key)
	if err != nil {
		return nil, false
	}

	if now.Sub(storedAt) >= s.cfg.TTL {
		s.disk.remove(key)
		s.log.Debug(ctx, "expired disk entry removed", observe.Field{Key: "key", Value: key})
		return nil, false
	}

	res, err := decodeResult(data)
	if err != nil {
		// Unreadable entry; drop it and treat as a miss.
		s.disk.remove(key)
		s.log.Warn(ctx, "corrupt cache entry removed",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()})
		return nil, false
	}

	s.mu.Lock()
	s.entries[key] = &entry{query: query, value: res, storedAt: now, sizeBytes: len(data)}
	evicted := s.evictLocked()
	s.hits++
	s.mu.Unlock()

	if evicted > 0 {
		s.rec.CacheEviction(ctx, evicted)
	}
	s.rec.CacheHit(ctx, "disk")
	s.log.Debug(ctx, "cache hit (disk)", observe.Field{Key: "key", Value: key})
	return res.Copy(), true
}

// Store caches a query result in both tiers. Disabled caches,
// uncacheable queries, empty results, and oversized results are skipped
// silently; empty results are never cached so a transient empty response
// cannot mask later non-empty ones.
//
// Disk I/O and serialization failures are logged and degrade to a failed
// store; they never reach the caller.
func (s *Store) Store(ctx context.Context, query string, res *table.Result, params map[string]any) {
	if !s.cfg.Enabled || !IsCacheable(query) || res.Empty() {
		return
	}

	data, err := encodeResult(res)
	if err != nil {
		s.log.Warn(ctx, "cache serialization failed", observe.Field{Key: "error", Value: err.Error()})
		return
	}
	if len(data) > s.cfg.MaxEntryBytes {
		s.log.Debug(ctx, "result too large for cache",
			observe.Field{Key: "size_bytes", Value: len(data)})
		return
	}

	key := DeriveKey(query, params)

	// Persist first: the rename swap means readers never see a partial
	// entry, and a failed write leaves the cache exactly as it was.
	if err := s.disk.write(key, data); err != nil {
		s.log.Warn(ctx, "cache disk write failed",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()})
		return
	}

	now := s.clock.Now()

	s.mu.Lock()
	s.entries[key] = &entry{query: query, value: res.Copy(), storedAt: now, sizeBytes: len(data)}
	s.stored++
	evicted := s.evictLocked()
	s.mu.Unlock()

	if evicted > 0 {
		s.rec.CacheEviction(ctx, evicted)
		s.log.Debug(ctx, "evicted oldest entries", observe.Field{Key: "count", Value: evicted})
	}
	s.rec.CacheStore(ctx, len(data))
	s.log.Debug(ctx, "result cached",
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "size_bytes", Value: len(data)},
		observe.Field{Key: "rows", Value: res.RowCount()})
}

// evictLocked enforces MaxMemoryEntries. When the limit is breached it
// removes at least 20% of the entries (rounded up) and at least the
// excess, oldest storedAt first, ties broken by key. Disk copies are left
// for the expiration sweep so eviction never does disk I/O.
//
// Callers must hold s.mu.
func (s *Store) evictLocked() int {
	over := len(s.entries) - s.cfg.MaxMemoryEntries
	if over <= 0 {
		return 0
	}

	n := len(s.entries)
	count := over
	if pct := (n + 4) / 5; pct > count { // ceil(n * 0.2)
		count = pct
	}
	if count > n {
		count = n
	}

	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, n)
	for k, e := range s.entries {
		all = append(all, aged{key: k, at: e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].at.Equal(all[j].at) {
			return all[i].key < all[j].key
		}
		return all[i].at.Before(all[j].at)
	})

	for i := 0; i < count; i++ {
		delete(s.entries, all[i].key)
	}
	return count
}

// Invalidate removes cache entries. With an empty pattern both tiers are
// cleared entirely. Otherwise it removes entries whose original query
// text contains the pattern, case-insensitively, together with their
// disk files.
func (s *Store) Invalidate(ctx context.Context, pattern string) {
	if !s.cfg.Enabled {
		return
	}

	if pattern == "" {
		s.mu.Lock()
		cleared := len(s.entries)
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
		removed := s.disk.removeAll()
		s.log.Info(ctx, "cache invalidated",
			observe.Field{Key: "memory_entries", Value: cleared},
			observe.Field{Key: "disk_entries", Value: removed})
		return
	}

	needle := strings.ToLower(pattern)
	var matched []string
	s.mu.Lock()
	for key, e := range s.entries {
		if strings.Contains(strings.ToLower(e.query), needle) {
			delete(s.entries, key)
			matched = append(matched, key)
		}
	}
	s.mu.Unlock()

	for _, key := range matched {
		s.disk.remove(key)
	}
	s.log.Info(ctx, "cache invalidated by pattern",
		observe.Field{Key: "pattern", Value: pattern},
		observe.Field{Key: "entries", Value: len(matched)})
}

// SweepExpired removes stale entries from both tiers and returns how many
// were removed from each. The memory scan holds the lock; directory
// scanning and deletion happen outside it.
func (s *Store) SweepExpired(ctx context.Context) (memRemoved, diskRemoved int) {
	if !s.cfg.Enabled {
		return 0, 0
	}

	now := s.clock.Now()

	s.mu.Lock()
	for key, e := range s.entries {
		if now.Sub(e.storedAt) >= s.cfg.TTL {
			delete(s.entries, key)
			memRemoved++
		}
	}
	s.mu.Unlock()

	diskRemoved = s.disk.sweep(now, s.cfg.TTL)

	s.log.Info(ctx, "expired cache entries swept",
		observe.Field{Key: "memory", Value: memRemoved},
		observe.Field{Key: "disk", Value: diskRemoved})
	return memRemoved, diskRemoved
}

// Stats is a read-only snapshot of cache counters and occupancy.
type Stats struct {
	Enabled          bool    `json:"enabled"`
	Hits             uint64  `json:"hits"`
	Misses           uint64  `json:"misses"`
	StoredCount      uint64  `json:"stored_count"`
	HitRatio         float64 `json:"hit_ratio"`
	EntryCount       int     `json:"entry_count"`
	DiskEntryCount   int     `json:"disk_entry_count"`
	TotalMemoryBytes int64   `json:"total_memory_bytes"`
}

// Stats computes current statistics. Counters are monotonic and reset
// only on process restart.
func (s *Store) Stats() Stats {
	st := Stats{Enabled: s.cfg.Enabled}

	s.mu.Lock()
	st.Hits = s.hits
	st.Misses = s.misses
	st.StoredCount = s.stored
	st.EntryCount = len(s.entries)
	for _, e := range s.entries {
		st.TotalMemoryBytes += int64(e.sizeBytes)
	}
	s.mu.Unlock()

	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total)
	}
	if s.disk != nil {
		st.DiskEntryCount = s.disk.count()
	}
	return st
}

// Close stops the background sweeper, if one is running. A sweep already
// in progress runs to completion. Close is idempotent.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.sweepStop != nil {
			close(s.sweepStop)
			<-s.sweepDone
		}
	})
}
