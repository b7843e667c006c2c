package querycache

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// fakeClock is an injectable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.SweepInterval = 0 // sweeps driven explicitly by the tests
	return cfg
}

func newTestStore(t *testing.T, cfg Config, clk Clock) *Store {
	t.Helper()
	s, err := New(cfg, WithClock(clk))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func salesResult() *table.Result {
	r := table.New("country", "total")
	r.Append("Chile", 1250.5)
	r.Append("Peru", 980.0)
	return r
}

// wipeMemory empties the memory tier in place, simulating a process
// restart that loses it while the disk tier survives.
func wipeMemory(s *Store) {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
}

func memoryKeys(s *Store) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make(map[string]bool, len(s.entries))
	for k := range s.entries {
		keys[k] = true
	}
	return keys
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	query := "SELECT country, SUM(total) FROM sales GROUP BY country"
	params := map[string]any{"year": 2024}
	want := salesResult()

	if _, ok := s.Lookup(ctx, query, params); ok {
		t.Fatal("lookup before store should miss")
	}

	s.Store(ctx, query, want, params)

	got, ok := s.Lookup(ctx, query, params)
	if !ok {
		t.Fatal("lookup after store should hit")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lookup = %+v, want %+v", got, want)
	}

	// The returned value is an independent copy: mutating it must not
	// affect what a later lookup sees.
	got.Rows[0][1] = -1.0
	got.Columns[0] = "mutated"

	again, ok := s.Lookup(ctx, query, params)
	if !ok {
		t.Fatal("second lookup should hit")
	}
	if !reflect.DeepEqual(again, want) {
		t.Errorf("cache state was mutated through a returned copy: %+v", again)
	}
}

func TestStore_EmptyResultNeverCached(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	query := "SELECT * FROM sales WHERE 1 = 0"
	s.Store(ctx, query, table.New("id"), nil)
	s.Store(ctx, query, nil, nil)

	if _, ok := s.Lookup(ctx, query, nil); ok {
		t.Error("empty result should not have been cached")
	}
	if st := s.Stats(); st.StoredCount != 0 {
		t.Errorf("StoredCount = %d, want 0", st.StoredCount)
	}
}

func TestStore_UncacheableSkipsCounters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	if _, ok := s.Lookup(ctx, "UPDATE t SET x = 1", nil); ok {
		t.Fatal("uncacheable query should miss")
	}
	s.Store(ctx, "UPDATE t SET x = 1", salesResult(), nil)

	st := s.Stats()
	if st.Hits != 0 || st.Misses != 0 || st.StoredCount != 0 {
		t.Errorf("uncacheable traffic moved counters: %+v", st)
	}
}

func TestStore_Expiration(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	cfg := testConfig(t)
	cfg.TTL = time.Minute
	s := newTestStore(t, cfg, clk)

	query := "SELECT * FROM sales"
	s.Store(ctx, query, salesResult(), nil)

	clk.Advance(59 * time.Second)
	if _, ok := s.Lookup(ctx, query, nil); !ok {
		t.Fatal("lookup at 59s of a 1m TTL should hit")
	}

	clk.Advance(2 * time.Second) // 61s after store
	if _, ok := s.Lookup(ctx, query, nil); ok {
		t.Fatal("lookup at 61s of a 1m TTL should miss")
	}

	st := s.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("hits = %d, misses = %d, want 1 and 1", st.Hits, st.Misses)
	}
}

func TestStore_CapacityEviction(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	cfg := testConfig(t)
	cfg.MaxMemoryEntries = 10
	s := newTestStore(t, cfg, clk)

	queries := make([]string, 15)
	for i := range queries {
		queries[i] = "SELECT * FROM sales WHERE region = 'r" + string(rune('a'+i)) + "'"
		s.Store(ctx, queries[i], salesResult(), nil)
		clk.Advance(time.Second) // distinct storedAt per entry
	}

	st := s.Stats()
	if st.EntryCount > 10 {
		t.Errorf("memory tier holds %d entries, limit is 10", st.EntryCount)
	}

	// The oldest five inserts must be gone from the memory tier. Their
	// disk copies are allowed to remain until the sweep.
	keys := memoryKeys(s)
	for i := 0; i < 5; i++ {
		if keys[DeriveKey(queries[i], nil)] {
			t.Errorf("oldest entry %d survived eviction", i)
		}
	}
	// The newest insert always survives.
	if !keys[DeriveKey(queries[14], nil)] {
		t.Error("newest entry was evicted")
	}
}

func TestStore_InvalidateByPattern(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	ordersQ := "SELECT * FROM orders WHERE id = @id"
	productsQ := "SELECT * FROM products"
	s.Store(ctx, ordersQ, salesResult(), map[string]any{"id": 7})
	s.Store(ctx, productsQ, salesResult(), nil)

	s.Invalidate(ctx, "ORDERS") // case-insensitive

	if _, ok := s.Lookup(ctx, ordersQ, map[string]any{"id": 7}); ok {
		t.Error("orders entry should be gone after pattern invalidation")
	}
	if _, ok := s.Lookup(ctx, productsQ, nil); !ok {
		t.Error("products entry should have survived pattern invalidation")
	}
}

func TestStore_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	s.Store(ctx, "SELECT * FROM orders", salesResult(), nil)
	s.Store(ctx, "SELECT * FROM products", salesResult(), nil)

	s.Invalidate(ctx, "")

	st := s.Stats()
	if st.EntryCount != 0 {
		t.Errorf("memory tier still holds %d entries", st.EntryCount)
	}
	if st.DiskEntryCount != 0 {
		t.Errorf("disk tier still holds %d entries", st.DiskEntryCount)
	}
}

func TestStore_DiskFallback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	query := "SELECT country, SUM(total) FROM sales GROUP BY country"
	want := salesResult()
	s.Store(ctx, query, want, nil)

	wipeMemory(s)

	got, ok := s.Lookup(ctx, query, nil)
	if !ok {
		t.Fatal("lookup after memory wipe should be served from disk")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("disk round-trip = %+v, want %+v", got, want)
	}

	// The disk hit re-populates the memory tier.
	if st := s.Stats(); st.EntryCount != 1 {
		t.Errorf("EntryCount after disk hit = %d, want 1", st.EntryCount)
	}
	if st := s.Stats(); st.Hits != 1 {
		t.Errorf("Hits after disk hit = %d, want 1", st.Hits)
	}
}

func TestStore_CorruptDiskEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	query := "SELECT * FROM sales"
	s.Store(ctx, query, salesResult(), nil)
	wipeMemory(s)

	// Truncate the disk entry behind the cache's back.
	key := DeriveKey(query, nil)
	if err := writeFile(filepath.Join(s.cfg.Dir, key+entryExt), []byte("not gzip")); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Lookup(ctx, query, nil); ok {
		t.Fatal("corrupt disk entry should be a miss")
	}
	if st := s.Stats(); st.DiskEntryCount != 0 {
		t.Error("corrupt disk entry should have been removed")
	}
}

func TestStore_UnwritableStorageIsNonFatal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testConfig(t), newFakeClock())

	// Point the disk tier at a path that is a regular file, so every
	// write and read fails regardless of the uid running the tests.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := writeFile(blocked, []byte("")); err != nil {
		t.Fatal(err)
	}
	s.disk.dir = blocked

	query := "SELECT * FROM sales"
	s.Store(ctx, query, salesResult(), nil) // must not panic or error

	if _, ok := s.Lookup(ctx, query, nil); ok {
		t.Error("store against unwritable storage should leave the cache empty")
	}
}

func TestStore_SweepExpired(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	cfg := testConfig(t)
	cfg.TTL = time.Minute
	s := newTestStore(t, cfg, clk)

	s.Store(ctx, "SELECT * FROM orders", salesResult(), nil)
	clk.Advance(50 * time.Second)
	s.Store(ctx, "SELECT * FROM products", salesResult(), nil)
	clk.Advance(20 * time.Second) // orders is 70s old, products 20s

	memRemoved, diskRemoved := s.SweepExpired(ctx)
	if memRemoved != 1 {
		t.Errorf("memRemoved = %d, want 1", memRemoved)
	}
	// Disk ages are measured against file mtimes, which sit at the real
	// wall clock while the fake clock ran ahead 70s; both files look
	// expired from the sweep's point of view.
	if diskRemoved != 2 {
		t.Errorf("diskRemoved = %d, want 2", diskRemoved)
	}

	if st := s.Stats(); st.EntryCount != 1 {
		t.Errorf("EntryCount after sweep = %d, want 1", st.EntryCount)
	}
}

func TestStore_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Enabled = false
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	s.Store(ctx, "SELECT 1", salesResult(), nil)
	if _, ok := s.Lookup(ctx, "SELECT 1", nil); ok {
		t.Error("disabled cache should never hit")
	}
	s.Invalidate(ctx, "")
	s.SweepExpired(ctx)

	st := s.Stats()
	if st.Hits != 0 || st.Misses != 0 || st.StoredCount != 0 || st.EntryCount != 0 {
		t.Errorf("disabled cache moved counters: %+v", st)
	}
}

func TestNew_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"negative ttl", func(c *Config) { c.TTL = -time.Second }, ErrInvalidTTL},
		{"negative max entries", func(c *Config) { c.MaxMemoryEntries = -1 }, ErrInvalidMaxEntries},
		{"negative entry bytes", func(c *Config) { c.MaxEntryBytes = -1 }, ErrInvalidMaxEntryBytes},
		{"negative sweep interval", func(c *Config) { c.SweepInterval = -time.Minute }, ErrInvalidSweepInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Dir = t.TempDir()
			tt.mutate(&cfg)
			if _, err := New(cfg); err != tt.wantErr {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_ZeroValuesGetDefaults(t *testing.T) {
	s, err := New(Config{Enabled: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if s.cfg.TTL != 15*time.Minute {
		t.Errorf("TTL default = %v", s.cfg.TTL)
	}
	if s.cfg.MaxMemoryEntries != 100 {
		t.Errorf("MaxMemoryEntries default = %d", s.cfg.MaxMemoryEntries)
	}
	if s.cfg.MaxEntryBytes != 50<<20 {
		t.Errorf("MaxEntryBytes default = %d", s.cfg.MaxEntryBytes)
	}
}

func TestStore_OversizedResultSkipped(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxEntryBytes = 64 // serialized sales result easily exceeds this
	s := newTestStore(t, cfg, newFakeClock())

	big := table.New("note")
	for i := 0; i < 100; i++ {
		big.Append("a long enough free-text value to defeat gzip on repetition alone " + string(rune('a'+i%26)))
	}
	s.Store(ctx, "SELECT note FROM sales", big, nil)

	if st := s.Stats(); st.StoredCount != 0 || st.EntryCount != 0 {
		t.Errorf("oversized result was cached: %+v", st)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxMemoryEntries = 20
	s := newTestStore(t, cfg, newFakeClock())

	var wg sync.WaitGroup
	queries := []string{
		"SELECT * FROM sales",
		"SELECT * FROM orders",
		"SELECT * FROM products",
		"SELECT * FROM customers",
	}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q := queries[(i+j)%len(queries)]
				s.Store(ctx, q, salesResult(), nil)
				s.Lookup(ctx, q, nil)
				if j%10 == 0 {
					s.SweepExpired(ctx)
					s.Stats()
				}
			}
		}(i)
	}
	wg.Wait()

	if st := s.Stats(); st.EntryCount > cfg.MaxMemoryEntries {
		t.Errorf("memory tier exceeded limit under concurrency: %d", st.EntryCount)
	}
}

func TestStore_CloseStopsSweeper(t *testing.T) {
	cfg := testConfig(t)
	cfg.SweepInterval = 10 * time.Millisecond
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond) // let at least one sweep fire
	s.Close()
	s.Close() // idempotent

	select {
	case <-s.sweepDone:
	default:
		t.Error("sweeper goroutine still running after Close")
	}
}
