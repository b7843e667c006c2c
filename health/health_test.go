package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/querycache"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestRegistryCheckAll(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(NewCheckFunc("a", func(context.Context) Result { return Healthy("ok") }))
	reg.Register(NewCheckFunc("b", func(context.Context) Result { return Degraded("slow") }))

	results := reg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results["a"].Status != StatusHealthy {
		t.Errorf("a = %v, want healthy", results["a"].Status)
	}
	if got := reg.Overall(results); got != StatusDegraded {
		t.Errorf("overall = %v, want degraded", got)
	}
}

func TestRegistryOverallUnhealthyWins(t *testing.T) {
	reg := NewRegistry(time.Second)
	results := map[string]Result{
		"a": Healthy("ok"),
		"b": Unhealthy("down", errors.New("boom")),
		"c": Degraded("slow"),
	}
	if got := reg.Overall(results); got != StatusUnhealthy {
		t.Errorf("overall = %v, want unhealthy", got)
	}
}

func TestRegistryReplacesByName(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(NewCheckFunc("db", func(context.Context) Result { return Unhealthy("down", nil) }))
	reg.Register(NewCheckFunc("db", func(context.Context) Result { return Healthy("ok") }))

	if got := reg.Names(); len(got) != 1 {
		t.Fatalf("names = %v, want one entry", got)
	}
	res, err := reg.Check(context.Background(), "db")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", res.Status)
	}
}

func TestRegistryCheckUnknownName(t *testing.T) {
	reg := NewRegistry(time.Second)
	if _, err := reg.Check(context.Background(), "nope"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("err = %v, want ErrCheckerNotFound", err)
	}
}

func TestDatabaseChecker(t *testing.T) {
	c := NewDatabaseChecker(fakePinger{})
	if res := c.Check(context.Background()); res.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", res.Status)
	}

	c = NewDatabaseChecker(fakePinger{err: errors.New("refused")})
	res := c.Check(context.Background())
	if res.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", res.Status)
	}
	if !errors.Is(res.Err, ErrCheckFailed) {
		t.Errorf("err = %v, want ErrCheckFailed", res.Err)
	}
}

func TestCacheChecker(t *testing.T) {
	dir := t.TempDir()
	store, err := querycache.New(querycache.Config{Enabled: true, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := NewCacheChecker(store, dir)
	res := c.Check(context.Background())
	if res.Status != StatusHealthy {
		t.Fatalf("status = %v, want healthy", res.Status)
	}
	if _, ok := res.Details["hits"]; !ok {
		t.Error("details missing hit counter")
	}

	// Point the checker at a path that is not a directory.
	bad := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c = NewCacheChecker(store, bad)
	if res := c.Check(context.Background()); res.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded", res.Status)
	}
}

func TestCacheCheckerDisabled(t *testing.T) {
	store, err := querycache.New(querycache.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := NewCacheChecker(store, "/nonexistent")
	if res := c.Check(context.Background()); res.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy for disabled cache", res.Status)
	}
}

func TestReadinessHandler(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(NewCheckFunc("db", func(context.Context) Result { return Healthy("ok") }))

	rr := httptest.NewRecorder()
	ReadinessHandler(reg)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rr.Body.String())
	}

	reg.Register(NewCheckFunc("db", func(context.Context) Result { return Unhealthy("down", nil) }))
	rr = httptest.NewRecorder()
	ReadinessHandler(reg)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rr.Code)
	}
}

func TestDetailedHandler(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(NewCheckFunc("db", func(context.Context) Result { return Healthy("reachable") }))
	reg.Register(NewCheckFunc("cache", func(context.Context) Result { return Degraded("dir not writable") }))

	rr := httptest.NewRecorder()
	DetailedHandler(reg)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rr.Code)
	}

	var resp response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["db"].Status != "healthy" {
		t.Errorf("db status = %q, want healthy", resp.Checks["db"].Status)
	}
}
