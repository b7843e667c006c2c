package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of a check.
type Status int

const (
	// StatusHealthy means the component works normally.
	StatusHealthy Status = iota
	// StatusDegraded means the component works with reduced capability.
	StatusDegraded
	// StatusUnhealthy means the component does not work.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// Result is a single check outcome.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Err      error
}

// Healthy builds a passing result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded builds a result for a component running below capability.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy builds a failing result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err}
}

// WithDetails attaches metadata to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckFunc wraps fn as a named Checker.
func NewCheckFunc(name string, fn func(context.Context) Result) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (f *CheckFunc) Name() string                     { return f.name }
func (f *CheckFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Registry holds the service's checkers and runs them together.
type Registry struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates an empty registry. timeout bounds a full
// CheckAll run; zero means 10 seconds.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Registry{timeout: timeout}
}

// Register adds a checker. A checker with the same name replaces the
// earlier one.
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.checkers {
		if existing.Name() == c.Name() {
			r.checkers[i] = c
			return
		}
	}
	r.checkers = append(r.checkers, c)
}

// Names lists registered checkers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.checkers))
	for i, c := range r.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs the named checker.
func (r *Registry) Check(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.checkers {
		if c.Name() == name {
			return run(ctx, c), nil
		}
	}
	return Result{}, ErrCheckerNotFound
}

// CheckAll runs every checker concurrently and returns results keyed
// by checker name.
func (r *Registry) CheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	byName := make(map[string]Result, len(checkers))
	for i, c := range checkers {
		byName[c.Name()] = results[i]
	}
	return byName
}

// Overall folds the results into a single status: any unhealthy
// component wins, then any degraded one.
func (r *Registry) Overall(results map[string]Result) Status {
	overall := StatusHealthy
	for _, res := range results {
		if res.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if res.Status == StatusDegraded {
			overall = StatusDegraded
		}
	}
	return overall
}

func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	res := c.Check(ctx)
	res.Duration = time.Since(start)
	return res
}
