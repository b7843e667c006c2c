package database

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// retrier reruns transient query failures with exponential backoff.
type retrier struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       bool

	retryIf func(error) bool
	onRetry func(attempt int, err error, delay time.Duration)
}

func newRetrier(maxRetries int) retrier {
	return retrier{
		maxAttempts:  maxRetries + 1,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     5 * time.Second,
		multiplier:   2.0,
		jitter:       true,
		retryIf:      isTransient,
	}
}

// execute runs op until it succeeds, fails permanently, or attempts
// run out. The context cancels both op and the backoff wait.
func (r retrier) execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.retryIf(err) || attempt >= r.maxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (r retrier) delay(attempt int) time.Duration {
	d := time.Duration(float64(r.initialDelay) * math.Pow(r.multiplier, float64(attempt-1)))
	if d > r.maxDelay {
		d = r.maxDelay
	}
	if r.jitter && d > 0 {
		// Up to 25% extra to spread concurrent retries.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// isTransient reports whether err is worth retrying. Cancellation is
// permanent; connection-class server errors and errors the driver
// marks safe to retry are not.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08": // connection exceptions
			return true
		case "40": // serialization failures, deadlocks
			return true
		case "57": // operator intervention (shutdown, crash)
			return true
		}
		return false
	}
	// Network-level failures surface as plain errors from the pool.
	return true
}
