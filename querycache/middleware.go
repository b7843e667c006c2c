package querycache

import (
	"context"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

// Executor is the query-execution capability the cache wraps. It is
// supplied by the caller; the cache never executes queries itself.
type Executor func(ctx context.Context, query string, params map[string]any) (*table.Result, error)

// WrapExecutor returns an executor that consults the cache before
// delegating and stores cacheable results after. Errors from next are
// returned as-is and never cached. Concurrent misses for the same key are
// collapsed into a single execution of next; each waiter receives an
// independent copy of the shared result.
//
// A cache failure is invisible here beyond latency: the wrapped executor
// behaves exactly like next when the cache cannot serve.
func (s *Store) WrapExecutor(next Executor) Executor {
	return func(ctx context.Context, query string, params map[string]any) (*table.Result, error) {
		if res, ok := s.Lookup(ctx, query, params); ok {
			return res, nil
		}
		if !s.cfg.Enabled || !IsCacheable(query) {
			return next(ctx, query, params)
		}

		key := DeriveKey(query, params)
		v, err, shared := s.flight.Do(key, func() (any, error) {
			res, err := next(ctx, query, params)
			if err != nil {
				return nil, err
			}
			s.Store(ctx, query, res, params)
			return res, nil
		})
		if err != nil {
			return nil, err
		}

		res := v.(*table.Result)
		if shared {
			res = res.Copy()
		}
		return res, nil
	}
}
