package database

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/observe"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/querycache"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

// Config describes a database connection.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int
	ConnMaxLifetime time.Duration

	// QueryTimeout bounds each query attempt. Zero means no bound.
	QueryTimeout time.Duration

	// MaxRetries is how many times a transient failure is retried
	// after the initial attempt.
	MaxRetries int
}

// DSN renders the config as a postgres connection URL. The password
// is escaped so special characters cannot break the URL structure.
func (c Config) DSN() string {
	hostPort := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.User, url.QueryEscape(c.Password), hostPort, c.Name, c.SSLMode)
}

// DB wraps a connection pool with retry, timeout and instrumentation.
type DB struct {
	pool    pool
	log     observe.Logger
	metrics *observe.QueryMetrics
	retry   retrier
	timeout time.Duration
}

// pool is the subset of the pgx pool the query path needs. Tests
// substitute a fake.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the structured logger.
func WithLogger(log observe.Logger) Option {
	return func(db *DB) { db.log = log }
}

// WithMetrics records query timings and outcomes.
func WithMetrics(m *observe.QueryMetrics) Option {
	return func(db *DB) { db.metrics = m }
}

// Open connects to the database described by cfg and verifies the
// connection with a ping.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	db := &DB{
		log:     observe.NopLogger(),
		retry:   newRetrier(cfg.MaxRetries),
		timeout: cfg.QueryTimeout,
	}
	for _, opt := range opts {
		opt(db)
	}

	pgxPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database: create pool: %w", err)
	}
	db.pool = pgxPool

	if err := db.Ping(ctx); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	db.log.Info(ctx, "database connected",
		observe.Field{Key: "host", Value: cfg.Host},
		observe.Field{Key: "database", Value: cfg.Name})
	return db, nil
}

// SQLTraceTracer returns a pgx tracer that logs every statement
// through zerolog at the given level. Attach it via pgxpool config
// when per-statement logging is wanted; it is noisy outside
// development.
func SQLTraceTracer(level string, w io.Writer) *tracelog.TraceLog {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.DebugLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &tracelog.TraceLog{
		Logger:   pgxzero.NewLogger(zl),
		LogLevel: tracelog.LogLevelDebug,
	}
}

// Query runs a named-parameter SELECT and returns its rows. Transient
// failures are retried with backoff; each attempt is individually
// bounded by the configured query timeout.
func (db *DB) Query(ctx context.Context, query string, params map[string]any) (*table.Result, error) {
	if db.pool == nil {
		return nil, ErrClosed
	}

	var res *table.Result
	start := time.Now()
	err := db.retry.execute(ctx, func(ctx context.Context) error {
		if db.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, db.timeout)
			defer cancel()
		}

		rows, err := db.pool.Query(ctx, query, pgx.NamedArgs(params))
		if err != nil {
			return err
		}
		res, err = collect(rows)
		return err
	})

	elapsed := time.Since(start)
	if db.metrics != nil {
		db.metrics.RecordQuery(ctx, observe.QueryMeta{Name: "query"}, elapsed, err)
	}
	if err != nil {
		db.log.Error(ctx, "query failed",
			observe.Field{Key: "error", Value: err.Error()},
			observe.Field{Key: "elapsed", Value: elapsed.String()})
		return nil, fmt.Errorf("database: query: %w", err)
	}
	db.log.Debug(ctx, "query ok",
		observe.Field{Key: "rows", Value: res.RowCount()},
		observe.Field{Key: "elapsed", Value: elapsed.String()})
	return res, nil
}

// collect drains rows into a column-oriented result.
func collect(rows pgx.Rows) (*table.Result, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	res := table.New(columns...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Append(values...)
	}
	return res, rows.Err()
}

// Executor exposes the query path in the form the cache middleware
// wraps.
func (db *DB) Executor() querycache.Executor {
	return db.Query
}

// CachedExecutor returns the query path wrapped with the result
// cache. A nil store returns the uncached executor.
func (db *DB) CachedExecutor(store *querycache.Store) querycache.Executor {
	if store == nil {
		return db.Executor()
	}
	return store.WrapExecutor(db.Executor())
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return ErrClosed
	}
	return db.pool.Ping(ctx)
}

// Close releases the pool. Further queries return ErrClosed.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
		db.pool = nil
	}
}
