// Package sqlbuild provides a fluent builder for SELECT statements, so
// report queries are assembled from readable parts instead of string
// concatenation scattered across call sites.
package sqlbuild

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/querycache"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

// Build errors.
var (
	// ErrMissingSelect indicates Build was called without any selected field.
	ErrMissingSelect = errors.New("sqlbuild: at least one SELECT field is required")

	// ErrMissingFrom indicates Build was called without a FROM table.
	ErrMissingFrom = errors.New("sqlbuild: a FROM table is required")
)

// Builder assembles a SELECT statement clause by clause. The zero value
// is ready to use. Builders are not safe for concurrent use; build one
// per query.
type Builder struct {
	fields  []string
	from    string
	joins   []string
	where   []string
	groupBy []string
	having  []string
	orderBy []string
	limit   int
	params  map[string]any
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() *Builder {
	*b = Builder{}
	return b
}

// Select adds fields to the SELECT clause.
func (b *Builder) Select(fields ...string) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// From sets the primary table.
func (b *Builder) From(tbl string) *Builder {
	b.from = tbl
	return b
}

// Join adds an INNER JOIN.
func (b *Builder) Join(tbl, on string) *Builder {
	return b.joinAs("INNER", tbl, on)
}

// LeftJoin adds a LEFT JOIN.
func (b *Builder) LeftJoin(tbl, on string) *Builder {
	return b.joinAs("LEFT", tbl, on)
}

func (b *Builder) joinAs(kind, tbl, on string) *Builder {
	b.joins = append(b.joins, fmt.Sprintf("%s JOIN %s ON %s", kind, tbl, on))
	return b
}

// Where adds a condition; multiple conditions are AND-ed.
func (b *Builder) Where(cond string) *Builder {
	b.where = append(b.where, cond)
	return b
}

// WhereParam adds a named-parameter condition and records the value, so
// Params returns everything the statement references.
// Example: WhereParam("s.country = @country", "country", "Chile").
func (b *Builder) WhereParam(cond, name string, value any) *Builder {
	if b.params == nil {
		b.params = make(map[string]any)
	}
	b.params[name] = value
	return b.Where(cond)
}

// GroupBy adds fields to the GROUP BY clause.
func (b *Builder) GroupBy(fields ...string) *Builder {
	b.groupBy = append(b.groupBy, fields...)
	return b
}

// Having adds a condition; multiple conditions are AND-ed.
func (b *Builder) Having(cond string) *Builder {
	b.having = append(b.having, cond)
	return b
}

// OrderBy adds a field with a direction ("ASC" or "DESC").
func (b *Builder) OrderBy(field, direction string) *Builder {
	b.orderBy = append(b.orderBy, field+" "+direction)
	return b
}

// Limit sets the LIMIT. Non-positive values leave the clause out.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Params returns the named parameters recorded by WhereParam, or nil if
// none were recorded.
func (b *Builder) Params() map[string]any {
	return b.params
}

// Build assembles the final statement. SELECT and FROM are mandatory.
func (b *Builder) Build() (string, error) {
	if len(b.fields) == 0 {
		return "", ErrMissingSelect
	}
	if b.from == "" {
		return "", ErrMissingFrom
	}

	parts := []string{
		"SELECT " + strings.Join(b.fields, ", "),
		"FROM " + b.from,
	}
	parts = append(parts, b.joins...)
	if len(b.where) > 0 {
		parts = append(parts, "WHERE "+strings.Join(b.where, " AND "))
	}
	if len(b.groupBy) > 0 {
		parts = append(parts, "GROUP BY "+strings.Join(b.groupBy, ", "))
	}
	if len(b.having) > 0 {
		parts = append(parts, "HAVING "+strings.Join(b.having, " AND "))
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", b.limit))
	}

	return strings.Join(parts, "\n") + ";", nil
}

// Query builds the statement and runs it through the given executor,
// typically one wrapped by querycache.WrapExecutor.
func (b *Builder) Query(ctx context.Context, exec querycache.Executor) (*table.Result, error) {
	stmt, err := b.Build()
	if err != nil {
		return nil, err
	}
	return exec(ctx, stmt, b.params)
}
