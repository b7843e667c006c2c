// Package table defines the tabular result type produced by query
// execution and shared by the query cache, the model factory, and the
// database connector.
package table

// Result is an in-memory tabular query result.
//
// Rows hold one value per column, in column order. Values are whatever the
// driver produced; results that round-trip through the persistent cache
// tier are re-read from JSON, so numeric cells come back as float64.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// New creates a Result with the given columns and no rows.
func New(columns ...string) *Result {
	return &Result{Columns: columns}
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r.RowCount() == 0
}

// Append adds a row. The number of values must match the column count;
// short rows are padded with nil so Row stays total.
func (r *Result) Append(values ...any) {
	if len(values) < len(r.Columns) {
		padded := make([]any, len(r.Columns))
		copy(padded, values)
		values = padded
	}
	r.Rows = append(r.Rows, values)
}

// Row returns row i as a column-name keyed map.
func (r *Result) Row(i int) map[string]any {
	if i < 0 || i >= len(r.Rows) {
		return nil
	}
	row := make(map[string]any, len(r.Columns))
	for c, name := range r.Columns {
		if c < len(r.Rows[i]) {
			row[name] = r.Rows[i][c]
		}
	}
	return row
}

// Copy returns a deep copy of the result. The column slice and every row
// slice are fresh allocations, so mutating the copy never reaches the
// original. Cell values themselves are copied by assignment; the cache
// stores scalars, which is all the drivers produce for SELECTs.
func (r *Result) Copy() *Result {
	if r == nil {
		return nil
	}
	cp := &Result{
		Columns: make([]string, len(r.Columns)),
		Rows:    make([][]any, len(r.Rows)),
	}
	copy(cp.Columns, r.Columns)
	for i, row := range r.Rows {
		cp.Rows[i] = make([]any, len(row))
		copy(cp.Rows[i], row)
	}
	return cp
}
