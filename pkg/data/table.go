package data

import (
	"fmt"
	"slices"
)

// Table is an in-memory, column-ordered record table.
// Column order is insertion order; row order is preserved by every method
// except Take, which reorders rows on purpose.
type Table struct {
	names []string
	cols  map[string][]Value
	rows  int
}

// NewTable returns an empty table with n rows and no columns.
func NewTable(n int) *Table {
	return &Table{cols: make(map[string][]Value), rows: n}
}

// FromColumns builds a table from named columns, in the given order.
// All columns must have the same length.
func FromColumns(names []string, cols ...[]Value) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%d names for %d columns: %w", len(names), len(cols), ErrLength)
	}
	n := 0
	if len(cols) > 0 {
		n = len(cols[0])
	}
	t := NewTable(n)
	for i, name := range names {
		if err := t.Set(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.names) }

// Names returns a copy of the column names in order.
func (t *Table) Names() []string { return slices.Clone(t.names) }

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Require returns a schema error naming the first absent column.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return missing(n)
		}
	}
	return nil
}

// Column returns the values of a column. The slice is shared with the
// table and must not be modified; use Set to replace a column.
func (t *Table) Column(name string) ([]Value, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, missing(name)
	}
	return col, nil
}

// Floats returns a column as float64. Nulls and strings are type errors.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := v.Float()
		if !ok {
			return nil, &ColumnError{Column: name, Err: fmt.Errorf("row %d is %q, want number: %w", i, v.String(), ErrColumnType)}
		}
		out[i] = f
	}
	return out, nil
}

// Set replaces a column, or appends it at the end if it does not exist.
// The table keeps the given slice; callers hand over ownership.
func (t *Table) Set(name string, col []Value) error {
	if len(t.names) == 0 && t.rows == 0 {
		t.rows = len(col)
	}
	if len(col) != t.rows {
		return &ColumnError{Column: name, Err: fmt.Errorf("%d values for %d rows: %w", len(col), t.rows, ErrLength)}
	}
	if _, ok := t.cols[name]; !ok {
		t.names = append(t.names, name)
	}
	t.cols[name] = col
	return nil
}

// Drop removes a column. Dropping an absent column is a schema error.
func (t *Table) Drop(name string) error {
	if !t.Has(name) {
		return missing(name)
	}
	delete(t.cols, name)
	t.names = slices.DeleteFunc(t.names, func(n string) bool { return n == name })
	return nil
}

// Clone returns a copy that shares no column storage with t.
func (t *Table) Clone() *Table {
	c := &Table{
		names: slices.Clone(t.names),
		cols:  make(map[string][]Value, len(t.cols)),
		rows:  t.rows,
	}
	for name, col := range t.cols {
		c.cols[name] = slices.Clone(col)
	}
	return c
}

// Take returns a new table holding the given rows, in the given order.
func (t *Table) Take(rows []int) (*Table, error) {
	out := NewTable(len(rows))
	for _, name := range t.names {
		src := t.cols[name]
		col := make([]Value, len(rows))
		for i, r := range rows {
			if r < 0 || r >= t.rows {
				return nil, fmt.Errorf("row index %d out of range [0,%d)", r, t.rows)
			}
			col[i] = src[r]
		}
		out.names = append(out.names, name)
		out.cols[name] = col
	}
	return out, nil
}

// Select returns a new table with only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := NewTable(t.rows)
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out.names = append(out.names, name)
		out.cols[name] = slices.Clone(col)
	}
	return out, nil
}

// Row returns row i as a column-name keyed map.
func (t *Table) Row(i int) map[string]Value {
	row := make(map[string]Value, len(t.names))
	for _, name := range t.names {
		row[name] = t.cols[name][i]
	}
	return row
}

// Matrix converts the named columns to a row-major float matrix.
// Every cell must be numeric.
func (t *Table) Matrix(names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		f, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		cols[j] = f
	}
	X := make([][]float64, t.rows)
	for i := range t.rows {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		X[i] = row
	}
	return X, nil
}

// IsNumeric reports whether every non-null value of the column is numeric.
func (t *Table) IsNumeric(name string) bool {
	for _, v := range t.cols[name] {
		if v.IsString() {
			return false
		}
	}
	return true
}
