package table

import (
	"errors"
	"fmt"
)

// Domain errors for table operations.
var (
	// ErrSchemaMismatch indicates two tables with different column sets.
	ErrSchemaMismatch = errors.New("table: schema mismatch")

	// ErrRowWidth indicates a row with the wrong number of values.
	ErrRowWidth = errors.New("table: row width mismatch")

	// ErrNoColumn indicates access to a column that does not exist.
	ErrNoColumn = errors.New("table: no such column")
)

// Table is an ordered collection of named float64 columns of equal length.
// Columns keep their declaration order, so two tables built from the same
// collector set always share a schema.
type Table struct {
	names []string
	cols  [][]float64
}

// New creates an empty table with the given column names.
func New(names ...string) *Table {
	t := &Table{
		names: make([]string, len(names)),
		cols:  make([][]float64, len(names)),
	}
	copy(t.names, names)
	for i := range t.cols {
		t.cols[i] = make([]float64, 0)
	}
	return t
}

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.names))
	copy(names, t.names)
	return names
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	return t.index(name) >= 0
}

func (t *Table) index(name string) int {
	for i, n := range t.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Col returns the backing slice for the named column.
func (t *Table) Col(name string) ([]float64, error) {
	i := t.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return t.cols[i], nil
}

// MustCol is Col for callers that know the column exists.
func (t *Table) MustCol(name string) []float64 {
	col, err := t.Col(name)
	if err != nil {
		panic(err)
	}
	return col
}

// AppendRow adds one row. The number of values must match the column count.
func (t *Table) AppendRow(vals ...float64) error {
	if len(vals) != len(t.names) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(vals), len(t.names))
	}
	for i, v := range vals {
		t.cols[i] = append(t.cols[i], v)
	}
	return nil
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.cols))
	for c := range t.cols {
		row[c] = t.cols[c][i]
	}
	return row
}

// SetConst adds a column holding v replicated for every existing row. If the
// column already exists its values are overwritten instead. Rows appended
// afterwards are not tagged; callers must set the column again after growing
// the table.
func (t *Table) SetConst(name string, v float64) {
	if i := t.index(name); i >= 0 {
		col := t.cols[i]
		for r := range col {
			col[r] = v
		}
		return
	}
	col := make([]float64, t.Rows())
	for r := range col {
		col[r] = v
	}
	t.names = append(t.names, name)
	t.cols = append(t.cols, col)
}

// sameSchema requires identical names in identical order.
func (t *Table) sameSchema(o *Table) bool {
	if len(t.names) != len(o.names) {
		return false
	}
	for i := range t.names {
		if t.names[i] != o.names[i] {
			return false
		}
	}
	return true
}

// Append concatenates all rows of o onto t. The schemas must match exactly.
func (t *Table) Append(o *Table) error {
	if !t.sameSchema(o) {
		return fmt.Errorf("%w: %v vs %v", ErrSchemaMismatch, t.names, o.names)
	}
	for i := range t.cols {
		t.cols[i] = append(t.cols[i], o.cols[i]...)
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := New(t.names...)
	for i := range t.cols {
		c.cols[i] = append(c.cols[i], t.cols[i]...)
	}
	return c
}

// Equal reports whether two tables have the same schema and values.
func (t *Table) Equal(o *Table) bool {
	if !t.sameSchema(o) || t.Rows() != o.Rows() {
		return false
	}
	for i := range t.cols {
		for r := range t.cols[i] {
			if t.cols[i][r] != o.cols[i][r] {
				return false
			}
		}
	}
	return true
}
