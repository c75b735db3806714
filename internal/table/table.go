// Package table holds the materialized result set that flows from the query
// executor through validation and shaping to the report writer.
//
// A Table is an ordered list of named columns of equal length. Row order is
// the order rows were appended (for query results, the order the database
// returned them). Tables are read-only once built; transformations build new
// ones through a Builder.
package table

import (
	"fmt"
)

// Column is a named, typed sequence of cells. Type is the merged type of all
// non-null cells; a column with only nulls has TypeNull.
type Column struct {
	Name  string
	Type  Type
	cells []Cell
}

// Len returns the number of cells in the column.
func (c Column) Len() int { return len(c.cells) }

// Cell returns the i-th cell.
func (c Column) Cell(i int) Cell { return c.cells[i] }

// Cells returns a copy of the column's cells.
func (c Column) Cells() []Cell {
	out := make([]Cell, len(c.cells))
	copy(out, c.cells)
	return out
}

// Table is an immutable, row-aligned set of named columns.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// Empty returns a table with the given column names and no rows.
func Empty(names ...string) *Table {
	return NewBuilder(names...).Build()
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the i-th column.
func (t *Table) Column(i int) Column { return t.cols[i] }

// Lookup returns the position of the named column. With duplicate names the
// first one wins.
func (t *Table) Lookup(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// ColumnByName returns the named column.
func (t *Table) ColumnByName(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Cell returns the cell at (row, col).
func (t *Table) Cell(row, col int) Cell { return t.cols[col].cells[row] }

// Get returns the cell at row in the named column.
func (t *Table) Get(row int, name string) (Cell, bool) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= t.rows {
		return Cell{}, false
	}
	return t.cols[i].cells[row], true
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) []Cell {
	out := make([]Cell, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.cells[i]
	}
	return out
}

// Builder accumulates rows for a new Table.
type Builder struct {
	names []string
	cols  [][]Cell
	rows  int
}

// NewBuilder starts a table with the given column names.
func NewBuilder(names ...string) *Builder {
	b := &Builder{
		names: append([]string(nil), names...),
		cols:  make([][]Cell, len(names)),
	}
	return b
}

// Append adds one row. The row width must match the column count.
func (b *Builder) Append(row ...Cell) error {
	if len(row) != len(b.names) {
		return fmt.Errorf("table: row has %d cells, want %d", len(row), len(b.names))
	}
	for i, c := range row {
		b.cols[i] = append(b.cols[i], c)
	}
	b.rows++
	return nil
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.rows }

// Build freezes the builder into a Table. The builder must not be used
// afterwards.
func (b *Builder) Build() *Table {
	t := &Table{
		cols:  make([]Column, len(b.names)),
		index: make(map[string]int, len(b.names)),
		rows:  b.rows,
	}
	for i, name := range b.names {
		typ := TypeNull
		for _, c := range b.cols[i] {
			typ = merge(typ, c.typ)
		}
		t.cols[i] = Column{Name: name, Type: typ, cells: b.cols[i]}
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	b.cols = nil
	return t
}

// FromValues builds a table from plain Go values converted with Of.
func FromValues(names []string, rows [][]any) (*Table, error) {
	b := NewBuilder(names...)
	for i, r := range rows {
		cells := make([]Cell, len(r))
		for j, v := range r {
			cells[j] = Of(v)
		}
		if err := b.Append(cells...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return b.Build(), nil
}

// MustFromValues is FromValues for fixtures; it panics on a width mismatch.
func MustFromValues(names []string, rows [][]any) *Table {
	t, err := FromValues(names, rows)
	if err != nil {
		panic(err)
	}
	return t
}
