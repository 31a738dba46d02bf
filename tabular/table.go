package tabular

import (
	"math"
	"strconv"
)

// Kind classifies a cell value or a whole column.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// Value is a single cell. NaN and infinite numbers are folded into the
// missing state at parse time, so KindNumber values are always finite.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Missing reports whether the cell has no usable value.
func (v Value) Missing() bool {
	return v.Kind == KindMissing
}

// Float returns the numeric value of the cell, if it has one.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String renders the cell for display: the raw text for text cells, a
// compact decimal for numeric cells, "" when missing. Integral numbers
// render without a decimal point, so an Actor_Id of 3.0 reads as "3".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindText:
		return v.Str
	}
	return ""
}

// Column is a named series of values. Kind is decided once at load time:
// KindNumber when every non-missing cell parses as a finite float,
// KindText otherwise.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Clone returns a deep copy of the column for copy-on-write edits.
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// NumberColumn builds a KindNumber column from a float slice.
func NumberColumn(name string, nums []float64) *Column {
	values := make([]Value, len(nums))
	for i, n := range nums {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			values[i] = Value{Kind: KindMissing}
			continue
		}
		values[i] = Value{Kind: KindNumber, Num: n}
	}
	return &Column{Name: name, Kind: KindNumber, Values: values}
}

// Table is an ordered set of uniquely named columns of equal length.
type Table struct {
	columns []*Column
	byName  map[string]*Column
	rows    int
}

// NewTable assembles a table from pre-built columns. Columns with
// duplicate names overwrite earlier ones, keeping the original position.
func NewTable(columns []*Column, rows int) *Table {
	t := &Table{byName: make(map[string]*Column), rows: rows}
	for _, c := range columns {
		t.SetColumn(c)
	}
	return t
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return t.rows
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// SetColumn adds a column, or replaces an existing one of the same name
// in place.
func (t *Table) SetColumn(c *Column) {
	if old, ok := t.byName[c.Name]; ok {
		for i, existing := range t.columns {
			if existing == old {
				t.columns[i] = c
				break
			}
		}
	} else {
		t.columns = append(t.columns, c)
	}
	t.byName[c.Name] = c
}

// Float returns the numeric value at (name, row). The second return is
// false when the column is absent, the row is out of range, or the cell
// holds no finite number.
func (t *Table) Float(name string, row int) (float64, bool) {
	c, ok := t.byName[name]
	if !ok || row < 0 || row >= len(c.Values) {
		return 0, false
	}
	return c.Values[row].Float()
}

// String returns the cell at (name, row) rendered as a string, or ""
// for missing cells and unknown columns.
func (t *Table) String(name string, row int) string {
	c, ok := t.byName[name]
	if !ok || row < 0 || row >= len(c.Values) {
		return ""
	}
	return c.Values[row].String()
}
