package columns

import "fmt"

// Batch is an ordered set of columns built from a []Spec. All columns grow
// together, one appended value (or null) per decoded row.
type Batch struct {
	columns []Column
	byName  map[string]int
}

// NewBatch builds an empty batch for the given target column list. Column
// names must be unique.
func NewBatch(specs []Spec) (*Batch, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("target column list is empty")
	}
	batch := &Batch{
		columns: make([]Column, 0, len(specs)),
		byName:  make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("column %d has empty name", i)
		}
		if _, exists := batch.byName[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate column name %q", spec.Name)
		}
		column, err := New(spec)
		if err != nil {
			return nil, err
		}
		batch.columns = append(batch.columns, column)
		batch.byName[spec.Name] = i
	}
	return batch, nil
}

// Columns returns the columns in spec order.
func (b *Batch) Columns() []Column { return b.columns }

// Column returns the column at index i.
func (b *Batch) Column(i int) Column { return b.columns[i] }

// Lookup returns the index of the named column.
func (b *Batch) Lookup(name string) (int, bool) {
	i, ok := b.byName[name]
	return i, ok
}

// Width returns the number of columns.
func (b *Batch) Width() int { return len(b.columns) }

// Rows returns the number of complete rows, taken from the first column.
func (b *Batch) Rows() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// Reset clears all columns for reuse.
func (b *Batch) Reset() {
	for _, column := range b.columns {
		column.Reset()
	}
}

// RowExtension is the per-row presence bitmap: one entry per target column,
// true when a decoded value was written into that column for the current
// row. A false entry means the writer schema had no matching field; it is
// never an error signal.
type RowExtension struct {
	ReadColumns []bool
}

// NewRowExtension returns a bitmap sized for width columns.
func NewRowExtension(width int) *RowExtension {
	return &RowExtension{ReadColumns: make([]bool, width)}
}

// Reset clears the bitmap for the next row.
func (e *RowExtension) Reset() {
	for i := range e.ReadColumns {
		e.ReadColumns[i] = false
	}
}
