package columns

import "fmt"

// Column is one growable, typed output column. Implementations append one
// value (or one null) per decoded row.
type Column interface {
	Name() string
	Type() Type
	Len() int
	AppendNull()
	Reset()
}

// New builds an empty column for spec. It fails on a composite type whose
// element type is itself unsupported.
func New(spec Spec) (Column, error) {
	switch spec.Type.Kind {
	case KindBool:
		return &BoolColumn{spec: spec}, nil
	case KindInt32:
		return &Int32Column{spec: spec}, nil
	case KindInt64:
		return &Int64Column{spec: spec}, nil
	case KindFloat32:
		return &Float32Column{spec: spec}, nil
	case KindFloat64:
		return &Float64Column{spec: spec}, nil
	case KindString:
		return &StringColumn{spec: spec}, nil
	case KindBytes:
		return &BytesColumn{spec: spec}, nil
	case KindList:
		if spec.Type.Elem == nil {
			return nil, fmt.Errorf("list column %q missing element type", spec.Name)
		}
		elem, err := New(Spec{Name: spec.Name + ".item", Type: *spec.Type.Elem})
		if err != nil {
			return nil, err
		}
		return &ListColumn{spec: spec, Elem: elem}, nil
	case KindMap:
		if spec.Type.Elem == nil {
			return nil, fmt.Errorf("map column %q missing value type", spec.Name)
		}
		values, err := New(Spec{Name: spec.Name + ".value", Type: *spec.Type.Elem})
		if err != nil {
			return nil, err
		}
		return &MapColumn{
			spec:   spec,
			Keys:   &StringColumn{spec: Spec{Name: spec.Name + ".key", Type: String_()}},
			Values: values,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported column kind %s for %q", spec.Type.Kind, spec.Name)
	}
}

// BoolColumn stores booleans.
type BoolColumn struct {
	spec   Spec
	Values []bool
	Nulls  []bool
}

func (c *BoolColumn) Name() string { return c.spec.Name }
func (c *BoolColumn) Type() Type   { return c.spec.Type }
func (c *BoolColumn) Len() int     { return len(c.Values) }

func (c *BoolColumn) Append(v bool) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *BoolColumn) AppendNull() {
	c.Values = append(c.Values, false)
	c.Nulls = append(c.Nulls, true)
}

func (c *BoolColumn) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// Int32Column stores 32-bit signed integers.
type Int32Column struct {
	spec   Spec
	Values []int32
	Nulls  []bool
}

func (c *Int32Column) Name() string { return c.spec.Name }
func (c *Int32Column) Type() Type   { return c.spec.Type }
func (c *Int32Column) Len() int     { return len(c.Values) }

func (c *Int32Column) Append(v int32) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *Int32Column) AppendNull() {
	c.Values = append(c.Values, 0)
	c.Nulls = append(c.Nulls, true)
}

func (c *Int32Column) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// Int64Column stores 64-bit signed integers.
type Int64Column struct {
	spec   Spec
	Values []int64
	Nulls  []bool
}

func (c *Int64Column) Name() string { return c.spec.Name }
func (c *Int64Column) Type() Type   { return c.spec.Type }
func (c *Int64Column) Len() int     { return len(c.Values) }

func (c *Int64Column) Append(v int64) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *Int64Column) AppendNull() {
	c.Values = append(c.Values, 0)
	c.Nulls = append(c.Nulls, true)
}

func (c *Int64Column) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// Float32Column stores IEEE 754 singles.
type Float32Column struct {
	spec   Spec
	Values []float32
	Nulls  []bool
}

func (c *Float32Column) Name() string { return c.spec.Name }
func (c *Float32Column) Type() Type   { return c.spec.Type }
func (c *Float32Column) Len() int     { return len(c.Values) }

func (c *Float32Column) Append(v float32) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *Float32Column) AppendNull() {
	c.Values = append(c.Values, 0)
	c.Nulls = append(c.Nulls, true)
}

func (c *Float32Column) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// Float64Column stores IEEE 754 doubles.
type Float64Column struct {
	spec   Spec
	Values []float64
	Nulls  []bool
}

func (c *Float64Column) Name() string { return c.spec.Name }
func (c *Float64Column) Type() Type   { return c.spec.Type }
func (c *Float64Column) Len() int     { return len(c.Values) }

func (c *Float64Column) Append(v float64) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *Float64Column) AppendNull() {
	c.Values = append(c.Values, 0)
	c.Nulls = append(c.Nulls, true)
}

func (c *Float64Column) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// StringColumn stores strings, including decoded enum symbols.
type StringColumn struct {
	spec   Spec
	Values []string
	Nulls  []bool
}

func (c *StringColumn) Name() string { return c.spec.Name }
func (c *StringColumn) Type() Type   { return c.spec.Type }
func (c *StringColumn) Len() int     { return len(c.Values) }

func (c *StringColumn) Append(v string) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *StringColumn) AppendNull() {
	c.Values = append(c.Values, "")
	c.Nulls = append(c.Nulls, true)
}

func (c *StringColumn) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// BytesColumn stores byte sequences, including fixed-size values.
type BytesColumn struct {
	spec   Spec
	Values [][]byte
	Nulls  []bool
}

func (c *BytesColumn) Name() string { return c.spec.Name }
func (c *BytesColumn) Type() Type   { return c.spec.Type }
func (c *BytesColumn) Len() int     { return len(c.Values) }

func (c *BytesColumn) Append(v []byte) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

func (c *BytesColumn) AppendNull() {
	c.Values = append(c.Values, nil)
	c.Nulls = append(c.Nulls, true)
}

func (c *BytesColumn) Reset() {
	c.Values = c.Values[:0]
	c.Nulls = c.Nulls[:0]
}

// ListColumn stores variable-length lists as a flat element column plus
// per-row end offsets. A decoder appends elements into Elem, then seals the
// row with FinishRow.
type ListColumn struct {
	spec    Spec
	Elem    Column
	Offsets []int
	Nulls   []bool
}

func (c *ListColumn) Name() string { return c.spec.Name }
func (c *ListColumn) Type() Type   { return c.spec.Type }
func (c *ListColumn) Len() int     { return len(c.Offsets) }

// FinishRow seals the current row after its elements have been appended.
func (c *ListColumn) FinishRow() {
	c.Offsets = append(c.Offsets, c.Elem.Len())
	c.Nulls = append(c.Nulls, false)
}

func (c *ListColumn) AppendNull() {
	c.Offsets = append(c.Offsets, c.Elem.Len())
	c.Nulls = append(c.Nulls, true)
}

func (c *ListColumn) Reset() {
	c.Elem.Reset()
	c.Offsets = c.Offsets[:0]
	c.Nulls = c.Nulls[:0]
}

// Row returns the element index range [start, end) of row i.
func (c *ListColumn) Row(i int) (start, end int) {
	if i > 0 {
		start = c.Offsets[i-1]
	}
	return start, c.Offsets[i]
}

// MapColumn stores string-keyed maps as parallel key and value columns plus
// per-row end offsets.
type MapColumn struct {
	spec    Spec
	Keys    *StringColumn
	Values  Column
	Offsets []int
	Nulls   []bool
}

func (c *MapColumn) Name() string { return c.spec.Name }
func (c *MapColumn) Type() Type   { return c.spec.Type }
func (c *MapColumn) Len() int     { return len(c.Offsets) }

// FinishRow seals the current row after its entries have been appended.
func (c *MapColumn) FinishRow() {
	c.Offsets = append(c.Offsets, c.Keys.Len())
	c.Nulls = append(c.Nulls, false)
}

func (c *MapColumn) AppendNull() {
	c.Offsets = append(c.Offsets, c.Keys.Len())
	c.Nulls = append(c.Nulls, true)
}

func (c *MapColumn) Reset() {
	c.Keys.Reset()
	c.Values.Reset()
	c.Offsets = c.Offsets[:0]
	c.Nulls = c.Nulls[:0]
}

// Row returns the entry index range [start, end) of row i.
func (c *MapColumn) Row(i int) (start, end int) {
	if i > 0 {
		start = c.Offsets[i-1]
	}
	return start, c.Offsets[i]
}
