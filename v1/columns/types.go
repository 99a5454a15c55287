package columns

import (
	"fmt"
	"strings"
)

// Kind identifies the physical type of a column.
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindBool:    "bool",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
	KindList:    "list",
	KindMap:     "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is a column type: a physical Kind plus nullability and, for the
// composite kinds, metadata describing the shape.
type Type struct {
	Kind     Kind
	Nullable bool

	// Elem is the element type for KindList and the value type for KindMap.
	// Map keys are always strings, matching the Avro map model.
	Elem *Type

	// Size carries the byte width for columns inferred from a fixed-size
	// type. Zero means variable width.
	Size int

	// Symbols carries the declared symbol set for columns inferred from an
	// enum type.
	Symbols []string
}

func (t Type) String() string {
	var sb strings.Builder
	if t.Nullable {
		sb.WriteString("nullable(")
	}
	switch t.Kind {
	case KindList:
		fmt.Fprintf(&sb, "list(%s)", t.Elem)
	case KindMap:
		fmt.Fprintf(&sb, "map(string,%s)", t.Elem)
	default:
		sb.WriteString(t.Kind.String())
	}
	if t.Nullable {
		sb.WriteString(")")
	}
	return sb.String()
}

// Bool returns a non-nullable bool type.
func Bool() Type { return Type{Kind: KindBool} }

// Int32 returns a non-nullable int32 type.
func Int32() Type { return Type{Kind: KindInt32} }

// Int64 returns a non-nullable int64 type.
func Int64() Type { return Type{Kind: KindInt64} }

// Float32 returns a non-nullable float32 type.
func Float32() Type { return Type{Kind: KindFloat32} }

// Float64 returns a non-nullable float64 type.
func Float64() Type { return Type{Kind: KindFloat64} }

// String_ returns a non-nullable string type. The underscore avoids
// shadowing the Stringer convention on Type.
func String_() Type { return Type{Kind: KindString} }

// Bytes returns a non-nullable bytes type.
func Bytes() Type { return Type{Kind: KindBytes} }

// EnumOf returns a string type carrying an enum symbol set as metadata.
func EnumOf(symbols ...string) Type {
	return Type{Kind: KindString, Symbols: symbols}
}

// FixedOf returns a bytes type carrying a fixed byte width as metadata.
func FixedOf(size int) Type {
	return Type{Kind: KindBytes, Size: size}
}

// ListOf returns a list type with the given element type.
func ListOf(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

// MapOf returns a string-keyed map type with the given value type.
func MapOf(value Type) Type {
	return Type{Kind: KindMap, Elem: &value}
}

// Nullable returns a copy of t marked nullable.
func Nullable(t Type) Type {
	t.Nullable = true
	return t
}

// Spec is one entry of the ordered target column list: a unique name and
// the column's type. List order defines presence-bitmap indexes.
type Spec struct {
	Name string
	Type Type
}
