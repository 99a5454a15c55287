package avrorow

import (
	"fmt"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
)

// InferColumns derives an ordered target column list from a writer schema
// without decoding any rows.
//
// Mapping rules:
//   - primitives map to their matching scalar column type (long -> int64,
//     double -> float64, bytes -> bytes, ...)
//   - a union of exactly {null, T} maps to nullable T; this is the only
//     nullability rule, any other union shape is an error
//   - records flatten into dotted column paths, field order preserved,
//     matching the path rule NewDeserializer uses
//   - arrays and maps map to list and map column types of the inferred
//     element type
//   - enums map to string columns carrying the symbol set, fixed to bytes
//     columns carrying the size
//
// Self-referential records cannot be flattened into a finite column list
// and are reported as an error; the in-progress name set that detects them
// is the same name-keyed guard the action compiler uses for skips.
func InferColumns(schema *avro.Schema) ([]columns.Spec, error) {
	inf := &inferrer{inProgress: make(map[string]bool)}
	root := schema.Resolve()

	if root.Kind == avro.Record {
		var specs []columns.Spec
		if err := inf.flattenRecord(root, "", &specs); err != nil {
			return nil, err
		}
		return specs, nil
	}

	t, err := inf.inferType(schema)
	if err != nil {
		return nil, err
	}
	return []columns.Spec{{Name: "value", Type: t}}, nil
}

type inferrer struct {
	inProgress map[string]bool
}

func (inf *inferrer) flattenRecord(node *avro.Schema, prefix string, specs *[]columns.Spec) error {
	if inf.inProgress[node.Name] {
		return fmt.Errorf("self-referential record %q cannot be inferred as a column list", node.Name)
	}
	inf.inProgress[node.Name] = true
	defer delete(inf.inProgress, node.Name)

	for _, field := range node.Fields {
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}
		child := field.Schema.Resolve()
		if child.Kind == avro.Record {
			if err := inf.flattenRecord(child, path, specs); err != nil {
				return err
			}
			continue
		}
		t, err := inf.inferType(field.Schema)
		if err != nil {
			return fmt.Errorf("field %q: %w", path, err)
		}
		*specs = append(*specs, columns.Spec{Name: path, Type: t})
	}
	return nil
}

func (inf *inferrer) inferType(node *avro.Schema) (columns.Type, error) {
	switch node.Kind {
	case avro.Ref:
		target := node.Target
		if inf.inProgress[target.Name] {
			return columns.Type{}, fmt.Errorf("self-referential type %q cannot be inferred", target.Name)
		}
		return inf.inferType(target)
	case avro.Boolean:
		return columns.Bool(), nil
	case avro.Int:
		return columns.Int32(), nil
	case avro.Long:
		return columns.Int64(), nil
	case avro.Float:
		return columns.Float32(), nil
	case avro.Double:
		return columns.Float64(), nil
	case avro.String:
		return columns.String_(), nil
	case avro.Bytes:
		return columns.Bytes(), nil
	case avro.Enum:
		return columns.EnumOf(node.Symbols...), nil
	case avro.Fixed:
		return columns.FixedOf(node.Size), nil
	case avro.Array:
		elem, err := inf.inferType(node.Items)
		if err != nil {
			return columns.Type{}, err
		}
		return columns.ListOf(elem), nil
	case avro.Map:
		value, err := inf.inferType(node.Values)
		if err != nil {
			return columns.Type{}, err
		}
		return columns.MapOf(value), nil
	case avro.Union:
		if other, ok := nullableBranch(node); ok {
			t, err := inf.inferType(other)
			if err != nil {
				return columns.Type{}, err
			}
			return columns.Nullable(t), nil
		}
		return columns.Type{}, fmt.Errorf("unsupported union shape (only [null, T] is inferable)")
	case avro.Null:
		return columns.Type{}, fmt.Errorf("null is only supported inside a [null, T] union")
	case avro.Record:
		return columns.Type{}, fmt.Errorf("record %q nested inside an array or map is not inferable", node.Name)
	default:
		return columns.Type{}, fmt.Errorf("cannot infer column type for %s", node.Kind)
	}
}

// nullableBranch reports whether node is a two-branch union containing
// null, returning the non-null branch.
func nullableBranch(node *avro.Schema) (*avro.Schema, bool) {
	if len(node.Branches) != 2 {
		return nil, false
	}
	if node.Branches[0].Kind == avro.Null && node.Branches[1].Kind != avro.Null {
		return node.Branches[1], true
	}
	if node.Branches[1].Kind == avro.Null && node.Branches[0].Kind != avro.Null {
		return node.Branches[0], true
	}
	return nil, false
}
