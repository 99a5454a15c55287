package avrorow

import (
	"fmt"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
)

// Options controls schema-to-column matching.
type Options struct {
	// AllowMissingFields disables the compile-time check that every target
	// column has a matching writer-schema field. Columns without a match
	// then stay untouched and report false in the presence bitmap on every
	// row.
	AllowMissingFields bool
}

// Deserializer is a compiled plan that decodes binary records written under
// one writer schema into a fixed target column list.
//
// Compilation happens once in NewDeserializer; DeserializeRow then executes
// the plan per record. A Deserializer is immutable after construction and
// safe to share across goroutines as long as each execution gets its own
// Batch and RowExtension.
type Deserializer struct {
	specs       []columns.Spec
	rowAction   action
	columnFound []bool
}

// NewDeserializer compiles an execution plan for decoding records written
// under schema into the target column list.
//
// Matching is by dotted path: a top-level field "a" matches column "a", a
// field "b" inside a record field "outer" matches column "outer.b". A
// matched field whose type cannot be stored in the column fails with
// ErrSchemaMismatch. A target column with no matching field fails with
// ErrMissingRequiredColumn unless opts.AllowMissingFields is set.
func NewDeserializer(specs []columns.Spec, schema *avro.Schema, opts Options) (*Deserializer, error) {
	root := schema.Resolve()
	if root.Kind != avro.Record {
		return nil, fmt.Errorf("%w: root schema is %s, expected record", ErrSchemaMismatch, root.Kind)
	}

	c := newCompiler(specs)
	rowAction, err := c.createAction(root, "")
	if err != nil {
		return nil, err
	}

	if !opts.AllowMissingFields {
		for i, found := range c.found {
			if !found {
				return nil, fmt.Errorf("%w: %q", ErrMissingRequiredColumn, specs[i].Name)
			}
		}
	}

	return &Deserializer{
		specs:       specs,
		rowAction:   rowAction,
		columnFound: c.found,
	}, nil
}

// DeserializeRow decodes one record from dec into batch, marking each
// written column in ext. The caller resets ext (or lets a higher-level
// reader do it) between rows.
func (d *Deserializer) DeserializeRow(batch *columns.Batch, dec *avro.Decoder, ext *columns.RowExtension) error {
	if batch.Width() != len(d.specs) {
		return fmt.Errorf("batch has %d columns, deserializer compiled for %d", batch.Width(), len(d.specs))
	}
	if len(ext.ReadColumns) != len(d.specs) {
		return fmt.Errorf("row extension has %d entries, deserializer compiled for %d", len(ext.ReadColumns), len(d.specs))
	}
	return d.rowAction.execute(batch, dec, ext)
}

// ColumnFound reports whether the writer schema has a field for column i.
// It is computed once at compile time.
func (d *Deserializer) ColumnFound(i int) bool {
	return d.columnFound[i]
}

// skipRef is an indirection slot for the skip logic of a named type. A
// placeholder is registered under the type's name before its children are
// compiled, so a recursive reference resolves to the slot instead of
// re-descending. The slot is filled once the children are done.
type skipRef struct {
	fn skipFn
}

func (r *skipRef) call(dec *avro.Decoder) error {
	return r.fn(dec)
}

type compiler struct {
	specs   []columns.Spec
	indexes map[string]int
	found   []bool

	// symbolicSkip maps named-type identity to its skip slot. Scoped to
	// one compilation pass; only the resolved closures embedded in the
	// tree outlive it.
	symbolicSkip map[string]*skipRef
}

func newCompiler(specs []columns.Spec) *compiler {
	indexes := make(map[string]int, len(specs))
	for i, spec := range specs {
		indexes[spec.Name] = i
	}
	return &compiler{
		specs:        specs,
		indexes:      indexes,
		found:        make([]bool, len(specs)),
		symbolicSkip: make(map[string]*skipRef),
	}
}

// createAction compiles one writer-schema node at the given dotted path.
// Records descend structurally, unions compile one child per branch, and
// every other node either deserializes into the column matching its path
// or skips.
func (c *compiler) createAction(node *avro.Schema, path string) (action, error) {
	switch node.Kind {
	case avro.Record:
		fieldActions := make([]action, 0, len(node.Fields))
		for _, field := range node.Fields {
			fieldPath := field.Name
			if path != "" {
				fieldPath = path + "." + field.Name
			}
			child, err := c.createAction(field.Schema, fieldPath)
			if err != nil {
				return action{}, err
			}
			fieldActions = append(fieldActions, child)
		}
		return recordAction(fieldActions), nil

	case avro.Union:
		branchActions := make([]action, 0, len(node.Branches))
		for i, branch := range node.Branches {
			child, err := c.createAction(branch, path)
			if err != nil {
				return action{}, fmt.Errorf("union branch %d: %w", i, err)
			}
			branchActions = append(branchActions, child)
		}
		return unionAction(branchActions), nil

	default:
		if index, ok := c.indexes[path]; ok {
			fn, err := c.createDeserializeFn(node, c.specs[index])
			if err != nil {
				return action{}, err
			}
			c.found[index] = true
			return deserializeAction(index, fn), nil
		}
		fn, err := c.createSkipFn(node)
		if err != nil {
			return action{}, err
		}
		return skipAction(fn), nil
	}
}

// createDeserializeFn binds a decode closure for one (schema node, target
// column) pair. Type compatibility is checked here, at compile time.
func (c *compiler) createDeserializeFn(node *avro.Schema, spec columns.Spec) (deserializeFn, error) {
	target := spec.Type

	switch node.Kind {
	case avro.Ref:
		return c.createDeserializeFn(node.Target, spec)

	case avro.Null:
		if !target.Nullable {
			return nil, c.mismatch(node, spec)
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			column.AppendNull()
			return nil
		}, nil

	case avro.Boolean:
		if target.Kind != columns.KindBool {
			return nil, c.mismatch(node, spec)
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			v, err := dec.ReadBool()
			if err != nil {
				return err
			}
			column.(*columns.BoolColumn).Append(v)
			return nil
		}, nil

	case avro.Int:
		switch target.Kind {
		case columns.KindInt32:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadInt()
				if err != nil {
					return err
				}
				column.(*columns.Int32Column).Append(v)
				return nil
			}, nil
		case columns.KindInt64:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadInt()
				if err != nil {
					return err
				}
				column.(*columns.Int64Column).Append(int64(v))
				return nil
			}, nil
		}
		return nil, c.mismatch(node, spec)

	case avro.Long:
		if target.Kind != columns.KindInt64 {
			return nil, c.mismatch(node, spec)
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			v, err := dec.ReadLong()
			if err != nil {
				return err
			}
			column.(*columns.Int64Column).Append(v)
			return nil
		}, nil

	case avro.Float:
		switch target.Kind {
		case columns.KindFloat32:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadFloat()
				if err != nil {
					return err
				}
				column.(*columns.Float32Column).Append(v)
				return nil
			}, nil
		case columns.KindFloat64:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadFloat()
				if err != nil {
					return err
				}
				column.(*columns.Float64Column).Append(float64(v))
				return nil
			}, nil
		}
		return nil, c.mismatch(node, spec)

	case avro.Double:
		if target.Kind != columns.KindFloat64 {
			return nil, c.mismatch(node, spec)
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			v, err := dec.ReadDouble()
			if err != nil {
				return err
			}
			column.(*columns.Float64Column).Append(v)
			return nil
		}, nil

	case avro.String:
		switch target.Kind {
		case columns.KindString:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadString()
				if err != nil {
					return err
				}
				column.(*columns.StringColumn).Append(v)
				return nil
			}, nil
		case columns.KindBytes:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadBytes()
				if err != nil {
					return err
				}
				column.(*columns.BytesColumn).Append(v)
				return nil
			}, nil
		}
		return nil, c.mismatch(node, spec)

	case avro.Bytes:
		switch target.Kind {
		case columns.KindBytes:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadBytes()
				if err != nil {
					return err
				}
				column.(*columns.BytesColumn).Append(v)
				return nil
			}, nil
		case columns.KindString:
			return func(column columns.Column, dec *avro.Decoder) error {
				v, err := dec.ReadString()
				if err != nil {
					return err
				}
				column.(*columns.StringColumn).Append(v)
				return nil
			}, nil
		}
		return nil, c.mismatch(node, spec)

	case avro.Enum:
		symbols := node.Symbols
		switch target.Kind {
		case columns.KindString:
			return func(column columns.Column, dec *avro.Decoder) error {
				index, err := dec.ReadLong()
				if err != nil {
					return err
				}
				if index < 0 || index >= int64(len(symbols)) {
					return fmt.Errorf("enum index %d out of range (%d symbols)", index, len(symbols))
				}
				column.(*columns.StringColumn).Append(symbols[index])
				return nil
			}, nil
		case columns.KindInt32:
			return func(column columns.Column, dec *avro.Decoder) error {
				index, err := dec.ReadLong()
				if err != nil {
					return err
				}
				if index < 0 || index >= int64(len(symbols)) {
					return fmt.Errorf("enum index %d out of range (%d symbols)", index, len(symbols))
				}
				column.(*columns.Int32Column).Append(int32(index))
				return nil
			}, nil
		}
		return nil, c.mismatch(node, spec)

	case avro.Fixed:
		if target.Kind != columns.KindBytes {
			return nil, c.mismatch(node, spec)
		}
		if target.Size != 0 && target.Size != node.Size {
			return nil, fmt.Errorf("%w: fixed size %d does not match column %q size %d",
				ErrSchemaMismatch, node.Size, spec.Name, target.Size)
		}
		size := node.Size
		return func(column columns.Column, dec *avro.Decoder) error {
			buf := make([]byte, size)
			if err := dec.ReadFixed(buf); err != nil {
				return err
			}
			column.(*columns.BytesColumn).Append(buf)
			return nil
		}, nil

	case avro.Array:
		if target.Kind != columns.KindList || target.Elem == nil {
			return nil, c.mismatch(node, spec)
		}
		itemFn, err := c.createDeserializeFn(node.Items, columns.Spec{Name: spec.Name + ".item", Type: *target.Elem})
		if err != nil {
			return nil, err
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			list := column.(*columns.ListColumn)
			for {
				count, err := dec.ReadBlockCount()
				if err != nil {
					return err
				}
				if count == 0 {
					break
				}
				for i := int64(0); i < count; i++ {
					if err := itemFn(list.Elem, dec); err != nil {
						return err
					}
				}
			}
			list.FinishRow()
			return nil
		}, nil

	case avro.Map:
		if target.Kind != columns.KindMap || target.Elem == nil {
			return nil, c.mismatch(node, spec)
		}
		valueFn, err := c.createDeserializeFn(node.Values, columns.Spec{Name: spec.Name + ".value", Type: *target.Elem})
		if err != nil {
			return nil, err
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			m := column.(*columns.MapColumn)
			for {
				count, err := dec.ReadBlockCount()
				if err != nil {
					return err
				}
				if count == 0 {
					break
				}
				for i := int64(0); i < count; i++ {
					key, err := dec.ReadString()
					if err != nil {
						return err
					}
					m.Keys.Append(key)
					if err := valueFn(m.Values, dec); err != nil {
						return err
					}
				}
			}
			m.FinishRow()
			return nil
		}, nil

	case avro.Union:
		// Unions matched as a whole value are compiled at the action level;
		// reaching here means a union nested inside an array or map.
		branchFns := make([]deserializeFn, 0, len(node.Branches))
		for i, branch := range node.Branches {
			fn, err := c.createDeserializeFn(branch, spec)
			if err != nil {
				return nil, fmt.Errorf("union branch %d: %w", i, err)
			}
			branchFns = append(branchFns, fn)
		}
		return func(column columns.Column, dec *avro.Decoder) error {
			index, err := dec.ReadUnionIndex()
			if err != nil {
				return err
			}
			if index < 0 || index >= int64(len(branchFns)) {
				return fmt.Errorf("%w: branch %d of %d", ErrUnionIndexOutOfRange, index, len(branchFns))
			}
			return branchFns[index](column, dec)
		}, nil

	default:
		return nil, c.mismatch(node, spec)
	}
}

func (c *compiler) mismatch(node *avro.Schema, spec columns.Spec) error {
	return fmt.Errorf("%w: avro %s cannot be stored in column %q of type %s",
		ErrSchemaMismatch, node.Kind, spec.Name, spec.Type)
}

// createSkipFn binds a closure that consumes one value of the node's type
// without allocating. Named types go through the symbolic skip cache so
// self-referential schemas terminate.
func (c *compiler) createSkipFn(node *avro.Schema) (skipFn, error) {
	switch node.Kind {
	case avro.Ref:
		if ref, ok := c.symbolicSkip[node.Name]; ok {
			return ref.call, nil
		}
		return c.createSkipFn(node.Target)

	case avro.Null:
		return func(dec *avro.Decoder) error { return nil }, nil

	case avro.Boolean:
		return (*avro.Decoder).SkipBool, nil

	case avro.Int:
		return (*avro.Decoder).SkipInt, nil

	case avro.Long:
		return (*avro.Decoder).SkipLong, nil

	case avro.Float:
		return (*avro.Decoder).SkipFloat, nil

	case avro.Double:
		return (*avro.Decoder).SkipDouble, nil

	case avro.Bytes:
		return (*avro.Decoder).SkipBytes, nil

	case avro.String:
		return (*avro.Decoder).SkipString, nil

	case avro.Enum:
		if ref, ok := c.symbolicSkip[node.Name]; ok {
			return ref.call, nil
		}
		fn := func(dec *avro.Decoder) error { return dec.SkipLong() }
		c.symbolicSkip[node.Name] = &skipRef{fn: fn}
		return fn, nil

	case avro.Fixed:
		if ref, ok := c.symbolicSkip[node.Name]; ok {
			return ref.call, nil
		}
		size := node.Size
		fn := func(dec *avro.Decoder) error { return dec.SkipFixed(size) }
		c.symbolicSkip[node.Name] = &skipRef{fn: fn}
		return fn, nil

	case avro.Record:
		if ref, ok := c.symbolicSkip[node.Name]; ok && ref.fn != nil {
			return ref.call, nil
		}
		// Register the placeholder before descending so a recursive
		// reference inside the fields resolves to the slot.
		ref := &skipRef{}
		c.symbolicSkip[node.Name] = ref
		fieldSkips := make([]skipFn, 0, len(node.Fields))
		for _, field := range node.Fields {
			fn, err := c.createSkipFn(field.Schema)
			if err != nil {
				return nil, fmt.Errorf("record %q field %q: %w", node.Name, field.Name, err)
			}
			fieldSkips = append(fieldSkips, fn)
		}
		ref.fn = func(dec *avro.Decoder) error {
			for _, fn := range fieldSkips {
				if err := fn(dec); err != nil {
					return err
				}
			}
			return nil
		}
		return ref.call, nil

	case avro.Union:
		branchSkips := make([]skipFn, 0, len(node.Branches))
		for i, branch := range node.Branches {
			fn, err := c.createSkipFn(branch)
			if err != nil {
				return nil, fmt.Errorf("union branch %d: %w", i, err)
			}
			branchSkips = append(branchSkips, fn)
		}
		return func(dec *avro.Decoder) error {
			index, err := dec.ReadUnionIndex()
			if err != nil {
				return err
			}
			if index < 0 || index >= int64(len(branchSkips)) {
				return fmt.Errorf("%w: branch %d of %d", ErrUnionIndexOutOfRange, index, len(branchSkips))
			}
			return branchSkips[index](dec)
		}, nil

	case avro.Array:
		itemSkip, err := c.createSkipFn(node.Items)
		if err != nil {
			return nil, err
		}
		return func(dec *avro.Decoder) error {
			for {
				count, err := dec.ReadBlockCount()
				if err != nil {
					return err
				}
				if count == 0 {
					return nil
				}
				for i := int64(0); i < count; i++ {
					if err := itemSkip(dec); err != nil {
						return err
					}
				}
			}
		}, nil

	case avro.Map:
		valueSkip, err := c.createSkipFn(node.Values)
		if err != nil {
			return nil, err
		}
		return func(dec *avro.Decoder) error {
			for {
				count, err := dec.ReadBlockCount()
				if err != nil {
					return err
				}
				if count == 0 {
					return nil
				}
				for i := int64(0); i < count; i++ {
					if err := dec.SkipString(); err != nil {
						return err
					}
					if err := valueSkip(dec); err != nil {
						return err
					}
				}
			}
		}, nil

	default:
		return nil, fmt.Errorf("cannot skip schema node of kind %s", node.Kind)
	}
}
