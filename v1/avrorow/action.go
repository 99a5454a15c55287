package avrorow

import (
	"fmt"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
)

// deserializeFn consumes one value from the decoder and appends it to the
// column. Bound once at compile time and reused across all rows.
type deserializeFn func(column columns.Column, dec *avro.Decoder) error

// skipFn consumes one value's worth of bytes without touching any column.
type skipFn func(dec *avro.Decoder) error

type actionKind int

const (
	actionNoop actionKind = iota
	actionDeserialize
	actionSkip
	actionRecord
	actionUnion
)

// action is one node of the compiled execution plan. The tree mirrors the
// writer schema's field order, not the target column order, and is
// immutable after compilation.
type action struct {
	kind actionKind

	// Deserialize
	columnIndex int
	deserialize deserializeFn

	// Skip
	skip skipFn

	// Record | Union
	children []action
}

func deserializeAction(columnIndex int, fn deserializeFn) action {
	return action{kind: actionDeserialize, columnIndex: columnIndex, deserialize: fn}
}

func skipAction(fn skipFn) action {
	return action{kind: actionSkip, skip: fn}
}

func recordAction(fieldActions []action) action {
	return action{kind: actionRecord, children: fieldActions}
}

func unionAction(branchActions []action) action {
	return action{kind: actionUnion, children: branchActions}
}

// execute interprets the action against one record's cursor. Record
// children run strictly in writer-schema order; Union reads the branch
// index first and dispatches.
func (a *action) execute(batch *columns.Batch, dec *avro.Decoder, ext *columns.RowExtension) error {
	switch a.kind {
	case actionNoop:
		return nil
	case actionDeserialize:
		if err := a.deserialize(batch.Column(a.columnIndex), dec); err != nil {
			return fmt.Errorf("column %q: %w", batch.Column(a.columnIndex).Name(), err)
		}
		ext.ReadColumns[a.columnIndex] = true
		return nil
	case actionSkip:
		return a.skip(dec)
	case actionRecord:
		for i := range a.children {
			if err := a.children[i].execute(batch, dec, ext); err != nil {
				return err
			}
		}
		return nil
	case actionUnion:
		index, err := dec.ReadUnionIndex()
		if err != nil {
			return err
		}
		if index < 0 || index >= int64(len(a.children)) {
			return fmt.Errorf("%w: branch %d of %d", ErrUnionIndexOutOfRange, index, len(a.children))
		}
		return a.children[index].execute(batch, dec, ext)
	default:
		return fmt.Errorf("corrupt action kind %d", a.kind)
	}
}
