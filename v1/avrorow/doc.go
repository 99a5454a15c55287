// Package avrorow converts Avro binary records into statically-typed
// columns by compiling, once per writer schema, an executable plan that is
// then driven once per record.
//
// The plan (an action tree) mirrors the writer schema's field order: each
// field either deserializes into its matching target column or is skipped
// without allocation. Unions dispatch on the branch index read from the
// stream; named types route through a name-keyed skip cache so
// self-referential schemas (e.g. a linked list record) compile in bounded
// time. Compiled plans are immutable and safe to share across goroutines.
//
// Column matching is by dotted path: a top-level field "a" matches column
// "a", a field "b" nested inside record field "outer" matches "outer.b".
//
// Three entry points cover the three framings of the same binary encoding:
//
//   - RowReader reads an Object Container File, compiling the embedded
//     writer schema once.
//   - ConfluentRowReader reads wire-framed records (0x00 magic + schema ID),
//     resolving IDs through a schema registry and caching one compiled plan
//     per distinct ID. Resync steps over a corrupt record.
//   - InferColumns / ReadSchema derive a column list from a schema alone.
//
// Basic Usage:
//
//	import (
//	    "github.com/Aleph-Alpha/avrocol/v1/avrorow"
//	    "github.com/Aleph-Alpha/avrocol/v1/columns"
//	)
//
//	specs := []columns.Spec{
//	    {Name: "id", Type: columns.Int64()},
//	    {Name: "name", Type: columns.String_()},
//	}
//	batch, err := columns.NewBatch(specs)
//	reader, err := avrorow.OpenReader(specs, file, avrorow.Options{})
//	for {
//	    ext, err := reader.Next(batch)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    _ = ext.ReadColumns // per-column presence for this row
//	}
package avrorow
