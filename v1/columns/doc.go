// Package columns holds the statically-typed columnar row representation
// that the Avro row decoders populate.
//
// A caller declares the target shape as an ordered []Spec, builds a Batch
// from it, and hands the Batch to a decoder. Column order in the Spec list
// defines the index used by the per-row presence bitmap (RowExtension).
//
// Columns grow by appending one value (or one null) per decoded row and are
// reset and reused between batches; nothing here is safe for concurrent
// mutation of the same Batch.
package columns
