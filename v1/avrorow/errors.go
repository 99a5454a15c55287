package avrorow

import "errors"

// Standardized error types surfaced by the row decoding core. Compile-time
// errors (ErrSchemaMismatch, ErrMissingRequiredColumn) abort reader setup;
// decode-time errors surface per record and, in Confluent wire mode, are
// eligible for stream resynchronization.
var (
	// ErrSchemaMismatch is returned at compile time when a writer schema
	// field matched to a target column has a structurally incompatible type.
	ErrSchemaMismatch = errors.New("schema type incompatible with target column")

	// ErrMissingRequiredColumn is returned at compile time when the writer
	// schema has no field for a target column and permissive matching is
	// not enabled.
	ErrMissingRequiredColumn = errors.New("required column missing from writer schema")

	// ErrUnionIndexOutOfRange is returned at decode time when a union
	// branch index read from the stream is not a valid branch position.
	// It indicates a corrupt stream or a schema/stream mismatch.
	ErrUnionIndexOutOfRange = errors.New("union index out of range")

	// ErrInvalidMagicByte is returned in Confluent wire mode when a record
	// does not start with the 0x00 framing marker.
	ErrInvalidMagicByte = errors.New("invalid confluent magic byte")
)
