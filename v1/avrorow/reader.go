package avrorow

import (
	"fmt"
	"io"

	"github.com/Aleph-Alpha/avrocol/v1/columns"
	"github.com/Aleph-Alpha/avrocol/v1/ocf"
)

// RowReader decodes rows from an Avro Object Container File into a target
// column list. The writer schema embedded in the container header is
// compiled exactly once, when the reader is opened; every record then runs
// through the same plan in stream order.
//
// Decode errors in container mode abort the stream: blocks are framed with
// integrity markers, so there is no per-record recovery path.
type RowReader struct {
	file         *ocf.Reader
	deserializer *Deserializer
	ext          *columns.RowExtension
}

// OpenReader reads the container header from r and compiles the decode
// plan for the target columns. Compile-time failures (ErrSchemaMismatch,
// ErrMissingRequiredColumn) surface here, before any row is read.
func OpenReader(specs []columns.Spec, r io.Reader, opts Options) (*RowReader, error) {
	file, err := ocf.NewReader(r)
	if err != nil {
		return nil, err
	}
	deserializer, err := NewDeserializer(specs, file.Schema(), opts)
	if err != nil {
		return nil, fmt.Errorf("compiling container schema: %w", err)
	}
	return &RowReader{
		file:         file,
		deserializer: deserializer,
		ext:          columns.NewRowExtension(len(specs)),
	}, nil
}

// Next decodes the next record into batch and returns the presence bitmap
// for that row. It returns io.EOF when the container has no more records.
// The returned RowExtension is reused on the following call.
func (r *RowReader) Next(batch *columns.Batch) (*columns.RowExtension, error) {
	dec, err := r.file.Next()
	if err != nil {
		return nil, err
	}
	r.ext.Reset()
	if err := r.deserializer.DeserializeRow(batch, dec, r.ext); err != nil {
		return nil, err
	}
	return r.ext, nil
}

// Schema returns the container's embedded writer schema text.
func (r *RowReader) Schema() string {
	return r.file.SchemaText()
}
