package avrorow

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
	"github.com/Aleph-Alpha/avrocol/v1/ocf"
)

// ReadSchema reads an Object Container File header from r and infers the
// target column list from its embedded writer schema, without decoding any
// rows.
func ReadSchema(r io.Reader) ([]columns.Spec, error) {
	file, err := ocf.NewReader(r)
	if err != nil {
		return nil, err
	}
	return InferColumns(file.Schema())
}

// ReadConfluentSchema reads one Confluent framing header from r, resolves
// the schema ID through resolver, and infers the target column list.
func ReadConfluentSchema(r io.Reader, resolver SchemaResolver) ([]columns.Spec, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading framing header: %w", err)
	}
	if header[0] != ConfluentMagicByte {
		return nil, fmt.Errorf("%w: got 0x%02x", ErrInvalidMagicByte, header[0])
	}
	id := binary.BigEndian.Uint32(header[1:5])

	text, err := resolver.GetSchemaByID(int(id))
	if err != nil {
		return nil, fmt.Errorf("resolving schema id %d: %w", id, err)
	}
	schema, err := avro.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing schema id %d: %w", id, err)
	}
	return InferColumns(schema)
}
