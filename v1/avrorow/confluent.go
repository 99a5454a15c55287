package avrorow

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
)

// ConfluentMagicByte is the framing marker preceding every wire-framed
// record.
const ConfluentMagicByte = 0x00

// SchemaResolver resolves a numeric schema identifier to Avro schema text.
// It is satisfied by schema_registry.Registry; the narrower interface keeps
// the decoding core independent of the HTTP client.
type SchemaResolver interface {
	GetSchemaByID(id int) (string, error)
}

// ConfluentRowReader decodes a stream of Confluent-framed records: each
// record is a 0x00 magic byte, a big-endian uint32 schema ID, and an Avro
// binary payload encoded under that schema.
//
// The reader compiles one decode plan per distinct schema ID on first
// sight and caches it for its own lifetime. Records are independent
// network messages, so a corrupt record can be stepped over with Resync
// instead of aborting the stream.
type ConfluentRowReader struct {
	specs    []columns.Spec
	resolver SchemaResolver
	opts     Options

	dec   *avro.Decoder
	cache map[uint32]*Deserializer
	ext   *columns.RowExtension
}

// NewConfluentRowReader returns a reader decoding wire-framed records from
// r, resolving schema IDs through resolver. r may be nil when the reader is
// used only for message-framed decoding via DecodeMessage.
func NewConfluentRowReader(specs []columns.Spec, r io.Reader, resolver SchemaResolver, opts Options) *ConfluentRowReader {
	if r == nil {
		r = bytes.NewReader(nil)
	}
	return &ConfluentRowReader{
		specs:    specs,
		resolver: resolver,
		opts:     opts,
		dec:      avro.NewDecoder(r),
		cache:    make(map[uint32]*Deserializer),
		ext:      columns.NewRowExtension(len(specs)),
	}
}

// Next decodes the next record into batch and returns its presence bitmap.
// It returns io.EOF at a clean end of stream. On any other error the
// stream position is undefined; the caller chooses between aborting and
// calling Resync to skip to the next plausible record boundary.
func (c *ConfluentRowReader) Next(batch *columns.Batch) (*columns.RowExtension, error) {
	id, err := c.readHeader()
	if err != nil {
		return nil, err
	}

	deserializer, err := c.deserializerFor(id)
	if err != nil {
		return nil, err
	}

	c.ext.Reset()
	if err := deserializer.DeserializeRow(batch, c.dec, c.ext); err != nil {
		return nil, fmt.Errorf("record with schema id %d: %w", id, err)
	}
	return c.ext, nil
}

// DecodeMessage decodes one complete wire-framed message (e.g. a Kafka
// message value) into batch. Unlike Next it does not consume from the
// reader's stream; message boundaries come from the transport.
func (c *ConfluentRowReader) DecodeMessage(message []byte, batch *columns.Batch) (*columns.RowExtension, error) {
	if len(message) < 5 {
		return nil, fmt.Errorf("%w: message of %d bytes is shorter than the framing header", avro.ErrTruncated, len(message))
	}
	if message[0] != ConfluentMagicByte {
		return nil, fmt.Errorf("%w: got 0x%02x", ErrInvalidMagicByte, message[0])
	}
	id := binary.BigEndian.Uint32(message[1:5])

	deserializer, err := c.deserializerFor(id)
	if err != nil {
		return nil, err
	}

	c.ext.Reset()
	dec := avro.NewDecoder(bytes.NewReader(message[5:]))
	if err := deserializer.DeserializeRow(batch, dec, c.ext); err != nil {
		return nil, fmt.Errorf("record with schema id %d: %w", id, err)
	}
	return c.ext, nil
}

// Resync discards bytes until the next candidate record boundary (the next
// 0x00 magic byte), leaving the stream positioned on it. This bounds the
// damage of one corrupt record to that record alone. It returns io.EOF if
// the stream ends first.
func (c *ConfluentRowReader) Resync() error {
	for {
		b, err := c.dec.ReadByte()
		if err != nil {
			return err
		}
		if b == ConfluentMagicByte {
			return c.dec.UnreadByte()
		}
	}
}

func (c *ConfluentRowReader) readHeader() (uint32, error) {
	b, err := c.dec.ReadByte()
	if err != nil {
		// A clean EOF before the magic byte is the end of the stream, not
		// a truncated record.
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, err
	}
	if b != ConfluentMagicByte {
		return 0, fmt.Errorf("%w: got 0x%02x", ErrInvalidMagicByte, b)
	}

	var idBuf [4]byte
	if err := c.dec.ReadRaw(idBuf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(idBuf[:]), nil
}

// deserializerFor returns the compiled plan for a schema ID, fetching and
// compiling it on first sight. A resolver failure surfaces as a decode
// failure for the current record and is eligible for Resync.
func (c *ConfluentRowReader) deserializerFor(id uint32) (*Deserializer, error) {
	if deserializer, ok := c.cache[id]; ok {
		return deserializer, nil
	}

	text, err := c.resolver.GetSchemaByID(int(id))
	if err != nil {
		return nil, fmt.Errorf("resolving schema id %d: %w", id, err)
	}
	schema, err := avro.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing schema id %d: %w", id, err)
	}
	deserializer, err := NewDeserializer(c.specs, schema, c.opts)
	if err != nil {
		return nil, fmt.Errorf("compiling schema id %d: %w", id, err)
	}
	c.cache[id] = deserializer
	return deserializer, nil
}
