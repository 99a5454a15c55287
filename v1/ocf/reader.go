package ocf

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"

	"github.com/Aleph-Alpha/avrocol/v1/avro"
)

// Codec names accepted in the avro.codec metadata entry.
const (
	CodecNull    = "null"
	CodecDeflate = "deflate"
	CodecSnappy  = "snappy"
)

var (
	magic = []byte{'O', 'b', 'j', 1}

	// ErrBadHeader is returned when the stream does not start with the
	// container magic or the metadata is malformed.
	ErrBadHeader = errors.New("invalid container file header")

	// ErrBadSync is returned when a block's trailing sync marker does not
	// match the one declared in the header.
	ErrBadSync = errors.New("sync marker mismatch")
)

// Reader reads records from an Avro Object Container File. The embedded
// writer schema is parsed once from the header; Next then yields a decoder
// positioned at each record in stream order.
type Reader struct {
	dec        *avro.Decoder
	schema     *avro.Schema
	schemaText string
	codec      string
	sync       [16]byte

	blockDec  *avro.Decoder
	remaining int64
}

// NewReader reads the container header from r. It fails if the magic,
// metadata, or embedded schema is invalid.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{dec: avro.NewDecoder(r), codec: CodecNull}
	if err := reader.readHeader(); err != nil {
		return nil, err
	}
	return reader, nil
}

// Schema returns the parsed writer schema embedded in the header.
func (r *Reader) Schema() *avro.Schema { return r.schema }

// SchemaText returns the raw JSON schema text from the header.
func (r *Reader) SchemaText() string { return r.schemaText }

// Next returns a decoder positioned at the start of the next record, or
// io.EOF after the last block. The returned decoder is shared across
// records of one block; the caller must consume exactly one record from it
// before calling Next again.
func (r *Reader) Next() (*avro.Decoder, error) {
	for r.remaining == 0 {
		if err := r.readBlock(); err != nil {
			return nil, err
		}
	}
	r.remaining--
	return r.blockDec, nil
}

func (r *Reader) readHeader() error {
	var buf [4]byte
	if err := r.dec.ReadRaw(buf[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if !bytes.Equal(buf[:], magic) {
		return fmt.Errorf("%w: bad magic", ErrBadHeader)
	}

	// Header metadata is an Avro map<bytes>.
	for {
		count, err := r.dec.ReadBlockCount()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadHeader, err)
		}
		if count == 0 {
			break
		}
		for i := int64(0); i < count; i++ {
			key, err := r.dec.ReadString()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadHeader, err)
			}
			value, err := r.dec.ReadBytes()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadHeader, err)
			}
			switch key {
			case "avro.schema":
				r.schemaText = string(value)
			case "avro.codec":
				r.codec = string(value)
			}
		}
	}

	if err := r.dec.ReadRaw(r.sync[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}

	if r.schemaText == "" {
		return fmt.Errorf("%w: missing avro.schema metadata", ErrBadHeader)
	}
	schema, err := avro.Parse(r.schemaText)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	r.schema = schema

	switch r.codec {
	case CodecNull, CodecDeflate, CodecSnappy:
		return nil
	default:
		return fmt.Errorf("%w: unsupported codec %q", ErrBadHeader, r.codec)
	}
}

func (r *Reader) readBlock() error {
	if !r.dec.More() {
		return io.EOF
	}

	count, err := r.dec.ReadLong()
	if err != nil {
		return err
	}
	size, err := r.dec.ReadLong()
	if err != nil {
		return err
	}
	if count < 0 || size < 0 {
		return fmt.Errorf("invalid block header (count=%d, size=%d)", count, size)
	}

	compressed := make([]byte, size)
	if err := r.dec.ReadRaw(compressed); err != nil {
		return err
	}

	var syncBuf [16]byte
	if err := r.dec.ReadRaw(syncBuf[:]); err != nil {
		return err
	}
	if syncBuf != r.sync {
		return ErrBadSync
	}

	data, err := r.decompress(compressed)
	if err != nil {
		return err
	}

	r.blockDec = avro.NewDecoder(bytes.NewReader(data))
	r.remaining = count
	return nil
}

func (r *Reader) decompress(compressed []byte) ([]byte, error) {
	switch r.codec {
	case CodecNull:
		return compressed, nil
	case CodecDeflate:
		fr := flate.NewReader(bytes.NewReader(compressed))
		defer fr.Close()
		data, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("deflate block: %w", err)
		}
		return data, nil
	case CodecSnappy:
		// Snappy blocks carry a big-endian CRC32 of the uncompressed data
		// as a 4-byte suffix.
		if len(compressed) < 4 {
			return nil, fmt.Errorf("snappy block too short (%d bytes)", len(compressed))
		}
		body, tail := compressed[:len(compressed)-4], compressed[len(compressed)-4:]
		data, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("snappy block: %w", err)
		}
		want := binary.BigEndian.Uint32(tail)
		if got := crc32.ChecksumIEEE(data); got != want {
			return nil, fmt.Errorf("snappy block checksum mismatch (got %08x, want %08x)", got, want)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", r.codec)
	}
}
