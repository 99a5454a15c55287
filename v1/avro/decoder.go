package avro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncated is returned when the stream ends in the middle of a value.
// It is distinct from io.EOF, which only occurs at a record boundary.
var ErrTruncated = errors.New("truncated avro stream")

// maxVarintBytes is the longest legal zig-zag varint encoding of an int64.
const maxVarintBytes = 10

// Decoder reads Avro binary-encoded primitives from a byte stream.
//
// All Read methods consume exactly one value. The matching Skip methods
// consume the same bytes without allocating, which is what the row decoder
// uses for fields that have no target column.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	if br, ok := r.(*bufio.Reader); ok {
		return &Decoder{r: br}
	}
	return &Decoder{r: bufio.NewReader(r)}
}

// ReadByte consumes one raw byte. Used by the wire-format framing layer,
// which needs to see a clean io.EOF at a record boundary, so this is the
// one read that does not map EOF to ErrTruncated.
func (d *Decoder) ReadByte() (byte, error) {
	return d.r.ReadByte()
}

// UnreadByte pushes back the byte most recently consumed by ReadByte.
func (d *Decoder) UnreadByte() error {
	return d.r.UnreadByte()
}

// More reports whether at least one more byte is available, without
// consuming it. Framing layers use it to tell a clean end of stream from a
// truncated value.
func (d *Decoder) More() bool {
	_, err := d.r.Peek(1)
	return err == nil
}

// ReadRaw fills buf with the next len(buf) raw bytes.
func (d *Decoder) ReadRaw(buf []byte) error {
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return truncated(err)
	}
	return nil
}

// Discard consumes and drops n raw bytes.
func (d *Decoder) Discard(n int64) error {
	for n > 0 {
		chunk := n
		if chunk > math.MaxInt32 {
			chunk = math.MaxInt32
		}
		discarded, err := d.r.Discard(int(chunk))
		n -= int64(discarded)
		if err != nil {
			return truncated(err)
		}
	}
	return nil
}

// ReadBool reads one boolean byte.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return false, truncated(err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean byte 0x%02x", b)
	}
}

// ReadLong reads a zig-zag varint-encoded 64-bit integer.
func (d *Decoder) ReadLong() (int64, error) {
	var raw uint64
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, truncated(err)
		}
		raw |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			// zig-zag decode
			return int64(raw>>1) ^ -int64(raw&1), nil
		}
		shift += 7
	}
	return 0, errors.New("varint longer than 10 bytes")
}

// ReadInt reads a zig-zag varint-encoded 32-bit integer.
func (d *Decoder) ReadInt() (int32, error) {
	v, err := d.ReadLong()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("int value %d out of 32-bit range", v)
	}
	return int32(v), nil
}

// ReadFloat reads a little-endian IEEE 754 single.
func (d *Decoder) ReadFloat() (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, truncated(err)
	}
	bits := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return math.Float32frombits(bits), nil
}

// ReadDouble reads a little-endian IEEE 754 double.
func (d *Decoder) ReadDouble() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, truncated(err)
	}
	bits := uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
		uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56
	return math.Float64frombits(bits), nil
}

// ReadBytes reads a length-prefixed byte sequence.
func (d *Decoder) ReadBytes() ([]byte, error) {
	length, err := d.ReadLong()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("negative bytes length %d", length)
	}
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, truncated(err)
	}
	return buf, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	buf, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadFixed fills buf with a fixed-size value.
func (d *Decoder) ReadFixed(buf []byte) error {
	return d.ReadRaw(buf)
}

// ReadUnionIndex reads the branch index preceding a union value.
func (d *Decoder) ReadUnionIndex() (int64, error) {
	return d.ReadLong()
}

// ReadBlockCount reads one array/map block header and returns the number of
// items in the block. A zero return means end of the array or map. Negative
// counts on the wire carry a trailing byte-size long, which is consumed and
// ignored here.
func (d *Decoder) ReadBlockCount() (int64, error) {
	count, err := d.ReadLong()
	if err != nil {
		return 0, err
	}
	if count < 0 {
		if _, err := d.ReadLong(); err != nil {
			return 0, err
		}
		count = -count
	}
	return count, nil
}

// SkipBool consumes one boolean without decoding it.
func (d *Decoder) SkipBool() error {
	_, err := d.r.ReadByte()
	return truncated(err)
}

// SkipLong consumes one varint-encoded integer.
func (d *Decoder) SkipLong() error {
	for i := 0; i < maxVarintBytes; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return truncated(err)
		}
		if b&0x80 == 0 {
			return nil
		}
	}
	return errors.New("varint longer than 10 bytes")
}

// SkipInt consumes one varint-encoded integer.
func (d *Decoder) SkipInt() error { return d.SkipLong() }

// SkipFloat consumes four bytes.
func (d *Decoder) SkipFloat() error { return d.Discard(4) }

// SkipDouble consumes eight bytes.
func (d *Decoder) SkipDouble() error { return d.Discard(8) }

// SkipBytes consumes one length-prefixed byte sequence without allocating.
func (d *Decoder) SkipBytes() error {
	length, err := d.ReadLong()
	if err != nil {
		return err
	}
	if length < 0 {
		return fmt.Errorf("negative bytes length %d", length)
	}
	return d.Discard(length)
}

// SkipString consumes one length-prefixed string without allocating.
func (d *Decoder) SkipString() error { return d.SkipBytes() }

// SkipFixed consumes size raw bytes.
func (d *Decoder) SkipFixed(size int) error { return d.Discard(int64(size)) }

func truncated(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
