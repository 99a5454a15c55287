package avro

import (
	"fmt"
	"io"
	"math"
)

// Encoder writes Avro binary-encoded primitives to a byte stream. It is the
// counterpart of Decoder and is used by the wire-format serializer and by
// tests to build payloads.
type Encoder struct {
	w   io.Writer
	buf [maxVarintBytes]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteBool writes one boolean byte.
func (e *Encoder) WriteBool(v bool) error {
	e.buf[0] = 0
	if v {
		e.buf[0] = 1
	}
	_, err := e.w.Write(e.buf[:1])
	return err
}

// WriteLong writes a zig-zag varint-encoded 64-bit integer.
func (e *Encoder) WriteLong(v int64) error {
	raw := uint64(v<<1) ^ uint64(v>>63)
	n := 0
	for raw >= 0x80 {
		e.buf[n] = byte(raw) | 0x80
		raw >>= 7
		n++
	}
	e.buf[n] = byte(raw)
	_, err := e.w.Write(e.buf[:n+1])
	return err
}

// WriteInt writes a zig-zag varint-encoded 32-bit integer.
func (e *Encoder) WriteInt(v int32) error {
	return e.WriteLong(int64(v))
}

// WriteFloat writes a little-endian IEEE 754 single.
func (e *Encoder) WriteFloat(v float32) error {
	bits := math.Float32bits(v)
	e.buf[0] = byte(bits)
	e.buf[1] = byte(bits >> 8)
	e.buf[2] = byte(bits >> 16)
	e.buf[3] = byte(bits >> 24)
	_, err := e.w.Write(e.buf[:4])
	return err
}

// WriteDouble writes a little-endian IEEE 754 double.
func (e *Encoder) WriteDouble(v float64) error {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		e.buf[i] = byte(bits >> (8 * i))
	}
	_, err := e.w.Write(e.buf[:8])
	return err
}

// WriteBytes writes a length-prefixed byte sequence.
func (e *Encoder) WriteBytes(v []byte) error {
	if err := e.WriteLong(int64(len(v))); err != nil {
		return err
	}
	_, err := e.w.Write(v)
	return err
}

// WriteString writes a length-prefixed UTF-8 string.
func (e *Encoder) WriteString(v string) error {
	if err := e.WriteLong(int64(len(v))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, v)
	return err
}

// WriteFixed writes raw bytes with no length prefix.
func (e *Encoder) WriteFixed(v []byte) error {
	_, err := e.w.Write(v)
	return err
}

// WriteUnionIndex writes the branch index preceding a union value.
func (e *Encoder) WriteUnionIndex(index int64) error {
	if index < 0 {
		return fmt.Errorf("negative union index %d", index)
	}
	return e.WriteLong(index)
}

// WriteBlockCount writes one array/map block header. Terminate the value
// with a zero count.
func (e *Encoder) WriteBlockCount(count int64) error {
	if count < 0 {
		return fmt.Errorf("negative block count %d", count)
	}
	return e.WriteLong(count)
}
