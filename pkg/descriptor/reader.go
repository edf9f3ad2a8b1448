// Package descriptor decodes the fixed-layout binary structures that camera
// APIs hand back: V4L2 ioctl buffers and the Windows VIDEOINFOHEADER layout.
//
// All integer fields are little-endian. Decoding goes through Reader, a
// bounds-checked cursor, so a truncated buffer yields ErrShortBuffer instead
// of a panic.
//
// Example:
//
//	r := descriptor.NewReader(buf)
//	r.Seek(40)
//	min, err := r.Int32()
package descriptor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a read would run past the end of the buffer.
var ErrShortBuffer = errors.New("descriptor: short buffer")

// Reader is a little-endian cursor over a byte slice.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.buf) }

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.buf) {
		return fmt.Errorf("%w: seek to %d of %d", ErrShortBuffer, off, len(r.buf))
	}
	r.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	return r.Seek(r.off + n)
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, len(r.buf))
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// CString reads an n-byte null-padded string field.
func (r *Reader) CString(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return cstr(b), nil
}

// fields reads a sequence of values, stopping at the first error.
// Each target must be *uint16, *uint32, *int32 or *uint64.
func (r *Reader) fields(targets ...any) error {
	for _, t := range targets {
		var err error
		switch p := t.(type) {
		case *uint16:
			*p, err = r.Uint16()
		case *uint32:
			*p, err = r.Uint32()
		case *int32:
			*p, err = r.Int32()
		case *uint64:
			*p, err = r.Uint64()
		default:
			err = fmt.Errorf("descriptor: unsupported field type %T", t)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
