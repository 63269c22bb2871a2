package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a positioned, endian-aware cursor over an in-memory cache file.
//
// A Reader is not safe for concurrent use. Nested reads that must return to
// the current position go through Preserve.
type Reader struct {
	data  []byte
	order binary.ByteOrder
	pos   int64
}

func NewReader(data []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{data: data, order: order}
}

func (r *Reader) Order() binary.ByteOrder { return r.order }

func (r *Reader) Len() int64 { return int64(len(r.data)) }

func (r *Reader) Position() int64 { return r.pos }

// SetPosition moves the cursor; positions equal to Len are valid (end of input).
func (r *Reader) SetPosition(pos int64) error {
	if pos < 0 || pos > int64(len(r.data)) {
		return &TruncatedInputError{Offset: pos, Size: int64(len(r.data)), Seek: true}
	}
	r.pos = pos
	return nil
}

func (r *Reader) SeekTo(addr int64) error {
	return r.SetPosition(addr)
}

func (r *Reader) Skip(n int64) error {
	return r.SetPosition(r.pos + n)
}

// Preserve runs fn and restores the cursor afterwards, whatever fn returns.
func (r *Reader) Preserve(fn func() error) error {
	saved := r.pos
	defer func() { r.pos = saved }()
	return fn()
}

func (r *Reader) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	end := r.pos + int64(n)
	if end > int64(len(r.data)) || end < r.pos {
		return nil, &TruncatedInputError{Offset: r.pos, Want: n, Size: int64(len(r.data))}
	}
	b := r.data[r.pos:end]
	r.pos = end
	return b, nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.readN(n)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	u, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// ReadFixedString reads exactly length bytes and cuts the result at the first NUL.
func (r *Reader) ReadFixedString(length int) (string, error) {
	b, err := r.readN(length)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// ReadNullTerminatedString reads up to maxLength bytes, stopping after the
// first NUL. The terminator is consumed but not returned.
func (r *Reader) ReadNullTerminatedString(maxLength int) (string, error) {
	if maxLength < 0 {
		return "", fmt.Errorf("invalid string length %d", maxLength)
	}
	limit := min(int64(maxLength), int64(len(r.data))-r.pos)
	if limit < 0 {
		return "", &TruncatedInputError{Offset: r.pos, Want: maxLength, Size: int64(len(r.data))}
	}
	window := r.data[r.pos : r.pos+limit]
	if i := bytes.IndexByte(window, 0); i >= 0 {
		r.pos += int64(i) + 1
		return string(window[:i]), nil
	}
	if limit < int64(maxLength) {
		// ran off the buffer before the terminator
		return "", &TruncatedInputError{Offset: r.pos, Want: maxLength, Size: int64(len(r.data))}
	}
	r.pos += limit
	return string(window), nil
}

// ReadClassCode reads a four-character code stored as a u32 in file order.
func (r *Reader) ReadClassCode() (ClassCode, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	return ClassCodeFromUint32(v), nil
}
