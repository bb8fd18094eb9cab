package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"
)

var (
	// ErrTruncated is returned by every read when the buffer does not hold
	// enough bytes yet. It is never fatal on its own, callers roll back to a
	// mark and wait for more data.
	ErrTruncated = errors.New("codec: not enough data buffered")

	ErrVarIntTooLong  = errors.New("codec: varint does not fit in 32 bits")
	ErrStringTooLong  = errors.New("codec: string length exceeds limit")
	ErrInvalidUTF8    = errors.New("codec: string is not valid utf-8")
	ErrBufferOverflow = errors.New("codec: buffer capacity exceeded")
)

const (
	// MaxVarIntLen is the longest encoding of a 32 bit varint
	MaxVarIntLen = 5

	// MaxStringLen bounds the byte length of any single length prefixed string
	MaxStringLen = 32767 * 4
)

// Buffer is a read cursor over an append-only byte queue.
//
// Incoming bytes are appended with Write, decoded with the Read* methods
// and the cursor can be rolled back to a Mark when a read comes up short.
// Commit drops every byte before the cursor, making the consumed bytes
// unrecoverable.
//
// A failed read never moves the cursor.
type Buffer struct {
	data []byte
	pos  int

	// max is the upper bound on unconsumed bytes, 0 means unbounded
	max int
}

// NewBuffer returns a Buffer reading from data. The slice is not copied.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// NewBoundedBuffer returns an empty Buffer that refuses writes which would
// leave more than max unconsumed bytes.
func NewBoundedBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Write appends p to the unread tail of the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.max > 0 && len(b.data)-b.pos+len(p) > b.max {
		return 0, ErrBufferOverflow
	}

	b.data = append(b.data, p...)
	return len(p), nil
}

// Mark returns the current cursor so it can be restored with ResetTo.
func (b *Buffer) Mark() int {
	return b.pos
}

// ResetTo moves the cursor back to a position previously returned by Mark.
func (b *Buffer) ResetTo(mark int) {
	if mark < 0 || mark > len(b.data) {
		return
	}

	b.pos = mark
}

// Commit discards every byte before the cursor. Marks taken before Commit
// are invalid afterwards.
func (b *Buffer) Commit() {
	if b.pos == 0 {
		return
	}

	n := copy(b.data, b.data[b.pos:])
	b.data = b.data[:n]
	b.pos = 0
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Consumed returns the number of bytes read since the last Commit.
func (b *Buffer) Consumed() int {
	return b.pos
}

// Len returns the number of bytes held, read or not.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Skip advances the cursor by n bytes.
func (b *Buffer) Skip(n int) error {
	if n < 0 || b.Remaining() < n {
		return ErrTruncated
	}

	b.pos += n
	return nil
}

// Peek returns the next n bytes without consuming them.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, ErrTruncated
	}

	return b.data[b.pos : b.pos+n], nil
}

// ReadBytes consumes n bytes. The returned slice is a copy.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	p, err := b.Peek(n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, p)
	b.pos += n

	return out, nil
}

// ReadAll consumes and returns every unread byte.
func (b *Buffer) ReadAll() []byte {
	out, _ := b.ReadBytes(b.Remaining())
	return out
}

func (b *Buffer) ReadByte() (byte, error) {
	if b.Remaining() < 1 {
		return 0, ErrTruncated
	}

	v := b.data[b.pos]
	b.pos++
	return v, nil
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadByte()
	return v != 0, err
}

func (b *Buffer) ReadUint8() (uint8, error) {
	return b.ReadByte()
}

func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadByte()
	return int8(v), err
}

func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.Peek(2)
	if err != nil {
		return 0, err
	}

	b.pos += 2
	return binary.BigEndian.Uint16(p), nil
}

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.Peek(4)
	if err != nil {
		return 0, err
	}

	b.pos += 4
	return binary.BigEndian.Uint32(p), nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.Peek(8)
	if err != nil {
		return 0, err
	}

	b.pos += 8
	return binary.BigEndian.Uint64(p), nil
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadVarUInt32 reads a LEB128 encoded unsigned integer of at most 5 bytes.
func (b *Buffer) ReadVarUInt32() (uint32, error) {
	v, n, err := DecodeVarUInt32(b.data[b.pos:])
	if err != nil {
		return 0, err
	}

	b.pos += n
	return v, nil
}

// ReadVarInt32 reads a varint and reinterprets it as a signed two's
// complement value, which is how the wire carries negative ids.
func (b *Buffer) ReadVarInt32() (int32, error) {
	v, err := b.ReadVarUInt32()
	return int32(v), err
}

// ReadString reads a varint byte length followed by that many UTF-8 bytes.
func (b *Buffer) ReadString() (string, error) {
	mark := b.pos

	n, err := b.ReadVarUInt32()
	if err != nil {
		return "", err
	}

	if n > MaxStringLen {
		b.pos = mark
		return "", ErrStringTooLong
	}

	p, err := b.Peek(int(n))
	if err != nil {
		b.pos = mark
		return "", err
	}

	if !utf8.Valid(p) {
		b.pos = mark
		return "", ErrInvalidUTF8
	}

	b.pos += int(n)
	return string(p), nil
}

// ReadByteArray reads a varint length followed by that many raw bytes.
func (b *Buffer) ReadByteArray(limit int) ([]byte, error) {
	mark := b.pos

	n, err := b.ReadVarUInt32()
	if err != nil {
		return nil, err
	}

	if limit > 0 && int(n) > limit {
		b.pos = mark
		return nil, ErrStringTooLong
	}

	p, err := b.ReadBytes(int(n))
	if err != nil {
		b.pos = mark
		return nil, err
	}

	return p, nil
}

func (b *Buffer) ReadPosition() (Position, error) {
	v, err := b.ReadUint64()
	if err != nil {
		return Position{}, err
	}

	return UnpackPosition(v), nil
}

func (b *Buffer) ReadAngle() (float64, error) {
	v, err := b.ReadByte()
	if err != nil {
		return 0, err
	}

	return AngleToDegrees(v), nil
}

func (b *Buffer) ReadFixedPoint() (float64, error) {
	v, err := b.ReadInt32()
	if err != nil {
		return 0, err
	}

	return float64(v) / 32, nil
}

func (b *Buffer) ReadUUID() (UUID, error) {
	var id UUID

	p, err := b.Peek(16)
	if err != nil {
		return id, err
	}

	copy(id[:], p)
	b.pos += 16

	return id, nil
}
