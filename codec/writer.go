package codec

import (
	"encoding/binary"
	"math"
)

// Writer accumulates big-endian wire data. Writes never fail.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated bytes. The slice aliases the writer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset empties the writer while keeping its capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) WriteRaw(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}

	w.buf = append(w.buf, 0)
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteInt8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

func (w *Writer) WriteVarUInt32(v uint32) {
	w.buf = AppendVarUInt32(w.buf, v)
}

// WriteVarInt32 writes the two's complement bits of v as an unsigned varint.
func (w *Writer) WriteVarInt32(v int32) {
	w.WriteVarUInt32(uint32(v))
}

func (w *Writer) WriteString(s string) {
	w.WriteVarUInt32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteByteArray writes a varint length followed by p.
func (w *Writer) WriteByteArray(p []byte) {
	w.WriteVarUInt32(uint32(len(p)))
	w.buf = append(w.buf, p...)
}

func (w *Writer) WritePosition(p Position) {
	w.WriteUint64(PackPosition(p))
}

func (w *Writer) WriteAngle(deg float64) {
	w.buf = append(w.buf, DegreesToAngle(deg))
}

func (w *Writer) WriteFixedPoint(v float64) {
	w.WriteInt32(ToFixedPoint(v))
}

func (w *Writer) WriteUUID(id UUID) {
	w.buf = append(w.buf, id[:]...)
}
