package binary

import (
	"encoding/binary"
	"math"
)

// Writer provides buffered little-endian writing for the package format.
type Writer struct {
	buf []byte
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// U8 writes a single byte.
func (w *Writer) U8(b uint8) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// I16 writes a little-endian int16.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// I64 writes a little-endian int64.
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// F32 writes a little-endian IEEE 754 float32.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// F64 writes a little-endian IEEE 754 float64.
func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// CString writes s followed by a NUL terminator.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// PutU32At overwrites four bytes at pos with a little-endian uint32.
// Used to patch offsets reserved before their target was written.
func (w *Writer) PutU32At(pos int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[pos:pos+4], v)
}
