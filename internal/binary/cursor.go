package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNoTerminator is returned when a NUL-terminated string runs off the end of the data.
var ErrNoTerminator = errors.New("string has no NUL terminator")

// Cursor is a read position over an immutable byte slice.
// Cursors are values: passing one to a function hands it an independent
// position, so nested decoders cannot move their caller's cursor.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor creates a cursor at offset 0 of data.
func NewCursor(data []byte) Cursor {
	return Cursor{data: data}
}

// Pos returns the current byte position.
func (c Cursor) Pos() int {
	return c.pos
}

// Len returns the total length of the underlying data.
func (c Cursor) Len() int {
	return len(c.data)
}

// Remaining returns the number of unread bytes.
func (c Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Seek returns a cursor positioned at pos. Seeking to Len() is allowed.
func (c Cursor) Seek(pos int) (Cursor, error) {
	if pos < 0 || pos > len(c.data) {
		return c, &ParseError{Position: pos, Err: fmt.Errorf("seek outside data (length %d)", len(c.data))}
	}
	c.pos = pos
	return c, nil
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, &ParseError{Position: c.pos, Err: io.ErrUnexpectedEOF}
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads a little-endian int16.
func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I64 reads a little-endian int64.
func (c *Cursor) I64() (int64, error) {
	v, err := c.U64()
	return int64(v), err
}

// F32 reads a little-endian IEEE 754 float32.
func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	return math.Float32frombits(v), err
}

// F64 reads a little-endian IEEE 754 float64.
func (c *Cursor) F64() (float64, error) {
	v, err := c.U64()
	return math.Float64frombits(v), err
}

// Bytes reads exactly n bytes. The result aliases the underlying data.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// CString reads a NUL-terminated string and consumes the terminator.
func (c *Cursor) CString() (string, error) {
	for i := c.pos; i < len(c.data); i++ {
		if c.data[i] == 0 {
			s := string(c.data[c.pos:i])
			c.pos = i + 1
			return s, nil
		}
	}
	return "", &ParseError{Position: c.pos, Err: ErrNoTerminator}
}

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("redpkg: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("redpkg: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError with the current position.
func (c Cursor) WrapError(section string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Section == "" {
		return &ParseError{Position: pe.Position, Section: section, Err: pe.Err}
	}
	return &ParseError{
		Position: c.pos,
		Section:  section,
		Err:      err,
	}
}
