package attr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the size of the rtattr length+type prefix.
const HeaderLen = 4

// Alignment is the rtattr/nlattr boundary every record is padded to.
const Alignment = 4

// Type flag bits carried in the upper bits of the 16-bit type field.
const (
	FlagNested       uint16 = 1 << 15
	FlagNetByteOrder uint16 = 1 << 14
	TypeMask                = ^(FlagNested | FlagNetByteOrder)
)

const maxLen = int(^uint16(0))

var (
	ErrTruncatedAttribute   = errors.New("attr: truncated attribute")
	ErrMalformedLength      = errors.New("attr: malformed length")
	ErrInvalidAttributeSize = errors.New("attr: invalid attribute size")
	ErrTypeMismatch         = errors.New("attr: value size mismatch")
)

// Attribute is one decoded rtattr record. Value aliases the decode buffer.
type Attribute struct {
	Type  uint16
	Len   uint16
	Value []byte
}

// Align rounds n up to the next attribute boundary.
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Size is the on-wire footprint of an attribute carrying n value bytes.
func Size(n int) int {
	return Align(HeaderLen + n)
}

// Encode builds one attribute record, zero-padded to the alignment boundary.
func Encode(typ uint16, value []byte) ([]byte, error) {
	l := HeaderLen + len(value)
	if l > maxLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAttributeSize, l)
	}
	buf := make([]byte, Align(l))
	binary.NativeEndian.PutUint16(buf[0:2], uint16(l))
	binary.NativeEndian.PutUint16(buf[2:4], typ)
	copy(buf[HeaderLen:], value)
	return buf, nil
}

// Append encodes the attribute onto dst.
func Append(dst []byte, typ uint16, value []byte) ([]byte, error) {
	b, err := Encode(typ, value)
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}

// Decode reads the attribute starting at offset. consumed includes trailing
// padding so the caller can advance to the next record; when the final
// record's padding is missing from buf, consumed stops at len(buf).
func Decode(buf []byte, offset int) (Attribute, int, error) {
	if offset < 0 || len(buf)-offset < HeaderLen {
		return Attribute{}, 0, ErrTruncatedAttribute
	}
	l := int(binary.NativeEndian.Uint16(buf[offset : offset+2]))
	typ := binary.NativeEndian.Uint16(buf[offset+2 : offset+4])
	if l < HeaderLen {
		return Attribute{}, 0, fmt.Errorf("%w: type %d declares %d bytes", ErrMalformedLength, typ&TypeMask, l)
	}
	remaining := len(buf) - offset
	if l > remaining {
		return Attribute{}, 0, fmt.Errorf("%w: type %d declares %d bytes, %d remain", ErrMalformedLength, typ&TypeMask, l, remaining)
	}
	consumed := min(Align(l), remaining)
	return Attribute{
		Type:  typ,
		Len:   uint16(l),
		Value: buf[offset+HeaderLen : offset+l],
	}, consumed, nil
}

// Kind returns the attribute type without the nested/byte-order flags.
func (a Attribute) Kind() uint16 {
	return a.Type & TypeMask
}

func (a Attribute) Nested() bool {
	return a.Type&FlagNested != 0
}

func (a Attribute) NetByteOrder() bool {
	return a.Type&FlagNetByteOrder != 0
}

// String returns the value as text, cut at the first NUL.
func (a Attribute) String() string {
	if i := bytes.IndexByte(a.Value, 0); i >= 0 {
		return string(a.Value[:i])
	}
	return string(a.Value)
}

func (a Attribute) Uint8() (uint8, error) {
	if len(a.Value) != 1 {
		return 0, fmt.Errorf("%w: want 1 byte, got %d", ErrTypeMismatch, len(a.Value))
	}
	return a.Value[0], nil
}

// Uint32 honours the network byte order flag.
func (a Attribute) Uint32() (uint32, error) {
	if len(a.Value) != 4 {
		return 0, fmt.Errorf("%w: want 4 bytes, got %d", ErrTypeMismatch, len(a.Value))
	}
	if a.NetByteOrder() {
		return binary.BigEndian.Uint32(a.Value), nil
	}
	return binary.NativeEndian.Uint32(a.Value), nil
}

// Bytes returns a copy of the value that outlives the receive buffer.
func (a Attribute) Bytes() []byte {
	buf := make([]byte, len(a.Value))
	copy(buf, a.Value)
	return buf
}

// Uint32Value encodes v in native order for use with Encode.
func Uint32Value(v uint32) []byte {
	buf := make([]byte, 4)
	binary.NativeEndian.PutUint32(buf, v)
	return buf
}

// StringValue encodes s with its terminating NUL.
func StringValue(s string) []byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return buf
}
