package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// HeaderLen is the fixed nlmsghdr size.
const HeaderLen = 16

// Alignment is NLMSG_ALIGNTO, the boundary every message is padded to.
const Alignment = 4

// Control message types shared by every netlink family.
const (
	TypeNoop    uint16 = 0x1
	TypeError   uint16 = 0x2
	TypeDone    uint16 = 0x3
	TypeOverrun uint16 = 0x4

	// TypeMinFamily is the first type owned by a protocol family.
	TypeMinFamily uint16 = 0x10
)

// Flags is the nlmsghdr flag bitset.
type Flags uint16

const (
	FlagRequest  Flags = 0x1
	FlagMulti    Flags = 0x2
	FlagAck      Flags = 0x4
	FlagEcho     Flags = 0x8
	FlagDumpIntr Flags = 0x10

	// GET request modifiers.
	FlagRoot   Flags = 0x100
	FlagMatch  Flags = 0x200
	FlagAtomic Flags = 0x400
	FlagDump         = FlagRoot | FlagMatch
)

var (
	ErrTruncatedHeader       = errors.New("frame: truncated header")
	ErrMalformedLength       = errors.New("frame: malformed length")
	ErrTruncatedErrorPayload = errors.New("frame: truncated error payload")
)

// Header is the fixed netlink message header, in host byte order on the wire.
type Header struct {
	Len   uint32
	Type  uint16
	Flags Flags
	Seq   uint32
	PID   uint32
}

// Align rounds n up to the next message boundary.
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// EncodeRequest builds a complete message: header followed by body verbatim.
func EncodeRequest(typ uint16, flags Flags, seq, pid uint32, body []byte) []byte {
	buf := make([]byte, HeaderLen+len(body))
	PutHeader(buf, Header{
		Len:   uint32(HeaderLen + len(body)),
		Type:  typ,
		Flags: flags,
		Seq:   seq,
		PID:   pid,
	})
	copy(buf[HeaderLen:], body)
	return buf
}

// PutHeader writes h into the first HeaderLen bytes of buf.
func PutHeader(buf []byte, h Header) {
	binary.NativeEndian.PutUint32(buf[0:4], h.Len)
	binary.NativeEndian.PutUint16(buf[4:6], h.Type)
	binary.NativeEndian.PutUint16(buf[6:8], uint16(h.Flags))
	binary.NativeEndian.PutUint32(buf[8:12], h.Seq)
	binary.NativeEndian.PutUint32(buf[12:16], h.PID)
}

// DecodeHeader reads the header at the start of buf and checks the declared
// length against both the header size and the bytes actually available.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTruncatedHeader, len(buf))
	}
	h := Header{
		Len:   binary.NativeEndian.Uint32(buf[0:4]),
		Type:  binary.NativeEndian.Uint16(buf[4:6]),
		Flags: Flags(binary.NativeEndian.Uint16(buf[6:8])),
		Seq:   binary.NativeEndian.Uint32(buf[8:12]),
		PID:   binary.NativeEndian.Uint32(buf[12:16]),
	}
	if h.Len < HeaderLen {
		return Header{}, fmt.Errorf("%w: declared %d, below header size", ErrMalformedLength, h.Len)
	}
	if uint64(h.Len) > uint64(len(buf)) {
		return Header{}, fmt.Errorf("%w: declared %d, %d available", ErrMalformedLength, h.Len, len(buf))
	}
	return h, nil
}

// DecodeBody returns the body bounded by the header length, never by the
// size of buf, which may hold further messages. h must come from
// DecodeHeader on the same buf.
func DecodeBody(buf []byte, h Header) []byte {
	return buf[HeaderLen:h.Len]
}

// ErrorPayload is the body of an ERROR message. Code is zero for an ACK and a
// negative errno otherwise. Request echoes the header of the message being
// answered when the kernel included it.
type ErrorPayload struct {
	Code       int32
	Request    Header
	HasRequest bool
}

// IsAck reports whether the payload acknowledges success.
func (p ErrorPayload) IsAck() bool {
	return p.Code == 0
}

// DecodeError reads the signed error code from an ERROR message body.
func DecodeError(body []byte) (ErrorPayload, error) {
	if len(body) < 4 {
		return ErrorPayload{}, fmt.Errorf("%w: %d bytes", ErrTruncatedErrorPayload, len(body))
	}
	p := ErrorPayload{Code: int32(binary.NativeEndian.Uint32(body[0:4]))}
	if len(body) >= 4+HeaderLen {
		rest := body[4 : 4+HeaderLen]
		p.Request = Header{
			Len:   binary.NativeEndian.Uint32(rest[0:4]),
			Type:  binary.NativeEndian.Uint16(rest[4:6]),
			Flags: Flags(binary.NativeEndian.Uint16(rest[6:8])),
			Seq:   binary.NativeEndian.Uint32(rest[8:12]),
			PID:   binary.NativeEndian.Uint32(rest[12:16]),
		}
		p.HasRequest = true
	}
	return p, nil
}

// EncodeError builds an ERROR message answering req.
func EncodeError(code int32, seq, pid uint32, req *Header) []byte {
	n := 4
	if req != nil {
		n += HeaderLen
	}
	body := make([]byte, n)
	binary.NativeEndian.PutUint32(body[0:4], uint32(code))
	if req != nil {
		PutHeader(body[4:], *req)
	}
	return EncodeRequest(TypeError, 0, seq, pid, body)
}

var typeNames = map[uint16]string{
	TypeNoop:    "NOOP",
	TypeError:   "ERROR",
	TypeDone:    "DONE",
	TypeOverrun: "OVERRUN",
}

// RegisterTypeName lets protocol families name their message types for
// logging. It must be called from package init.
func RegisterTypeName(typ uint16, name string) {
	typeNames[typ] = name
}

// TypeName returns a readable message type for log lines.
func TypeName(typ uint16) string {
	if name, ok := typeNames[typ]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", typ)
}

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagRequest, "REQUEST"},
	{FlagMulti, "MULTI"},
	{FlagAck, "ACK"},
	{FlagEcho, "ECHO"},
	{FlagDumpIntr, "DUMP_INTR"},
	{FlagRoot, "ROOT"},
	{FlagMatch, "MATCH"},
	{FlagAtomic, "ATOMIC"},
}

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.f
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint16(rest)))
	}
	return strings.Join(parts, "|")
}
