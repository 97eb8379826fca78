// Package link holds the rtnetlink link family: the ifinfomsg body, the
// IFLA_* attribute set and the GETLINK request builders.
package link

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/nlprobe/internal/protocol/attr"
	"github.com/danmuck/nlprobe/internal/protocol/frame"
)

// Link message types.
const (
	TypeNewLink uint16 = 16
	TypeDelLink uint16 = 17
	TypeGetLink uint16 = 18
	TypeSetLink uint16 = 19
)

// IFLA attribute types.
const (
	AttrUnspec    uint16 = 0
	AttrAddress   uint16 = 1
	AttrBroadcast uint16 = 2
	AttrIfName    uint16 = 3
	AttrMTU       uint16 = 4
	AttrLink      uint16 = 5
	AttrQdisc     uint16 = 6
	AttrStats     uint16 = 7
	AttrMaster    uint16 = 10
	AttrTxQLen    uint16 = 13
	AttrOperState uint16 = 16
	AttrLinkMode  uint16 = 17
	AttrLinkInfo  uint16 = 18
	AttrIfAlias   uint16 = 20
)

// IFLA_INFO_* types nested inside AttrLinkInfo.
const (
	InfoKind uint16 = 1
	InfoData uint16 = 2
)

// Device flags (IFF_*).
const (
	FlagUp           uint32 = 0x1
	FlagBroadcast    uint32 = 0x2
	FlagLoopback     uint32 = 0x8
	FlagPointToPoint uint32 = 0x10
	FlagRunning      uint32 = 0x40
	FlagNoARP        uint32 = 0x80
	FlagPromisc      uint32 = 0x100
	FlagMulticast    uint32 = 0x1000
	FlagLowerUp      uint32 = 0x10000
)

// InfoMsgLen is the fixed ifinfomsg size.
const InfoMsgLen = 16

var ErrShortInfoMsg = errors.New("link: short ifinfomsg")

func init() {
	frame.RegisterTypeName(TypeNewLink, "RTM_NEWLINK")
	frame.RegisterTypeName(TypeDelLink, "RTM_DELLINK")
	frame.RegisterTypeName(TypeGetLink, "RTM_GETLINK")
	frame.RegisterTypeName(TypeSetLink, "RTM_SETLINK")
}

// InfoMsg is the ifinfomsg body that follows the header of every link
// message.
type InfoMsg struct {
	Family uint8
	Type   uint16
	Index  int32
	Flags  uint32
	Change uint32
}

func (m InfoMsg) MarshalBinary() ([]byte, error) {
	b := make([]byte, InfoMsgLen)
	b[0] = m.Family
	binary.NativeEndian.PutUint16(b[2:4], m.Type)
	binary.NativeEndian.PutUint32(b[4:8], uint32(m.Index))
	binary.NativeEndian.PutUint32(b[8:12], m.Flags)
	binary.NativeEndian.PutUint32(b[12:16], m.Change)
	return b, nil
}

func (m *InfoMsg) UnmarshalBinary(b []byte) error {
	if len(b) < InfoMsgLen {
		return fmt.Errorf("%w: %d bytes", ErrShortInfoMsg, len(b))
	}
	m.Family = b[0]
	m.Type = binary.NativeEndian.Uint16(b[2:4])
	m.Index = int32(binary.NativeEndian.Uint32(b[4:8]))
	m.Flags = binary.NativeEndian.Uint32(b[8:12])
	m.Change = binary.NativeEndian.Uint32(b[12:16])
	return nil
}

// NewDumpRequest builds a GETLINK request enumerating every interface.
func NewDumpRequest(seq, pid uint32) []byte {
	body, _ := InfoMsg{}.MarshalBinary()
	return frame.EncodeRequest(TypeGetLink, frame.FlagRequest|frame.FlagAck|frame.FlagDump, seq, pid, body)
}

// NewGetRequest builds a GETLINK request for a single interface index.
func NewGetRequest(seq, pid uint32, index int32) []byte {
	body, _ := InfoMsg{Index: index}.MarshalBinary()
	return frame.EncodeRequest(TypeGetLink, frame.FlagRequest|frame.FlagAck, seq, pid, body)
}

// NewNameRequest builds a GETLINK request selecting an interface by name.
func NewNameRequest(seq, pid uint32, name string) ([]byte, error) {
	body, _ := InfoMsg{}.MarshalBinary()
	body, err := attr.Append(body, AttrIfName, attr.StringValue(name))
	if err != nil {
		return nil, err
	}
	return frame.EncodeRequest(TypeGetLink, frame.FlagRequest|frame.FlagAck, seq, pid, body), nil
}
