package link

import (
	"fmt"
	"net"

	"github.com/danmuck/nlprobe/internal/protocol/attr"
)

// OperState is the RFC 2863 operational state reported in IFLA_OPERSTATE.
type OperState uint8

const (
	OperUnknown OperState = iota
	OperNotPresent
	OperDown
	OperLowerLayerDown
	OperTesting
	OperDormant
	OperUp
)

var operNames = [...]string{"unknown", "notpresent", "down", "lowerlayerdown", "testing", "dormant", "up"}

func (s OperState) String() string {
	if int(s) < len(operNames) {
		return operNames[s]
	}
	return fmt.Sprintf("operstate(%d)", uint8(s))
}

// Link is the decoded view of one RTM_NEWLINK message.
type Link struct {
	Info         InfoMsg
	Name         string
	MTU          uint32
	HardwareAddr net.HardwareAddr
	OperState    OperState
	Master       uint32
	Alias        string
	Kind         string
}

func (l Link) Up() bool {
	return l.Info.Flags&FlagUp != 0
}

func (l Link) Loopback() bool {
	return l.Info.Flags&FlagLoopback != 0
}

// Parse decodes a link message body. Attribute types it does not know are
// skipped. A framing error discards the whole link.
func Parse(body []byte) (Link, error) {
	var l Link
	if err := l.Info.UnmarshalBinary(body); err != nil {
		return Link{}, err
	}
	w := attr.NewWalker(body, InfoMsgLen)
	for w.Next() {
		a := w.Attr()
		switch a.Kind() {
		case AttrIfName:
			l.Name = a.String()
		case AttrMTU:
			if v, err := a.Uint32(); err == nil {
				l.MTU = v
			}
		case AttrAddress:
			l.HardwareAddr = net.HardwareAddr(a.Bytes())
		case AttrOperState:
			if v, err := a.Uint8(); err == nil {
				l.OperState = OperState(v)
			}
		case AttrMaster:
			if v, err := a.Uint32(); err == nil {
				l.Master = v
			}
		case AttrIfAlias:
			l.Alias = a.String()
		case AttrLinkInfo:
			kind, err := parseLinkKind(a)
			if err != nil {
				return Link{}, err
			}
			l.Kind = kind
		}
	}
	if err := w.Err(); err != nil {
		return Link{}, fmt.Errorf("link %d: %w", l.Info.Index, err)
	}
	return l, nil
}

func parseLinkKind(a attr.Attribute) (string, error) {
	nested, err := attr.Collect(a.Value, 0)
	if err != nil {
		return "", err
	}
	if kind, ok := attr.Find(nested, InfoKind); ok {
		return kind.String(), nil
	}
	return "", nil
}

// Name extracts only IFLA_IFNAME from a link message body.
func Name(body []byte) (string, bool, error) {
	for a, err := range attr.All(body, InfoMsgLen) {
		if err != nil {
			return "", false, err
		}
		if a.Kind() == AttrIfName {
			return a.String(), true, nil
		}
	}
	return "", false, nil
}

// Names returns the interface names of links, in order.
func Names(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Name)
	}
	return out
}
