//go:build linux

package transport

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestSocketOpenBindClose(t *testing.T) {
	if ProtoRoute != unix.NETLINK_ROUTE {
		t.Fatalf("ProtoRoute %d, want %d", ProtoRoute, unix.NETLINK_ROUTE)
	}
	s, err := Open(ProtoRoute)
	if err != nil {
		t.Skipf("netlink socket unavailable: %v", err)
	}
	if s.LocalPID() == 0 {
		t.Fatalf("expected kernel-assigned port id")
	}
	if err := s.SetReceiveBuffer(64 * 1024); err != nil {
		t.Fatalf("set receive buffer: %v", err)
	}
	if err := s.SetReadTimeout(time.Second); err != nil {
		t.Fatalf("set read timeout: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Send([]byte{0}); err != ErrClosed {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
