//go:build linux

package transport

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Socket is an AF_NETLINK raw socket bound to a kernel-assigned port id.
type Socket struct {
	fd  int
	pid uint32
}

// Open creates and binds a netlink socket for proto (unix.NETLINK_ROUTE for
// link enumeration).
func Open(proto int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, fmt.Errorf("transport: open netlink socket: %w", err)
	}
	s := &Socket{fd: fd}
	if err := s.Bind(0); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// Bind binds to pid; zero lets the kernel pick. The assigned id is read back.
func (s *Socket) Bind(pid uint32) error {
	if err := unix.Bind(s.fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: pid}); err != nil {
		return fmt.Errorf("transport: bind netlink socket: %w", err)
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return fmt.Errorf("transport: getsockname: %w", err)
	}
	if nl, ok := sa.(*unix.SockaddrNetlink); ok {
		s.pid = nl.Pid
	}
	return nil
}

// LocalPID is the port id the kernel assigned at bind time.
func (s *Socket) LocalPID() uint32 {
	return s.pid
}

// SetReceiveBuffer sizes SO_RCVBUF, forcing past rmem_max when privileged.
func (s *Socket) SetReceiveBuffer(bytes int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, bytes); err == nil {
		return nil
	}
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes); err != nil {
		return fmt.Errorf("transport: set receive buffer: %w", err)
	}
	return nil
}

// SetReadTimeout bounds each Receive; zero blocks forever.
func (s *Socket) SetReadTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("transport: set read timeout: %w", err)
	}
	return nil
}

func (s *Socket) Send(b []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	if err := unix.Sendto(s.fd, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return 0, fmt.Errorf("transport: send: %w", err)
	}
	return len(b), nil
}

// Receive reads one datagram from the kernel. The pending datagram is peeked
// first so the buffer can grow to fit it; max caps that growth when > 0.
// Datagrams from user-space senders are dropped.
func (s *Socket) Receive(max int) ([]byte, error) {
	if s.fd < 0 {
		return nil, ErrClosed
	}
	for {
		size := DefaultReceiveSize
		n, _, err := retryEINTR(func() (int, unix.Sockaddr, error) {
			return unix.Recvfrom(s.fd, nil, unix.MSG_PEEK|unix.MSG_TRUNC)
		})
		if err != nil {
			return nil, fmt.Errorf("transport: peek: %w", err)
		}
		if n > size {
			size = n
		}
		if max > 0 && size > max {
			size = max
		}
		buf := make([]byte, size)
		n, from, err := retryEINTR(func() (int, unix.Sockaddr, error) {
			return unix.Recvfrom(s.fd, buf, 0)
		})
		if err != nil {
			return nil, fmt.Errorf("transport: receive: %w", err)
		}
		if nl, ok := from.(*unix.SockaddrNetlink); ok && nl.Pid != 0 {
			continue
		}
		return buf[:n], nil
	}
}

func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

func retryEINTR(fn func() (int, unix.Sockaddr, error)) (int, unix.Sockaddr, error) {
	for {
		n, from, err := fn()
		if err == unix.EINTR {
			continue
		}
		return n, from, err
	}
}
