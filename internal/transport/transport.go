// Package transport owns the packet socket the link client talks through.
package transport

import (
	"errors"
	"sync"
)

// DefaultReceiveSize is the initial receive buffer; Receive grows past it
// when the pending datagram is larger.
const DefaultReceiveSize = 32 * 1024

// ProtoRoute is the NETLINK_ROUTE protocol number.
const ProtoRoute = 0

var (
	ErrClosed              = errors.New("transport: channel closed")
	ErrUnsupportedPlatform = errors.New("transport: netlink sockets require linux")
	ErrNoData              = errors.New("transport: no scripted data")
)

// Channel is a connectionless datagram channel to the kernel. Receive may
// return zero, one or several concatenated messages. Implementations do not
// serialize concurrent callers.
type Channel interface {
	Send(b []byte) (int, error)
	Receive(max int) ([]byte, error)
	Close() error
}

// Pipe is an in-memory Channel that records sent datagrams and replays
// scripted receive buffers in order.
type Pipe struct {
	mu      sync.Mutex
	sent    [][]byte
	replies [][]byte
	errs    []error
	closed  bool
	// OnSend, when set, runs for every Send and may queue replies.
	OnSend func(p *Pipe, b []byte)
}

func NewPipe(replies ...[]byte) *Pipe {
	return &Pipe{replies: replies}
}

// Queue appends a receive buffer.
func (p *Pipe) Queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, b)
}

// QueueError makes the next Receive that finds no buffer fail with err.
func (p *Pipe) QueueError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func (p *Pipe) Send(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	p.sent = append(p.sent, cp)
	hook := p.OnSend
	p.mu.Unlock()
	if hook != nil {
		hook(p, cp)
	}
	return len(b), nil
}

func (p *Pipe) Receive(max int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if len(p.replies) == 0 {
		if len(p.errs) > 0 {
			err := p.errs[0]
			p.errs = p.errs[1:]
			return nil, err
		}
		return nil, ErrNoData
	}
	b := p.replies[0]
	p.replies = p.replies[1:]
	if max > 0 && len(b) > max {
		b = b[:max]
	}
	return b, nil
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Sent returns copies of every datagram passed to Send.
func (p *Pipe) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent))
	copy(out, p.sent)
	return out
}
