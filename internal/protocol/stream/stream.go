package stream

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/danmuck/nlprobe/internal/protocol/attr"
	"github.com/danmuck/nlprobe/internal/protocol/frame"
)

// State is the aggregator position in a response stream.
type State int

const (
	StateAwaiting State = iota
	StateEmitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further buffers will be accepted.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var (
	// ErrIncompleteStream means the buffer ended inside a multipart response
	// before DONE. The caller decides whether to receive again.
	ErrIncompleteStream = errors.New("stream: incomplete multipart stream")
	ErrTerminated       = errors.New("stream: aggregator already terminated")
	ErrOverrun          = errors.New("stream: kernel reported overrun")
)

// ProtocolError is a nonzero ERROR message. Code is the positive errno.
type ProtocolError struct {
	Code    int32
	Request frame.Header
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("stream: kernel error %d (%v)", e.Code, syscall.Errno(e.Code))
}

// Unwrap lets errors.Is match the errno, e.g. syscall.ENODEV.
func (e *ProtocolError) Unwrap() error {
	return syscall.Errno(e.Code)
}

// IsFraming reports whether err came from a corrupt or unexpected byte stream.
func IsFraming(err error) bool {
	return errors.Is(err, frame.ErrTruncatedHeader) ||
		errors.Is(err, frame.ErrMalformedLength) ||
		errors.Is(err, frame.ErrTruncatedErrorPayload) ||
		errors.Is(err, attr.ErrTruncatedAttribute) ||
		errors.Is(err, attr.ErrMalformedLength)
}

// EmitFunc receives the header and body of each data message. Both alias the
// buffer passed to Feed.
type EmitFunc func(h frame.Header, body []byte) error
