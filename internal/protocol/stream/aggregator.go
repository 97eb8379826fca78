package stream

import (
	"fmt"

	"github.com/danmuck/nlprobe/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// Aggregator classifies the messages of one response and tracks whether the
// response is complete. It never reads from a socket; the caller feeds it
// one receive buffer at a time. Not safe for concurrent use.
type Aggregator struct {
	state       State
	seq         uint32
	matchSeq    bool
	expectAck   bool
	multi       bool
	counts      Counts
	interrupted bool
	err         error
	log         zerolog.Logger
}

// Counts tallies the messages an aggregator has seen, by disposition.
type Counts struct {
	Data    int
	Ack     int
	Noop    int
	Done    int
	Skipped int
}

type Option func(*Aggregator)

// WithSeq skips messages whose sequence number differs from seq.
func WithSeq(seq uint32) Option {
	return func(a *Aggregator) {
		a.seq = seq
		a.matchSeq = true
	}
}

// ExpectAck marks the request as sent with NLM_F_ACK: a non-multipart
// response is only complete once its ACK has been seen.
func ExpectAck() Option {
	return func(a *Aggregator) {
		a.expectAck = true
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(a *Aggregator) {
		a.log = log
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{state: StateAwaiting, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) State() State {
	return a.state
}

// Err returns the failure that moved the aggregator to StateFailed.
func (a *Aggregator) Err() error {
	return a.err
}

// Emitted counts data messages handed to the caller.
func (a *Aggregator) Emitted() int {
	return a.counts.Data
}

// Skipped counts messages dropped by the sequence filter.
func (a *Aggregator) Skipped() int {
	return a.counts.Skipped
}

func (a *Aggregator) Counts() Counts {
	return a.counts
}

// DumpInterrupted reports whether any message carried NLM_F_DUMP_INTR, meaning
// the kernel's view changed mid-dump and the result may be inconsistent.
func (a *Aggregator) DumpInterrupted() bool {
	return a.interrupted
}

// Feed processes one receive buffer. It returns the resulting state and:
//   - nil once DONE (or, with ExpectAck, the ACK of a non-multipart request)
//     is reached, or when the buffer ends with nothing pending;
//   - ErrIncompleteStream when the buffer ends inside a multipart response,
//     or before the expected ACK;
//   - a *ProtocolError or framing error once the aggregator has failed.
func (a *Aggregator) Feed(buf []byte, emit EmitFunc) (State, error) {
	if a.state.Terminal() {
		return a.state, ErrTerminated
	}
	for off := 0; off < len(buf); {
		h, err := frame.DecodeHeader(buf[off:])
		if err != nil {
			return a.fail(fmt.Errorf("message at offset %d: %w", off, err))
		}
		msg := buf[off : off+int(h.Len)]
		off += min(frame.Align(int(h.Len)), len(buf)-off)

		if h.Flags&frame.FlagDumpIntr != 0 {
			a.interrupted = true
		}
		if a.matchSeq && h.Seq != a.seq {
			a.counts.Skipped++
			a.log.Debug().
				Uint32("seq", h.Seq).
				Uint32("want_seq", a.seq).
				Str("type", frame.TypeName(h.Type)).
				Msg("skipping message from another exchange")
			continue
		}
		if h.Flags&frame.FlagMulti != 0 {
			a.multi = true
		}

		switch h.Type {
		case frame.TypeDone:
			a.counts.Done++
			a.state = StateDone
			a.log.Debug().Uint32("seq", h.Seq).Int("emitted", a.counts.Data).Msg("stream done")
			return a.state, nil
		case frame.TypeError:
			p, err := frame.DecodeError(frame.DecodeBody(msg, h))
			if err != nil {
				return a.fail(err)
			}
			if !p.IsAck() {
				return a.fail(&ProtocolError{Code: -p.Code, Request: p.Request})
			}
			a.counts.Ack++
			a.state = StateAwaiting
			a.log.Debug().Uint32("seq", h.Seq).Bool("multi", a.multi).Msg("ack")
			if a.expectAck && !a.multi {
				a.state = StateDone
				return a.state, nil
			}
		case frame.TypeNoop:
			a.counts.Noop++
		case frame.TypeOverrun:
			return a.fail(ErrOverrun)
		default:
			a.state = StateEmitting
			a.counts.Data++
			if emit != nil {
				if err := emit(h, frame.DecodeBody(msg, h)); err != nil {
					return a.fail(err)
				}
			}
			a.state = StateAwaiting
		}
	}
	if a.multi || a.expectAck {
		return a.state, ErrIncompleteStream
	}
	return a.state, nil
}

func (a *Aggregator) fail(err error) (State, error) {
	a.state = StateFailed
	a.err = err
	a.log.Debug().Err(err).Int("emitted", a.counts.Data).Msg("stream failed")
	return a.state, err
}

// Collect feeds a single buffer and returns the bodies of its data messages.
// On failure no bodies are returned.
func Collect(buf []byte, opts ...Option) ([][]byte, State, error) {
	var bodies [][]byte
	a := NewAggregator(opts...)
	state, err := a.Feed(buf, func(_ frame.Header, body []byte) error {
		bodies = append(bodies, body)
		return nil
	})
	if state == StateFailed {
		return nil, state, err
	}
	return bodies, state, err
}
