// Package client runs the synchronous GETLINK exchange: encode a request,
// send it on a transport.Channel, then aggregate and decode the reply.
//
// A Client is not safe for concurrent use. Callers sharing one channel must
// serialize exchanges; distinct clients on distinct channels need no locking.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/nlprobe/internal/observability"
	"github.com/danmuck/nlprobe/internal/protocol/frame"
	"github.com/danmuck/nlprobe/internal/protocol/link"
	"github.com/danmuck/nlprobe/internal/protocol/stream"
	"github.com/danmuck/nlprobe/internal/transport"
)

var (
	ErrNotFound = errors.New("client: link not found")
	// ErrTransport wraps every channel send/receive failure.
	ErrTransport = errors.New("client: transport failure")
)

type Client struct {
	ch  transport.Channel
	cfg Config
	pid uint32
	seq uint32
	log zerolog.Logger
	rng *rand.Rand
}

type Option func(*Client)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithPID stamps requests with the channel's port id.
func WithPID(pid uint32) Option {
	return func(c *Client) {
		c.pid = pid
	}
}

// WithSeq sets the sequence number the next exchange continues from.
func WithSeq(seq uint32) Option {
	return func(c *Client) {
		c.seq = seq
	}
}

func New(ch transport.Channel, cfg Config, opts ...Option) (*Client, error) {
	if ch == nil {
		return nil, errors.New("client: nil channel")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	c := &Client{
		ch:  ch,
		cfg: cfg,
		log: zerolog.Nop(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Links dumps every interface the kernel knows about.
func (c *Client) Links(ctx context.Context) ([]link.Link, error) {
	seq := c.nextSeq()
	return c.exchange(ctx, link.NewDumpRequest(seq, c.pid), seq)
}

// Names dumps every interface and returns only the names, in kernel order.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	links, err := c.Links(ctx)
	if err != nil {
		return nil, err
	}
	return link.Names(links), nil
}

// Link fetches a single interface by index.
func (c *Client) Link(ctx context.Context, index int32) (link.Link, error) {
	seq := c.nextSeq()
	links, err := c.exchange(ctx, link.NewGetRequest(seq, c.pid, index), seq)
	return single(links, err)
}

// LinkByName fetches a single interface by name.
func (c *Client) LinkByName(ctx context.Context, name string) (link.Link, error) {
	seq := c.nextSeq()
	req, err := link.NewNameRequest(seq, c.pid, name)
	if err != nil {
		return link.Link{}, fmt.Errorf("client: build request: %w", err)
	}
	links, err := c.exchange(ctx, req, seq)
	return single(links, err)
}

func single(links []link.Link, err error) (link.Link, error) {
	if err != nil {
		return link.Link{}, err
	}
	if len(links) == 0 {
		return link.Link{}, ErrNotFound
	}
	return links[0], nil
}

func (c *Client) nextSeq() uint32 {
	c.seq++
	return c.seq
}

func (c *Client) exchange(ctx context.Context, req []byte, seq uint32) ([]link.Link, error) {
	start := time.Now()
	links, err := c.roundTrip(ctx, req, seq)
	class := Classify(err)
	observability.RecordExchange(time.Since(start), err == nil)
	if err != nil {
		observability.RecordFailure(class)
	}
	observability.LogExchange(c.log, frame.TypeName(link.TypeGetLink), seq, len(links), time.Since(start), class, err)
	return links, err
}

func (c *Client) roundTrip(ctx context.Context, req []byte, seq uint32) ([]link.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := c.ch.Send(req); err != nil {
		return nil, fmt.Errorf("%w: send: %w", ErrTransport, err)
	}
	observability.RecordRequest(frame.TypeName(link.TypeGetLink))

	opts := []stream.Option{stream.ExpectAck(), stream.WithLogger(c.log)}
	if c.cfg.MatchSeq {
		opts = append(opts, stream.WithSeq(seq))
	}
	agg := stream.NewAggregator(opts...)

	var links []link.Link
	emit := func(h frame.Header, body []byte) error {
		if h.Type != link.TypeNewLink {
			c.log.Debug().Str("type", frame.TypeName(h.Type)).Msg("ignoring non-link message")
			return nil
		}
		l, err := link.Parse(body)
		if err != nil {
			return err
		}
		links = append(links, l)
		return nil
	}

	stalls := 0
	for receives := 1; ; receives++ {
		buf, err := c.ch.Receive(c.cfg.ReceiveSize)
		if err != nil {
			return nil, fmt.Errorf("%w: receive: %w", ErrTransport, err)
		}
		observability.RecordReceive(len(buf))

		before := agg.Counts()
		state, err := agg.Feed(buf, emit)
		recordCounts(before, agg.Counts())
		if err == nil {
			if agg.DumpInterrupted() {
				c.log.Warn().Uint32("seq", seq).Msg("dump interrupted, link set may be inconsistent")
			}
			c.log.Debug().Uint32("seq", seq).Str("state", state.String()).Int("receives", receives).Msg("exchange complete")
			return links, nil
		}
		if !errors.Is(err, stream.ErrIncompleteStream) {
			return nil, err
		}
		if receives >= c.cfg.MaxReceives {
			return nil, fmt.Errorf("client: no terminator after %d receives: %w", receives, err)
		}
		if agg.Emitted() == before.Data {
			stalls++
			if err := sleepContext(ctx, NextBackoffDelay(c.cfg.Backoff, stalls, c.rng)); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func recordCounts(before, after stream.Counts) {
	observability.RecordMessages(observability.KindData, after.Data-before.Data)
	observability.RecordMessages(observability.KindAck, after.Ack-before.Ack)
	observability.RecordMessages(observability.KindNoop, after.Noop-before.Noop)
	observability.RecordMessages(observability.KindDone, after.Done-before.Done)
	observability.RecordMessages(observability.KindSkipped, after.Skipped-before.Skipped)
}

// Classify maps an exchange error to its metrics class; nil maps to "".
func Classify(err error) string {
	var perr *stream.ProtocolError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.ClassCanceled
	case errors.As(err, &perr), errors.Is(err, stream.ErrOverrun):
		return observability.ClassProtocol
	case errors.Is(err, stream.ErrIncompleteStream):
		return observability.ClassIncomplete
	case stream.IsFraming(err), errors.Is(err, link.ErrShortInfoMsg):
		return observability.ClassFraming
	case errors.Is(err, ErrTransport):
		return observability.ClassTransport
	default:
		return observability.ClassOther
	}
}
