package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/nlprobe/internal/config"
	"github.com/danmuck/nlprobe/internal/logging"

	"github.com/danmuck/nlprobe/internal/protocol/attr"
	"github.com/danmuck/nlprobe/internal/protocol/frame"
	"github.com/danmuck/nlprobe/internal/protocol/link"
	"github.com/danmuck/nlprobe/internal/protocol/stream"
	"github.com/danmuck/nlprobe/internal/transport"
)

type pipeChannel struct {
	*transport.Pipe
}

func (pipeChannel) LocalPID() uint32 { return 4242 }

func fakeKernel(t *testing.T, reply func(h frame.Header) []byte) opener {
	return func(config.Run) (channel, error) {
		p := transport.NewPipe()
		p.OnSend = func(p *transport.Pipe, b []byte) {
			h, err := frame.DecodeHeader(b)
			if err != nil {
				t.Errorf("bad request: %v", err)
				return
			}
			if h.PID != 4242 {
				t.Errorf("request pid %d, want 4242", h.PID)
			}
			p.Queue(reply(h))
		}
		return pipeChannel{p}, nil
	}
}

func linkDump(t *testing.T, h frame.Header, names ...string) []byte {
	t.Helper()
	var out []byte
	for i, name := range names {
		body, _ := link.InfoMsg{Index: int32(i + 1), Flags: link.FlagUp}.MarshalBinary()
		body, _ = attr.Append(body, link.AttrIfName, attr.StringValue(name))
		body, _ = attr.Append(body, link.AttrMTU, attr.Uint32Value(1500))
		out = append(out, frame.EncodeRequest(link.TypeNewLink, frame.FlagMulti, h.Seq, 0, body)...)
	}
	return append(out, frame.EncodeRequest(frame.TypeDone, frame.FlagMulti, h.Seq, 0, make([]byte, 4))...)
}

func TestRunPrintsNames(t *testing.T) {
	var stdout, stderr bytes.Buffer
	open := fakeKernel(t, func(h frame.Header) []byte { return linkDump(t, h, "lo", "eth0") })
	if err := run(context.Background(), nil, &stdout, &stderr, open); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "lo\neth0\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestRunVerboseAndMetrics(t *testing.T) {
	var stdout, stderr bytes.Buffer
	open := fakeKernel(t, func(h frame.Header) []byte { return linkDump(t, h, "lo") })
	if err := run(context.Background(), []string{"-v", "-metrics"}, &stdout, &stderr, open); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "FLAGS") || !strings.Contains(stdout.String(), "1500") || !strings.Contains(stdout.String(), "UP") {
		t.Fatalf("unexpected verbose output %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "nlprobe_exchange_requests_total") {
		t.Fatalf("metrics not written: %q", stderr.String())
	}
}

func TestRunReportsKernelError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	open := fakeKernel(t, func(h frame.Header) []byte { return frame.EncodeError(-1, h.Seq, 0, &h) })
	err := run(context.Background(), nil, &stdout, &stderr, open)
	var perr *stream.ProtocolError
	if !errors.As(err, &perr) || perr.Code != 1 {
		t.Fatalf("expected protocol error 1, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected output on failure %q", stdout.String())
	}
}

func TestRunOpenFailure(t *testing.T) {
	boom := errors.New("no socket")
	open := func(config.Run) (channel, error) { return nil, boom }
	if err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{}, open); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestRunConfigLogLevelEnablesDebug(t *testing.T) {
	logging.ConfigureRuntime()
	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs).Level(zerolog.InfoLevel)
	t.Cleanup(func() { log.Logger = prev })

	open := fakeKernel(t, func(h frame.Header) []byte { return linkDump(t, h, "lo") })
	if err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{}, open); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(logs.String(), "enumerated interfaces") {
		t.Fatalf("debug line written at info level: %s", logs.String())
	}

	path := filepath.Join(t.TempDir(), "nlprobe.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := run(context.Background(), []string{"-config", path}, &bytes.Buffer{}, &bytes.Buffer{}, open); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(logs.String(), "enumerated interfaces") {
		t.Fatalf("expected debug line with log_level=debug, got %q", logs.String())
	}
}

func TestLinkFlags(t *testing.T) {
	cases := map[string]link.Link{
		"-":           {},
		"UP":          {Info: link.InfoMsg{Flags: link.FlagUp}},
		"UP,LOOPBACK": {Info: link.InfoMsg{Flags: link.FlagUp | link.FlagLoopback}},
	}
	for want, l := range cases {
		if got := linkFlags(l); got != want {
			t.Fatalf("linkFlags(%#x) = %q, want %q", l.Info.Flags, got, want)
		}
	}
}
