package transport

import (
	"errors"
	"testing"
)

func TestPipeRecordsSendsAndReplaysReplies(t *testing.T) {
	p := NewPipe([]byte("first"))
	p.Queue([]byte("second-longer"))

	if n, err := p.Send([]byte("req")); err != nil || n != 3 {
		t.Fatalf("send: n=%d err=%v", n, err)
	}
	b, err := p.Receive(0)
	if err != nil || string(b) != "first" {
		t.Fatalf("receive 1: %q err=%v", b, err)
	}
	b, err = p.Receive(6)
	if err != nil || string(b) != "second" {
		t.Fatalf("receive 2 (capped): %q err=%v", b, err)
	}
	if _, err := p.Receive(0); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if sent := p.Sent(); len(sent) != 1 || string(sent[0]) != "req" {
		t.Fatalf("unexpected sent log %q", sent)
	}
}

func TestPipeOnSendAndErrors(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipe()
	p.OnSend = func(p *Pipe, b []byte) {
		p.Queue(append([]byte("echo:"), b...))
	}
	if _, err := p.Send([]byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if b, _ := p.Receive(0); string(b) != "echo:x" {
		t.Fatalf("unexpected echo %q", b)
	}
	p.QueueError(boom)
	if _, err := p.Receive(0); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	_ = p.Close()
	if _, err := p.Send(nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := p.Receive(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

var _ Channel = (*Pipe)(nil)
var _ Channel = (*Socket)(nil)
