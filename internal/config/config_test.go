package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/nlprobe/internal/client"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nlprobe.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nlprobe.toml")
	if err := WriteTemplate(path, "nlprobe", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "nlprobe", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReceiveBuffer != 131072 || cfg.ReadTimeout != 2*time.Second {
		t.Fatalf("unexpected run config %+v", cfg)
	}
	if !cfg.LogLevelSet || cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("unexpected log level %v set=%v", cfg.LogLevel, cfg.LogLevelSet)
	}
	if cfg.Client != client.DefaultConfig() {
		t.Fatalf("template should match client defaults: got=%+v", cfg.Client)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "max_receives = 2\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultRun()
	want.Client.MaxReceives = 2
	if cfg != want {
		t.Fatalf("mismatch: got=%+v want=%+v", cfg, want)
	}
	if !cfg.Client.MatchSeq {
		t.Fatalf("absent match_seq must keep the default")
	}
}

func TestLoadOverridesDefinedFalseAndZero(t *testing.T) {
	cfg, err := Load(writeConfig(t, "match_seq = false\nreceive_buffer = 0\nread_timeout = \"\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Client.MatchSeq || cfg.ReceiveBuffer != 0 || cfg.ReadTimeout != 0 {
		t.Fatalf("defined zero values not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "max_recieves = 2\n",
		"bad duration":    "read_timeout = \"soon\"\n",
		"negative delay":  "[backoff]\nmax = \"-1s\"\n",
		"bad level":       "log_level = \"loud\"\n",
		"zero receives":   "max_receives = 0\n",
		"negative size":   "receive_size = -1\n",
		"tiny size":       "receive_size = 8\n",
		"negative buffer": "receive_buffer = -1\n",
		"low multiplier":  "[backoff]\nmultiplier = 0.5\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRenderRoundTripsThroughLoad(t *testing.T) {
	in := DefaultRun()
	in.LogLevel = zerolog.DebugLevel
	in.LogLevelSet = true
	in.ReadTimeout = 500 * time.Millisecond
	in.Client.MaxReceives = 4
	in.Client.MatchSeq = false
	in.Client.Backoff.Multiplier = 1.5

	text, err := Render(in.Probe())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(text, "max_receives = 4") {
		t.Fatalf("unexpected render:\n%s", text)
	}
	out, err := Load(writeConfig(t, text))
	if err != nil {
		t.Fatalf("load rendered: %v\n%s", err, text)
	}
	if out != in {
		t.Fatalf("mismatch: got=%+v want=%+v", out, in)
	}
}

func TestRenderWithoutLogLevelKeepsItUnset(t *testing.T) {
	text, err := Render(DefaultRun().Probe())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out, err := Load(writeConfig(t, text))
	if err != nil {
		t.Fatalf("load rendered: %v\n%s", err, text)
	}
	if out != DefaultRun() {
		t.Fatalf("mismatch: got=%+v want=%+v", out, DefaultRun())
	}
}
