package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/danmuck/nlprobe/internal/client"
	"github.com/danmuck/nlprobe/internal/logging"
)

// ProbeConfig is the on-disk nlprobe configuration.
type ProbeConfig struct {
	LogLevel      string        `toml:"log_level"`
	ReceiveSize   int           `toml:"receive_size"`
	ReceiveBuffer int           `toml:"receive_buffer"`
	ReadTimeout   string        `toml:"read_timeout"`
	MaxReceives   int           `toml:"max_receives"`
	MatchSeq      bool          `toml:"match_seq"`
	Backoff       BackoffConfig `toml:"backoff"`
}

type BackoffConfig struct {
	Initial    string  `toml:"initial"`
	Multiplier float64 `toml:"multiplier"`
	Max        string  `toml:"max"`
	Jitter     bool    `toml:"jitter"`
}

// Run is everything one probe run needs, after defaults are applied.
type Run struct {
	LogLevel      zerolog.Level
	LogLevelSet   bool
	ReceiveBuffer int
	ReadTimeout   time.Duration
	Client        client.Config
}

func DefaultRun() Run {
	return Run{
		ReceiveBuffer: 128 * 1024,
		ReadTimeout:   2 * time.Second,
		Client:        client.DefaultConfig(),
	}
}

// Load decodes path and overlays the keys it defines onto DefaultRun.
// Unknown keys are an error. Keys left out keep their default.
func Load(path string) (Run, error) {
	cfg := DefaultRun()

	var raw ProbeConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Run{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Run{}, fmt.Errorf("config load failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("log_level") && strings.TrimSpace(raw.LogLevel) != "" {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return Run{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
		cfg.LogLevelSet = true
	}

	if meta.IsDefined("receive_size") {
		cfg.Client.ReceiveSize = raw.ReceiveSize
	}

	if meta.IsDefined("receive_buffer") {
		cfg.ReceiveBuffer = raw.ReceiveBuffer
	}

	if meta.IsDefined("read_timeout") {
		d, err := ParseDuration(raw.ReadTimeout)
		if err != nil {
			return Run{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("max_receives") {
		cfg.Client.MaxReceives = raw.MaxReceives
	}

	if meta.IsDefined("match_seq") {
		cfg.Client.MatchSeq = raw.MatchSeq
	}

	if meta.IsDefined("backoff", "initial") {
		d, err := ParseDuration(raw.Backoff.Initial)
		if err != nil {
			return Run{}, fmt.Errorf("parse backoff.initial: %w", err)
		}
		cfg.Client.Backoff.InitialDelay = d
	}

	if meta.IsDefined("backoff", "multiplier") {
		cfg.Client.Backoff.Multiplier = raw.Backoff.Multiplier
	}

	if meta.IsDefined("backoff", "max") {
		d, err := ParseDuration(raw.Backoff.Max)
		if err != nil {
			return Run{}, fmt.Errorf("parse backoff.max: %w", err)
		}
		cfg.Client.Backoff.MaxDelay = d
	}

	if meta.IsDefined("backoff", "jitter") {
		cfg.Client.Backoff.Jitter = raw.Backoff.Jitter
	}

	if err := cfg.Validate(); err != nil {
		return Run{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (r Run) Validate() error {
	if r.ReceiveBuffer < 0 {
		return fmt.Errorf("receive_buffer must be >= 0, got %d", r.ReceiveBuffer)
	}
	if m := r.Client.Backoff.Multiplier; m != 0 && m < 1 {
		return fmt.Errorf("backoff.multiplier must be >= 1, got %v", m)
	}
	return r.Client.Validate()
}

// Probe converts r back to its on-disk form.
func (r Run) Probe() ProbeConfig {
	out := ProbeConfig{
		ReceiveSize:   r.Client.ReceiveSize,
		ReceiveBuffer: r.ReceiveBuffer,
		ReadTimeout:   r.ReadTimeout.String(),
		MaxReceives:   r.Client.MaxReceives,
		MatchSeq:      r.Client.MatchSeq,
		Backoff: BackoffConfig{
			Initial:    r.Client.Backoff.InitialDelay.String(),
			Multiplier: r.Client.Backoff.Multiplier,
			Max:        r.Client.Backoff.MaxDelay.String(),
			Jitter:     r.Client.Backoff.Jitter,
		},
	}
	if r.LogLevelSet {
		out.LogLevel = r.LogLevel.String()
	}
	return out
}

// ParseDuration treats an empty string as zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}
