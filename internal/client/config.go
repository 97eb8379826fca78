package client

import (
	"fmt"
	"time"
)

// Config tunes one exchange.
type Config struct {
	// ReceiveSize caps the bytes read per receive call; zero lets the
	// channel size the buffer to the pending datagram.
	ReceiveSize int
	// MaxReceives bounds receive calls per exchange while the response is
	// incomplete.
	MaxReceives int
	// MatchSeq drops replies whose sequence number belongs to another
	// exchange.
	MatchSeq bool
	Backoff  BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ReceiveSize: 0,
		MaxReceives: 16,
		MatchSeq:    true,
		Backoff: BackoffConfig{
			InitialDelay: time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     100 * time.Millisecond,
			Jitter:       false,
		},
	}
}

func (c Config) Validate() error {
	if c.ReceiveSize < 0 {
		return fmt.Errorf("receive_size must be >= 0, got %d", c.ReceiveSize)
	}
	if c.ReceiveSize > 0 && c.ReceiveSize < 16 {
		return fmt.Errorf("receive_size %d cannot hold a message header", c.ReceiveSize)
	}
	if c.MaxReceives < 1 {
		return fmt.Errorf("max_receives must be >= 1, got %d", c.MaxReceives)
	}
	if c.Backoff.InitialDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("backoff delays must be >= 0")
	}
	return nil
}
