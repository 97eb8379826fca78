// Package testlog routes package loggers into the test's own output.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/danmuck/nlprobe/internal/logging"
)

// Start configures test logging and returns a logger bound to t.
func Start(t testing.TB) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel).With().Str("test", t.Name()).Logger()
}
