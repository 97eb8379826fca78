package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// LogExchange writes one line per finished exchange, at a level that follows
// the outcome.
func LogExchange(logger zerolog.Logger, msgType string, seq uint32, links int, duration time.Duration, class string, err error) {
	event := logger.Debug()
	switch class {
	case "":
	case ClassIncomplete, ClassCanceled:
		event = logger.Warn()
	default:
		event = logger.Error()
	}
	event.
		Str("type", msgType).
		Uint32("seq", seq).
		Int("links", links).
		Dur("duration", duration).
		Str("class", class).
		Err(err).
		Msg("netlink exchange")
}
