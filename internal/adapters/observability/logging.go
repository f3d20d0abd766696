package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger tagged with the emitting service so
// the api and backfill binaries are distinguishable in shared sinks.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env, service string) zerolog.Logger {
	l := zerolog.New(os.Stdout)
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return l.With().Timestamp().Str("service", service).Logger()
}
