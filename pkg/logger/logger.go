package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls how the service logger is built.
type Options struct {
	Service string
	Level   string
	Pretty  bool
}

// New builds the root zerolog logger for a process. Components receive
// sub-loggers via With().
func New(opts Options) zerolog.Logger {
	var out io.Writer = os.Stdout
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", opts.Service).
		Logger()

	return logger
}

func parseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
