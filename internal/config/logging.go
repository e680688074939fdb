package config

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging sets the global level and sends human-readable output to stderr.
// Call it once at startup, before any goroutine logs.
func SetupLogging(level string) {
	SetupLoggingTo(os.Stderr, level)
}

func SetupLoggingTo(w io.Writer, level string) {
	SetLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// SetLevel changes only the global level, which is safe while other goroutines log.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
