package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config selects the log level and output encoding.
type Config struct {
	Level  string
	Format string
}

// New builds the process logger. Format "json" writes raw JSON lines,
// anything else writes human-friendly console output.
func New(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
}

func parseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || value == "" {
		return zerolog.InfoLevel
	}
	return level
}
