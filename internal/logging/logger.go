package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New creates a configured application logger.
// It writes to Stderr so packet dumps on Stdout stay clean.
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level, format string) *slog.Logger {
	return NewWriter(os.Stderr, level, format)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug, info, warn and error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
