package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Init installs the default slog logger on w, as JSON records when json is
// set and as key=value text otherwise.
func Init(w io.Writer, json bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func levelKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ParseLevel maps a level name onto slog, falling back to info for names
// outside the levels table.
func ParseLevel(s string) slog.Level {
	if l, ok := levels[levelKey(s)]; ok {
		return l
	}
	return slog.LevelInfo
}

// ValidLevel reports whether s is in the levels table.
func ValidLevel(s string) bool {
	_, ok := levels[levelKey(s)]
	return ok
}
