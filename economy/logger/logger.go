// Package logger provides the slog handler used across the economy engine:
// a colored console format for development and plain JSON for everything
// else.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

// Setup installs the default slog logger. Format is "console" or "json".
func Setup(level slog.Level, format string) {
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = NewConsoleHandler(level)
	}
	slog.SetDefault(slog.New(handler))
}

// ConsoleHandler prints colored single-line records.
type ConsoleHandler struct {
	level slog.Level
	attrs []slog.Attr
}

func NewConsoleHandler(level slog.Level) *ConsoleHandler {
	return &ConsoleHandler{level: level}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *ConsoleHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor, levelText = colorGreen, "INFO"
	default:
		levelColor, levelText = colorPurple, "DEBUG"
	}

	var attrsStr strings.Builder
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&attrsStr, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	fmt.Printf("%s[RuneRogue] [%s] [%s%s%s] %s%s%s\n",
		colorWhite,
		r.Time.Format(time.TimeOnly),
		levelColor,
		levelText,
		colorWhite,
		r.Message,
		attrsStr.String(),
		colorReset,
	)
	return nil
}
