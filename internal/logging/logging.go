package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level names accepted in configuration, from quietest to noisiest.
const (
	Off   = "OFF"
	Error = "ERROR"
	Warn  = "WARN"
	Info  = "INFO"
	Debug = "DEBUG"
)

// Levels lists the accepted level names in increasing verbosity.
var Levels = []string{Off, Error, Warn, Info, Debug}

// ParseLevel maps a level name onto an slog level. The boolean is false for
// OFF, meaning nothing should be logged at all.
func ParseLevel(name string) (slog.Level, bool, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case Off:
		return 0, false, nil
	case Error:
		return slog.LevelError, true, nil
	case Warn, "WARNING":
		return slog.LevelWarn, true, nil
	case Info, "":
		return slog.LevelInfo, true, nil
	case Debug:
		return slog.LevelDebug, true, nil
	default:
		return 0, false, fmt.Errorf("unknown log level %q (want one of %s)", name, strings.Join(Levels, ", "))
	}
}

// New builds a text logger writing to w at the named level. Every record
// carries the instance name under the "engine" key.
func New(w io.Writer, name, level string) (*slog.Logger, error) {
	lvl, enabled, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return Nop(), nil
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("engine", name), nil
}

// Nop returns a logger that drops everything.
func Nop() *slog.Logger {
	return slog.New(discard{})
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
