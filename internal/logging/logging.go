// Package logging builds the zerolog logger shared by the binaries and adapts
// it to the key/value Logger interface used by the core.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const filePermission = 0o664

// Options configures New.
type Options struct {
	Level  string // debug|info|warn|error (default info)
	Format string // json|console (default json)
	Path   string // optional file to append to instead of Writer
	Writer io.Writer
}

// New returns a timestamped logger and a close func for any opened file.
func New(opts Options) (zerolog.Logger, func() error, error) {
	closer := func() error { return nil }
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermission)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(f)
		closer = f.Close
	}
	if strings.EqualFold(opts.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, NoColor: opts.Path != ""}
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), closer, err
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}

// ParseLevel maps a level name to a zerolog level. Empty selects info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Adapter exposes a zerolog.Logger through Debug/Info/Warn/Error methods that
// take alternating key/value pairs.
type Adapter struct {
	zl zerolog.Logger
}

// NewAdapter wraps zl.
func NewAdapter(zl zerolog.Logger) Adapter { return Adapter{zl: zl} }

func (a Adapter) Debug(msg string, kv ...any) { emit(a.zl.Debug(), msg, kv) }
func (a Adapter) Info(msg string, kv ...any)  { emit(a.zl.Info(), msg, kv) }
func (a Adapter) Warn(msg string, kv ...any)  { emit(a.zl.Warn(), msg, kv) }
func (a Adapter) Error(msg string, kv ...any) { emit(a.zl.Error(), msg, kv) }

func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	if len(kv)%2 == 1 {
		kv = append(kv, "!MISSING")
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
