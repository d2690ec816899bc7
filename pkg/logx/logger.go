package logx

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func init() {
	// One key and one timestamp layout for every logger in the process.
	zerolog.ErrorFieldName = KeyErr
	zerolog.TimeFieldFormat = timeFormat
}

// root is the swappable zerolog logger shared by every Logger derived from it.
type root struct {
	zl atomic.Pointer[zerolog.Logger]
}

func newRoot(zl zerolog.Logger) *root {
	r := &root{}
	r.zl.Store(&zl)
	return r
}

func (r *root) swap(zl zerolog.Logger) { r.zl.Store(&zl) }

// Logger writes structured records. The zero value discards everything.
type Logger struct {
	r      *root
	fields []Field
}

// Nop returns a logger that discards everything.
func Nop() Logger { return Logger{} }

// NewConsole returns a standalone human-readable logger on stderr,
// used by the CLI and before the logging service is built.
func NewConsole(level string) Logger {
	return Logger{r: newRoot(build(consoleWriter(os.Stderr), level))}
}

// NewWriter returns a JSON logger on w at the given level (debug when empty).
func NewWriter(w io.Writer, level string) Logger {
	if strings.TrimSpace(level) == "" {
		level = "debug"
	}
	return Logger{r: newRoot(build(w, level))}
}

func build(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

func (l Logger) IsZero() bool { return l.r == nil && len(l.fields) == 0 }

// Enabled reports whether records at level are written.
func (l Logger) Enabled(level Level) bool {
	if l.r == nil {
		return false
	}
	return l.r.zl.Load().GetLevel() <= level
}

// With returns a logger that adds fields to every record.
func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	out := Logger{r: l.r, fields: make([]Field, 0, len(l.fields)+len(fields))}
	out.fields = append(append(out.fields, l.fields...), fields...)
	return out
}

func (l Logger) Debug(msg string, fields ...Field) { l.emit(zerolog.DebugLevel, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.emit(zerolog.InfoLevel, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.emit(zerolog.WarnLevel, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.emit(zerolog.ErrorLevel, msg, fields) }

func (l Logger) emit(level zerolog.Level, msg string, fields []Field) {
	if l.r == nil {
		return
	}
	e := l.r.zl.Load().WithLevel(level)
	if e == nil {
		return
	}
	// 0 emit, 1 Info/Warn/..., 2 the call site
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Str(KeyCaller, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	for _, f := range l.fields {
		f.apply(e)
	}
	for _, f := range fields {
		f.apply(e)
	}
	e.Msg(msg)
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return def
	}
	return lvl
}
