// Package elog is the structured logger every other package in this
// module reaches for instead of calling fmt/log directly (the teacher
// logs ad hoc with log.Printf; this centralizes that into one
// line-oriented writer with levels and key/value fields). The Bytes and
// Comma helpers render counts through github.com/dustin/go-humanize
// and every line is timestamped with github.com/ncruces/go-strftime,
// the same formatter the pack's date/time builtins depend on.
package elog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"
)

// Level orders the severities a line can be logged at.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Field is one key/value pair attached to a line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field; short name since call sites list several per line.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Bytes renders n as a humanized byte count ("4.2 MB"), for GC and
// heap-size fields.
func Bytes(n uint64) string { return humanize.Bytes(n) }

// Comma renders n with thousands separators ("1,234,567"), for
// dispatch-loop instruction-count heartbeat fields.
func Comma(n int64) string { return humanize.Comma(n) }

// TimeFormat is the strftime layout every line's timestamp uses.
const TimeFormat = "%Y-%m-%d %H:%M:%S"

// Logger writes level-tagged, timestamped, field-decorated lines to an
// io.Writer. The zero value is not usable; construct with New.
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	min      Level
	color    bool
	fields   []Field // fields attached to every line via With
}

// New constructs a Logger writing to w at minimum level min. Colorized
// output is the caller's choice (cmd/embervm picks it from isatty);
// library code should never colorize on its own.
func New(w io.Writer, min Level, color bool) *Logger {
	return &Logger{w: w, min: min, color: color}
}

// Default writes to stderr at Info level, uncolored — the logger used
// by any package that doesn't have its own cmd/embervm-wired instance.
func Default() *Logger { return New(os.Stderr, Info, false) }

// With returns a child Logger that prepends fields to every line it
// logs, leaving the receiver unmodified.
func (l *Logger) With(fields ...Field) *Logger {
	child := &Logger{w: l.w, min: l.min, color: l.color}
	child.fields = append(append([]Field{}, l.fields...), fields...)
	return child
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	var b strings.Builder
	ts, err := strftime.Format(TimeFormat, time.Now())
	if err != nil {
		ts = time.Now().UTC().String()
	}
	b.WriteString(ts)
	b.WriteByte(' ')
	b.WriteString(levelTag(level, l.color))
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range l.fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.w, b.String())
}

func levelTag(level Level, color bool) string {
	tag := level.String()
	if !color {
		return "[" + tag + "]"
	}
	code := "36" // cyan: Debug
	switch level {
	case Info:
		code = "32" // green
	case Warn:
		code = "33" // yellow
	case Error:
		code = "31" // red
	}
	return "\x1b[" + code + "m[" + tag + "]\x1b[0m"
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, fmt.Sprintf(format, args...), nil) }

// Debug/Info/Warn/Error log a plain message plus a list of fields, so
// values stay structured instead of baked into a format string
// (cmd/embervm's runner logs compiled bytecode sizes this way).
func (l *Logger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(Error, msg, fields) }
