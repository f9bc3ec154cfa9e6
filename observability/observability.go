// Package observability defines the logging hooks used across the signing
// pipeline. The library never logs on its own: callers inject a Logger and
// everything defaults to NopLogger.
package observability

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type floatField struct {
	key string
	val float64
}

func (f floatField) Key() string        { return f.key }
func (f floatField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

type durationField struct {
	key string
	val time.Duration
}

func (f durationField) Key() string        { return f.key }
func (f durationField) Value() interface{} { return f.val }

func String(key, value string) Field             { return stringField{key, value} }
func Int(key string, value int) Field            { return intField{key, value} }
func Float64(key string, value float64) Field    { return floatField{key, value} }
func Error(key string, err error) Field          { return errorField{key, err} }
func Duration(key string, d time.Duration) Field { return durationField{key, d} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// WriterLogger writes one line per entry to an io.Writer. The CLI uses it
// with os.Stderr; tests use it with a bytes.Buffer.
type WriterLogger struct {
	mu   sync.Mutex
	out  io.Writer
	base []Field
}

func NewWriterLogger(out io.Writer) *WriterLogger {
	return &WriterLogger{out: out}
}

func (l *WriterLogger) log(level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s", level, msg)
	for _, f := range l.base {
		fmt.Fprintf(l.out, " %s=%v", f.Key(), f.Value())
	}
	for _, f := range fields {
		fmt.Fprintf(l.out, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.out)
}

func (l *WriterLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields) }
func (l *WriterLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields) }
func (l *WriterLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields) }
func (l *WriterLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields) }

func (l *WriterLogger) With(fields ...Field) Logger {
	base := make([]Field, 0, len(l.base)+len(fields))
	base = append(base, l.base...)
	base = append(base, fields...)
	return &WriterLogger{out: l.out, base: base}
}
