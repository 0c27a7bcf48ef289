package logger

import "sync/atomic"

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Level selects one of the LoggerInstance methods.
type Level int

const (
	LevelLog Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
}

var singleton atomic.Pointer[Logger]

// Init initializes the global logger with one or more logging backends.
// Calls made before Init are dropped.
func Init(instances ...LoggerInstance) {
	singleton.Store(&Logger{instances: instances})
}

func dispatch(level Level, message string, keyvals []any) {
	l := singleton.Load()
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		switch level {
		case LevelDebug:
			instance.Debug(message, keyvals...)
		case LevelInfo:
			instance.Info(message, keyvals...)
		case LevelWarn:
			instance.Warn(message, keyvals...)
		case LevelError:
			instance.Error(message, keyvals...)
		case LevelFatal:
			instance.Fatal(message, keyvals...)
		default:
			instance.Log(message, keyvals...)
		}
	}
}

// Log writes a message at the default log level to all configured backends.
func Log(message string, keyvals ...any) { dispatch(LevelLog, message, keyvals) }

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) { dispatch(LevelDebug, message, keyvals) }

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) { dispatch(LevelInfo, message, keyvals) }

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) { dispatch(LevelWarn, message, keyvals) }

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) { dispatch(LevelError, message, keyvals) }

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) { dispatch(LevelFatal, message, keyvals) }

// Scope carries key/value pairs that are prepended to every call made
// through it, e.g. the request id of one orchestrated answer.
type Scope struct {
	keyvals []any
}

// With returns a Scope bound to keyvals.
func With(keyvals ...any) Scope {
	return Scope{keyvals: keyvals}
}

// With returns a new Scope extended by keyvals.
func (s Scope) With(keyvals ...any) Scope {
	merged := make([]any, 0, len(s.keyvals)+len(keyvals))
	merged = append(merged, s.keyvals...)
	merged = append(merged, keyvals...)
	return Scope{keyvals: merged}
}

func (s Scope) merge(keyvals []any) []any {
	if len(s.keyvals) == 0 {
		return keyvals
	}
	out := make([]any, 0, len(s.keyvals)+len(keyvals))
	out = append(out, s.keyvals...)
	return append(out, keyvals...)
}

func (s Scope) Debug(message string, keyvals ...any) {
	dispatch(LevelDebug, message, s.merge(keyvals))
}

func (s Scope) Info(message string, keyvals ...any) {
	dispatch(LevelInfo, message, s.merge(keyvals))
}

func (s Scope) Warn(message string, keyvals ...any) {
	dispatch(LevelWarn, message, s.merge(keyvals))
}

func (s Scope) Error(message string, keyvals ...any) {
	dispatch(LevelError, message, s.merge(keyvals))
}
