// Package nlog is the duplication core's logging facade. The call shape
// (Infof, Infoln, Warningf, Errorln) matches the reference object-storage
// system's own homegrown logger, but the backing implementation is a real
// structured logger (go.uber.org/zap) rather than a hand-rolled writer.
package nlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.RWMutex
	sug = mustDefault()
)

func mustDefault() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		// fall back to a no-op core rather than panic: logging must never
		// be the reason the producer or processor fails to start.
		l = zap.NewNop()
	}
	return l.Sugar()
}

// Init replaces the package logger. level is one of "debug", "info", "warn",
// "error"; dev toggles zap's human-readable development encoder, used by
// the CLI drivers when run from a terminal.
func Init(level string, dev bool) error {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	sug = l.Sugar()
	mu.Unlock()
	return nil
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sug
}

func Infof(format string, args ...any)    { get().Infof(format, args...) }
func Infoln(args ...any)                  { get().Infoln(args...) }
func Warningf(format string, args ...any) { get().Warnf(format, args...) }
func Warnln(args ...any)                  { get().Warnln(args...) }
func Errorf(format string, args ...any)   { get().Errorf(format, args...) }
func Errorln(args ...any)                 { get().Errorln(args...) }

// With returns a child logger bound to the given key/value pairs, used by
// the processor to attach task-correlation fields (account, space, content,
// correlation id) to every line for the lifetime of one task.
func With(kv ...any) *Logger {
	return &Logger{s: get().With(kv...)}
}

// Logger is a task/run-scoped child of the package logger.
type Logger struct{ s *zap.SugaredLogger }

func (l *Logger) Infof(format string, args ...any)    { l.s.Infof(format, args...) }
func (l *Logger) Infoln(args ...any)                  { l.s.Infoln(args...) }
func (l *Logger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l *Logger) Errorln(args ...any)                 { l.s.Errorln(args...) }
