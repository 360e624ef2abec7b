// Package logging provides the structured logger used across cde, wrapping
// zap the way the teacher's controller package wrapped the standard library
// logger plus an optional cloud sink.
package logging

import (
	"github.com/andywolf/cde/internal/security"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CloudSink mirrors the teacher's optional Cloud Logging writer: anything
// satisfying this can be attached alongside the local zap core.
type CloudSink interface {
	Write(severity, message string, fields map[string]interface{})
}

// Logger wraps a *zap.SugaredLogger and an optional CloudSink, scrubbing
// secrets from every field value before either sink sees it.
type Logger struct {
	zap   *zap.SugaredLogger
	cloud CloudSink
}

// New builds a production-style logger: JSON to stdout, info level by
// default, debug when verbose is set — the same two-tier verbosity the
// teacher's CLI `--verbose` flag drove.
func New(verbose bool, cloud CloudSink) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	base, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op core should never happen in practice;
		// stderr is always writable in the environments cde targets.
		base = zap.NewNop()
	}
	return &Logger{zap: base.Sugar(), cloud: cloud}
}

func scrub(msg string) string {
	return security.Scrub(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zap.Infow(scrub(msg), keysAndValues...)
	l.sink("INFO", msg, keysAndValues)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zap.Warnw(scrub(msg), keysAndValues...)
	l.sink("WARNING", msg, keysAndValues)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zap.Errorw(scrub(msg), keysAndValues...)
	l.sink("ERROR", msg, keysAndValues)
}

func (l *Logger) sink(severity, msg string, keysAndValues []interface{}) {
	if l.cloud == nil {
		return
	}
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	l.cloud.Write(severity, scrub(msg), fields)
}

// Sync flushes buffered log entries, matching zap's shutdown contract.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Nop returns a Logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop().Sugar()}
}
