// Package obslog is a thin wrapper around go.uber.org/zap so the rest of the
// tree depends on a small package-level logging surface instead of zap
// directly.
package obslog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// Field is a structured logging key/value pair.
type Field = zap.Field

// Str builds a string Field.
func Str(key, value string) Field { return zap.String(key, value) }

// Int builds an int Field.
func Int(key string, value int) Field { return zap.Int(key, value) }

var (
	once   sync.Once
	logger *zap.Logger
)

// L returns the process-wide logger, built lazily on first use. Verbose
// allocator tracing is enabled when LOOMGEN_DEBUG is set in the environment,
// otherwise only Warn and above are emitted.
func L() *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.OutputPaths = []string{"stderr"}
		if _, debug := os.LookupEnv("LOOMGEN_DEBUG"); debug {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		} else {
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			logger = zap.NewNop()
			return
		}
		logger = l
	})
	return logger
}

// Debugf is a convenience for allocator/pass tracing gated behind LOOMGEN_DEBUG.
func Debugf(msg string, fields ...Field) { L().Debug(msg, fields...) }

// Warnf logs a non-fatal diagnostic (e.g. an unreachable block) without
// aborting compilation.
func Warnf(msg string, fields ...Field) { L().Warn(msg, fields...) }
