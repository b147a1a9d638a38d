// Package logging configures the debug log. User-facing output goes to the
// console streams; the zap logger records diagnostics (full stderr of failed
// commands, LLM round trips) to the log file for later inspection.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a file logger writing to path at debug level. The returned
// logger never writes to stdout: the dispatch command's machine-readable
// output must stay uncorrupted.
func New(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Nop returns a no-op logger for tests and for commands that run before the
// state directory exists.
func Nop() *zap.Logger {
	return zap.NewNop()
}
