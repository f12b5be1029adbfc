// Package logger provides the single structured-logging entry point used by
// every subsystem in this module. It exists because the rest of the tree
// hands a *zap.SugaredLogger into every subsystem's Config the way the
// original engine/storage packages do, but the construction of that logger
// was never itself part of the retrieved sources.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile, JSON-encoded sugared logger tagged
// with the calling service/component name. Every subsystem Config embeds
// the result of a single New call made once at startup and threaded down,
// matching the convention `pkg/ignite` establishes for `internal/engine`.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than panicking the caller;
		// logging failures must never take down the storage engine.
		base = zap.NewNop()
	}

	return base.Sugar().Named(service)
}

// NewNop returns a logger that discards everything, used by tests that
// don't want log noise but still need a non-nil *zap.SugaredLogger.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
