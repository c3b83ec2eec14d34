// Package logging builds the gateway's structured logger and carries
// per-request fields through context.Context, the way atomic/logging
// carries a session-scoped logger through a global,
// but using zap's structured SugaredLogger instead of a hand-rolled file
// writer so that per-request fields (correlation id, account id, route)
// attach to every log line without string formatting.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const loggerKey ctxKey = iota

// New builds the process-wide base logger. debug selects a human-readable
// console encoder; otherwise JSON is used, suited to log aggregation.
func New(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a new no-op logger if
// none was attached.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok && logger != nil {
		return logger
	}
	return zap.NewNop().Sugar()
}

// WithFields returns a context carrying a logger derived from the one
// already in ctx, with the given key/value pairs attached. Used by the
// correlation-id and auth filters to enrich every subsequent log line for
// a request without threading the fields through every function signature.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	enriched := FromContext(ctx).With(keysAndValues...)
	return WithLogger(ctx, enriched)
}
