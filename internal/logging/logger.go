// Package logging defines the structured-logging interface used across
// dealflow. Implementations wrap slog or zap.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "offer created", "deal_id", id, "version", v)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds the logger selected by format ("zap" or anything else for slog).
func New(format, level, service string) (Logger, error) {
	if format == "zap" {
		return NewZapLogger(level, service)
	}
	return NewSlogJSONLogger(level, service), nil
}
