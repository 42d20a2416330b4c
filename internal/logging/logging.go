// Package logging builds the zap loggers used across the provider and carries
// them through request contexts.
package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a logger for the given level and format. "json" produces the
// production encoder; "console" the development one.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

type ctxkey struct{}

// With attaches a logger to the context.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxkey{}, logger)
}

// FromContext returns the logger attached to ctx, or the global logger when
// none is present.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxkey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.L()
}
