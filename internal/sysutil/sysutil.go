// Package sysutil bootstraps process-wide logging and hosts small helpers
// shared by the entrypoints and the request pipeline.
package sysutil

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level. "warning" is accepted for warn;
// anything outside debug..panic (including "") selects info.
func SetLogLevel(lvl string) {
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	if lvl == "warning" {
		lvl = "warn"
	}
	l, err := zerolog.ParseLevel(lvl)
	if err != nil || l < zerolog.DebugLevel || l > zerolog.PanicLevel {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// NewLogger builds the root logger. Every record carries the application
// name under "app". pretty switches to the human-readable console writer.
func NewLogger(w io.Writer, appName string, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	if strings.TrimSpace(appName) == "" {
		appName = "service"
	}
	return zerolog.New(w).With().Timestamp().Str("app", appName).Logger()
}

// SetupLogging installs the root logger as the global zerolog logger.
func SetupLogging(level, appName string, pretty bool) {
	SetLogLevel(level)
	log.Logger = NewLogger(os.Stderr, appName, pretty)
}

// LoggerFrom returns the logger attached to ctx, falling back to the global
// logger when ctx carries none. The result is never nil.
func LoggerFrom(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	l := log.With().Logger()
	return &l
}

type loggerFieldsKey struct{}

// WithLoggerFields records on ctx that its logger already carries the named
// fields, so later stages can enrich it without repeating keys.
func WithLoggerFields(ctx context.Context, fields ...string) context.Context {
	prev, _ := ctx.Value(loggerFieldsKey{}).(map[string]struct{})
	set := make(map[string]struct{}, len(prev)+len(fields))
	for f := range prev {
		set[f] = struct{}{}
	}
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return context.WithValue(ctx, loggerFieldsKey{}, set)
}

// LoggerHasField reports whether ctx was marked by WithLoggerFields as
// carrying field on its logger.
func LoggerHasField(ctx context.Context, field string) bool {
	if ctx == nil {
		return false
	}
	set, _ := ctx.Value(loggerFieldsKey{}).(map[string]struct{})
	_, ok := set[field]
	return ok
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			continue
		}
		return v
	}
	return ""
}
