// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides trace id propagation, structured access logging and a
// panic-safe recovery handler:
//
//   - TraceID() makes sure every request carries a Trace-Id. The value is
//     written back onto the request so the request pipeline picks up the same
//     id, echoed on the response and stored in the Gin context.
//   - AccessLog() emits one structured line per request with scrubbed query
//     and headers, and attaches a request-scoped zerolog.Logger to the request
//     context so sysutil.LoggerFrom(ctx) finds it further down.
//   - Recovery() converts panics into the standard error envelope through the
//     supplied FailFunc and logs the stack.
//
// Recommended order: TraceID, AccessLog, Recovery.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

const (
	// traceIDKey is the Gin context key under which the trace id is stored.
	traceIDKey = "traceID"
	// TraceIDHeader carries the correlation id in and out of the service.
	TraceIDHeader = "Trace-Id"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// FailFunc renders err as the response for c and aborts the chain.
type FailFunc func(c *gin.Context, err error)

// TraceID attaches (or propagates) a trace id per request.
//
// Header lookup is case-insensitive. When no id is supplied a UUIDv4 is
// generated and set on the incoming request so later stages see it too.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(TraceIDHeader, id)
		}
		c.Set(traceIDKey, id)
		c.Writer.Header().Set(TraceIDHeader, id)
		c.Next()
	}
}

// TraceIDFrom returns the trace id stored by TraceID, or "".
func TraceIDFrom(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// AccessLog writes a structured access log for each request.
//
// Query strings and header values are passed through the redactor built from
// opts. Level is chosen by outcome: error for 5xx or collected Gin errors,
// warn for 4xx, info otherwise.
func AccessLog(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)
	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		traceID := TraceIDFrom(c)
		if traceID == "" {
			traceID = c.GetHeader(TraceIDHeader)
		}

		l := log.With().
			Str("trace_id", traceID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		ctx := sysutil.WithLoggerFields(l.WithContext(c.Request.Context()), "method", "path")
		if traceID != "" {
			ctx = sysutil.WithLoggerFields(ctx, "trace_id")
		}
		c.Request = c.Request.WithContext(ctx)

		query := truncate(rd.scrub(c.Request.URL.RawQuery), maxQueryLogLength)
		headers := rd.headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		ev := l.With().
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery intercepts panics that escape the handlers, logs the stack and
// renders a 500 envelope through fail. When the response has already been
// started only the status is set.
func Recovery(fail FailFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			sysutil.LoggerFrom(c.Request.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			fail(c, apperr.Internal(
				apperr.WithRootCauses(map[string]any{"message": "unexpected failure"}),
				apperr.WithCause(fmt.Errorf("panic: %v", rec)),
			))
		}()
		c.Next()
	}
}

// truncate returns s unchanged when within max bytes, otherwise it cuts s to
// max bytes and appends an ellipsis. A max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
