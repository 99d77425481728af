// Package response turns handler results (a success payload or an error) into
// the uniform outbound envelope, logging every handled request once with its
// sensitive fields masked.
//
// Success:
//
//	{"statusCode": 200, "body": "{\"properties\":[...]}", "headers": {}}
//
// Error (AppError or anything else):
//
//	{
//	  "error":       "not-found",            // message key, or status text for unknown errors
//	  "message":     "Resource not found",   // description, or "Unexpected error"
//	  "root_causes": [...]
//	}
package response

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/gateway"
	"github.com/tbourn/go-property-filter/internal/reqctx"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

// unexpectedMessage is the description given to errors outside the taxonomy.
const unexpectedMessage = "Unexpected error"

// fallbackBody is written when even the error envelope cannot be encoded.
const fallbackBody = `{"error":"internal-error","message":"Internal server error","root_causes":null}`

// CORSHeaders are merged into every response when CORS is enabled.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Allow-Methods":     "POST,GET,OPTIONS,PUT,DELETE",
	"Access-Control-Allow-Headers":     "x-user-id",
}

// Formatter builds outbound responses. The zero value is ready to use with
// CORS disabled.
type Formatter struct {
	// CORS merges CORSHeaders into every response.
	CORS bool
}

// New returns a Formatter.
func New(cors bool) *Formatter { return &Formatter{CORS: cors} }

// JSON renders body (nil means an empty mapping) with the given status.
//
// Before any error augmentation it logs path, method, the masked request body
// and the masked response body. When err is non-nil the body gains "error",
// "message" and "root_causes". The record is logged at error level when the
// final body has a non-nil "error" field, otherwise at info level.
//
// The caller's body and headers maps are never modified.
func (f *Formatter) JSON(ctx context.Context, code int, body map[string]any, err error, headers map[string]string) gateway.Response {
	return f.json(ctx, code, body, err, headers, true)
}

// JSONError renders err using its own status when it is an AppError and 500
// otherwise.
func (f *Formatter) JSONError(ctx context.Context, err error, headers map[string]string) gateway.Response {
	return f.JSON(ctx, statusFor(err), nil, err, headers)
}

// CSV wraps a CSV document as a file download named fileName+".csv"
// (fileName defaults to "file"). The body is sent as is.
func (f *Formatter) CSV(code int, body string, headers map[string]string, fileName string) gateway.Response {
	if fileName == "" {
		fileName = "file"
	}
	h := copyHeaders(headers)
	h["Content-type"] = `text/csv; charset="UTF-8"`
	h["Content-Disposition"] = fmt.Sprintf("attachment; filename=%s.csv", fileName)
	return f.Raw(code, body, h)
}

// Raw wraps an already encoded body, merging CORS headers when enabled.
func (f *Formatter) Raw(code int, body string, headers map[string]string) gateway.Response {
	h := copyHeaders(headers)
	if f != nil && f.CORS {
		for k, v := range CORSHeaders {
			h[k] = v
		}
	}
	return gateway.Response{StatusCode: code, Body: body, Headers: h}
}

func (f *Formatter) json(ctx context.Context, code int, body map[string]any, err error, headers map[string]string, retry bool) gateway.Response {
	out := make(map[string]any, len(body)+3)
	for k, v := range body {
		out[k] = v
	}

	lg := requestLogger(ctx, out)

	if err != nil {
		key, msg, causes := describe(code, err)
		out["error"] = key
		out["message"] = msg
		out["root_causes"] = causes
	}

	var ev *zerolog.Event
	if v, ok := out["error"]; ok && v != nil {
		ev = lg.Error().Interface("error", v)
	} else {
		ev = lg.Info()
	}
	ev.Int("status", code).Msg("handled request")

	encoded, encErr := Encode(out)
	if encErr != nil {
		if retry {
			return f.json(ctx, statusFor(encErr), nil, encErr, headers, false)
		}
		return f.Raw(http.StatusInternalServerError, fallbackBody, headers)
	}
	return f.Raw(code, encoded, headers)
}

// requestLogger returns the context logger enriched with the masked request
// and response bodies, plus path and method unless the logger has them.
func requestLogger(ctx context.Context, body map[string]any) zerolog.Logger {
	snap := reqctx.FromContext(ctx).Request()
	lc := sysutil.LoggerFrom(ctx).With()
	if !sysutil.LoggerHasField(ctx, "path") {
		lc = lc.Str("path", snap.Path)
	}
	if !sysutil.LoggerHasField(ctx, "method") {
		lc = lc.Str("method", snap.Method)
	}
	return lc.
		Interface("request", Mask(snap.Body)).
		Interface("response", Mask(body)).
		Logger()
}

// describe maps err onto the (error, message, root_causes) triple.
func describe(code int, err error) (string, string, []map[string]any) {
	if ae, ok := apperr.As(err); ok {
		return ae.Key(), ae.Description(), ae.RootCauses()
	}
	msg := strings.ReplaceAll(err.Error(), "\n", "")
	return statusKey(code), unexpectedMessage, []map[string]any{{"message": msg}}
}

// statusKey renders an HTTP status as a lowercase hyphenated key,
// e.g. 500 -> "internal-server-error".
func statusKey(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return "unknown-error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "-")
}

func statusFor(err error) int {
	if ae, ok := apperr.As(err); ok {
		return ae.StatusCode()
	}
	return http.StatusInternalServerError
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h)+len(CORSHeaders))
	for k, v := range h {
		out[k] = v
	}
	return out
}
