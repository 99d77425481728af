// Package pipeline turns a gateway request into a handler invocation.
//
// Validate wraps a route handler with the request stages every endpoint
// shares:
//
//  1. fold the headers into a case-insensitive mapping;
//  2. pick the trace id (Trace-Id header, else a fresh UUID), store it and
//     attach it to the request logger;
//  3. decode the JSON body ({} when empty) and store the request snapshot;
//  4. validate the body against the route's JSON schema, if any;
//  5. bind the body into the route's typed model, if any, and run the
//     struct validator on it;
//  6. invoke the handler and render its result through the formatter.
//
// Each stage returns an error instead of panicking. The first failing stage
// short-circuits and its error is rendered; the handler is not invoked.
// A panic inside the handler is recovered and rendered as a 500 envelope.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/gateway"
	"github.com/tbourn/go-property-filter/internal/observability"
	"github.com/tbourn/go-property-filter/internal/reqctx"
	"github.com/tbourn/go-property-filter/internal/response"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

// HeaderTraceID carries the caller's trace id. Lookup is case-insensitive.
const HeaderTraceID = "Trace-Id"

// Handler is the outbound contract: every invocation yields a response.
type Handler func(ctx context.Context, req gateway.Request) gateway.Response

// Func is a route handler. It reads its inputs from the request Store in ctx
// and returns either a body mapping or an error.
type Func func(ctx context.Context) (any, error)

// Binder is implemented by request models that can be populated from a
// decoded JSON mapping.
type Binder interface {
	FromMap(m map[string]any) error
}

// Options configures the optional validation stages of a route.
type Options struct {
	// Schema is a JSON-schema document the body must satisfy. Empty disables
	// schema validation.
	Schema string
	// Bind returns a fresh model to bind the body into. Nil disables binding.
	Bind func() Binder
}

// Validate wraps next with the request stages described in the package doc.
// The schema is compiled once here; an invalid schema panics, like
// regexp.MustCompile, because it is a wiring mistake.
func Validate(f *response.Formatter, opts Options, next Func) Handler {
	var schema *jsonschema.Schema
	if opts.Schema != "" {
		schema = jsonschema.MustCompileString("request.schema.json", opts.Schema)
	}

	return func(ctx context.Context, req gateway.Request) (res gateway.Response) {
		ctx, snap := begin(ctx, req)

		defer func() {
			if rec := recover(); rec != nil {
				sysutil.LoggerFrom(ctx).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				res = f.JSONError(ctx, panicError(rec), nil)
			}
		}()

		body, err := decodeBody(req.Body)
		if err != nil {
			return f.JSONError(ctx, err, nil)
		}
		snap.Body = body

		if schema != nil {
			if err := validateSchema(schema, body); err != nil {
				return f.JSONError(ctx, err, nil)
			}
		}

		if opts.Bind != nil {
			bound, err := bind(opts.Bind(), body)
			if err != nil {
				return f.JSONError(ctx, err, nil)
			}
			snap.Body = bound
		}

		out, err := next(ctx)
		if err != nil {
			return f.JSONError(ctx, err, nil)
		}
		m, err := asBody(out)
		if err != nil {
			return f.JSONError(ctx, err, nil)
		}
		return f.JSON(ctx, http.StatusOK, m, nil, nil)
	}
}

// begin installs a fresh Store in ctx holding the trace id and the request
// snapshot, and attaches the trace id to the context logger unless an outer
// layer already did.
func begin(ctx context.Context, req gateway.Request) (context.Context, *reqctx.Snapshot) {
	store := reqctx.New()
	ctx = reqctx.NewContext(ctx, store)

	headers := reqctx.NewHeaders(req.Headers)
	traceID := headers.Get(HeaderTraceID)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	store.Set(reqctx.KeyTraceID, traceID)
	observability.TagTraceID(ctx, traceID)

	if !sysutil.LoggerHasField(ctx, "trace_id") {
		lg := sysutil.LoggerFrom(ctx).With().Str("trace_id", traceID).Logger()
		ctx = sysutil.WithLoggerFields(lg.WithContext(ctx), "trace_id")
	}

	snap := &reqctx.Snapshot{
		Headers:     headers,
		PathParams:  orEmpty(req.PathParameters),
		QueryParams: orEmpty(req.QueryStringParameters),
		Path:        req.RequestContext.Path,
		Method:      req.RequestContext.HTTPMethod,
		Body:        map[string]any{},
	}
	store.Set(reqctx.KeyRequest, snap)
	return ctx, snap
}

func decodeBody(raw string) (any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, apperr.BadRequest(
			apperr.WithRootCauses(map[string]any{"message": err.Error()}),
			apperr.WithCause(err),
		)
	}
	return v, nil
}

func validateSchema(s *jsonschema.Schema, body any) error {
	if err := s.Validate(body); err != nil {
		return apperr.SchemaValidation(err)
	}
	return nil
}

// bind populates b from body and runs the struct validator over it.
func bind(b Binder, body any) (Binder, error) {
	m, ok := body.(map[string]any)
	if !ok {
		return nil, apperr.BadRequest(apperr.WithRootCauses(map[string]any{
			"message": fmt.Sprintf("request body must be a JSON object, got %T", body),
		}))
	}
	if err := b.FromMap(m); err != nil {
		return nil, bindError(err)
	}
	if err := binding.Validator.ValidateStruct(b); err != nil {
		return nil, bindError(err)
	}
	return b, nil
}

// bindError renders validator failures as per-field errors. Other errors
// become a single root cause.
func bindError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperr.BadRequest(
			apperr.WithRootCauses(map[string]any{"message": err.Error()}),
			apperr.WithCause(err),
		)
	}
	fields := make(map[string]any, len(ves))
	causes := make([]map[string]any, 0, len(ves))
	for _, fe := range ves {
		msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		fields[fe.Field()] = msg
		causes = append(causes, map[string]any{"field": fe.Field(), "message": msg})
	}
	return apperr.BadRequest(
		apperr.WithFieldErrors(fields),
		apperr.WithRootCauses(causes...),
		apperr.WithCause(err),
	)
}

// asBody narrows a handler result to the mapping the formatter renders.
func asBody(v any) (map[string]any, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return b, nil
	case response.Maskable:
		return b.ToMap(), nil
	}
	return nil, apperr.Internal(apperr.WithRootCauses(map[string]any{
		"message": fmt.Sprintf("handler returned unsupported body type %T", v),
	}))
}

// panicError converts a recovered value into an error. Errors keep their
// identity so an AppError panic still renders with its own status.
func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", rec)
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
