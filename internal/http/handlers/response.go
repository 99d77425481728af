// Package handlers provides HTTP handler implementations for the public API.
//
// This file bridges gin and the transport-neutral request pipeline. Every
// response, including router fallbacks and recovered panics, goes through
// the same formatter so clients always see one envelope shape.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "error": "not-found",
//	  "message": "Resource not found",
//	  "root_causes": [{"message": "route not found"}]
//	}
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "properties": [ { "id": 1, "city": "bogota", ... } ] }
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/gateway"
	"github.com/tbourn/go-property-filter/internal/pipeline"
	"github.com/tbourn/go-property-filter/internal/reqctx"
	"github.com/tbourn/go-property-filter/internal/response"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// This struct is used in OpenAPI documentation via Swagger annotations.
type ErrorResponse struct {
	// Stable, machine-readable key (e.g. "not-found")
	Error string `json:"error" example:"bad-request"`
	// Human-readable description, safe to show to users
	Message string `json:"message" example:"Bad request"`
	// Details about the failure, or null
	RootCauses []map[string]any `json:"root_causes"`
}

// Serve adapts a pipeline handler to gin. The live request is converted into
// a gateway request, run through h, and the resulting response is written
// back verbatim.
func Serve(f *response.Formatter, h pipeline.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := gateway.FromGin(c)
		if err != nil {
			Fail(c, f, apperr.BadRequest(
				apperr.WithRootCauses(map[string]any{"message": err.Error()}),
				apperr.WithCause(err),
			))
			return
		}
		gateway.WriteGin(c, h(c.Request.Context(), req))
	}
}

// Fail aborts the request with err rendered through the formatter. It is
// meant for code running outside the pipeline, such as router fallbacks.
func Fail(c *gin.Context, f *response.Formatter, err error) {
	gateway.WriteGin(c, f.JSONError(snapshotContext(c), err, nil))
	c.Abort()
}

// snapshotContext returns the request context carrying a minimal Store, so
// the formatter can log the path and method of requests that never entered
// the pipeline.
func snapshotContext(c *gin.Context) context.Context {
	store := reqctx.New()
	if id := c.GetHeader(pipeline.HeaderTraceID); id != "" {
		store.Set(reqctx.KeyTraceID, id)
	}
	store.Set(reqctx.KeyRequest, &reqctx.Snapshot{
		Headers:     reqctx.NewHeaders(nil),
		PathParams:  map[string]string{},
		QueryParams: map[string]string{},
		Path:        c.Request.URL.Path,
		Method:      c.Request.Method,
		Body:        map[string]any{},
	})
	return reqctx.NewContext(c.Request.Context(), store)
}
