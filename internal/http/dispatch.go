package httpapi

import (
	"context"
	"strings"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/gateway"
	"github.com/tbourn/go-property-filter/internal/response"
)

// Dispatcher routes proxy events to the route table. It is what the Lambda
// entrypoint runs for every invocation.
type Dispatcher struct {
	routes map[string]Route // keyed by "METHOD resource"
	f      *response.Formatter
}

// NewDispatcher indexes routes by method and API Gateway resource.
func NewDispatcher(routes []Route, f *response.Formatter) *Dispatcher {
	d := &Dispatcher{routes: make(map[string]Route, len(routes)), f: f}
	for _, rt := range routes {
		d.routes[routeKey(rt.Method, resourcePath(rt.Path))] = rt
	}
	return d
}

// Dispatch runs the handler matching the request's method and resource. When
// the event has no resource the request path is used instead. Unknown routes
// get a 404 envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req gateway.Request) gateway.Response {
	resource := req.Resource
	if resource == "" {
		resource = req.RequestContext.Path
	}
	rt, ok := d.routes[routeKey(req.RequestContext.HTTPMethod, resource)]
	if !ok {
		return d.f.JSONError(ctx, apperr.NotFound(apperr.WithRootCauses(map[string]any{
			"message": "route not found",
			"method":  req.RequestContext.HTTPMethod,
			"path":    resource,
		})), nil)
	}
	return rt.Handler(ctx, req)
}

func routeKey(method, resource string) string {
	return strings.ToUpper(method) + " " + strings.TrimSuffix(resource, "/")
}

// resourcePath converts gin parameters (":id", "*path") into API Gateway
// resource syntax ("{id}", "{path+}").
func resourcePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		switch {
		case strings.HasPrefix(s, ":"):
			segs[i] = "{" + s[1:] + "}"
		case strings.HasPrefix(s, "*"):
			segs[i] = "{" + s[1:] + "+}"
		}
	}
	return strings.Join(segs, "/")
}
