// Package client calls other JSON services on behalf of a request.
//
// Outbound calls carry the current trace id (Trace-Id header) and the
// OpenTelemetry context so both logs and spans line up across services.
// Non-success answers are turned into AppErrors that keep the remote error
// key, description and root causes, so they can be rendered unchanged by the
// response formatter.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/reqctx"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

const (
	// KeyInvalidMethod is returned for methods other than GET, POST, PUT, DELETE.
	KeyInvalidMethod = "invalid-request-method"
	// KeyResponseParse is returned when the remote body is not a JSON object.
	KeyResponseParse = "response-parse-error"
	// KeyServiceCall is used when a failing remote gives no error key.
	KeyServiceCall = "service-call-error"

	headerTraceID = "Trace-Id"

	// maxResponseBytes caps how much of a remote body is read.
	maxResponseBytes = 10 << 20
)

// CallOptions describes one outbound call.
type CallOptions struct {
	Method      string            // GET, POST, PUT or DELETE (case-insensitive)
	URL         string            // absolute resource URL
	Headers     map[string]string // extra request headers
	JSON        any               // body for POST/PUT/DELETE; ignored for GET
	Params      map[string]string // query parameters for GET; ignored otherwise
	ServiceName string            // used in logs and error root causes
}

// Client performs outbound service calls. The zero value uses
// http.DefaultClient.
type Client struct {
	HTTP *http.Client
}

// New returns a Client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Call executes the request and returns the remote status and JSON body.
// Only 200, 201 and 202 count as success; any other status yields an
// AppError carrying the remote status code.
func (c *Client) Call(ctx context.Context, opts CallOptions) (int, map[string]any, error) {
	req, err := buildRequest(ctx, opts)
	if err != nil {
		return 0, nil, err
	}

	lg := sysutil.LoggerFrom(ctx)
	lg.Debug().
		Str("service", opts.ServiceName).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("calling service")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call service %s: %w", opts.ServiceName, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", opts.ServiceName, err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		lg.Error().Err(err).Int("status_code", res.StatusCode).Msg("not json response")
		return 0, nil, apperr.New(http.StatusInternalServerError, KeyResponseParse,
			"Can't parse as json the external response call",
			apperr.WithRootCauses(map[string]any{
				"status_code": res.StatusCode,
				"response":    string(raw),
			}),
			apperr.WithCause(err),
		)
	}

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return res.StatusCode, body, nil
	}

	lg.Error().
		Str("service_name", opts.ServiceName).
		Int("status_code", res.StatusCode).
		Interface("service_response", body).
		Msg("service call error")
	return 0, nil, remoteError(res.StatusCode, body, opts.ServiceName)
}

func buildRequest(ctx context.Context, opts CallOptions) (*http.Request, error) {
	method := strings.ToUpper(opts.Method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, apperr.New(http.StatusBadRequest, KeyInvalidMethod, "Invalid request method",
			apperr.WithRootCauses(map[string]any{"method": opts.Method}))
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if method == http.MethodGet && len(opts.Params) > 0 {
		q := u.Query()
		for k, v := range opts.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if opts.JSON != nil && method != http.MethodGet {
		b, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := reqctx.FromContext(ctx).TraceID(); id != "" {
		req.Header.Set(headerTraceID, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// remoteError mirrors the remote error envelope, falling back to a generic
// key and description, and appends a root cause naming the service. Remote
// root causes that are not objects are kept as {"message": <value>}.
func remoteError(code int, body map[string]any, service string) error {
	key := KeyServiceCall
	if v, ok := body["message"].(string); ok && v != "" {
		key = v
	}
	desc := "Error calling external service"
	if v, ok := body["description"].(string); ok && v != "" {
		desc = v
	}

	var causes []map[string]any
	if rc, ok := body["root_causes"].([]any); ok {
		for _, c := range rc {
			if m, ok := c.(map[string]any); ok {
				causes = append(causes, m)
				continue
			}
			causes = append(causes, map[string]any{"message": fmt.Sprint(c)})
		}
	}
	causes = append(causes, map[string]any{"message": "Error calling service " + service})

	return apperr.New(code, key, desc, apperr.WithRootCauses(causes...))
}
