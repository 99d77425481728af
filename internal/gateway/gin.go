package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// FromGin builds a Request from a live gin request. Multi-valued headers are
// joined with ", " and only the first value of each query parameter is kept,
// matching the single-value maps of a proxy event. Empty path/query maps are
// left nil.
//
// The body is read fully; callers are expected to cap it upstream.
func FromGin(c *gin.Context) (Request, error) {
	body, err := c.GetRawData()
	if err != nil {
		return Request{}, err
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k, vv := range c.Request.Header {
		headers[k] = strings.Join(vv, ", ")
	}

	var pathParams map[string]string
	if len(c.Params) > 0 {
		pathParams = make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			pathParams[p.Key] = p.Value
		}
	}

	var query map[string]string
	if q := c.Request.URL.Query(); len(q) > 0 {
		query = make(map[string]string, len(q))
		for k, vv := range q {
			if len(vv) > 0 {
				query[k] = vv[0]
			}
		}
	}

	resource := c.FullPath()
	if resource == "" {
		resource = c.Request.URL.Path
	}

	return Request{
		Resource:              resource,
		Headers:               headers,
		PathParameters:        pathParams,
		QueryStringParameters: query,
		RequestContext: RequestContext{
			Path:       c.Request.URL.Path,
			HTTPMethod: c.Request.Method,
		},
		Body: string(body),
	}, nil
}

// WriteGin writes r to the client. When r carries no Content-Type header the
// body is labelled as JSON, which is what every non-CSV response holds.
func WriteGin(c *gin.Context, r Response) {
	contentType := "application/json; charset=utf-8"
	for k, v := range r.Headers {
		if strings.EqualFold(k, "Content-Type") {
			contentType = v
			continue
		}
		c.Header(k, v)
	}
	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	c.Data(status, contentType, []byte(r.Body))
}
