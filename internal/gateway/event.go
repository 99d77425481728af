// Package gateway defines the inbound and outbound HTTP-like envelopes the
// request pipeline works on, plus adapters from the two transports that feed
// it: AWS API Gateway proxy events and live gin requests.
//
// The envelope shape follows the API Gateway proxy integration so the same
// handlers serve a Lambda function and a long-lived server unchanged.
package gateway

import (
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
)

// RequestContext carries the routing information of an inbound event.
type RequestContext struct {
	Path       string `json:"path"`
	HTTPMethod string `json:"httpMethod"`
}

// Request is the inbound event. A nil PathParameters or QueryStringParameters
// means the event carried none.
type Request struct {
	Resource              string            `json:"resource,omitempty"`
	Headers               map[string]string `json:"headers"`
	PathParameters        map[string]string `json:"pathParameters"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	RequestContext        RequestContext    `json:"requestContext"`
	Body                  string            `json:"body"`
}

// Response is the outbound envelope.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers"`
}

// FromAPIGateway converts an API Gateway proxy event. Base64 encoded bodies
// are decoded; an undecodable body is passed through verbatim so the pipeline
// reports it as malformed JSON. Headers and query parameters present only in
// the multi-value maps are taken from there (last value wins).
func FromAPIGateway(ev events.APIGatewayProxyRequest) Request {
	body := ev.Body
	if ev.IsBase64Encoded && body != "" {
		if raw, err := base64.StdEncoding.DecodeString(body); err == nil {
			body = string(raw)
		}
	}

	path := ev.RequestContext.Path
	if path == "" {
		path = ev.Path
	}
	method := ev.RequestContext.HTTPMethod
	if method == "" {
		method = ev.HTTPMethod
	}

	return Request{
		Resource:              ev.Resource,
		Headers:               withMultiValue(ev.Headers, ev.MultiValueHeaders),
		PathParameters:        ev.PathParameters,
		QueryStringParameters: withMultiValue(ev.QueryStringParameters, ev.MultiValueQueryStringParameters),
		RequestContext:        RequestContext{Path: path, HTTPMethod: method},
		Body:                  body,
	}
}

// withMultiValue returns single with the keys it lacks filled from multi.
// single is returned untouched when multi adds nothing.
func withMultiValue(single map[string]string, multi map[string][]string) map[string]string {
	var out map[string]string
	for k, vs := range multi {
		if len(vs) == 0 {
			continue
		}
		if _, ok := single[k]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(single)+len(multi))
			for sk, sv := range single {
				out[sk] = sv
			}
		}
		out[k] = vs[len(vs)-1]
	}
	if out == nil {
		return single
	}
	return out
}

// ToAPIGateway converts a Response into the proxy integration result.
func ToAPIGateway(r Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
		Body:       r.Body,
	}
}
