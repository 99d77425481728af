package reqctx

import (
	"golang.org/x/text/cases"
)

// Snapshot is the inbound request as seen by handlers.
//
// PathParams and QueryParams are never nil. Body is either the decoded JSON
// mapping or, when the route binds a type, the bound instance.
type Snapshot struct {
	Headers     Headers
	PathParams  map[string]string
	QueryParams map[string]string
	Path        string
	Method      string
	Body        any
}

// Query returns the query parameter value and whether it was present.
func (s *Snapshot) Query(name string) (string, bool) {
	v, ok := s.QueryParams[name]
	return v, ok
}

// Headers is a read-only, case-insensitive header mapping. Keys are stored
// Unicode case-folded.
type Headers struct {
	m map[string]string
}

// NewHeaders copies src into a case-insensitive mapping. When two keys fold to
// the same value the last one iterated wins.
func NewHeaders(src map[string]string) Headers {
	h := Headers{m: make(map[string]string, len(src))}
	for k, v := range src {
		h.m[fold(k)] = v
	}
	return h
}

// Get returns the value for key, or "" when absent.
func (h Headers) Get(key string) string {
	v, _ := h.Lookup(key)
	return v
}

// Lookup returns the value for key and whether it was present.
func (h Headers) Lookup(key string) (string, bool) {
	v, ok := h.m[fold(key)]
	return v, ok
}

// Len returns the number of headers.
func (h Headers) Len() int { return len(h.m) }

// Map returns a copy of the folded mapping.
func (h Headers) Map() map[string]string {
	out := make(map[string]string, len(h.m))
	for k, v := range h.m {
		out[k] = v
	}
	return out
}

// fold builds a fresh Caser per call; Casers carry state and must not be
// shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}
