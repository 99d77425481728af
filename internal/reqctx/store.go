// Package reqctx holds per-request state (trace id, inbound request snapshot)
// so that handlers and the response formatter can read it without having the
// request threaded through every call.
//
// A Store belongs to exactly one request. It travels inside the request's
// context.Context; there is no process-wide instance, which keeps concurrent
// requests in a long-lived server from observing each other's data.
//
//	ctx = reqctx.NewContext(ctx, reqctx.New())
//	reqctx.FromContext(ctx).Set(reqctx.KeyTraceID, id)
package reqctx

import (
	"context"
	"sync"
)

// Well-known keys.
const (
	KeyTraceID = "trace_id"
	KeyRequest = "request"
)

// Store is a string-keyed bag of opaque values. No operation fails.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Get returns the value under key and whether it was present.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Reset clears every entry.
func (s *Store) Reset() {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
}

// TraceID returns the stored trace id, or "" when unset.
func (s *Store) TraceID() string {
	v, _ := s.Get(KeyTraceID)
	id, _ := v.(string)
	return id
}

// Request returns the stored request snapshot. It never returns nil; an empty
// snapshot is returned when the pipeline has not populated the store.
func (s *Store) Request() *Snapshot {
	if v, ok := s.Get(KeyRequest); ok {
		if snap, ok := v.(*Snapshot); ok && snap != nil {
			return snap
		}
	}
	return &Snapshot{
		Headers:     NewHeaders(nil),
		PathParams:  map[string]string{},
		QueryParams: map[string]string{},
		Body:        map[string]any{},
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the Store carried by ctx. When ctx has none, a fresh
// detached Store is returned so callers can skip nil checks.
func FromContext(ctx context.Context) *Store {
	if ctx != nil {
		if s, ok := ctx.Value(ctxKey{}).(*Store); ok && s != nil {
			return s
		}
	}
	return New()
}
