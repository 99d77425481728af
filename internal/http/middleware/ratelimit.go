// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with per-caller
// buckets and opportunistic garbage collection. It is process-local: each
// server instance enforces its own limits.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-property-filter/internal/apperr"
)

const (
	// UserIDHeader optionally identifies the caller for rate limiting.
	UserIDHeader = "X-User-Id"

	// KeyTooManyRequests is the error key of a rate-limited response.
	KeyTooManyRequests = "too-many-requests"

	// gcEvery is the number of lookups between idle bucket sweeps.
	gcEvery = 5000
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the X-User-Id header when present and by the
// client IP otherwise. Keys are prefixed so the namespaces never collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := c.GetHeader(UserIDHeader); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter. It is safe for
// concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter refilling rps tokens per second
// with the given burst (values <= 0 become 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent. Idle
// buckets are swept before the lookup so a stale entry can be evicted even
// when it is the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= gcEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Handler returns a Gin middleware enforcing the limits. Rejected requests
// get a Retry-After hint and a 429 envelope rendered through fail.
func (rl *RateLimiter) Handler(fail FailFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.keyFn(c)
		lim := rl.getVisitor(key)
		if lim.Allow() {
			c.Next()
			return
		}

		retry := 1
		if rl.rps > 0 {
			if d := time.Duration(float64(time.Second) / float64(rl.rps)); d > time.Second {
				retry = int((d + time.Second - 1) / time.Second)
			}
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		fail(c, apperr.New(http.StatusTooManyRequests, KeyTooManyRequests, "Too many requests",
			apperr.WithRootCauses(map[string]any{"message": "rate limit exceeded"})))
	}
}
