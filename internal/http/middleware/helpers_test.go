package middleware

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-property-filter/internal/apperr"
)

// captureLogger swaps the global logger for one writing JSON lines to buf.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// jsonFail is a minimal FailFunc rendering {"error": key}.
func jsonFail(c *gin.Context, err error) {
	code, key := http.StatusInternalServerError, "unknown"
	if ae, ok := apperr.As(err); ok {
		code, key = ae.StatusCode(), ae.Key()
	}
	c.AbortWithStatusJSON(code, gin.H{"error": key})
}
