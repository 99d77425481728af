package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAccessLog_Redactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(TraceID(), AccessLog(RedactOptions{MaskHeaders: []string{" X-Api-Key "}}))
	r.GET("/properties/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/properties/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set(TraceIDHeader, "123e4567-e89b-12d3-a456-426614174000")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"path":"/properties/:id"`) {
		t.Fatalf("expected route path, got: %s", logs)
	}
	for _, want := range []string{
		`[REDACTED:email]`, `[REDACTED:phone]`, `[REDACTED:id]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`,
		// Trace ids are kept so logs stay searchable.
		`"Trace-Id":"123e4567-e89b-12d3-a456-426614174000"`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("missing %s in: %s", want, logs)
		}
	}
	if strings.Contains(logs, "topsecret") || strings.Contains(logs, "example.com") {
		t.Fatalf("secrets leaked: %s", logs)
	}
}

func TestRedactor_Scrub(t *testing.T) {
	rd := newRedactor(RedactOptions{})
	cases := map[string]string{
		"":                   "",
		"city=bogota":        "city=bogota",
		"to=x@y.io":          "to=[REDACTED:email]",
		"call 212-555-1212":  "call [REDACTED:phone]",
		"status=3,4&year=20": "status=3,4&year=20",
	}
	for in, want := range cases {
		if got := rd.scrub(in); got != want {
			t.Fatalf("scrub(%q) = %q; want %q", in, got, want)
		}
	}
}
