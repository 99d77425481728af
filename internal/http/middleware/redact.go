package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// RedactOptions configures extra scrubbing for AccessLog.
//
// MaskHeaders names headers whose values are replaced with "[REDACTED]".
// Matching is case-insensitive and merged with the built-in set
// (Authorization, Cookie, Set-Cookie).
type RedactOptions struct {
	MaskHeaders []string
}

// Patterns are applied in order: ids, then emails, then phones. The phone
// pattern is the loosest and would otherwise eat digit groups of a UUID.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// keepHeaders are logged verbatim; the trace id is a random correlation
// value and is what operators search logs by.
var keepHeaders = map[string]struct{}{
	strings.ToLower(TraceIDHeader): {},
}

type redactor struct {
	mask map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}
	return &redactor{mask: mask}
}

// scrub replaces ids, emails and phone numbers in s.
func (r *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// headers flattens h into a loggable map, masking sensitive names and
// scrubbing the rest.
func (r *redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		lk := strings.ToLower(k)
		val := strings.Join(vv, ", ")
		switch {
		case contains(r.mask, lk):
			out[k] = "[REDACTED]"
		case contains(keepHeaders, lk):
			out[k] = val
		default:
			out[k] = r.scrub(val)
		}
	}
	return out
}

func contains(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}
