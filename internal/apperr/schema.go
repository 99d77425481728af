package apperr

import (
	"net/http"
	"strings"
)

// schemaCauseSeparator marks where validator messages switch from the summary
// to the detailed dump. Everything from the first occurrence on is dropped.
const schemaCauseSeparator = ":  "

// SchemaValidation is 400 bad-request "Schema validation error". Its single
// root cause is the validation message truncated at the first ":  ".
func SchemaValidation(err error) *AppError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if i := strings.Index(msg, schemaCauseSeparator); i >= 0 {
		msg = msg[:i]
	}
	return New(http.StatusBadRequest, KeyBadRequest, "Schema validation error",
		WithFieldErrors(err),
		WithRootCauses(map[string]any{"error": msg}),
		WithCause(err),
	)
}
