package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"
)

func TestConstructors_FixedTriples(t *testing.T) {
	cases := []struct {
		name string
		err  *AppError
		code int
		key  string
		desc string
	}{
		{"bad_request", BadRequest(), http.StatusBadRequest, "bad-request", "Bad request"},
		{"data_conflict", DataConflict(), http.StatusConflict, "data-conflict", "Resource data conflict"},
		{"forbidden", Forbidden(), http.StatusForbidden, "forbidden", "Forbidden resources access"},
		{"internal", Internal(), http.StatusInternalServerError, "internal-error", "Internal server error"},
		{"not_found", NotFound(), http.StatusNotFound, "not-found", "Resource not found"},
		{"schema", SchemaValidation(errors.New("x")), http.StatusBadRequest, "bad-request", "Schema validation error"},
		{"unavailable", ServiceUnavailable(), http.StatusServiceUnavailable, "service-unavailable", "Service is currently in maintenance mode"},
		{"unauthorized", Unauthorized(), http.StatusUnauthorized, "unauthorized", "Unauthorized resource access"},
		{"unprocessable", UnprocessableEntity(), http.StatusUnprocessableEntity, "unprocessable-entity", "Unprocessable resource entity"},
		{"generic", New(418, "teapot", "I'm a teapot"), 418, "teapot", "I'm a teapot"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.StatusCode() != tc.code || tc.err.Key() != tc.key || tc.err.Description() != tc.desc {
				t.Fatalf("got (%d,%q,%q), want (%d,%q,%q)",
					tc.err.StatusCode(), tc.err.Key(), tc.err.Description(), tc.code, tc.key, tc.desc)
			}
		})
	}
}

func TestConstructors_NoOptionsLeaveDetailEmpty(t *testing.T) {
	e := NotFound()
	if e.FieldErrors() != nil || e.RootCauses() != nil || e.Unwrap() != nil {
		t.Fatalf("expected empty detail, got %+v", e)
	}
}

func TestOptions_FieldErrorsRootCausesCause(t *testing.T) {
	base := errors.New("db down")
	fe := map[string]any{"year": "must be an integer"}
	e := BadRequest(
		WithFieldErrors(fe),
		WithRootCauses(map[string]any{"a": 1}),
		WithRootCauses(map[string]any{"b": 2}),
		WithCause(base),
	)

	if !reflect.DeepEqual(e.FieldErrors(), fe) {
		t.Fatalf("field errors = %#v", e.FieldErrors())
	}
	rc := e.RootCauses()
	if len(rc) != 2 || rc[0]["a"] != 1 || rc[1]["b"] != 2 {
		t.Fatalf("root causes order/content unexpected: %#v", rc)
	}
	if !errors.Is(e, base) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if !strings.Contains(e.Error(), "db down") || !strings.Contains(e.Error(), "bad-request") {
		t.Fatalf("Error() = %q", e.Error())
	}
}

func TestRootCauses_ReturnsCopy(t *testing.T) {
	e := Internal(WithRootCauses(map[string]any{"message": "x"}))
	rc := e.RootCauses()
	rc[0] = map[string]any{"message": "changed"}
	if e.RootCauses()[0]["message"] != "x" {
		t.Fatalf("root causes mutated through returned slice")
	}
}

func TestAs_FindsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Forbidden())
	ae, ok := As(wrapped)
	if !ok || ae.StatusCode() != http.StatusForbidden {
		t.Fatalf("As wrapped = %v, %v", ae, ok)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Fatalf("plain error must not be recognized")
	}
	if _, ok := As(nil); ok {
		t.Fatalf("nil must not be recognized")
	}
}

func TestSchemaValidation_TruncatesAtDoubleSpaceColon(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{"data must contain ['name'] properties:  {'type': 'object'}", "data must contain ['name'] properties"},
		{"first:  second:  third", "first"},
		{"no separator: single space", "no separator: single space"},
		{"", ""},
	}
	for _, tc := range cases {
		e := SchemaValidation(errors.New(tc.msg))
		rc := e.RootCauses()
		if len(rc) != 1 || rc[0]["error"] != tc.want {
			t.Fatalf("msg %q: root causes = %#v, want error=%q", tc.msg, rc, tc.want)
		}
	}
}

func TestSchemaValidation_KeepsUnderlyingError(t *testing.T) {
	base := errors.New("boom:  detail")
	e := SchemaValidation(base)
	if e.FieldErrors() != base || !errors.Is(e, base) {
		t.Fatalf("expected underlying error to be preserved")
	}
}

func TestAppError_NilReceiverError(t *testing.T) {
	var e *AppError
	if e.Error() != "<nil>" {
		t.Fatalf("nil Error() = %q", e.Error())
	}
}
