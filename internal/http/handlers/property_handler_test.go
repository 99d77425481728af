package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/domain"
	"github.com/tbourn/go-property-filter/internal/reqctx"
)

// ---------- stub service ----------

type stubPropertySvc struct {
	statuses []domain.PropertyStatus
	year     *int
	city     *string
	called   bool

	items []domain.Property
	err   error
}

func (s *stubPropertySvc) FindByFilters(ctx context.Context, statuses []domain.PropertyStatus, year *int, city *string) ([]domain.Property, error) {
	s.called = true
	s.statuses, s.year, s.city = statuses, year, city
	return s.items, s.err
}

// queryCtx returns a context whose Store holds a snapshot with the given
// query parameters and a logger writing into the returned buffer.
func queryCtx(query map[string]string) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	store := reqctx.New()
	store.Set(reqctx.KeyRequest, &reqctx.Snapshot{
		Headers:     reqctx.NewHeaders(nil),
		PathParams:  map[string]string{},
		QueryParams: query,
		Path:        "/properties",
		Method:      http.MethodGet,
		Body:        map[string]any{},
	})
	return reqctx.NewContext(lg.WithContext(context.Background()), store), &buf
}

func TestFindProperties_PassesFiltersAndShapesBody(t *testing.T) {
	svc := &stubPropertySvc{items: []domain.Property{
		{ID: 1, Address: "calle 1", City: "bogota", Price: 100, Description: "d", Year: "2000"},
	}}
	h := New(svc)

	ctx, _ := queryCtx(map[string]string{"status": "3,4", "city": "bogota", "year": "2000"})
	out, err := h.FindProperties(ctx)
	if err != nil {
		t.Fatalf("FindProperties: %v", err)
	}

	if !reflect.DeepEqual(svc.statuses, []domain.PropertyStatus{domain.StatusPreSale, domain.StatusOnSale}) {
		t.Fatalf("statuses = %v", svc.statuses)
	}
	if svc.year == nil || *svc.year != 2000 || svc.city == nil || *svc.city != "bogota" {
		t.Fatalf("filters not forwarded: %v %v", svc.year, svc.city)
	}

	body := out.(map[string]any)
	props := body["properties"].([]any)
	if len(props) != 1 || props[0].(map[string]any)["city"] != "bogota" {
		t.Fatalf("unexpected body: %#v", body)
	}
}

func TestFindProperties_NoFilters(t *testing.T) {
	svc := &stubPropertySvc{}
	ctx, _ := queryCtx(map[string]string{})

	out, err := New(svc).FindProperties(ctx)
	if err != nil {
		t.Fatalf("FindProperties: %v", err)
	}
	if svc.statuses != nil || svc.year != nil || svc.city != nil {
		t.Fatalf("expected no filters, got %v %v %v", svc.statuses, svc.year, svc.city)
	}
	props := out.(map[string]any)["properties"].([]any)
	if props == nil || len(props) != 0 {
		t.Fatalf("expected empty properties list, got %#v", props)
	}
}

func TestFindProperties_EmptyCityAndYearAreAbsent(t *testing.T) {
	svc := &stubPropertySvc{}
	ctx, _ := queryCtx(map[string]string{"city": "", "year": " "})
	if _, err := New(svc).FindProperties(ctx); err != nil {
		t.Fatalf("FindProperties: %v", err)
	}
	if svc.city != nil || svc.year != nil {
		t.Fatalf("empty values should not filter: %v %v", svc.city, svc.year)
	}
}

func TestFindProperties_InvalidYearIsBadRequest(t *testing.T) {
	svc := &stubPropertySvc{}
	ctx, _ := queryCtx(map[string]string{"year": "20x0"})

	_, err := New(svc).FindProperties(ctx)
	ae, ok := apperr.As(err)
	if !ok || ae.StatusCode() != http.StatusBadRequest {
		t.Fatalf("expected 400 AppError, got %v", err)
	}
	if fe, _ := ae.FieldErrors().(map[string]any); fe["year"] != "must be an integer" {
		t.Fatalf("field errors = %v", ae.FieldErrors())
	}
	if svc.called {
		t.Fatalf("service must not be called on invalid input")
	}
}

func TestFindProperties_ServiceErrorPropagates(t *testing.T) {
	want := apperr.ServiceUnavailable()
	ctx, _ := queryCtx(map[string]string{})
	_, err := New(&stubPropertySvc{err: want}).FindProperties(ctx)
	if !errors.Is(err, want) {
		t.Fatalf("err = %v; want %v", err, want)
	}
}

func TestParseStatuses(t *testing.T) {
	cases := []struct {
		raw  string
		want []domain.PropertyStatus
		warn int
	}{
		{"3", []domain.PropertyStatus{domain.StatusPreSale}, 0},
		{"5,4", []domain.PropertyStatus{domain.StatusSold, domain.StatusOnSale}, 0},
		{"4,x,9", []domain.PropertyStatus{domain.StatusOnSale}, 2},
		{"x,9", nil, 2},
		{"", nil, 1},
	}
	for _, tc := range cases {
		ctx, buf := queryCtx(nil)
		got := ParseStatuses(ctx, tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseStatuses(%q) = %v; want %v", tc.raw, got, tc.want)
		}
		if n := strings.Count(buf.String(), "skipping wrong property status"); n != tc.warn {
			t.Fatalf("ParseStatuses(%q) logged %d warnings; want %d: %s", tc.raw, n, tc.warn, buf.String())
		}
	}
}

func TestParseStatuses_LogsOffendingToken(t *testing.T) {
	ctx, buf := queryCtx(nil)
	ParseStatuses(ctx, "abc")
	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"status":"abc"`) {
		t.Fatalf("unexpected warning log: %s", logs)
	}
}
