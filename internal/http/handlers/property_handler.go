// Property HTTP handlers.
//
// This file exposes the catalogue endpoint:
//   - GET /properties   (filter by status, city and build year)
//
// Handlers are transport-thin: they read inputs from the request snapshot,
// call application services, and return a body mapping or an error. The
// request pipeline renders either outcome.
package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/domain"
	"github.com/tbourn/go-property-filter/internal/reqctx"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

//
// Service contracts (context-aware)
//

// PropertyService defines catalogue queries consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PropertyService interface {
	// FindByFilters returns properties whose current status is in statuses
	// (all when empty), narrowed by year and city when set.
	FindByFilters(ctx context.Context, statuses []domain.PropertyStatus, year *int, city *string) ([]domain.Property, error)
}

//
// Handler wiring
//

// Handlers groups the catalogue endpoints.
type Handlers struct {
	propSvc PropertyService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(propSvc PropertyService) *Handlers {
	return &Handlers{propSvc: propSvc}
}

//
// DTOs
//

// PropertiesResponse is the success body of GET /properties.
type PropertiesResponse struct {
	Properties []domain.Property `json:"properties"`
}

// FindProperties godoc
//
// @ID          findProperties
// @Summary     Filter properties
// @Description Returns the properties whose current status is one of the requested statuses (all of pre-sale, on-sale and sold by default), optionally narrowed by city and build year.
// @Tags        Properties
// @Produce     json
// @Param       Trace-Id  header  string  false "Trace id propagated into logs"   example(7f0c1c1e-8d1f-4e0f-9a59-0b4e8b2c1d11)
// @Param       status    query   string  false "Comma-separated status codes"    example(3,4)
// @Param       city      query   string  false "City"                            example(bogota)
// @Param       year      query   int     false "Build year"                      example(2000)
// @Success     200  {object}  handlers.PropertiesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /properties [get]
func (h *Handlers) FindProperties(ctx context.Context) (any, error) {
	snap := reqctx.FromContext(ctx).Request()

	var statuses []domain.PropertyStatus
	if raw, ok := snap.Query("status"); ok {
		statuses = ParseStatuses(ctx, raw)
	}

	var city *string
	if v, ok := snap.Query("city"); ok && v != "" {
		city = &v
	}

	var year *int
	if raw, ok := snap.Query("year"); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.BadRequest(
				apperr.WithFieldErrors(map[string]any{"year": "must be an integer"}),
				apperr.WithRootCauses(map[string]any{"field": "year", "message": "must be an integer"}),
				apperr.WithCause(err),
			)
		}
		year = &n
	}

	props, err := h.propSvc.FindByFilters(ctx, statuses, year, city)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(props))
	for _, p := range props {
		out = append(out, p.ToMap())
	}
	return map[string]any{"properties": out}, nil
}

// ParseStatuses turns a comma-separated list of status codes into statuses.
// Tokens that are not valid codes are skipped with a warning. It returns nil
// when nothing valid remains, which callers treat as "no status filter".
func ParseStatuses(ctx context.Context, raw string) []domain.PropertyStatus {
	var out []domain.PropertyStatus
	for _, tok := range strings.Split(raw, ",") {
		s, err := domain.ParsePropertyStatus(tok)
		if err != nil {
			sysutil.LoggerFrom(ctx).Warn().
				Str("status", tok).
				Err(err).
				Msg("skipping wrong property status")
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
