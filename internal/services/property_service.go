// Package services – PropertyService
//
// This file implements the PropertyService, which answers catalogue queries.
// It applies the default status set and translates storage failures into the
// application error taxonomy so handlers can render them uniformly.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/domain"
)

// PropertyRepo defines the repository contract required by PropertyService.
type PropertyRepo interface {
	// FindPropertiesByFilters returns properties whose current status is in
	// statuses, narrowed by year and city when set.
	FindPropertiesByFilters(ctx context.Context, db *gorm.DB, statuses []domain.PropertyStatus, year *int, city *string) ([]domain.Property, error)
}

// PropertyService provides read access to the property catalogue.
type PropertyService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the property repository used by this service.
	Repo PropertyRepo
}

// NewPropertyService constructs a PropertyService.
func NewPropertyService(db *gorm.DB, r PropertyRepo) *PropertyService {
	return &PropertyService{DB: db, Repo: r}
}

// FindByFilters returns the matching properties ordered by id. An empty
// statuses slice means every tracked status. Storage failures surface as a
// ServiceUnavailable AppError wrapping the original cause.
func (s *PropertyService) FindByFilters(ctx context.Context, statuses []domain.PropertyStatus, year *int, city *string) ([]domain.Property, error) {
	if len(statuses) == 0 {
		statuses = domain.AllStatuses()
	}
	props, err := s.Repo.FindPropertiesByFilters(ctx, s.DB, statuses, year, city)
	if err != nil {
		return nil, apperr.ServiceUnavailable(
			apperr.WithRootCauses(map[string]any{"message": "storage query failed"}),
			apperr.WithCause(err),
		)
	}
	if props == nil {
		props = []domain.Property{}
	}
	return props, nil
}
