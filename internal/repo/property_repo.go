// Package repo implements the data persistence layer for the property
// catalogue. This file provides the property filter query.
//
// A property's current status is the status_history row with the greatest
// update_date among rows whose status is tracked (pre-sale, on-sale, sold).
// Rows sharing that update_date are ordered by id; the last one inserted wins.
// Filtering happens in two stages:
//
//  1. select the ids of properties whose current status is one of the
//     requested statuses;
//  2. select the property rows for those ids, narrowed by year and city.
//
// Functions are context-aware and accept a *gorm.DB handle so they can run
// inside transactions or connection-scoped sessions.
package repo

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tbourn/go-property-filter/internal/domain"
)

var (
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_query_duration_seconds",
			Help:    "Duration of storage queries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	queryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_query_errors_total",
			Help: "Number of failed storage queries.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(queryDuration, queryErrors)
}

const opFindProperties = "find_properties_by_filters"

// FindPropertiesByFilters returns the properties whose current status is in
// statuses (all tracked statuses when empty), optionally narrowed by build
// year and city. Results are ordered by id. No match yields an empty, non-nil
// slice.
func FindPropertiesByFilters(ctx context.Context, db *gorm.DB, statuses []domain.PropertyStatus, year *int, city *string) (out []domain.Property, err error) {
	start := time.Now()
	defer func() { observe(opFindProperties, start, err) }()

	if len(statuses) == 0 {
		statuses = domain.AllStatuses()
	}
	tracked := domain.StatusCodes(domain.AllStatuses())

	tx := db.WithContext(ctx)

	current := tx.Table("status_history AS h2").
		Select("h2.id").
		Where("h2.property_id = sh.property_id AND h2.status_id IN ?", tracked).
		Order("h2.update_date DESC, h2.id DESC").
		Limit(1)

	ids := tx.Table("status_history AS sh").
		Select("DISTINCT sh.property_id").
		Where("sh.status_id IN ?", domain.StatusCodes(statuses)).
		Where("sh.id = (?)", current)

	q := tx.Model(&domain.Property{}).Where("id IN (?)", ids)
	if year != nil {
		q = q.Where("year = ?", strconv.Itoa(*year))
	}
	if city != nil {
		q = q.Where("city = ?", *city)
	}

	if err = q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Property{}
	}
	return out, nil
}

func observe(op string, start time.Time, err error) {
	queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		queryErrors.WithLabelValues(op).Inc()
	}
}
