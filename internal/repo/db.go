// Package repo implements the data persistence layer for the property
// catalogue, backed by GORM. This file contains database bootstrapping helpers
// for SQLite (pure Go driver) and MySQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-property-filter/internal/config"
	"github.com/tbourn/go-property-filter/internal/domain"
)

// Open connects to the store selected by cfg.Driver. When tracing is true the
// GORM OpenTelemetry plugin is installed so every query becomes a span.
func Open(cfg config.DBConfig, tracingEnabled bool) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.Path)
	case config.DriverMySQL:
		db, err = OpenMySQL(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		tunePool(db, cfg.MaxOpenConns, cfg.ConnMaxLifetime)
	}
	if tracingEnabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// OpenSQLite opens or creates the SQLite file at path in WAL mode with
// foreign keys enforced.
func OpenSQLite(path string) (*gorm.DB, error) {
	// A missing directory otherwise surfaces as an opaque driver error.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	tunePool(db, 10, 30*time.Minute)
	return db, nil
}

// OpenMySQL connects to MySQL. The DSN is parsed and re-emitted with
// parseTime enabled so DATETIME columns scan into time.Time.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	mc, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true
	if mc.Loc == nil {
		mc.Loc = time.UTC
	}

	db, err := gorm.Open(mysql.Open(mc.FormatDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	tunePool(db, 25, 30*time.Minute)
	return db, nil
}

func tunePool(db *gorm.DB, maxOpen int, lifetime time.Duration) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(lifetime)
	}
}

// AutoMigrate creates or updates the property and status history tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Property{},
		&domain.StatusHistory{},
	)
}
