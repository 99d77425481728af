// Package config loads the service configuration from environment variables.
//
// Every key has a default, so an empty environment yields a runnable server
// backed by a local SQLite file. Load reports every problem it finds at once
// (malformed values as well as out-of-range ones) instead of stopping at the
// first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported DB_DRIVER values.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DBConfig selects and locates the property store.
type DBConfig struct {
	Driver          string        // DB_DRIVER: sqlite|mysql
	Path            string        // DB_PATH: SQLite file
	DSN             string        // DB_DSN: MySQL DSN (user:pass@tcp(host:3306)/db)
	MaxOpenConns    int           // DB_MAX_OPEN_CONNS, 0 keeps the driver default
	ConnMaxLifetime time.Duration // DB_CONN_MAX_LIFETIME
}

// SecurityConfig controls response hardening headers.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	AppName        string // "app" field on every log record
	SwaggerEnabled bool
	APIBasePath    string

	DB DBConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// CORS=true (exactly) adds the permissive CORS headers to every response.
	CORS     bool
	Security SecurityConfig

	OTEL OTELConfig
}

// MustLoad is Load for callers that cannot continue without a valid config.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates the result. The
// returned error joins every problem found; the Config is returned as far as
// it could be read.
func Load() (Config, error) {
	env := &reader{}
	cfg := Config{
		AppName:        env.str("APP_NAME", "service"),
		LogLevel:       logLevel(env.str("LOG_LEVEL", "info")),
		LogPretty:      env.boolean("LOG_PRETTY", false),
		SwaggerEnabled: env.boolean("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(env.str("API_BASE_PATH", "/")),
		RateRPS:        env.float("RATE_RPS", 5),
		RateBurst:      env.integer("RATE_BURST", 10),
		CORS:           os.Getenv("CORS") == "true",
	}
	loadServer(env, &cfg)
	cfg.DB = loadDB(env)
	cfg.Security = SecurityConfig{
		EnableHSTS: env.boolean("ENABLE_HSTS", false),
		HSTSMaxAge: env.duration("HSTS_MAX_AGE", 180*24*time.Hour),
	}
	cfg.OTEL = OTELConfig{
		Enabled:     env.boolean("OTEL_ENABLED", false),
		Endpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Insecure:    env.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
		ServiceName: env.str("OTEL_SERVICE_NAME", "property-filter"),
		SampleRatio: env.float("OTEL_TRACES_SAMPLER_ARG", 1),
	}

	cfg.validate(env)
	return cfg, errors.Join(env.errs...)
}

func loadServer(env *reader, cfg *Config) {
	cfg.Port = strings.TrimSpace(env.str("PORT", "8080"))
	cfg.ReadTimeout = env.duration("READ_TIMEOUT", 15*time.Second)
	cfg.ReadHeaderTimeout = env.duration("READ_HEADER_TIMEOUT", 10*time.Second)
	cfg.WriteTimeout = env.duration("WRITE_TIMEOUT", 20*time.Second)
	cfg.IdleTimeout = env.duration("IDLE_TIMEOUT", 60*time.Second)
	cfg.MaxHeaderBytes = env.integer("MAX_HEADER_BYTES", 1<<20)

	cfg.GinMode = strings.ToLower(env.str("GIN_MODE", "release"))
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
}

func loadDB(env *reader) DBConfig {
	return DBConfig{
		Driver:          strings.ToLower(strings.TrimSpace(env.str("DB_DRIVER", DriverSQLite))),
		Path:            strings.TrimSpace(env.str("DB_PATH", "properties.db")),
		DSN:             strings.TrimSpace(env.str("DB_DSN", "")),
		MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 0),
		ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func (c Config) validate(env *reader) {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		env.fail("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if c.Port == "" {
		env.fail("PORT must not be empty")
	}
	if c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		env.fail("timeouts must be positive durations")
	}
	if c.MaxHeaderBytes <= 0 {
		env.fail("MAX_HEADER_BYTES must be > 0")
	}

	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			env.fail("DB_PATH must not be empty")
		}
	case DriverMySQL:
		if c.DB.DSN == "" {
			env.fail("DB_DSN must not be empty when DB_DRIVER=mysql")
		}
	default:
		env.fail("DB_DRIVER must be one of: sqlite, mysql")
	}
	if c.DB.MaxOpenConns < 0 {
		env.fail("DB_MAX_OPEN_CONNS must be >= 0")
	}

	if c.RateRPS < 0 {
		env.fail("RATE_RPS must be >= 0")
	}
	if c.RateBurst < 1 {
		env.fail("RATE_BURST must be >= 1")
	}
	if c.Security.HSTSMaxAge < 0 {
		env.fail("HSTS_MAX_AGE must be >= 0")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		env.fail("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
}

// reader looks up environment keys, falling back to defaults for unset or
// empty keys and recording malformed values.
type reader struct {
	errs []error
}

func (r *reader) fail(msg string) { r.errs = append(r.errs, errors.New(msg)) }

func (r *reader) malformed(key, v, kind string) {
	r.errs = append(r.errs, fmt.Errorf("%s: %q is not a valid %s", key, v, kind))
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.malformed(key, v, "number")
		return def
	}
	return f
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.malformed(key, v, "integer")
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	r.malformed(key, v, "boolean")
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.malformed(key, v, "duration")
		return def
	}
	return d
}

func logLevel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "warning" {
		return "warn"
	}
	return v
}

// normalizeBasePath returns p with a leading '/' and no trailing '/'; empty
// means root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
