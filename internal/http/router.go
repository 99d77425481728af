// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers.
//
// The public API is described once, as a table of pipeline handlers (Routes).
// The gin server mounts that table behind the cross-cutting middleware
// (tracing, trace ids, access logs, recovery, metrics, rate limiting, CORS and
// security headers); the Lambda entrypoint dispatches proxy events to the very
// same handlers through Dispatch.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-property-filter/docs"
	"github.com/tbourn/go-property-filter/internal/apperr"
	"github.com/tbourn/go-property-filter/internal/config"
	"github.com/tbourn/go-property-filter/internal/domain"
	"github.com/tbourn/go-property-filter/internal/http/handlers"
	"github.com/tbourn/go-property-filter/internal/http/middleware"
	"github.com/tbourn/go-property-filter/internal/pipeline"
	"github.com/tbourn/go-property-filter/internal/repo"
	"github.com/tbourn/go-property-filter/internal/response"
	"github.com/tbourn/go-property-filter/internal/services"
)

// KeyMethodNotAllowed is the error key for a known path hit with the wrong
// method.
const KeyMethodNotAllowed = "method-not-allowed"

// maxBodyBytes caps request bodies on the gin server.
const maxBodyBytes = 1 << 20

// propertyRepoShim adapts the repository free functions to the
// services.PropertyRepo interface.
type propertyRepoShim struct{}

// FindPropertiesByFilters proxies repo.FindPropertiesByFilters.
func (propertyRepoShim) FindPropertiesByFilters(ctx context.Context, db *gorm.DB, statuses []domain.PropertyStatus, year *int, city *string) ([]domain.Property, error) {
	return repo.FindPropertiesByFilters(ctx, db, statuses, year, city)
}

// Route binds a method and path to a pipeline handler. Path uses gin syntax
// for parameters (":id"), which is also how API Gateway resources are
// matched after conversion in Dispatch.
type Route struct {
	Method  string
	Path    string
	Handler pipeline.Handler
}

// Routes returns the public API as a route table.
func Routes(h *handlers.Handlers, f *response.Formatter) []Route {
	return []Route{
		{
			Method:  http.MethodGet,
			Path:    "/properties",
			Handler: pipeline.Validate(f, pipeline.Options{}, h.FindProperties),
		},
	}
}

// NewRoutes builds the route table on top of db: services, handlers and the
// request pipeline.
func NewRoutes(db *gorm.DB, f *response.Formatter) []Route {
	propSvc := services.NewPropertyService(db, propertyRepoShim{})
	return Routes(handlers.New(propSvc), f)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts routes under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. TraceID: generate/propagate the Trace-Id
//  3. AccessLog: structured logs with redaction, request logger in context
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. Compression
//  9. CORS preflight (when enabled) and security headers
func RegisterRoutes(r *gin.Engine, routes []Route, f *response.Formatter, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	fail := func(c *gin.Context, err error) { handlers.Fail(c, f, err) }

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.TraceID())
	r.Use(middleware.AccessLog(middleware.RedactOptions{
		MaskHeaders: []string{"X-Api-Key"},
	}))
	r.Use(middleware.Recovery(fail))
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler(fail))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	if cfg.CORS {
		// Simple requests get their headers from the formatter; this answers
		// browser preflights.
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", middleware.TraceIDHeader, middleware.UserIDHeader},
			ExposeHeaders:   []string{middleware.TraceIDHeader, "Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		fail(c, apperr.NotFound(apperr.WithRootCauses(map[string]any{"message": "route not found"})))
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, apperr.New(http.StatusMethodNotAllowed, KeyMethodNotAllowed, "Method not allowed",
			apperr.WithRootCauses(map[string]any{"method": c.Request.Method})))
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := groupWithPrefix(r, cfg.APIBasePath)
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = api.BasePath()
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	for _, rt := range routes {
		api.Handle(rt.Method, rt.Path, handlers.Serve(f, rt.Handler))
	}
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader. Reads past the cap fail downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
