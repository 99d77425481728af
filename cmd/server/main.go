// Command server runs the property filter API as a long-lived HTTP server.
//
// Configuration is read from the environment (optionally from a .env file in
// the working directory). See internal/config for the recognised keys.
//
//	@title       Property Filter API
//	@version     1.0
//	@description Filters the property catalogue by current status, city and build year.
//	@BasePath    /
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-property-filter/internal/config"
	httpapi "github.com/tbourn/go-property-filter/internal/http"
	"github.com/tbourn/go-property-filter/internal/observability"
	"github.com/tbourn/go-property-filter/internal/repo"
	"github.com/tbourn/go-property-filter/internal/response"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogging("info", "", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.AppName, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server exited")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	f := response.New(cfg.CORS)
	httpapi.RegisterRoutes(r, httpapi.NewRoutes(db, f), f, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("db_driver", cfg.DB.Driver).
			Str("base_path", cfg.APIBasePath).
			Bool("cors", cfg.CORS).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}
