package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agency_site_go/config"
	"agency_site_go/db"
	"agency_site_go/handlers"
	"agency_site_go/logger"
	"agency_site_go/middleware"
	"agency_site_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := services.ConfigureTokenTTL(cfg.CSRFTokenTTL); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Session storage for form tokens
	var sessions services.ExpiringSessionStorage
	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()

		if err := db.AutoMigrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		sessions = services.NewDBSessionStorage(db.DB)
	default:
		sessions = services.NewMemorySessionStorage()
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, middleware.CSRFHeader, "HX-Request"},
	}))
	e.Use(echomiddleware.BodyLimit("64K"))
	e.Use(middleware.CSPNonce())

	e.GET("/healthz", handlers.HealthHandler)

	// Lead forms
	formLimiter := middleware.NewFormRateLimiter(cfg.FormRateLimit)
	defer formLimiter.Stop()
	tokenLimiter := middleware.NewTokenRateLimiter(cfg.FormRateLimit * 3)
	defer tokenLimiter.Stop()

	session := middleware.Session(middleware.SessionConfig{
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.SecureCookies,
		Storage:    sessions,
	})

	e.GET("/forms/:form", handlers.LeadFormHandler, tokenLimiter.Middleware(), session)

	forms := e.Group("/api/forms", session)
	{
		forms.GET("", handlers.ListFormsHandler)
		forms.GET("/:form/token", handlers.IssueFormTokenHandler, tokenLimiter.Middleware())
		forms.POST("/:form/validate", handlers.ValidateFieldHandler)
		forms.POST("/:form", handlers.SubmitFormHandler, formLimiter.Middleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Clean up stale session values (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sessions.CleanupExpiredValues(cfg.SessionTTL); err != nil {
					log.Error().Err(err).Msg("Error cleaning up session values")
				}
			}
		}
	}()

	// Start server
	go func() {
		log.Info().Str("port", cfg.ServerPort).Str("session_store", cfg.SessionStore).Msg("Server starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
