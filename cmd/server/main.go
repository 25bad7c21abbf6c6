package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/receipt-service/config"
	"github.com/kosarica/receipt-service/internal/handlers"
	"github.com/kosarica/receipt-service/internal/middleware"
	"github.com/kosarica/receipt-service/internal/providers"
	"github.com/kosarica/receipt-service/internal/receipt"
	"github.com/kosarica/receipt-service/internal/telemetry"
	"github.com/kosarica/receipt-service/internal/validation"
)

const (
	shutdownTimeout = 10 * time.Second
	// responseMargin leaves room to write a 504 before the write deadline
	responseMargin = 5 * time.Second
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server exited")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("Starting receipt service")

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	set := providers.NewSetFromConfig(cfg, logger)
	validator := validation.NewValidator(set, validation.Options{
		Tolerance:       cfg.Validation.Tolerance,
		ProviderTimeout: cfg.Validation.ProviderTimeout,
	}, logger)
	if validator.Available() {
		logger.Info().Strs("providers", set.Names()).Msg("Price validation enabled")
	} else {
		logger.Warn().Msg("No price provider configured, validation requests will be rejected")
	}

	h := handlers.New(receipt.NewParser(logger), validator, logger).
		WithValidateTimeout(cfg.Server.WriteTimeout - responseMargin)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(cfg.Server.APIKey))
	api.Use(middleware.RateLimit(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		BurstSize:         cfg.Server.Burst,
	}))
	h.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to flush telemetry")
		}
		return nil
	})

	return g.Wait()
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(cfg.ParseLogLevel()).With().Timestamp().Str("service", "receipt-service").Logger()
	return &logger
}
