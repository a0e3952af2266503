package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/westek-leads/internal/api/router"
	"github.com/wolfman30/westek-leads/internal/app/bootstrap"
	appconfig "github.com/wolfman30/westek-leads/internal/config"
	httpmiddleware "github.com/wolfman30/westek-leads/internal/http/middleware"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

func main() {
	// Local development reads .env; deployed environments set real variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting westek-leads API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := bootstrap.Build(ctx, cfg, logger, registry)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	if limiter, ok := rt.Limiter.(*httpmiddleware.RateLimiter); ok {
		go limiter.Run(ctx, time.Minute)
	}

	r := newHandler(cfg, rt, registry)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newHandler(cfg *appconfig.Config, rt *bootstrap.Runtime, registry *prometheus.Registry) http.Handler {
	return router.New(&router.Config{
		Logger:             rt.Logger,
		LeadsHandler:       rt.Handler,
		QuoteLimiter:       rt.Limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       rt.HealthChecks(),
		FormSettings: &router.FormSettings{
			RecaptchaSiteKey:     cfg.RecaptchaSiteKey,
			SubmittedDisplay:     cfg.QuoteSubmittedDisplay,
			SuccessCallbackDelay: cfg.QuoteSuccessCallbackDelay,
		},
	})
}
