package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/freshkit/freshkit-backend/api"
	"github.com/freshkit/freshkit-backend/api/routes"
	"github.com/freshkit/freshkit-backend/internal/app"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/instance"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := app.Build(ctx, cfg, logg, reg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap services", err)
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	router := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		Store:           services.Redis,
		HTTPMetrics:     metrics.NewHTTPMetrics(reg),
		Gatherer:        reg,
		Content:         services.Content,
		Plans:           services.Plans,
		Gyms:            services.Gyms,
		Checkout:        services.Checkout,
		Auth:            services.Auth,
		Members:         services.Members,
		Drops:           services.Drops,
		Bags:            services.Bags,
		Issues:          services.Issues,
		Billing:         services.Billing,
		Audit:           services.Audit,
		SLA:             services.SLA,
		Export:          services.Export,
		Cron:            services.Cron,
		StripeClient:    services.Stripe,
		StripeWebhook:   services.StripeWebhook,
		StripeGuard:     services.StripeGuard,
		AirtableWebhook: services.AirtableWebhook,
	})
	server := api.NewServer(cfg, router)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}
