package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freshkit/freshkit-backend/internal/app"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/instance"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap services", err)
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := services.Cron.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
