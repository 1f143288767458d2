package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/cortex/internal/app/results"
	"github.com/magabrotheeeer/cortex/internal/config"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting generation results consumer", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := results.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize generation results consumer", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("generation results consumer stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("generation results consumer stopped gracefully")
}
