package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crossed-lances/tablemaster/app"
	"github.com/crossed-lances/tablemaster/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize app", slog.Any("error", err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: application.Router(),
	}

	go func() {
		logger.Info("HTTP server listening", slog.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.Any("error", err))
			cancel()
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-interrupt:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
		logger.Info("Application context canceled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	application.Close(shutdownCtx)

	logger.Info("Application shut down gracefully")
}
