package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pliiiz/pliiiz/internal/app"
	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/logging"
	"github.com/pliiiz/pliiiz/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logging.New()
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	s, err := server.New(server.Dependencies{
		Config: cfg,
		Users:  deps.Repos.Users,
		Tokens: deps.Tokens,
		Bucket: deps.Bucket,
		DB:     deps.Conn,
	})
	if err != nil {
		return err
	}

	if err := s.InitModules(ctx, app.NewModules(deps), deps.NewRegistry()); err != nil {
		return err
	}
	s.RegisterRoutes()
	deps.Scheduler.Start()

	serveErr := s.Start(ctx, cfg.GetServerAddr())
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	if err := deps.Close(shutdownCtx); err != nil {
		slog.Error("Closing dependencies failed", "error", err)
	}
	slog.Info("Server gracefully stopped")
	return serveErr
}
