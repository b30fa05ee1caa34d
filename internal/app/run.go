package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"result-cache/internal/common/logging"
	"result-cache/internal/config"
)

// Run is the main entry point for the cache server
func Run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := logging.InitGlobalLogger("result-cache"); err != nil {
		return err
	}
	defer logging.MustSync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg, logging.GetGlobalLogger())
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}

	srv := app.Server()
	serveErr, err := srv.Start()
	if err != nil {
		logging.Error("Server failed to start", err)
		app.Shutdown(context.Background())
		return err
	}
	app.StartBackground()
	logging.Info("Cache server listening", logging.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logging.Info("Shutting down server...")
	case runErr = <-serveErr:
		logging.Error("Server stopped unexpectedly", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
		runErr = err
	}
	if err := app.Shutdown(ctx); err != nil {
		logging.Warn("Error during app shutdown", logging.Err(err))
	}

	logging.Info("Server exited")
	return runErr
}
