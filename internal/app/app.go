package app

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"result-cache/internal/cache"
	"result-cache/internal/circuitbreaker"
	"result-cache/internal/common/logging"
	"result-cache/internal/config"
	"result-cache/internal/handlers"
	"result-cache/internal/middleware"
	"result-cache/internal/redis"
	"result-cache/internal/server"
)

// App holds all the application dependencies
type App struct {
	Config   *config.Config
	Cache    *cache.Service
	Logger   logging.Logger
	Handler  http.Handler
	reporter *HealthReporter
}

// New builds the cache service and the HTTP handler around it.
// It never fails because of Redis; an unreachable Redis means the fallback.
func New(cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	app := &App{
		Config: cfg,
		Logger: logger.WithFields(logging.String("component", "app")),
	}

	app.Cache = cache.New(CacheConfig(cfg), logger)
	app.Logger.Info("Cache initialized", logging.String("backend", app.Cache.Backend()))

	router := mux.NewRouter()
	router.Use(middleware.Logging(logger))
	handlers.NewCacheHandlers(app.Cache, logger).Register(router)
	app.Handler = router

	if cfg.HealthReportSchedule != "" {
		reporter, err := NewHealthReporter(cfg.HealthReportSchedule, app.Cache, logger)
		if err != nil {
			app.Cache.Close()
			return nil, err
		}
		app.reporter = reporter
	}

	return app, nil
}

// CacheConfig maps the environment configuration onto cache.Config
func CacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		Redis: redis.Config{
			URL:      cfg.RedisURL,
			PoolSize: cfg.PoolSize(),
			Timeout:  cfg.Timeout(),
		},
		TTL:       cfg.TTL(),
		KeyPrefix: cfg.CacheKeyPrefix,
		Breaker: circuitbreaker.Config{
			MaxFailures:           cfg.BreakerFailures(),
			Timeout:               cfg.BreakerOpenTimeout(),
			MaxConcurrentRequests: 1,
		},
	}
}

// Server returns an HTTP server for the app's handler
func (app *App) Server() *server.Server {
	return server.New(app.Handler, app.Config.Port)
}

// StartBackground starts background jobs
func (app *App) StartBackground() {
	if app.reporter != nil {
		app.reporter.Start()
	}
}

// Shutdown stops background jobs and releases the cache connection pool
func (app *App) Shutdown(ctx context.Context) error {
	if app.reporter != nil {
		app.reporter.Stop(ctx)
	}
	if err := app.Cache.Close(); err != nil {
		app.Logger.Warn("Error closing cache", logging.Err(err))
		return err
	}
	return nil
}
