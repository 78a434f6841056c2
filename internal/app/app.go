// Package app wires configuration, storage, the classification engine and the
// HTTP server into one application with a single shutdown path.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"piiguard/config"
	"piiguard/internal/batch"
	"piiguard/internal/cache"
	"piiguard/internal/core"
	"piiguard/internal/dataset"
	"piiguard/internal/observability"
	"piiguard/internal/pii"
	"piiguard/internal/server"
	"piiguard/internal/watch"
)

// App is the assembled application.
type App struct {
	config  *config.Config
	engine  *pii.Engine
	metrics *observability.Metrics
	cache   cache.Cache
	batch   *batch.Result
	service *batch.Service
	server  *server.Server

	stopCleanup context.CancelFunc
	cleanupDone chan struct{}

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the inputs New needs.
type Config struct {
	AppConfig *config.LoadResult
}

// New builds every component. On error, whatever was already opened is
// closed before returning.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.AppConfig.Config == nil {
		return nil, fmt.Errorf("app config contains nil Config")
	}
	appCfg := cfg.AppConfig.Config

	app := &App{config: appCfg}

	engine, err := pii.New(appCfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("failed to build classification engine: %w", err)
	}
	app.engine = engine

	if appCfg.Metrics.Enabled {
		app.metrics = observability.NewMetrics()
	}

	app.cache, err = newCache(ctx, appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result cache: %w", err)
	}

	batchResult, err := batch.New(ctx, appCfg.Storage)
	if err != nil {
		if closeErr := app.closeCache(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize batch storage: %w (also: cache close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize batch storage: %w", err)
	}
	app.batch = batchResult

	runner := batch.NewRunner(engine, batch.RunnerConfig{
		Workers: appCfg.Workers,
		Cache:   app.cache,
		Metrics: app.metrics,
	})
	app.service = batch.NewService(runner, batchResult.Store)
	if days := appCfg.Batches.RetentionDays; days > 0 {
		app.startCleanup(time.Duration(days) * 24 * time.Hour)
	}

	serverCfg := &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodyLimit:       appCfg.Server.BodyLimit,
		Metrics:         app.metrics,
	}
	if batchResult.Storage != nil {
		serverCfg.Health = batchResult.Storage
	}
	app.server = server.New(app.service, serverCfg)

	app.logStartupInfo(cfg.AppConfig.Path)
	return app, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Type {
	case cache.TypeNone, "":
		return nil, nil
	case cache.TypeLocal:
		return cache.NewLocalCache(cfg.Local.MaxEntries, cfg.Local.TTL), nil
	case cache.TypeRedis:
		c, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// startCleanup purges expired batches in the background until Shutdown.
func (a *App) startCleanup(retention time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopCleanup = cancel
	a.cleanupDone = make(chan struct{})
	go func() {
		defer close(a.cleanupDone)
		batch.RunCleanupLoop(ctx, a.service, retention, batch.CleanupInterval)
	}()
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.config
}

// Service returns the batch service.
func (a *App) Service() *batch.Service {
	return a.service
}

// Engine returns the classification engine.
func (a *App) Engine() *pii.Engine {
	return a.engine
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// ScanFile redacts the dataset at input into output. Either path may end in
// dataset.CompressedSuffix.
func (a *App) ScanFile(ctx context.Context, input, output string) (*core.Batch, error) {
	in, err := dataset.Open(input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := dataset.Create(output)
	if err != nil {
		return nil, err
	}
	b, err := a.service.ScanDataset(ctx, filepath.Base(input), in, out, a.config.Dataset)
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", output, closeErr)
	}
	return b, err
}

// NewWatcher creates an inbox watcher from the watch section of the config.
func (a *App) NewWatcher() (*watch.Watcher, error) {
	return watch.New(a.service, watch.Config{
		Inbox:   a.config.Watch.Inbox,
		Outbox:  a.config.Watch.Outbox,
		Settle:  a.config.Watch.Settle,
		Dataset: a.config.Dataset,
	})
}

// Start serves HTTP on addr until Shutdown is called.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the server and releases storage and cache connections.
// Calling it more than once is a no-op.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Debug("shutting down application")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.stopCleanup != nil {
		a.stopCleanup()
		<-a.cleanupDone
	}

	if a.batch != nil {
		if err := a.batch.Close(); err != nil {
			slog.Error("batch store close error", "error", err)
			errs = append(errs, fmt.Errorf("batch close: %w", err))
		}
	}

	if err := a.closeCache(); err != nil {
		slog.Error("result cache close error", "error", err)
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

func (a *App) closeCache() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

func (a *App) logStartupInfo(configPath string) {
	cfg := a.config

	if configPath != "" {
		slog.Info("configuration loaded", "path", configPath)
	}

	if cfg.Server.MasterKey == "" {
		slog.Warn("PIIGUARD_MASTER_KEY not set - API is unauthenticated",
			"recommendation", "set PIIGUARD_MASTER_KEY to protect /v1 endpoints")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("storage configured", "type", cfg.Storage.Type)
	if cfg.Batches.RetentionDays > 0 {
		slog.Info("batch retention enabled", "days", cfg.Batches.RetentionDays)
	}
	slog.Info("result cache configured", "type", cfg.Cache.Type)

	if aliases := len(cfg.Routing.Aliases); aliases > 0 {
		slog.Info("field aliases configured", "count", aliases)
	}
}
