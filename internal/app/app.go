// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the oEmbed fixes server.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"oembedfixes/config"
	"oembedfixes/internal/admin"
	"oembedfixes/internal/admin/dashboard"
	"oembedfixes/internal/cache"
	"oembedfixes/internal/core"
	"oembedfixes/internal/httpclient"
	"oembedfixes/internal/oembed"
	"oembedfixes/internal/server"
	"oembedfixes/internal/storage"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config  *config.Config
	cache   cache.Store
	builder *oembed.Builder
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration.
	AppConfig *config.Config

	// HTTPClient downloads the provider list (default: httpclient.NewHTTPClient(nil)).
	HTTPClient *http.Client
}

// New creates a new App with all dependencies initialized and runs the
// activation steps: the providers file location is prepared and, when
// configured, the provider list is refreshed. A failed refresh is logged and
// does not prevent startup.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	app := &App{
		config: appCfg,
	}

	store, err := newCacheStore(appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.cache = store

	defaults, err := loadDefaultTable(appCfg.OEmbed.DefaultProvidersFile)
	if err != nil {
		closeErr := store.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to load default providers: %w (also: cache close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to load default providers: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpclient.NewHTTPClient(nil)
	}

	builder, err := oembed.NewBuilder(oembed.Config{
		URL:       appCfg.OEmbed.ProvidersURL,
		Client:    client,
		File:      storage.NewLocalFile(storage.DefaultPath(appCfg.OEmbed.DataDir)),
		Cache:     store,
		TTL:       appCfg.Cache.TTL,
		AllowList: oembed.StaticAllowList(appCfg.OEmbed.AllowedProviders),
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize provider table builder: %w", err), store.Close())
	}
	app.builder = builder

	app.logStartupInfo()

	if err := app.activate(ctx); err != nil {
		return nil, errors.Join(err, store.Close())
	}

	adminHandler := admin.NewAdminHandler(builder, appCfg.OEmbed.GMTOffsetHours)
	dashHandler, err := dashboard.New(adminHandler)
	if err != nil {
		slog.Warn("failed to initialize admin plugins page", "error", err)
		dashHandler = nil
	}

	app.server = server.New(builder, &server.Config{
		MasterKey:        appCfg.Server.MasterKey,
		MetricsEnabled:   appCfg.Metrics.Enabled,
		MetricsEndpoint:  appCfg.Metrics.Endpoint,
		BodySizeLimit:    appCfg.Server.BodySizeLimit,
		DefaultTable:     defaults,
		AdminHandler:     adminHandler,
		DashboardHandler: dashHandler,
	})

	return app, nil
}

// activate prepares the providers file location and performs the initial refresh.
func (a *App) activate(ctx context.Context) error {
	if err := a.builder.EnsureStorage(ctx); err != nil {
		return fmt.Errorf("failed to prepare providers file location: %w", err)
	}
	if !a.config.OEmbed.RefreshOnStart {
		slog.Info("provider list refresh on start disabled")
		return nil
	}
	// Refresh logs its own failure; the previous file (if any) stays in use.
	_ = a.builder.Refresh(ctx) //nolint:errcheck
	return nil
}

// Builder returns the provider table builder.
func (a *App) Builder() *oembed.Builder {
	return a.builder
}

// Handler returns the HTTP handler, for use with httptest.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
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

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown, honoring the passed context timeout/cancellation.
// 2. Cached scheme tables are dropped (deactivation).
// 3. Cache store close.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Drop cached tables so the next activation rebuilds from the file
	if a.builder != nil {
		if err := a.builder.Invalidate(ctx); err != nil {
			slog.Error("scheme table cache invalidation error", "error", err)
			errs = append(errs, fmt.Errorf("cache invalidate: %w", err))
		}
	}

	// 3. Close the cache store
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: OEMBED_MASTER_KEY not set - admin routes are unauthenticated",
			"security_risk", "anyone can trigger provider list refreshes",
			"recommendation", "set OEMBED_MASTER_KEY environment variable")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("scheme table cache configured", "type", cfg.Cache.Type, "ttl", cfg.Cache.TTL)
	slog.Info("provider list configured",
		"url", cfg.OEmbed.ProvidersURL,
		"file", storage.DefaultPath(cfg.OEmbed.DataDir),
		"allowed_providers", len(cfg.OEmbed.AllowedProviders),
	)
}

// newCacheStore creates the scheme table cache backend selected by cfg.Type.
func newCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return cache.NewMemoryStore(), nil
	case "local":
		return cache.NewLocalStore(cfg.Dir), nil
	case "redis":
		store, err := cache.NewRedisStore(cache.RedisConfig{
			URL:       cfg.RedisURL,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// loadDefaultTable reads a JSON scheme table ({"pattern": ["endpoint", false]}).
// An empty path yields an empty table.
func loadDefaultTable(path string) (core.SchemeTable, error) {
	if path == "" {
		return core.SchemeTable{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var table core.SchemeTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if table == nil {
		table = core.SchemeTable{}
	}
	return table, nil
}
