package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oembedfixes/config"
	"oembedfixes/internal/admin"
	"oembedfixes/internal/admin/dashboard"
	"oembedfixes/internal/core"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey        string              // Optional: Master key for authentication
	MetricsEnabled   bool                // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint  string              // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit    int64               // Max request body size in bytes (default: 2MB)
	DefaultTable     core.SchemeTable    // Returned when no provider list is available
	AdminHandler     *admin.AdminHandler // Optional: admin API and refresh trigger
	DashboardHandler *dashboard.Handler  // Optional: plugins listing page
}

// New creates a new HTTP server
func New(tables TableSource, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	if cfg == nil {
		cfg = &Config{}
	}
	handler := NewHandler(tables, cfg.DefaultTable)

	// Build list of paths that skip authentication
	authSkipPaths := []string{"/health", "/admin/static/"}

	metricsPath := "/metrics"
	if cfg.MetricsEnabled {
		metricsPath = metricsRoute(cfg.MetricsEndpoint)
		authSkipPaths = append(authSkipPaths, metricsPath)
	}

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request failed", attrs...)
				return nil
			}
			slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	bodySizeLimit := config.DefaultBodySizeLimit
	if cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	// Authentication (skips public paths)
	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths))
	}

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// API routes
	e.POST("/v1/oembed/rewrite", handler.Rewrite)
	e.GET("/v1/oembed/providers", handler.Providers)

	// Admin routes
	if cfg.AdminHandler != nil {
		adminGroup := e.Group("/admin", cfg.AdminHandler.RefreshTrigger())
		adminGroup.GET("/api/v1/overview", cfg.AdminHandler.Overview)
		adminGroup.GET("/api/v1/oembed/status", cfg.AdminHandler.OEmbedStatus)
		adminGroup.POST("/api/v1/oembed/refresh", cfg.AdminHandler.OEmbedRefresh)
		adminGroup.POST("/api/v1/oembed/flush", cfg.AdminHandler.OEmbedFlush)

		if cfg.DashboardHandler != nil {
			adminGroup.GET("/plugins", cfg.DashboardHandler.Plugins)
			e.GET("/admin/static/*", cfg.DashboardHandler.Static)
		}
	}

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// metricsRoute normalizes the configured metrics path. Paths that would
// shadow API or admin routes fall back to /metrics.
func metricsRoute(endpoint string) string {
	if endpoint == "" {
		return "/metrics"
	}
	// Normalize path to prevent traversal attacks
	p := path.Clean("/" + endpoint)
	for _, reserved := range []string{"/v1", "/admin"} {
		if p == reserved || strings.HasPrefix(p, reserved+"/") {
			return "/metrics"
		}
	}
	if p == "/" || p == "/health" {
		return "/metrics"
	}
	return p
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
