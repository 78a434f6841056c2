package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"piiguard/internal/core"
	"piiguard/internal/observability"
)

// DefaultBodyLimit caps request bodies when Config.BodyLimit is empty.
const DefaultBodyLimit = "8M"

const defaultMetricsPath = "/metrics"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey       string // Optional: Master key for authentication
	MetricsEnabled  bool   // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	BodyLimit       string // Max request body size, e.g. "8M"

	// Metrics supplies the registry served on the metrics endpoint. When nil
	// the default Prometheus registry is served.
	Metrics *observability.Metrics
	// Health is pinged by GET /health when set.
	Health Pinger
}

// New creates a new HTTP server
func New(svc Service, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(svc, cfg.Health)

	authSkipPaths := []string{"/health"}
	metricsPath := metricsPathFor(cfg)
	if cfg.MetricsEnabled {
		authSkipPaths = append(authSkipPaths, metricsPath)
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(requestLogger())
	e.Use(middleware.Recover())

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = DefaultBodyLimit
	}
	e.Use(middleware.BodyLimit(bodyLimit))

	e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths...))

	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		var h http.Handler = promhttp.Handler()
		if cfg.Metrics != nil {
			h = cfg.Metrics.Handler()
		}
		e.GET(metricsPath, echo.WrapHandler(h))
	}

	v1 := e.Group("/v1")
	v1.POST("/classify", handler.Classify)
	v1.POST("/batches", handler.CreateBatch)
	v1.GET("/batches", handler.ListBatches)
	v1.GET("/batches/:id", handler.GetBatch)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// metricsPathFor normalizes the configured metrics path. A path under /v1
// would sit behind authentication and shadow the API, so it falls back to
// the default.
func metricsPathFor(cfg *Config) string {
	if cfg.MetricsEndpoint == "" {
		return defaultMetricsPath
	}
	p := path.Clean("/" + cfg.MetricsEndpoint)
	if p == "/" || p == "/v1" || strings.HasPrefix(p, "/v1/") || p == "/health" {
		return defaultMetricsPath
	}
	return p
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
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
