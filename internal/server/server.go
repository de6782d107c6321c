package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/internal/agent/telemetry"
	"github.com/mohammad-safakhou/remedy/repository"
)

// Researcher runs one question and streams its events into sink.
type Researcher interface {
	Run(ctx context.Context, req core.Request, sink core.Sink) error
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Researcher Researcher
	// Feeds backs the news and events listings; nil answers them with 500.
	Feeds Feeds
	// Cache may be nil to disable report caching.
	Cache    repository.ReportCache
	CacheTTL time.Duration
	// APIKeyConfigured gates online runs.
	APIKeyConfigured bool
	RequestTimeout   time.Duration
	AllowOrigins     []string
	// Metrics backs /metrics; nil omits the route.
	Metrics     prometheus.Gatherer
	MetricsPath string
	Telemetry   *telemetry.Telemetry
	Logger      *zap.Logger
}

// New builds the echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	logger := d.Logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Warn("request failed",
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote", c.RealIP()),
			zap.Error(err))
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	origins := d.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID, offlineHeader},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}

	h := &ResearchHandler{
		researcher: d.Researcher,
		cache:      d.Cache,
		ttl:        d.CacheTTL,
		keyOK:      d.APIKeyConfigured,
		timeout:    d.RequestTimeout,
		tel:        d.Telemetry,
		logger:     d.Logger.Named("research"),
	}
	api := e.Group("/api")
	h.Register(api)
	feeds := &FeedHandler{feeds: d.Feeds, keyOK: d.APIKeyConfigured, logger: d.Logger.Named("feeds")}
	feeds.Register(api)
	return e
}

// Run serves e on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	return e.Shutdown(shutdownCtx)
}
