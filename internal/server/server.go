package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Asker answers one query. *agent.Pipeline satisfies it.
type Asker interface {
	Run(ctx context.Context, query string) (models.Answer, error)
}

// Options wires the shell to its collaborators.
type Options struct {
	Pipeline   Asker
	Sessions   session.Store
	SessionTTL time.Duration
	CookieName string
	Gatherer   prometheus.Gatherer // served on /metrics, defaults to the global registry
	RateLimit  float64             // requests per second per client IP, 0 disables
	RateBurst  int
	Logger     *log.Logger
}

// New builds the Echo instance with every route registered.
func New(opts Options) (*echo.Echo, error) {
	if opts.Pipeline == nil || opts.Sessions == nil {
		return nil, errors.New("server: pipeline and session store are required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = "askweb_session"
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}

	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Printf("%d %s %s from %s in %s", v.Status, v.Method, v.URI, v.RemoteIP, v.Latency.Round(time.Millisecond))
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	cookies := &sessionCookies{store: opts.Sessions, ttl: opts.SessionTTL, name: opts.CookieName}
	var limit []echo.MiddlewareFunc
	if opts.RateLimit > 0 {
		limit = append(limit, rateLimiter(opts.RateLimit, opts.RateBurst))
	}

	pages := &PagesHandler{Pipeline: opts.Pipeline, Sessions: cookies, Logger: logger}
	pages.Register(e.Group(""), limit...)

	api := &APIHandler{Pipeline: opts.Pipeline, Sessions: cookies}
	api.Register(e.Group("/api"), limit...)

	return e, nil
}

// Run serves e on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
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
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func rateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// errorHandler logs every failure and answers /api requests with JSON and
// everything else with plain text.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
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
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if c.Response().Committed {
			return
		}
		if strings.HasPrefix(req.URL.Path, "/api") {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
			return
		}
		_ = c.String(code, msg)
	}
}
