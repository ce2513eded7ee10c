// Package server serves the query page and its JSON API behind basic auth.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aqua777/indexquery/internal/catalog"
	"github.com/aqua777/indexquery/internal/chat"
	"github.com/aqua777/indexquery/internal/config"
	"github.com/aqua777/indexquery/internal/metrics"
)

// ShutdownTimeout bounds the graceful shutdown once the context is done.
const ShutdownTimeout = 10 * time.Second

// Server is the web UI.
type Server struct {
	echo         *echo.Echo
	chat         *chat.Handler
	metrics      *metrics.Metrics
	logger       *slog.Logger
	addr         string
	title        string
	defaultIndex string
	descriptions []catalog.Description
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDescriptions sets the index descriptions listed under the title.
func WithDescriptions(descriptions []catalog.Description) Option {
	return func(s *Server) {
		s.descriptions = slices.Clone(descriptions)
	}
}

// New creates a Server answering through h. The default index must be one
// of h's indexes, and auth needs a user plus a password or bcrypt hash.
func New(cfg config.ServerConfig, h *chat.Handler, opts ...Option) (*Server, error) {
	s := &Server{
		chat:         h,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		title:        cfg.Title,
		defaultIndex: cfg.DefaultIndex,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !slices.Contains(h.Indexes(), s.defaultIndex) {
		return nil, fmt.Errorf("default index %q is not selectable", s.defaultIndex)
	}
	auth, err := newBasicAuth(cfg.Auth)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	requireAuth := middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm:     s.title,
		Validator: auth.validate,
	})
	limit := rateLimit(cfg.RateLimit)

	e.GET("/", s.page, requireAuth)
	e.POST("/", s.submit, requireAuth, limit)

	api := e.Group("/api", requireAuth)
	api.GET("/indexes", s.indexes)
	api.POST("/query", s.query, limit)

	s.echo = e
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleError(err error, c echo.Context) {
	// the request logger has already handled it
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", code, "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		LogRemoteIP: true,
		HandleError: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.logger.Info("Request", attrs...)
			return nil
		},
	})
}
