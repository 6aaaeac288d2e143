package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/rulematch/internal/app"
	"github.com/Ramsey-B/rulematch/pkg/middleware"
	"github.com/Ramsey-B/rulematch/pkg/routes/health"
	"github.com/Ramsey-B/rulematch/pkg/routes/reconcile"
)

const Name = "http-server"

// Server is the HTTP API. It is started and stopped as a startup dependency.
type Server struct {
	echo      *echo.Echo
	logger    ectologger.Logger
	checker   *health.Checker
	address   string
	dependsOn []string
	errs      chan error
}

// New builds the echo instance with middleware and routes
func New(a *app.App, dependsOn ...string) (*Server, error) {
	cfg := a.Config

	containerID, err := a.Container()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.Logger)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	if cfg.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Container(containerID))
	e.Use(middleware.Logger(a.Logger))

	checker := health.NewChecker(cfg.Version)
	if a.Ruler != nil {
		checker.AddCheck("ruler", a.Ruler)
	}
	if a.Prometheus != nil {
		checker.AddCheck("prometheus", a.Prometheus)
	}
	checker.RegisterRoutes(e)

	reconcile.Register(e.Group("/api/v1"))

	return &Server{
		echo:      e,
		logger:    a.Logger,
		checker:   checker,
		address:   fmt.Sprintf(":%d", cfg.Port),
		dependsOn: dependsOn,
		errs:      make(chan error, 1),
	}, nil
}

// Handler exposes the router for in-process use
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) GetName() string {
	return Name
}

func (s *Server) DependsOn() []string {
	return s.dependsOn
}

// Start binds the listener and serves in the background. Bind errors are returned directly.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.echo.Listener = listener

	go func() {
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server stopped unexpectedly")
			s.errs <- err
		}
	}()

	s.checker.SetReady(true)
	s.logger.WithContext(ctx).WithField("address", listener.Addr().String()).Info("HTTP server listening")
	return nil
}

// Stop marks the server not ready and drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.checker.SetReady(false)
	return s.echo.Shutdown(ctx)
}

// Errors reports a server that stopped on its own
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.echo.Listener == nil {
		return s.address
	}
	return s.echo.Listener.Addr().String()
}
