// Package server wires the platform components into the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/txn2/analytics-gateway/pkg/api"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/metrics"
	"github.com/txn2/analytics-gateway/pkg/middleware"
	"github.com/txn2/analytics-gateway/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

const (
	msgUnauthorized = "Unauthorized"
	msgRateLimited  = "Rate limit exceeded"
)

// Server serves the gateway over HTTP.
type Server struct {
	platform *platform.Platform
	logger   *slog.Logger
	handler  http.Handler
}

// New builds the router for p.
func New(p *platform.Platform) *Server {
	s := &Server{
		platform: p,
		logger:   p.Logger().With("component", "server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	p := s.platform
	cfg := p.Config()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(p.Logger()))
	r.Use(p.Metrics().Middleware)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(cfg.CORS)))
	}

	r.Get("/healthz", p.Health().LivenessHandler())
	r.Get("/readyz", p.Health().ReadinessHandler())
	if !cfg.Metrics.Disabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler(p.Gatherer()))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(p.Authenticator(), s.unauthorized))
		if l := p.Limiter(); l != nil {
			r.Use(middleware.RateLimit(l, middleware.CallerKey, s.rateLimited, p.Logger()))
		}
		r.Mount("/admin", p.AdminHandler().Routes())
		r.Mount("/", p.APIHandler().Routes())
	})
	return r
}

func corsOptions(c platform.CORSConfig) cors.Options {
	methods := c.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodOptions}
	}
	headers := c.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Authorization", "Content-Type", "X-API-Key", middleware.RequestIDHeader}
	}
	return cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Debug("authentication failed",
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"error", err)
	api.WriteError(w, r, http.StatusUnauthorized, msgUnauthorized)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	s.platform.Metrics().RateLimited()
	s.logger.Info("rate limit exceeded",
		"key", middleware.CallerKey(r),
		"retry_after", retryAfter,
		"request_id", middleware.RequestIDFromContext(r.Context()))
	api.WriteError(w, r, http.StatusTooManyRequests, msgRateLimited)
}

// Run starts the platform, serves until ctx is cancelled, then drains and
// shuts down within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.platform.Config().Server

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.platform.Config().Server

	if err := s.platform.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("starting platform: %w", err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.platform.Health().SetReady()
	s.logger.Info("analytics gateway listening", "address", ln.Addr().String(), "version", Version)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	s.platform.Health().SetDraining()
	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("serving: %w", serveErr))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down http server: %w", err))
	}
	if err := s.platform.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping platform: %w", err))
	}
	return errors.Join(errs...)
}
