package platform

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/middleware"
	"github.com/txn2/analytics-gateway/pkg/query/trino"
)

// Options configures the platform.
type Options struct {
	Config *Config
	Logger *slog.Logger

	// Registry receives the gateway collectors. A fresh registry with the
	// Go and process collectors is created when nil.
	Registry *prometheus.Registry

	// Opener replaces sql.Open for engine sessions.
	Opener trino.Opener

	// DB is the audit database. When nil and database.dsn is set, a
	// connection is opened with the postgres driver.
	DB *sql.DB

	// Authenticator overrides the authenticators built from auth config.
	Authenticator auth.Authenticator

	// Limiter overrides the limiter built from rate_limit config.
	Limiter middleware.Limiter
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *Options) {
		o.Registry = reg
	}
}

// WithOpener sets the engine database opener.
func WithOpener(open trino.Opener) Option {
	return func(o *Options) {
		o.Opener = open
	}
}

// WithDB sets the audit database handle.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithAuthenticator sets the authenticator.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(o *Options) {
		o.Authenticator = a
	}
}

// WithLimiter sets the rate limiter.
func WithLimiter(l middleware.Limiter) Option {
	return func(o *Options) {
		o.Limiter = l
	}
}
