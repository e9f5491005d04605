package trino

import (
	"database/sql"
	"log/slog"

	"github.com/txn2/analytics-gateway/pkg/query"
	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// Factory creates one Session per request from a shared Config.
type Factory struct {
	cfg    Config
	logger *slog.Logger
	open   Opener
}

// Option configures a Factory.
type Option func(*Factory)

// WithOpener replaces sql.Open, mainly for tests.
func WithOpener(open Opener) Option {
	return func(f *Factory) {
		f.open = open
	}
}

// NewFactory creates a session factory.
func NewFactory(cfg Config, logger *slog.Logger, opts ...Option) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		cfg:    cfg,
		logger: logger.With("component", "trino"),
		open:   sql.Open,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewSession returns an unconnected session.
func (f *Factory) NewSession() query.Session {
	return &Session{cfg: f.cfg, logger: f.logger, open: f.open}
}

// Builder returns a statement builder matching the configured parameter
// mode.
func (f *Factory) Builder() *sqlsafe.Builder {
	return sqlsafe.NewBuilder(f.cfg.BindParameters)
}

// Config returns the factory configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// Verify interface compliance.
var _ query.Factory = (*Factory)(nil)
