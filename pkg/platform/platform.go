// Package platform loads the gateway configuration and assembles its
// components.
package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // postgres driver for the audit store
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/txn2/analytics-gateway/pkg/admin"
	"github.com/txn2/analytics-gateway/pkg/api"
	"github.com/txn2/analytics-gateway/pkg/audit"
	auditpostgres "github.com/txn2/analytics-gateway/pkg/audit/postgres"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/database/migrate"
	"github.com/txn2/analytics-gateway/pkg/health"
	"github.com/txn2/analytics-gateway/pkg/metrics"
	"github.com/txn2/analytics-gateway/pkg/middleware"
	"github.com/txn2/analytics-gateway/pkg/policy"
	"github.com/txn2/analytics-gateway/pkg/query"
	"github.com/txn2/analytics-gateway/pkg/query/trino"
	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// Probe names reported by /readyz.
const (
	ProbeTrino    = "trino"
	ProbeDatabase = "audit_db"
	ProbeRedis    = "redis"
)

// Platform is the assembled gateway.
type Platform struct {
	config    *Config
	logger    *slog.Logger
	lifecycle *Lifecycle

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	factory query.Factory
	builder *sqlsafe.Builder

	authenticator auth.Authenticator
	authorizer    *policy.Authorizer

	db         *sql.DB
	auditStore *auditpostgres.Store
	audit      audit.Logger

	limiter middleware.Limiter
	health  *health.Checker

	api   *api.Handler
	admin *admin.Handler
}

// New builds every component from the configuration. Network resources
// other than OIDC discovery are not touched until Start.
func New(ctx context.Context, opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	p := &Platform{
		config:    options.Config,
		logger:    options.Logger,
		lifecycle: NewLifecycle(options.Logger),
		health:    health.NewChecker(),
	}

	if err := p.initializeComponents(ctx, options); err != nil {
		// Release whatever was opened before the failure.
		_ = p.Close()
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

func (p *Platform) initializeComponents(ctx context.Context, opts *Options) error {
	if err := p.initMetrics(opts); err != nil {
		return err
	}
	if err := p.initQuery(opts); err != nil {
		return err
	}
	if err := p.initAuth(ctx, opts); err != nil {
		return err
	}
	if err := p.initAudit(opts); err != nil {
		return err
	}
	p.initLimiter(opts)
	p.initHandlers()
	return nil
}

func (p *Platform) initMetrics(opts *Options) error {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	p.registry = reg
	p.metrics = m
	return nil
}

func (p *Platform) initQuery(opts *Options) error {
	cfg, err := p.config.TrinoConfig()
	if err != nil {
		return fmt.Errorf("parsing trino config: %w", err)
	}

	var factoryOpts []trino.Option
	if opts.Opener != nil {
		factoryOpts = append(factoryOpts, trino.WithOpener(opts.Opener))
	}
	f := trino.NewFactory(cfg, p.logger, factoryOpts...)
	p.factory = p.metrics.InstrumentFactory(f)
	p.builder = f.Builder()

	p.health.AddProbe(ProbeTrino, func(ctx context.Context) error {
		return query.WithSession(ctx, p.factory, func(s query.Session) error {
			_, err := s.Execute(ctx, query.Raw("SELECT 1"))
			return err
		})
	})
	p.logger.Info("trino configured", "target", cfg.Redacted(), "bind_parameters", cfg.BindParameters)
	return nil
}

func (p *Platform) initAuth(ctx context.Context, opts *Options) error {
	reg := policy.NewRegistry()
	for i := range p.config.Policies {
		if err := reg.Register(&p.config.Policies[i]); err != nil {
			return fmt.Errorf("registering policy %s: %w", p.config.Policies[i].Name, err)
		}
	}
	p.authorizer = policy.NewAuthorizer(reg)

	if opts.Authenticator != nil {
		p.authenticator = opts.Authenticator
		return nil
	}
	a, err := p.createAuthenticator(ctx)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}
	p.authenticator = a
	return nil
}

// createAuthenticator chains the configured authenticators: API keys
// first, then shared-secret JWT, then OIDC.
func (p *Platform) createAuthenticator(ctx context.Context) (auth.Authenticator, error) {
	ac := p.config.Auth
	extractor := p.claimsExtractor()

	var chain []auth.Authenticator
	if len(ac.APIKeys.Keys) > 0 {
		a, err := auth.NewAPIKeyAuthenticator(ac.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("api keys: %w", err)
		}
		chain = append(chain, a)
	}
	if ac.JWT.Enabled {
		a, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   ac.JWT.Secret,
			Issuer:   ac.JWT.Issuer,
			Audience: ac.JWT.Audience,
		}, extractor)
		if err != nil {
			return nil, fmt.Errorf("jwt: %w", err)
		}
		chain = append(chain, a)
	}
	if ac.OIDC.Enabled {
		a, err := auth.NewOIDCAuthenticator(ctx, auth.OIDCConfig{
			Issuer:   ac.OIDC.Issuer,
			Audience: ac.OIDC.Audience,
			JWKSURL:  ac.OIDC.JWKSURL,
		}, extractor)
		if err != nil {
			return nil, fmt.Errorf("oidc: %w", err)
		}
		chain = append(chain, a)
	}
	return auth.NewChainedAuthenticator(chain...), nil
}

func (p *Platform) claimsExtractor() *auth.ClaimsExtractor {
	e := auth.DefaultClaimsExtractor()
	c := p.config.Auth.Claims
	if c.RoleClaimPath != "" {
		e.RoleClaimPath = c.RoleClaimPath
	}
	if c.EmailClaimPath != "" {
		e.EmailClaimPath = c.EmailClaimPath
	}
	if c.NameClaimPath != "" {
		e.NameClaimPath = c.NameClaimPath
	}
	if c.SubjectClaimPath != "" {
		e.SubjectClaimPath = c.SubjectClaimPath
	}
	e.RolePrefix = c.RolePrefix
	return e
}

func (p *Platform) initAudit(opts *Options) error {
	sinks := []audit.Logger{audit.NewSlogLogger(p.logger)}

	db := opts.DB
	if db == nil && p.config.Database.DSN != "" {
		var err error
		db, err = sql.Open("postgres", p.config.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
	}
	if db == nil {
		p.audit = audit.NewMultiLogger(sinks...)
		return nil
	}

	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
	p.db = db
	p.auditStore = auditpostgres.New(db, auditpostgres.Config{
		RetentionDays: p.config.Audit.RetentionDays,
		Logger:        p.logger.With("component", "audit"),
	})
	p.audit = audit.NewMultiLogger(append(sinks, p.auditStore)...)

	p.health.AddProbe(ProbeDatabase, db.PingContext)

	if p.config.Database.AutoMigrate {
		p.lifecycle.OnStart("migrations", func(context.Context) error {
			return migrate.Run(db)
		})
	}
	schedule := p.config.Audit.CleanupSchedule
	p.lifecycle.Append(Hook{
		Name:  "audit cleanup",
		Start: func(context.Context) error { return p.auditStore.StartCleanup(schedule) },
		Stop:  func(context.Context) error { return p.auditStore.Close() },
	})
	return nil
}

func (p *Platform) initLimiter(opts *Options) {
	if opts.Limiter != nil {
		p.limiter = opts.Limiter
		return
	}

	rl := p.config.RateLimit
	limit := middleware.Limit{Requests: rl.Requests, Window: rl.Window}

	switch rl.Backend {
	case RateLimitRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     rl.Redis.Addr,
			Password: rl.Redis.Password,
			DB:       rl.Redis.DB,
		})
		p.limiter = middleware.NewRedisLimiter(client, limit, rl.Redis.Prefix)
		p.health.AddProbe(ProbeRedis, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		p.lifecycle.RegisterCloser("redis", client)
	case RateLimitMemory:
		ml := middleware.NewMemoryLimiter(limit)
		p.limiter = ml
		var cancel context.CancelFunc
		p.lifecycle.Append(Hook{
			Name: "rate limit sweeper",
			Start: func(context.Context) error {
				var ctx context.Context
				ctx, cancel = context.WithCancel(context.Background())
				go ml.Run(ctx, rl.Window)
				return nil
			},
			Stop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}
}

func (p *Platform) initHandlers() {
	p.api = api.NewHandler(api.Deps{
		Factory:        p.factory,
		Builder:        p.builder,
		Tables:         p.config.Tables,
		Authorizer:     p.authorizer,
		Audit:          p.audit,
		Logger:         p.logger,
		OnAuditFailure: p.metrics.AuditFailed,
	})

	deps := admin.Deps{
		Authorizer:     p.authorizer,
		Logger:         p.logger,
		Audit:          p.audit,
		OnAuditFailure: p.metrics.AuditFailed,
	}
	if p.auditStore != nil {
		deps.AuditStore = p.auditStore
		deps.AuditMetrics = p.auditStore
	}
	p.admin = admin.NewHandler(deps)
}

// Start runs the lifecycle hooks.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop runs the stop hooks in reverse order.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// Close releases the audit sinks and database handle.
func (p *Platform) Close() error {
	var errs []error
	if p.audit != nil {
		if err := p.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config { return p.config }

// Logger returns the process logger.
func (p *Platform) Logger() *slog.Logger { return p.logger }

// Lifecycle returns the lifecycle manager.
func (p *Platform) Lifecycle() *Lifecycle { return p.lifecycle }

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker { return p.health }

// Metrics returns the gateway collectors.
func (p *Platform) Metrics() *metrics.Metrics { return p.metrics }

// Gatherer returns the registry served on the metrics path.
func (p *Platform) Gatherer() prometheus.Gatherer { return p.registry }

// Factory returns the instrumented session factory.
func (p *Platform) Factory() query.Factory { return p.factory }

// Authenticator returns the request authenticator.
func (p *Platform) Authenticator() auth.Authenticator { return p.authenticator }

// Authorizer returns the endpoint authorizer.
func (p *Platform) Authorizer() *policy.Authorizer { return p.authorizer }

// Limiter returns the rate limiter, or nil when rate limiting is disabled.
func (p *Platform) Limiter() middleware.Limiter { return p.limiter }

// AuditStore returns the PostgreSQL audit store, or nil without a database.
func (p *Platform) AuditStore() *auditpostgres.Store { return p.auditStore }

// APIHandler returns the analytics endpoint handler.
func (p *Platform) APIHandler() *api.Handler { return p.api }

// AdminHandler returns the audit review handler.
func (p *Platform) AdminHandler() *admin.Handler { return p.admin }
