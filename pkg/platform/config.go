package platform

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/analytics-gateway/pkg/api"
	"github.com/txn2/analytics-gateway/pkg/audit"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/policy"
	"github.com/txn2/analytics-gateway/pkg/query/trino"
)

// Rate limit backends.
const (
	RateLimitMemory   = "memory"
	RateLimitRedis    = "redis"
	RateLimitDisabled = "disabled"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

const (
	defaultAddress         = ":8080"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultRateRequests    = 1000
	defaultRateWindow      = time.Hour
	defaultRetentionDays   = 90
	defaultCleanupSchedule = "@daily"
	defaultMaxOpenConns    = 25
	defaultMetricsPath     = "/metrics"
	defaultRedisPrefix     = "analytics-gateway:ratelimit"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config holds the complete gateway configuration.
type Config struct {
	APIVersion string          `yaml:"apiVersion"`
	Server     ServerConfig    `yaml:"server"`
	Logging    LoggingConfig   `yaml:"logging"`
	Trino      map[string]any  `yaml:"trino"`
	Tables     api.Tables      `yaml:"tables"`
	Auth       AuthConfig      `yaml:"auth"`
	Policies   []policy.Policy `yaml:"policies"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
	Audit      audit.Config    `yaml:"audit"`
	Database   DatabaseConfig  `yaml:"database"`
	CORS       CORSConfig      `yaml:"cors"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig selects the slog handler and level.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// AuthConfig configures authentication.
type AuthConfig struct {
	APIKeys auth.APIKeyConfig `yaml:"api_keys"`
	JWT     JWTConfig         `yaml:"jwt"`
	OIDC    OIDCConfig        `yaml:"oidc"`
	Claims  ClaimsConfig      `yaml:"claims"`
}

// JWTConfig configures HS256 shared-secret tokens.
type JWTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// OIDCConfig configures OIDC token validation.
type OIDCConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`

	// JWKSURL skips issuer discovery when set.
	JWKSURL string `yaml:"jwks_url"`
}

// ClaimsConfig maps token claims onto callers. Empty fields keep the
// extractor defaults.
type ClaimsConfig struct {
	RoleClaimPath    string `yaml:"role_claim_path"`
	RolePrefix       string `yaml:"role_prefix"`
	EmailClaimPath   string `yaml:"email_claim_path"`
	NameClaimPath    string `yaml:"name_claim_path"`
	SubjectClaimPath string `yaml:"subject_claim_path"`
}

// RateLimitConfig configures per-caller rate limiting.
type RateLimitConfig struct {
	// Backend is memory, redis or disabled.
	Backend  string        `yaml:"backend"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Redis    RedisConfig   `yaml:"redis"`
}

// RedisConfig configures the shared rate limit backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DatabaseConfig configures the PostgreSQL audit database.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`

	// AutoMigrate applies pending migrations on startup.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// CORSConfig configures cross-origin access. An empty AllowedOrigins
// disables the CORS handler.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes, expanding ${VAR}
// references from the environment and applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	version := PeekVersion(data)
	info, err := resolveVersion(DefaultRegistry(), version)
	if err != nil {
		return nil, err
	}
	if info.Status == VersionDeprecated {
		slog.Warn("config apiVersion is deprecated", "version", version, "message", info.DeprecationMessage)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.APIVersion = version

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string. Unset variables
// expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatJSON
	}
	cfg.Tables = cfg.Tables.WithDefaults()
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = RateLimitMemory
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = defaultRateRequests
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = defaultRateWindow
	}
	if cfg.RateLimit.Redis.Prefix == "" {
		cfg.RateLimit.Redis.Prefix = defaultRedisPrefix
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultRetentionDays
	}
	if cfg.Audit.CleanupSchedule == "" {
		cfg.Audit.CleanupSchedule = defaultCleanupSchedule
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if _, err := trino.ParseConfig(c.Trino); err != nil {
		errs = append(errs, "trino: "+err.Error())
	}
	if err := c.Tables.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Logging.Format != LogFormatJSON && c.Logging.Format != LogFormatText {
		errs = append(errs, fmt.Sprintf("logging.format must be %s or %s", LogFormatJSON, LogFormatText))
	}

	errs = append(errs, c.validateAuth()...)
	errs = append(errs, c.validateRateLimit()...)

	reg := policy.NewRegistry()
	for i := range c.Policies {
		if err := reg.Register(&c.Policies[i]); err != nil {
			errs = append(errs, fmt.Sprintf("policies[%d]: %v", i, err))
		}
	}

	if c.Audit.Enabled && c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required when audit is enabled")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateAuth() []string {
	var errs []string
	a := c.Auth
	if len(a.APIKeys.Keys) == 0 && !a.JWT.Enabled && !a.OIDC.Enabled {
		errs = append(errs, "auth: at least one of api_keys, jwt or oidc must be configured")
	}
	if a.JWT.Enabled && a.JWT.Secret == "" {
		errs = append(errs, "auth.jwt.secret is required when JWT is enabled")
	}
	if a.OIDC.Enabled && a.OIDC.Issuer == "" {
		errs = append(errs, "auth.oidc.issuer is required when OIDC is enabled")
	}
	return errs
}

func (c *Config) validateRateLimit() []string {
	rl := c.RateLimit
	switch rl.Backend {
	case RateLimitDisabled:
		return nil
	case RateLimitMemory:
	case RateLimitRedis:
		if rl.Redis.Addr == "" {
			return []string{"rate_limit.redis.addr is required for the redis backend"}
		}
	default:
		return []string{fmt.Sprintf("rate_limit.backend %q must be memory, redis or disabled", rl.Backend)}
	}

	var errs []string
	if rl.Requests < 0 {
		errs = append(errs, "rate_limit.requests must be positive")
	}
	if rl.Window < 0 {
		errs = append(errs, "rate_limit.window must be positive")
	}
	return errs
}

// TrinoConfig parses the trino section.
func (c *Config) TrinoConfig() (trino.Config, error) {
	return trino.ParseConfig(c.Trino)
}
