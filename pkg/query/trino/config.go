package trino

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	trinodrv "github.com/trinodb/trino-go-client/trino"

	"github.com/txn2/analytics-gateway/pkg/query"
)

const (
	defaultSource = "analytics-gateway"
	httpScheme    = "http"
	httpsScheme   = "https"
)

// requiredKeys are checked in order; the first missing one is reported.
var requiredKeys = []string{"host", "port", "user", "catalog", "schema"}

// Config holds the engine connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Catalog  string
	Schema   string
	Password string
	SSL      bool
	Source   string

	// Timeout bounds each statement. Zero means no timeout.
	Timeout time.Duration

	// BindParameters sends filter values as bound arguments instead of
	// inlined literals.
	BindParameters bool
}

// ParseConfig builds a Config from the free-form trino section of the
// configuration file. Values may be native YAML types or strings produced
// by environment expansion.
func ParseConfig(settings map[string]any) (Config, error) {
	for _, key := range requiredKeys {
		if isBlank(settings[key]) {
			return Config{}, &query.ConfigurationError{Key: key}
		}
	}

	c := Config{
		Host:           strings.TrimSpace(cast.ToString(settings["host"])),
		User:           strings.TrimSpace(cast.ToString(settings["user"])),
		Catalog:        strings.TrimSpace(cast.ToString(settings["catalog"])),
		Schema:         strings.TrimSpace(cast.ToString(settings["schema"])),
		Password:       cast.ToString(settings["password"]),
		Source:         defaultSource,
		BindParameters: true,
	}

	port, err := cast.ToIntE(settings["port"])
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, &query.ConfigurationError{Key: "port", Reason: "must be a TCP port number"}
	}
	c.Port = port

	if v, ok := settings["ssl"]; ok && !isBlank(v) {
		if c.SSL, err = cast.ToBoolE(v); err != nil {
			return Config{}, &query.ConfigurationError{Key: "ssl", Reason: "must be a boolean"}
		}
	}
	if v, ok := settings["bind_parameters"]; ok && !isBlank(v) {
		if c.BindParameters, err = cast.ToBoolE(v); err != nil {
			return Config{}, &query.ConfigurationError{Key: "bind_parameters", Reason: "must be a boolean"}
		}
	}
	if v := cast.ToString(settings["source"]); v != "" {
		c.Source = v
	}
	if v, ok := settings["timeout"]; ok && !isBlank(v) {
		d, err := cast.ToDurationE(v)
		if err != nil || d < 0 {
			return Config{}, &query.ConfigurationError{Key: "timeout", Reason: "must be a non-negative duration"}
		}
		c.Timeout = d
	}

	return c, nil
}

// DSN renders the connection string understood by the trino driver.
func (c Config) DSN() (string, error) {
	scheme := httpScheme
	if c.SSL {
		scheme = httpsScheme
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	dc := &trinodrv.Config{
		ServerURI: u.String(),
		Source:    c.Source,
		Catalog:   c.Catalog,
		Schema:    c.Schema,
	}
	dsn, err := dc.FormatDSN()
	if err != nil {
		return "", fmt.Errorf("formatting trino dsn: %w", err)
	}
	return dsn, nil
}

// Redacted returns a loggable description of the target without secrets.
func (c Config) Redacted() string {
	return fmt.Sprintf("%s@%s/%s.%s", c.User, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Catalog, c.Schema)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
