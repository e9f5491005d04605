package trino

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/analytics-gateway/pkg/query"
)

func validSettings() map[string]any {
	return map[string]any{
		"host":    "trino.internal",
		"port":    8080,
		"user":    "gateway",
		"catalog": "hive",
		"schema":  "silver",
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(validSettings())
	require.NoError(t, err)

	assert.Equal(t, "trino.internal", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "gateway", cfg.User)
	assert.Equal(t, "hive", cfg.Catalog)
	assert.Equal(t, "silver", cfg.Schema)
	assert.Equal(t, defaultSource, cfg.Source)
	assert.True(t, cfg.BindParameters)
	assert.False(t, cfg.SSL)
	assert.Zero(t, cfg.Timeout)
}

func TestParseConfig_Optional(t *testing.T) {
	s := validSettings()
	s["port"] = "8443" // from ${TRINO_PORT}
	s["ssl"] = "true"
	s["password"] = "secret"
	s["timeout"] = "30s"
	s["source"] = "profiles"
	s["bind_parameters"] = false

	cfg, err := ParseConfig(s)
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.Port)
	assert.True(t, cfg.SSL)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "profiles", cfg.Source)
	assert.False(t, cfg.BindParameters)
}

func TestParseConfig_FirstMissingKey(t *testing.T) {
	tests := []struct {
		name   string
		remove []string
		want   string
	}{
		{name: "host", remove: []string{"host"}, want: "host"},
		{name: "port", remove: []string{"port"}, want: "port"},
		{name: "user", remove: []string{"user"}, want: "user"},
		{name: "catalog", remove: []string{"catalog"}, want: "catalog"},
		{name: "schema", remove: []string{"schema"}, want: "schema"},
		{name: "user and schema", remove: []string{"schema", "user"}, want: "user"},
		{name: "all", remove: requiredKeys, want: "host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			for _, k := range tt.remove {
				delete(s, k)
			}
			_, err := ParseConfig(s)
			var ce *query.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.want, ce.Key)
		})
	}
}

func TestParseConfig_EmptyStringIsMissing(t *testing.T) {
	s := validSettings()
	s["catalog"] = ""
	_, err := ParseConfig(s)
	var ce *query.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "catalog", ce.Key)
}

func TestParseConfig_WhitespaceIsMissing(t *testing.T) {
	for _, key := range []string{"host", "user", "catalog", "schema"} {
		s := validSettings()
		s[key] = "  \t"
		_, err := ParseConfig(s)
		var ce *query.ConfigurationError
		require.ErrorAs(t, err, &ce, key)
		assert.Equal(t, key, ce.Key)
	}

	s := validSettings()
	s["host"] = " trino.internal "
	c, err := ParseConfig(s)
	require.NoError(t, err)
	assert.Equal(t, "trino.internal", c.Host)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := map[string]any{
		"port":            "not-a-port",
		"ssl":             "maybe",
		"timeout":         "soon",
		"bind_parameters": "perhaps",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			s := validSettings()
			s[key] = val
			_, err := ParseConfig(s)
			var ce *query.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, key, ce.Key)
			assert.NotEmpty(t, ce.Reason)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg, err := ParseConfig(validSettings())
	require.NoError(t, err)

	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "http://gateway@trino.internal:8080"), dsn)
	assert.Contains(t, dsn, "catalog=hive")
	assert.Contains(t, dsn, "schema=silver")
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Config{Host: "h", Port: 443, User: "u", Password: "pw", Catalog: "c", Schema: "s"}
	r := cfg.Redacted()
	assert.Equal(t, "u@h:443/c.s", r)
	assert.NotContains(t, r, "pw")
}
