// Package auth authenticates HTTP callers from bearer tokens and API keys.
package auth

import (
	"context"
	"slices"
)

// contextKey is a private type for context keys.
type contextKey int

const (
	callerContextKey contextKey = iota
	tokenContextKey
)

// Auth types reported in Caller.AuthType.
const (
	AuthTypeAPIKey = "apikey"
	AuthTypeJWT    = "jwt"
	AuthTypeOIDC   = "oidc"
)

// Caller holds authenticated caller information.
type Caller struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`

	// Subject is the external identifier used to look the caller up in
	// the employee tables.
	Subject string `json:"subject,omitempty"`

	Roles    []string       `json:"roles,omitempty"`
	Claims   map[string]any `json:"-"`
	AuthType string         `json:"auth_type"`
}

// WithCaller adds the caller to the context.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, c)
}

// CallerFromContext retrieves the caller from the context.
func CallerFromContext(ctx context.Context) *Caller {
	if c, ok := ctx.Value(callerContextKey).(*Caller); ok {
		return c
	}
	return nil
}

// WithToken adds a raw credential to the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetToken retrieves the raw credential from the context.
func GetToken(ctx context.Context) string {
	if t, ok := ctx.Value(tokenContextKey).(string); ok {
		return t
	}
	return ""
}

// HasRole checks if the caller has a specific role.
func (c *Caller) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole checks if the caller has any of the specified roles.
func (c *Caller) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}
