package auth

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// DefaultSubjectClaim is the claim holding the caller's external subject
// identifier. The standard "sub" claim is used when it is absent.
const DefaultSubjectClaim = "oidc_sub"

// ClaimsExtractor extracts caller fields from JWT claims.
type ClaimsExtractor struct {
	// RoleClaimPath is the dot-separated path to roles in claims.
	// e.g., "realm_access.roles" or "roles"
	RoleClaimPath string

	// RolePrefix filters roles to those starting with this prefix.
	RolePrefix string

	EmailClaimPath string
	NameClaimPath  string

	// SubjectClaimPath is the path to the external subject identifier.
	SubjectClaimPath string
}

// DefaultClaimsExtractor returns an extractor with common defaults.
func DefaultClaimsExtractor() *ClaimsExtractor {
	return &ClaimsExtractor{
		RoleClaimPath:    "roles",
		EmailClaimPath:   "email",
		NameClaimPath:    "name",
		SubjectClaimPath: DefaultSubjectClaim,
	}
}

// Extract builds a caller from claims. The "sub" claim is required.
func (e *ClaimsExtractor) Extract(claims map[string]any, authType string) (*Caller, error) {
	sub := cast.ToString(claims["sub"])
	if sub == "" {
		return nil, fmt.Errorf("missing required claim: sub")
	}

	c := &Caller{
		UserID:   sub,
		Email:    e.getString(claims, e.EmailClaimPath),
		Name:     e.getString(claims, e.NameClaimPath),
		Subject:  e.getString(claims, e.SubjectClaimPath),
		Claims:   claims,
		AuthType: authType,
	}
	if c.Subject == "" {
		c.Subject = sub
	}

	if e.RoleClaimPath != "" {
		roles := e.getStringSlice(claims, e.RoleClaimPath)
		if e.RolePrefix != "" {
			roles = filterByPrefix(roles, e.RolePrefix)
		}
		c.Roles = roles
	}
	return c, nil
}

// getString returns the value at path coerced to a string. Numeric claims
// are accepted; objects and arrays are not.
func (e *ClaimsExtractor) getString(claims map[string]any, path string) string {
	switch v := e.getValue(claims, path).(type) {
	case nil, map[string]any, []any:
		return ""
	default:
		return cast.ToString(v)
	}
}

// getStringSlice returns the value at path as a string slice. A single
// space-separated string is split, matching the OAuth "scope" convention.
func (e *ClaimsExtractor) getStringSlice(claims map[string]any, path string) []string {
	switch v := e.getValue(claims, path).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case string:
		return strings.Fields(v)
	}
	return nil
}

// getValue gets a value at a dot-separated path.
func (*ClaimsExtractor) getValue(claims map[string]any, path string) any {
	if path == "" {
		return nil
	}

	var current any = claims
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func filterByPrefix(items []string, prefix string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
