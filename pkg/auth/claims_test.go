package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimsExtractor_Extract(t *testing.T) {
	claims := map[string]any{
		"sub":      "user-123",
		"oidc_sub": "jane.doe@example.com",
		"email":    "jane@example.com",
		"name":     "Jane",
		"roles":    []any{"dp_admin", "dp_analyst", "other", 42},
	}

	e := DefaultClaimsExtractor()
	e.RolePrefix = "dp_"

	c, err := e.Extract(claims, AuthTypeOIDC)
	require.NoError(t, err)
	assert.Equal(t, "user-123", c.UserID)
	assert.Equal(t, "jane.doe@example.com", c.Subject)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.Equal(t, "Jane", c.Name)
	assert.Equal(t, []string{"dp_admin", "dp_analyst"}, c.Roles)
	assert.Equal(t, AuthTypeOIDC, c.AuthType)
}

func TestClaimsExtractor_SubjectFallback(t *testing.T) {
	c, err := DefaultClaimsExtractor().Extract(map[string]any{"sub": "abc"}, AuthTypeJWT)
	require.NoError(t, err)
	assert.Equal(t, "abc", c.Subject)
}

func TestClaimsExtractor_NumericSubject(t *testing.T) {
	c, err := DefaultClaimsExtractor().Extract(map[string]any{"sub": "abc", "oidc_sub": float64(12345)}, AuthTypeJWT)
	require.NoError(t, err)
	assert.Equal(t, "12345", c.Subject)
}

func TestClaimsExtractor_MissingSub(t *testing.T) {
	_, err := DefaultClaimsExtractor().Extract(map[string]any{"email": "x@y"}, AuthTypeJWT)
	assert.ErrorContains(t, err, "sub")
}

func TestClaimsExtractor_NestedAndStringRoles(t *testing.T) {
	e := &ClaimsExtractor{RoleClaimPath: "realm_access.roles"}
	c, err := e.Extract(map[string]any{
		"sub":          "u",
		"realm_access": map[string]any{"roles": []any{"a", "b"}},
	}, AuthTypeOIDC)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Roles)

	e.RoleClaimPath = "scope"
	c, err = e.Extract(map[string]any{"sub": "u", "scope": "read write"}, AuthTypeOIDC)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, c.Roles)
}

func TestClaimsExtractor_ObjectIsNotString(t *testing.T) {
	c, err := DefaultClaimsExtractor().Extract(map[string]any{
		"sub":   "u",
		"email": map[string]any{"primary": "x"},
	}, AuthTypeOIDC)
	require.NoError(t, err)
	assert.Empty(t, c.Email)
}

// FuzzClaimsExtraction checks that arbitrary claim shapes never panic.
func FuzzClaimsExtraction(f *testing.F) {
	f.Add("sub", "realm_access.roles")
	f.Add("", "")
	f.Add("x", "a.b.c.d")

	f.Fuzz(func(_ *testing.T, sub, rolePath string) {
		e := &ClaimsExtractor{RoleClaimPath: rolePath, SubjectClaimPath: rolePath}
		_, _ = e.Extract(map[string]any{
			"sub":          sub,
			"realm_access": map[string]any{"roles": "not-an-array"},
			"a":            []any{1, "b"},
		}, AuthTypeJWT)
	})
}
