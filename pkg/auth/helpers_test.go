package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testRoleAdmin   = "admin"
	testRoleAnalyst = "analyst"
	testSecret      = "test-secret-at-least-32-bytes-long!!"
	testIssuer      = "https://issuer.example.com"
)

// mockAuthenticator is a mock for testing.
type mockAuthenticator struct {
	caller *Caller
	err    error
	calls  int
}

func (m *mockAuthenticator) Authenticate(_ context.Context) (*Caller, error) {
	m.calls++
	return m.caller, m.err
}

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      "user-123",
		"oidc_sub": "jane.doe@example.com",
		"email":    "jane.doe@example.com",
		"name":     "Jane Doe",
		"roles":    []any{"analyst", "viewer"},
		"iss":      testIssuer,
		"aud":      "gateway",
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
}
