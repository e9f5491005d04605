package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures HS256 shared-secret tokens.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// JWTAuthenticator validates HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	secret    []byte
	parser    *jwt.Parser
	extractor *ClaimsExtractor
}

// NewJWTAuthenticator creates an HS256 authenticator.
func NewJWTAuthenticator(cfg JWTConfig, extractor *ClaimsExtractor) (*JWTAuthenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	if extractor == nil {
		extractor = DefaultClaimsExtractor()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTAuthenticator{
		secret:    []byte(cfg.Secret),
		parser:    jwt.NewParser(opts...),
		extractor: extractor,
	}, nil
}

// Authenticate verifies the token and extracts the caller.
func (a *JWTAuthenticator) Authenticate(ctx context.Context) (*Caller, error) {
	token := GetToken(ctx)
	if token == "" {
		return nil, ErrNoCredentials
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: token verification failed: %w", err)
	}

	return a.extractor.Extract(claims, AuthTypeJWT)
}

// Verify interface compliance.
var _ Authenticator = (*JWTAuthenticator)(nil)
