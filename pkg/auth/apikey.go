package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyConfig holds API key configuration.
type APIKeyConfig struct {
	Keys []APIKey `yaml:"keys"`
}

// APIKey represents an API key entry. Exactly one of Key or KeyHash is set;
// KeyHash is a bcrypt hash of the key.
type APIKey struct {
	Key     string   `yaml:"key"`
	KeyHash string   `yaml:"key_hash"`
	Name    string   `yaml:"name"`
	Email   string   `yaml:"email"`
	Subject string   `yaml:"subject"`
	Roles   []string `yaml:"roles"`
}

// APIKeyAuthenticator authenticates using static API keys.
type APIKeyAuthenticator struct {
	plain  []APIKey
	hashed []APIKey
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(cfg APIKeyConfig) (*APIKeyAuthenticator, error) {
	a := &APIKeyAuthenticator{}
	for i, k := range cfg.Keys {
		if k.Name == "" {
			return nil, fmt.Errorf("api key %d: name is required", i)
		}
		switch {
		case k.KeyHash != "" && k.Key != "":
			return nil, fmt.Errorf("api key %q: set key or key_hash, not both", k.Name)
		case k.KeyHash != "":
			if _, err := bcrypt.Cost([]byte(k.KeyHash)); err != nil {
				return nil, fmt.Errorf("api key %q: invalid bcrypt hash: %w", k.Name, err)
			}
			a.hashed = append(a.hashed, k)
		case k.Key != "":
			a.plain = append(a.plain, k)
		default:
			return nil, fmt.Errorf("api key %q: key or key_hash is required", k.Name)
		}
	}
	return a, nil
}

// Authenticate validates the API key and returns the caller.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context) (*Caller, error) {
	token := GetToken(ctx)
	if token == "" {
		return nil, ErrNoCredentials
	}
	// JWTs are handled by the token authenticators.
	if strings.Count(token, ".") == 2 {
		return nil, errors.New("api key: token is a JWT")
	}

	var matched *APIKey
	for i := range a.plain {
		if subtle.ConstantTimeCompare([]byte(a.plain[i].Key), []byte(token)) == 1 {
			matched = &a.plain[i]
		}
	}
	if matched == nil {
		for i := range a.hashed {
			if bcrypt.CompareHashAndPassword([]byte(a.hashed[i].KeyHash), []byte(token)) == nil {
				matched = &a.hashed[i]
				break
			}
		}
	}
	if matched == nil {
		return nil, errors.New("api key: unknown key")
	}

	return &Caller{
		UserID:   "apikey:" + matched.Name,
		Email:    matched.Email,
		Name:     matched.Name,
		Subject:  matched.Subject,
		Roles:    append([]string(nil), matched.Roles...),
		AuthType: AuthTypeAPIKey,
	}, nil
}

// HashAPIKey returns a bcrypt hash suitable for APIKey.KeyHash.
func HashAPIKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing api key: %w", err)
	}
	return string(h), nil
}

// Verify interface compliance.
var _ Authenticator = (*APIKeyAuthenticator)(nil)
