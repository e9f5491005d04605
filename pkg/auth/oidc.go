package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCConfig configures OIDC authentication.
type OIDCConfig struct {
	// Issuer is the OIDC issuer URL used for discovery.
	Issuer string

	// Audience is the expected audience (client ID). Empty skips the check.
	Audience string

	// JWKSURL skips discovery and loads keys from this URL directly.
	JWKSURL string
}

// OIDCAuthenticator authenticates using OIDC-issued JWTs verified against
// the issuer's JWKS.
type OIDCAuthenticator struct {
	verifier  *oidc.IDTokenVerifier
	extractor *ClaimsExtractor
}

// NewOIDCAuthenticator discovers the issuer (or uses JWKSURL) and returns
// an authenticator. Discovery performs network requests.
func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig, extractor *ClaimsExtractor) (*OIDCAuthenticator, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("OIDC issuer is required")
	}

	oc := &oidc.Config{ClientID: cfg.Audience, SkipClientIDCheck: cfg.Audience == ""}

	if cfg.JWKSURL != "" {
		keySet := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
		return NewOIDCAuthenticatorWithKeySet(cfg.Issuer, keySet, oc, extractor), nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	return &OIDCAuthenticator{
		verifier:  provider.Verifier(oc),
		extractor: defaultExtractor(extractor),
	}, nil
}

// NewOIDCAuthenticatorWithKeySet builds an authenticator from an explicit
// key set.
func NewOIDCAuthenticatorWithKeySet(issuer string, keySet oidc.KeySet, cfg *oidc.Config, extractor *ClaimsExtractor) *OIDCAuthenticator {
	return &OIDCAuthenticator{
		verifier:  oidc.NewVerifier(issuer, keySet, cfg),
		extractor: defaultExtractor(extractor),
	}
}

// Authenticate verifies the token and extracts the caller.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context) (*Caller, error) {
	token := GetToken(ctx)
	if token == "" {
		return nil, ErrNoCredentials
	}

	idToken, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("oidc: token verification failed: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc: parse claims: %w", err)
	}

	return a.extractor.Extract(claims, AuthTypeOIDC)
}

func defaultExtractor(e *ClaimsExtractor) *ClaimsExtractor {
	if e == nil {
		return DefaultClaimsExtractor()
	}
	return e
}

// Verify interface compliance.
var _ Authenticator = (*OIDCAuthenticator)(nil)
