package auth

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by authenticators.
var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator resolves the credential stored in the context to a Caller.
type Authenticator interface {
	Authenticate(ctx context.Context) (*Caller, error)
}

// ChainedAuthenticator tries multiple authenticators in order.
type ChainedAuthenticator struct {
	authenticators []Authenticator
}

// NewChainedAuthenticator creates a new chained authenticator. Nil entries
// are skipped.
func NewChainedAuthenticator(authenticators ...Authenticator) *ChainedAuthenticator {
	c := &ChainedAuthenticator{}
	for _, a := range authenticators {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Len returns the number of configured authenticators.
func (c *ChainedAuthenticator) Len() int {
	return len(c.authenticators)
}

// Authenticate tries each authenticator in order and returns the first
// caller found.
func (c *ChainedAuthenticator) Authenticate(ctx context.Context) (*Caller, error) {
	if GetToken(ctx) == "" {
		return nil, ErrNoCredentials
	}

	var errs []error
	for _, a := range c.authenticators {
		caller, err := a.Authenticate(ctx)
		if err == nil && caller != nil {
			return caller, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, errors.Join(errs...))
	}
	return nil, ErrInvalidCredentials
}

// Verify interface compliance.
var _ Authenticator = (*ChainedAuthenticator)(nil)
