package policy

import (
	"path/filepath"

	"github.com/txn2/analytics-gateway/pkg/auth"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	// Policy is the name of the deciding policy, empty when none matched.
	Policy string
	Reason string
}

// Authorizer checks callers against registered policies.
type Authorizer struct {
	registry *Registry
}

// NewAuthorizer creates an authorizer. A nil registry behaves as empty.
func NewAuthorizer(registry *Registry) *Authorizer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Authorizer{registry: registry}
}

// Authorize decides whether caller may use endpoint.
//
// With no policies registered every authenticated caller may use every
// non-admin endpoint. Otherwise a deny in any applicable policy wins, then
// any allow, and everything else is denied.
func (a *Authorizer) Authorize(caller *auth.Caller, endpoint string) Decision {
	if caller == nil {
		return Decision{Reason: "no authenticated caller"}
	}

	if a.registry.Len() == 0 {
		if IsAdminEndpoint(endpoint) {
			return Decision{Reason: "admin endpoints require a policy"}
		}
		return Decision{Allowed: true}
	}

	policies := a.registry.ForRoles(caller.Roles)
	if len(policies) == 0 {
		return Decision{Reason: "no policy for caller roles"}
	}

	for _, p := range policies {
		if matchAny(p.Endpoints.Deny, endpoint) {
			return Decision{Policy: p.Name, Reason: "endpoint denied by policy: " + p.Name}
		}
	}
	for _, p := range policies {
		if matchAny(p.Endpoints.Allow, endpoint) {
			return Decision{Allowed: true, Policy: p.Name}
		}
	}
	return Decision{Policy: policies[0].Name, Reason: "endpoint not allowed by any policy"}
}

func matchAny(patterns []string, endpoint string) bool {
	for _, pattern := range patterns {
		if matchPattern(pattern, endpoint) {
			return true
		}
	}
	return false
}

// matchPattern checks if an endpoint name matches a glob pattern.
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		return false
	}
	return matched
}

func validPattern(pattern string) bool {
	_, err := filepath.Match(pattern, "")
	return pattern != "" && err == nil
}
