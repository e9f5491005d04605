// Package policy decides which endpoints an authenticated caller may use.
package policy

import "strings"

// Endpoint names checked by the authorizer.
const (
	EndpointPermissionsList = "permissions.list"
	EndpointPermissionsGet  = "permissions.get"
	EndpointHealth          = "health"
	EndpointProfileGet      = "profile.get"
	EndpointMeGet           = "me.get"
	EndpointAdminAudit      = "admin.audit"
)

// adminPrefix marks endpoints that are never open by default.
const adminPrefix = "admin."

// Policy grants a set of roles access to endpoints.
type Policy struct {
	// Name is the unique identifier for this policy.
	Name string `json:"name" yaml:"name"`

	// Roles are the caller roles this policy applies to. "*" matches any
	// authenticated caller.
	Roles []string `json:"roles" yaml:"roles"`

	// Endpoints defines endpoint access rules.
	Endpoints Rules `json:"endpoints" yaml:"endpoints"`

	// Priority orders policies in decisions; higher wins ties in reporting.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Rules defines endpoint access rules for a policy.
type Rules struct {
	// Allow patterns for allowed endpoints (supports wildcards like "permissions.*").
	Allow []string `json:"allow" yaml:"allow"`

	// Deny patterns for denied endpoints (takes precedence over Allow).
	Deny []string `json:"deny" yaml:"deny"`
}

// AppliesTo reports whether the policy covers any of the given roles.
func (p *Policy) AppliesTo(roles []string) bool {
	for _, pr := range p.Roles {
		if pr == "*" {
			return true
		}
		for _, r := range roles {
			if pr == r {
				return true
			}
		}
	}
	return false
}

// IsAdminEndpoint reports whether the endpoint belongs to the admin surface.
func IsAdminEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, adminPrefix)
}
