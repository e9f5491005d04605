package policy

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages policy definitions.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

// NewRegistry creates a new policy registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]*Policy)}
}

// Register adds a policy to the registry, replacing any with the same name.
func (r *Registry) Register(p *Policy) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if len(p.Roles) == 0 {
		return fmt.Errorf("policy %q: at least one role is required", p.Name)
	}
	for _, pattern := range append(append([]string{}, p.Endpoints.Allow...), p.Endpoints.Deny...) {
		if !validPattern(pattern) {
			return fmt.Errorf("policy %q: invalid endpoint pattern %q", p.Name, pattern)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Name] = p
	return nil
}

// Get retrieves a policy by name.
func (r *Registry) Get(name string) (*Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[name]
	return p, ok
}

// Len returns the number of registered policies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.policies)
}

// ForRoles returns the policies covering any of roles, highest priority
// first and by name within a priority.
func (r *Registry) ForRoles(roles []string) []*Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Policy
	for _, p := range r.policies {
		if p.AppliesTo(roles) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
