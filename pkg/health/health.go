// Package health provides readiness state tracking and the /healthz and
// /readyz handlers.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/render"
)

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

const defaultProbeTimeout = 2 * time.Second

// Probe checks one dependency required for readiness.
type Probe func(ctx context.Context) error

// Checker tracks the readiness state of the gateway and the dependencies it
// needs to serve. It is safe for concurrent use.
type Checker struct {
	state atomic.Int32

	mu      sync.RWMutex
	probes  map[string]Probe
	timeout time.Duration
}

// NewChecker creates a Checker in the Starting state.
func NewChecker() *Checker {
	return &Checker{probes: make(map[string]Probe), timeout: defaultProbeTimeout}
}

// AddProbe registers a dependency probe run by the readiness handler.
func (c *Checker) AddProbe(name string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and every probe passes, and 503 otherwise. Probes are skipped while
// starting or draining.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: c.State()}
		if !c.IsReady() {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, resp)
			return
		}

		checks, ok := c.runProbes(r.Context())
		resp.Checks = checks
		if !ok {
			resp.Status = "degraded"
			render.Status(r, http.StatusServiceUnavailable)
		} else {
			render.Status(r, http.StatusOK)
		}
		render.JSON(w, r, resp)
	}
}

// runProbes runs every probe in name order with the probe timeout.
func (c *Checker) runProbes(ctx context.Context) (map[string]string, bool) {
	c.mu.RLock()
	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	probes := make(map[string]Probe, len(c.probes))
	for k, v := range c.probes {
		probes[k] = v
	}
	c.mu.RUnlock()

	if len(names) == 0 {
		return nil, true
	}
	sort.Strings(names)

	ok := true
	results := make(map[string]string, len(names))
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := probes[name](pctx)
		cancel()
		if err != nil {
			results[name] = "error"
			ok = false
			continue
		}
		results[name] = "ok"
	}
	return results, ok
}
