package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter tracks a per-key token bucket and when it was last used.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-process token bucket limiter. Buckets refill
// continuously at Requests/Window with a burst of Requests.
type MemoryLimiter struct {
	limit Limit
	every rate.Limit

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(l Limit) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   l,
		every:   rate.Every(l.Window / time.Duration(max(l.Requests, 1))),
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	cl, ok := m.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(m.every, m.limit.Requests)}
		m.clients[key] = cl
	}
	cl.lastSeen = now
	m.mu.Unlock()

	r := cl.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Result{Limit: m.limit.Requests, RetryAfter: m.limit.Window}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{Limit: m.limit.Requests, RetryAfter: delay}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     m.limit.Requests,
		Remaining: int(cl.limiter.TokensAt(now)),
	}, nil
}

// Sweep drops buckets idle for longer than idle and returns how many were
// removed.
func (m *MemoryLimiter) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, cl := range m.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(m.clients, k)
			n++
		}
	}
	return n
}

// Run sweeps idle buckets every interval until ctx is done.
func (m *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep(m.limit.Window)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
