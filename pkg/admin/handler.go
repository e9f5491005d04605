// Package admin provides REST API endpoints for reviewing the audit trail.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/txn2/analytics-gateway/pkg/api"
	"github.com/txn2/analytics-gateway/pkg/audit"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/middleware"
	"github.com/txn2/analytics-gateway/pkg/policy"
)

const pathParamID = "id"

// MetricsQuerier aggregates audit events.
type MetricsQuerier interface {
	Timeseries(ctx context.Context, filter audit.TimeseriesFilter) ([]audit.TimeseriesBucket, error)
	Breakdown(ctx context.Context, filter audit.BreakdownFilter) ([]audit.BreakdownEntry, error)
	Overview(ctx context.Context, startTime, endTime *time.Time) (*audit.Overview, error)
}

// Deps holds dependencies for the admin handler.
type Deps struct {
	AuditStore   audit.Store
	AuditMetrics MetricsQuerier
	Authorizer   *policy.Authorizer
	Logger       *slog.Logger

	// Audit records admin calls. Nil disables recording.
	Audit audit.Logger

	// OnAuditFailure is called when an audit event cannot be written.
	OnAuditFailure func()
}

// Handler provides admin REST API endpoints.
type Handler struct {
	deps Deps
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	if deps.Authorizer == nil {
		deps.Authorizer = policy.NewAuthorizer(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "admin")
	return &Handler{deps: deps}
}

// Routes returns the admin router. Authentication must run before it.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.recordCall)
	r.Use(h.requireAdmin)

	r.Get("/audit/events", h.listAuditEvents)
	r.Get("/audit/events/{id}", h.getAuditEvent)
	if h.deps.AuditMetrics != nil {
		r.Get("/audit/metrics/timeseries", h.getAuditTimeseries)
		r.Get("/audit/metrics/breakdown", h.getAuditBreakdown)
		r.Get("/audit/metrics/overview", h.getAuditOverview)
	}
	return r
}

// requireAdmin enforces the admin.audit policy and the presence of an
// audit store.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := auth.CallerFromContext(r.Context())
		if d := h.deps.Authorizer.Authorize(caller, policy.EndpointAdminAudit); !d.Allowed {
			uid := ""
			if caller != nil {
				uid = caller.UserID
			}
			h.deps.Logger.Warn("admin access denied", "user_id", uid, "reason", d.Reason)
			api.WriteError(w, r, http.StatusForbidden, "Access denied")
			return
		}
		if h.deps.AuditStore == nil {
			api.WriteError(w, r, http.StatusServiceUnavailable, "Audit store is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recordCall writes one audit event per admin call, denied calls included.
func (h *Handler) recordCall(next http.Handler) http.Handler {
	if h.deps.Audit == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		errMsg := ""
		if status >= http.StatusBadRequest {
			errMsg = "admin: " + http.StatusText(status)
		}

		params := make(map[string]any)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		e := audit.NewEvent(policy.EndpointAdminAudit).
			WithRequestID(middleware.RequestIDFromContext(r.Context())).
			WithRequest(r.Method, r.URL.Path, r.RemoteAddr).
			WithParameters(params).
			WithResult(status, errMsg, time.Since(start).Milliseconds())
		if c := auth.CallerFromContext(r.Context()); c != nil {
			e.WithUser(c.UserID, c.Email)
		}

		if err := h.deps.Audit.Log(context.WithoutCancel(r.Context()), *e); err != nil {
			h.deps.Logger.Error("failed to write audit event", "error", err, "endpoint", e.Endpoint, "audit_id", e.ID)
			if h.deps.OnAuditFailure != nil {
				h.deps.OnAuditFailure()
			}
		}
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// writeError logs err and writes a generic error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if err != nil {
		h.deps.Logger.Error(msg, "error", err)
	}
	api.WriteError(w, r, status, msg)
}
