// Package api serves the read-only analytics endpoints. Every call is
// authorized against endpoint policies, runs on its own engine session and
// is audited.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/txn2/analytics-gateway/pkg/audit"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/middleware"
	"github.com/txn2/analytics-gateway/pkg/policy"
	"github.com/txn2/analytics-gateway/pkg/query"
	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// Deps holds the collaborators of a Handler.
type Deps struct {
	Factory    query.Factory
	Builder    *sqlsafe.Builder
	Tables     Tables
	Authorizer *policy.Authorizer
	Audit      audit.Logger
	Logger     *slog.Logger

	// OnAuditFailure is called when an audit event cannot be written.
	OnAuditFailure func()
}

// Handler serves the analytics endpoints.
type Handler struct {
	factory        query.Factory
	builder        *sqlsafe.Builder
	tables         Tables
	authorizer     *policy.Authorizer
	audit          audit.Logger
	logger         *slog.Logger
	onAuditFailure func()
}

// NewHandler creates a handler. Builder defaults to bound mode, Tables to
// DefaultTables, and a nil Audit discards events.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		factory:        d.Factory,
		builder:        d.Builder,
		tables:         d.Tables.WithDefaults(),
		authorizer:     d.Authorizer,
		audit:          d.Audit,
		logger:         d.Logger,
		onAuditFailure: d.OnAuditFailure,
	}
	if h.builder == nil {
		h.builder = sqlsafe.NewBuilder(true)
	}
	if h.authorizer == nil {
		h.authorizer = policy.NewAuthorizer(nil)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "api")
	return h
}

// Routes returns the endpoint router. Authentication must run before it.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/permissions", h.endpoint(policy.EndpointPermissionsList, h.listPermissions))
	r.Get("/permissions/{id}", h.endpoint(policy.EndpointPermissionsGet, h.getPermission))
	r.Get("/health", h.endpoint(policy.EndpointHealth, h.health))
	r.Get("/profile/{subject}", h.endpoint(policy.EndpointProfileGet, h.getProfile))
	r.Get("/me/trino-data", h.endpoint(policy.EndpointMeGet, h.getMe))
	return r
}

// call carries per-request state through an endpoint.
type call struct {
	r      *http.Request
	caller *auth.Caller
	params map[string]any
}

// response is what an endpoint produced. reason is recorded in the audit
// trail and never sent to the client.
type response struct {
	status int
	body   any
	reason string
}

func ok(body any) response {
	return response{status: http.StatusOK, body: body}
}

func fail(status int, msg string) response {
	return response{status: status, body: Envelope{Error: msg}, reason: msg}
}

type endpointFunc func(ctx context.Context, c *call) response

// endpoint wraps fn with authorization, response writing and auditing.
func (h *Handler) endpoint(name string, fn endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		c := &call{r: r, caller: auth.CallerFromContext(ctx), params: map[string]any{}}

		var resp response
		if d := h.authorizer.Authorize(c.caller, name); !d.Allowed {
			h.logger.Warn("endpoint denied",
				"endpoint", name,
				"user_id", userID(c.caller),
				"policy", d.Policy,
				"reason", d.Reason)
			resp = fail(http.StatusForbidden, "Access denied")
			resp.reason = d.Reason
		} else {
			resp = fn(ctx, c)
		}

		render.Status(r, resp.status)
		render.JSON(w, r, resp.body)

		h.record(ctx, name, c, resp, time.Since(start))
	}
}

// record writes the audit event. Failures are logged and never change the
// response.
func (h *Handler) record(ctx context.Context, name string, c *call, resp response, elapsed time.Duration) {
	if h.audit == nil {
		return
	}

	e := audit.NewEvent(name).
		WithRequestID(middleware.RequestIDFromContext(ctx)).
		WithRequest(c.r.Method, c.r.URL.Path, c.r.RemoteAddr).
		WithParameters(c.params).
		WithResult(resp.status, resp.reason, elapsed.Milliseconds())
	if c.caller != nil {
		e.WithUser(c.caller.UserID, c.caller.Email)
	}

	if err := h.audit.Log(context.WithoutCancel(ctx), *e); err != nil {
		h.logger.Error("failed to write audit event", "error", err, "endpoint", name, "audit_id", e.ID)
		if h.onAuditFailure != nil {
			h.onAuditFailure()
		}
	}
}

// internalError logs err with context and returns a generic failure. The
// engine's error text never reaches the client.
func (h *Handler) internalError(ctx context.Context, c *call, err error, op string, status int, msg string) response {
	h.logger.ErrorContext(ctx, "endpoint failed",
		"op", op,
		"error", err,
		"user_id", userID(c.caller),
		"request_id", middleware.RequestIDFromContext(ctx))
	resp := fail(status, msg)
	resp.reason = op + ": " + errorKind(err)
	return resp
}

func errorKind(err error) string {
	switch {
	case query.IsConnection(err):
		return "connection error"
	case query.IsQuery(err):
		return "query error"
	case query.IsValidation(err):
		return "validation error"
	default:
		return "internal error"
	}
}

func userID(c *auth.Caller) string {
	if c == nil {
		return ""
	}
	return c.UserID
}
