package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/txn2/analytics-gateway/pkg/audit"
)

// auditEventResponse wraps a paginated list of audit events.
type auditEventResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Data    []audit.Event `json:"data"`
}

type auditEventDetail struct {
	Success bool        `json:"success"`
	Data    audit.Event `json:"data"`
}

// listAuditEvents handles GET /admin/audit/events.
//
// @Summary      List audit events
// @Description  Returns audit events, newest first, with optional filtering.
// @Tags         Audit
// @Produce      json
// @Param        user_id     query  string  false  "Filter by user ID"
// @Param        endpoint    query  string  false  "Filter by endpoint name"
// @Param        success     query  boolean false  "Filter by success/failure"
// @Param        start_time  query  string  false  "Events after this time (RFC 3339)"
// @Param        end_time    query  string  false  "Events before this time (RFC 3339)"
// @Param        limit       query  integer false  "Results per page (default: 50, max: 1000)"
// @Param        offset      query  integer false  "Results to skip"
// @Success      200  {object}  auditEventResponse
// @Router       /admin/audit/events [get]
func (h *Handler) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		UserID:    q.Get("user_id"),
		Endpoint:  q.Get("endpoint"),
		Success:   parseBoolParam(q, "success"),
		StartTime: parseTimeParam(q, "start_time"),
		EndTime:   parseTimeParam(q, "end_time"),
		Limit:     parseLimit(q),
		Offset:    parseOffset(q),
	}

	events, err := h.deps.AuditStore.Query(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to query audit events", err)
		return
	}

	// Count without limit/offset for total
	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := h.deps.AuditStore.Count(r.Context(), countFilter)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to count audit events", err)
		return
	}

	if events == nil {
		events = []audit.Event{}
	}

	writeJSON(w, r, http.StatusOK, auditEventResponse{
		Success: true,
		Count:   len(events),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		Data:    events,
	})
}

// getAuditEvent handles GET /admin/audit/events/{id}.
//
// @Summary      Get audit event
// @Description  Returns a single audit event by ID.
// @Tags         Audit
// @Produce      json
// @Param        id  path  string  true  "Audit event ID"
// @Success      200  {object}  auditEventDetail
// @Router       /admin/audit/events/{id} [get]
func (h *Handler) getAuditEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, pathParamID)
	events, err := h.deps.AuditStore.Query(r.Context(), audit.QueryFilter{ID: id, Limit: 1})
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to query audit event", err)
		return
	}
	if len(events) == 0 {
		h.writeError(w, r, http.StatusNotFound, "audit event not found", nil)
		return
	}
	writeJSON(w, r, http.StatusOK, auditEventDetail{Success: true, Data: events[0]})
}
