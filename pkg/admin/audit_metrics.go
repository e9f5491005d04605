package admin

import (
	"net/http"

	"github.com/txn2/analytics-gateway/pkg/audit"
)

const (
	paramStartTime = "start_time"
	paramEndTime   = "end_time"
)

// getAuditTimeseries handles GET /admin/audit/metrics/timeseries.
//
// @Summary      Get audit timeseries
// @Description  Returns audit event counts bucketed by time resolution.
// @Tags         Audit Metrics
// @Produce      json
// @Param        resolution  query  string  false  "Time bucket resolution: minute, hour, day (default: hour)"
// @Param        start_time  query  string  false  "Start time (RFC 3339)"
// @Param        end_time    query  string  false  "End time (RFC 3339)"
// @Success      200  {array}   audit.TimeseriesBucket
// @Router       /admin/audit/metrics/timeseries [get]
func (h *Handler) getAuditTimeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resolution := audit.Resolution(q.Get("resolution"))
	if resolution == "" {
		resolution = audit.ResolutionHour
	}
	if !audit.ValidResolutions[resolution] {
		h.writeError(w, r, http.StatusBadRequest, "invalid resolution: must be minute, hour, or day", nil)
		return
	}

	buckets, err := h.deps.AuditMetrics.Timeseries(r.Context(), audit.TimeseriesFilter{
		Resolution: resolution,
		StartTime:  parseTimeParam(q, paramStartTime),
		EndTime:    parseTimeParam(q, paramEndTime),
	})
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to query timeseries", err)
		return
	}
	if buckets == nil {
		buckets = []audit.TimeseriesBucket{}
	}

	writeJSON(w, r, http.StatusOK, buckets)
}

// getAuditBreakdown handles GET /admin/audit/metrics/breakdown.
//
// @Summary      Get audit breakdown
// @Description  Returns audit event counts grouped by a dimension.
// @Tags         Audit Metrics
// @Produce      json
// @Param        group_by    query  string  true   "Dimension: endpoint, user_id, status"
// @Param        limit       query  integer false  "Max entries (default: 10, max: 100)"
// @Success      200  {array}   audit.BreakdownEntry
// @Router       /admin/audit/metrics/breakdown [get]
func (h *Handler) getAuditBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupBy := audit.BreakdownDimension(q.Get("group_by"))
	if !audit.ValidBreakdownDimensions[groupBy] {
		h.writeError(w, r, http.StatusBadRequest, "invalid group_by: must be endpoint, user_id, or status", nil)
		return
	}

	entries, err := h.deps.AuditMetrics.Breakdown(r.Context(), audit.BreakdownFilter{
		GroupBy:   groupBy,
		Limit:     parseIntParam(q, "limit", 0),
		StartTime: parseTimeParam(q, paramStartTime),
		EndTime:   parseTimeParam(q, paramEndTime),
	})
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to query breakdown", err)
		return
	}
	if entries == nil {
		entries = []audit.BreakdownEntry{}
	}

	writeJSON(w, r, http.StatusOK, entries)
}

// getAuditOverview handles GET /admin/audit/metrics/overview.
//
// @Summary      Get audit overview
// @Description  Returns aggregate audit statistics for the given time range.
// @Tags         Audit Metrics
// @Produce      json
// @Success      200  {object}  audit.Overview
// @Router       /admin/audit/metrics/overview [get]
func (h *Handler) getAuditOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	overview, err := h.deps.AuditMetrics.Overview(
		r.Context(),
		parseTimeParam(q, paramStartTime),
		parseTimeParam(q, paramEndTime),
	)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to query overview", err)
		return
	}

	writeJSON(w, r, http.StatusOK, overview)
}
