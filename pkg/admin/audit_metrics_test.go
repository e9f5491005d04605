package admin

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/analytics-gateway/pkg/audit"
)

func newMetricsHandler(t *testing.T, m *mockMetrics) *Handler {
	t.Helper()
	return NewHandler(Deps{AuditStore: &mockAuditStore{}, AuditMetrics: m, Authorizer: adminAuthorizer(t)})
}

func TestGetAuditTimeseries(t *testing.T) {
	m := &mockMetrics{timeseries: []audit.TimeseriesBucket{{Bucket: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Count: 3}}}
	h := newMetricsHandler(t, m)

	w := serve(t, h, "/audit/metrics/timeseries?resolution=day", adminCaller())

	require.Equal(t, http.StatusOK, w.Code)
	buckets := decode[[]audit.TimeseriesBucket](t, w)
	require.Len(t, buckets, 1)
	assert.Equal(t, 3, buckets[0].Count)
	assert.Equal(t, audit.ResolutionDay, m.lastTimeseries.Resolution)
}

func TestGetAuditTimeseries_DefaultAndInvalid(t *testing.T) {
	m := &mockMetrics{}
	h := newMetricsHandler(t, m)

	w := serve(t, h, "/audit/metrics/timeseries", adminCaller())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, audit.ResolutionHour, m.lastTimeseries.Resolution)
	assert.Equal(t, "[]\n", w.Body.String())

	w = serve(t, h, "/audit/metrics/timeseries?resolution=week", adminCaller())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAuditBreakdown(t *testing.T) {
	m := &mockMetrics{breakdown: []audit.BreakdownEntry{{Dimension: "health", Count: 9, SuccessRate: 1}}}
	h := newMetricsHandler(t, m)

	w := serve(t, h, "/audit/metrics/breakdown?group_by=endpoint&limit=5", adminCaller())

	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]audit.BreakdownEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, "health", entries[0].Dimension)
	assert.Equal(t, audit.BreakdownByEndpoint, m.lastBreakdown.GroupBy)
	assert.Equal(t, 5, m.lastBreakdown.Limit)
}

func TestGetAuditBreakdown_InvalidDimension(t *testing.T) {
	h := newMetricsHandler(t, &mockMetrics{})

	w := serve(t, h, "/audit/metrics/breakdown?group_by=tool_name", adminCaller())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAuditOverview(t *testing.T) {
	m := &mockMetrics{overview: &audit.Overview{TotalCalls: 10, SuccessRate: 0.9, DeniedCount: 1}}
	h := newMetricsHandler(t, m)

	w := serve(t, h, "/audit/metrics/overview?start_time=2026-01-01T00:00:00Z", adminCaller())

	require.Equal(t, http.StatusOK, w.Code)
	o := decode[audit.Overview](t, w)
	assert.Equal(t, 10, o.TotalCalls)
	assert.Equal(t, 1, o.DeniedCount)
	assert.NotNil(t, m.lastOverviewArg[0])
	assert.Nil(t, m.lastOverviewArg[1])
}

func TestAuditMetrics_Errors(t *testing.T) {
	h := newMetricsHandler(t, &mockMetrics{err: errors.New("db down")})

	for _, path := range []string{
		"/audit/metrics/timeseries",
		"/audit/metrics/breakdown?group_by=status",
		"/audit/metrics/overview",
	} {
		w := serve(t, h, path, adminCaller())
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
	}
}

func TestAuditMetrics_NotMountedWithoutQuerier(t *testing.T) {
	h := NewHandler(Deps{AuditStore: &mockAuditStore{}, Authorizer: adminAuthorizer(t)})

	w := serve(t, h, "/audit/metrics/overview", adminCaller())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
