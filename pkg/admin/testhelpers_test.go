package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/txn2/analytics-gateway/pkg/audit"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/policy"
)

// mockAuditStore implements audit.Store for testing.
type mockAuditStore struct {
	events     []audit.Event
	total      int
	queryErr   error
	countErr   error
	lastFilter audit.QueryFilter
	countCalls []audit.QueryFilter
}

func (m *mockAuditStore) Log(context.Context, audit.Event) error { return nil }
func (*mockAuditStore) Close() error                             { return nil }

func (m *mockAuditStore) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	m.lastFilter = f
	return m.events, m.queryErr
}

func (m *mockAuditStore) Count(_ context.Context, f audit.QueryFilter) (int, error) {
	m.countCalls = append(m.countCalls, f)
	return m.total, m.countErr
}

// mockMetrics implements MetricsQuerier for testing.
type mockMetrics struct {
	timeseries      []audit.TimeseriesBucket
	breakdown       []audit.BreakdownEntry
	overview        *audit.Overview
	err             error
	lastTimeseries  audit.TimeseriesFilter
	lastBreakdown   audit.BreakdownFilter
	lastOverviewArg [2]*time.Time
}

func (m *mockMetrics) Timeseries(_ context.Context, f audit.TimeseriesFilter) ([]audit.TimeseriesBucket, error) {
	m.lastTimeseries = f
	return m.timeseries, m.err
}

func (m *mockMetrics) Breakdown(_ context.Context, f audit.BreakdownFilter) ([]audit.BreakdownEntry, error) {
	m.lastBreakdown = f
	return m.breakdown, m.err
}

func (m *mockMetrics) Overview(_ context.Context, start, end *time.Time) (*audit.Overview, error) {
	m.lastOverviewArg = [2]*time.Time{start, end}
	return m.overview, m.err
}

func adminAuthorizer(t *testing.T) *policy.Authorizer {
	t.Helper()
	reg := policy.NewRegistry()
	require.NoError(t, reg.Register(&policy.Policy{
		Name:      "admin",
		Roles:     []string{"admin"},
		Endpoints: policy.Rules{Allow: []string{"*"}},
	}))
	return policy.NewAuthorizer(reg)
}

func adminCaller() *auth.Caller {
	return &auth.Caller{UserID: "admin-1", Roles: []string{"admin"}}
}

func serve(t *testing.T, h *Handler, path string, caller *auth.Caller) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if caller != nil {
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
