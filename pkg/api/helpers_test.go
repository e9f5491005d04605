package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/txn2/analytics-gateway/pkg/audit"
	"github.com/txn2/analytics-gateway/pkg/auth"
	"github.com/txn2/analytics-gateway/pkg/policy"
	"github.com/txn2/analytics-gateway/pkg/query"
)

const (
	testUserID  = "user-1"
	testSubject = "jane.doe@example.com"
)

// result is one scripted Execute outcome.
type result struct {
	rows []query.Row
	err  error
}

// fakeSession replays scripted results and counts lifecycle calls.
type fakeSession struct {
	f *fakeFactory
}

func (s *fakeSession) Connect(context.Context) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.connects++
	return s.f.connectErr
}

func (s *fakeSession) Execute(_ context.Context, stmt query.Statement) ([]query.Row, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.statements = append(s.f.statements, stmt)
	if s.f.panicOnExecute {
		panic("engine driver panic")
	}
	if len(s.f.results) == 0 {
		return []query.Row{}, nil
	}
	r := s.f.results[0]
	s.f.results = s.f.results[1:]
	return r.rows, r.err
}

func (s *fakeSession) Disconnect() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.disconnects++
}

type fakeFactory struct {
	mu             sync.Mutex
	results        []result
	connectErr     error
	panicOnExecute bool

	connects    int
	disconnects int
	statements  []query.Statement
}

func (f *fakeFactory) NewSession() query.Session {
	return &fakeSession{f: f}
}

// recordingAudit captures audit events.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (a *recordingAudit) Log(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return a.err
}

func (*recordingAudit) Close() error { return nil }

func (a *recordingAudit) last(t *testing.T) audit.Event {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(t, a.events)
	return a.events[len(a.events)-1]
}

func row(kv ...any) query.Row {
	cols := make([]string, 0, len(kv)/2)
	vals := make([]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		cols = append(cols, kv[i].(string))
		vals = append(vals, kv[i+1])
	}
	return query.NewRow(cols, vals)
}

var errEngine = &query.QueryError{
	Statement: "SELECT * FROM hive.bronze.compass_team_permission",
	Err:       errors.New("TABLE_NOT_FOUND: line 1:15: Table 'hive.bronze.secret_table' does not exist"),
}

type testEnv struct {
	factory *fakeFactory
	audit   *recordingAudit
	router  http.Handler
}

func newTestEnv(t *testing.T, results ...result) *testEnv {
	t.Helper()
	return newTestEnvWithPolicies(t, nil, results...)
}

func newTestEnvWithPolicies(t *testing.T, reg *policy.Registry, results ...result) *testEnv {
	t.Helper()
	f := &fakeFactory{results: results}
	a := &recordingAudit{}
	h := NewHandler(Deps{
		Factory:    f,
		Authorizer: policy.NewAuthorizer(reg),
		Audit:      a,
	})
	r := chi.NewRouter()
	r.Mount("/", h.Routes())
	return &testEnv{factory: f, audit: a, router: r}
}

func (e *testEnv) do(t *testing.T, path string, caller *auth.Caller) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if caller != nil {
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func defaultCaller() *auth.Caller {
	return &auth.Caller{UserID: testUserID, Email: "jane@example.com", Subject: testSubject}
}
