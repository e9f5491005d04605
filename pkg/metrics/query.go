package metrics

import (
	"context"
	"time"

	"github.com/txn2/analytics-gateway/pkg/query"
)

// InstrumentFactory wraps f so every session reports connect and statement
// outcomes.
func (m *Metrics) InstrumentFactory(f query.Factory) query.Factory {
	return query.FactoryFunc(func() query.Session {
		return &instrumentedSession{next: f.NewSession(), m: m}
	})
}

type instrumentedSession struct {
	next query.Session
	m    *Metrics
}

func (s *instrumentedSession) Connect(ctx context.Context) error {
	err := s.next.Connect(ctx)
	s.m.sessions.WithLabelValues(outcome(err)).Inc()
	return err
}

func (s *instrumentedSession) Execute(ctx context.Context, stmt query.Statement) ([]query.Row, error) {
	start := time.Now()
	rows, err := s.next.Execute(ctx, stmt)
	s.m.statementDuration.Observe(time.Since(start).Seconds())
	s.m.statements.WithLabelValues(outcome(err)).Inc()
	return rows, err
}

func (s *instrumentedSession) Disconnect() {
	s.next.Disconnect()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case query.IsConnection(err):
		return "connection_error"
	case query.IsValidation(err):
		return "rejected"
	default:
		return "error"
	}
}
