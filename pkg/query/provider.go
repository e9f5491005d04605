package query

import "context"

// Session is a single short-lived conversation with the query engine. A
// session belongs to exactly one request and is never shared.
type Session interface {
	// Connect establishes the underlying connection.
	Connect(ctx context.Context) error

	// Execute runs one statement and returns its rows.
	Execute(ctx context.Context, stmt Statement) ([]Row, error)

	// Disconnect releases the connection. It is idempotent and never fails
	// from the caller's point of view.
	Disconnect()
}

// Factory creates unconnected sessions.
type Factory interface {
	NewSession() Session
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func() Session

// NewSession calls f.
func (f FactoryFunc) NewSession() Session {
	return f()
}

// WithSession acquires a session from f, connects it, and runs fn. The
// session is disconnected exactly once on every exit path, including a
// failed connect and a panic in fn.
func WithSession(ctx context.Context, f Factory, fn func(Session) error) error {
	s := f.NewSession()
	defer s.Disconnect()

	if err := s.Connect(ctx); err != nil {
		return err
	}
	return fn(s)
}
