// Package trino implements query sessions against a Trino cluster through
// the trino database/sql driver.
package trino

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	trinodrv "github.com/trinodb/trino-go-client/trino"

	"github.com/txn2/analytics-gateway/pkg/query"
)

// driverName is registered by the trino-go-client import in config.go.
const driverName = "trino"

// pingStatement is sent on Connect. The driver does not dial until the first
// statement, so a ping through database/sql never reaches the engine.
const pingStatement = "SELECT 1"

// Opener opens a database handle. It matches sql.Open.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Session is a single-request connection to the engine. It holds one pool
// and one pinned connection.
type Session struct {
	cfg    Config
	logger *slog.Logger
	open   Opener

	db   *sql.DB
	conn *sql.Conn
}

// Connect opens the pool, pins a connection and runs a round-trip
// statement on it.
func (s *Session) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	dsn, err := s.cfg.DSN()
	if err != nil {
		return &query.ConnectionError{Op: "configure", Err: err}
	}

	db, err := s.open(driverName, dsn)
	if err != nil {
		return &query.ConnectionError{Op: "open", Err: err}
	}
	s.db = db

	conn, err := db.Conn(ctx)
	if err != nil {
		return &query.ConnectionError{Op: "acquire", Err: err}
	}
	s.conn = conn

	if err := s.ping(ctx); err != nil {
		return &query.ConnectionError{Op: "ping", Err: err}
	}

	s.logger.Debug("trino session connected", "target", s.cfg.Redacted())
	return nil
}

// Execute runs one read-only statement and maps every result row.
func (s *Session) Execute(ctx context.Context, stmt query.Statement) ([]query.Row, error) {
	if s.conn == nil {
		return nil, &query.ConnectionError{Op: "execute", Err: query.ErrNotConnected}
	}
	if err := checkReadOnly(stmt.SQL); err != nil {
		return nil, &query.QueryError{Statement: stmt.SQL, Err: err}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	s.logger.Info("executing statement", "sql", stmt.SQL, "args", len(stmt.Args))
	start := time.Now()

	rows, err := s.conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		if isTransportError(err) {
			return nil, &query.ConnectionError{Op: "execute", Err: err}
		}
		return nil, &query.QueryError{Statement: stmt.SQL, Err: err}
	}
	defer func() { _ = rows.Close() }()

	result, err := scanRows(rows)
	if err != nil {
		return nil, &query.QueryError{Statement: stmt.SQL, Err: err}
	}

	s.logger.Info("statement complete",
		"rows", len(result),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// Disconnect releases the pinned connection and the pool. Close failures
// are logged.
func (s *Session) Disconnect() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			s.logger.Warn("closing trino connection", "error", err)
		}
		s.conn = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing trino pool", "error", err)
		}
		s.db = nil
	}
}

func (s *Session) ping(ctx context.Context) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	rows, err := s.conn.QueryContext(ctx, pingStatement)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by caller
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() { //nolint:revive // drained
	}
	return rows.Err() //nolint:wrapcheck // wrapped by caller
}

// isTransportError reports whether err means the engine could not be
// reached or refused the credentials, rather than rejecting the statement.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var qf *trinodrv.ErrQueryFailed
	if errors.As(err, &qf) {
		switch qf.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}
	return false
}

// scanRows reads column names from the result metadata and converts every
// row. Byte slices are returned as strings.
func scanRows(rows *sql.Rows) ([]query.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}

	result := []query.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, query.NewRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return result, nil
}

// Verify interface compliance.
var _ query.Session = (*Session)(nil)
