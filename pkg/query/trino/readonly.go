package trino

import (
	"errors"
	"fmt"

	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// readKeywords are the statement types a read-only session may send.
var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"DESCRIBE": true,
	"EXPLAIN":  true,
	"VALUES":   true,
}

var (
	errEmptyStatement   = errors.New("empty statement")
	errStackedStatement = errors.New("multiple statements are not allowed")
)

// checkReadOnly rejects anything other than a single read statement.
func checkReadOnly(sql string) error {
	n, err := sqlsafe.StatementCount(sql)
	if err != nil {
		return fmt.Errorf("parsing statement: %w", err)
	}
	switch {
	case n == 0:
		return errEmptyStatement
	case n > 1:
		return errStackedStatement
	}

	kw, err := sqlsafe.FirstKeyword(sql)
	if err != nil {
		return fmt.Errorf("parsing statement: %w", err)
	}
	if !readKeywords[kw] {
		return fmt.Errorf("write operations not allowed in read-only mode: %q", kw)
	}
	return nil
}
