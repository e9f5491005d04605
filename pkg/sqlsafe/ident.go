// Package sqlsafe validates caller-supplied identifiers and builds read-only
// SELECT statements that are safe to send to the query engine.
package sqlsafe

import (
	"regexp"

	"github.com/txn2/analytics-gateway/pkg/query"
)

// Pattern is a named whitelist for identifier-like input.
type Pattern struct {
	name    string
	allowed string
	re      *regexp.Regexp
}

// NewPattern compiles a whitelist. allowed is a human-readable description
// of the accepted characters used in error messages.
func NewPattern(name, allowed, expr string) Pattern {
	return Pattern{name: name, allowed: allowed, re: regexp.MustCompile(expr)}
}

// Name returns the field name reported in validation errors.
func (p Pattern) Name() string { return p.name }

// Match reports whether s is accepted by the pattern.
func (p Pattern) Match(s string) bool {
	return s != "" && p.re.MatchString(s)
}

var (
	// RecordID accepts internal record identifiers.
	RecordID = NewPattern("record id", "letters, digits, '-' and '_'", `^[A-Za-z0-9\-_]+$`)

	// SubjectID accepts externally sourced subject identifiers, which may be
	// email-like.
	SubjectID = NewPattern("subject identifier", "letters, digits, '-', '_', '@' and '.'", `^[A-Za-z0-9\-_@.]+$`)

	// ColumnName accepts bare column names.
	ColumnName = NewPattern("column", "letters, digits and '_'", `^[A-Za-z0-9_]+$`)

	// TableName accepts optionally qualified table names.
	TableName = NewPattern("table", "letters, digits, '_' and '.'", `^[A-Za-z0-9_.]+$`)
)

// Validate returns id unchanged when it matches p, and a
// *query.ValidationError otherwise. The rejected value is never echoed in
// the error.
func Validate(id string, p Pattern) (string, error) {
	if id == "" {
		return "", &query.ValidationError{Field: p.name, Reason: "must not be empty"}
	}
	if !p.re.MatchString(id) {
		return "", &query.ValidationError{Field: p.name, Reason: "may only contain " + p.allowed}
	}
	return id, nil
}
