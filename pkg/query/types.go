// Package query provides abstractions for read-only query execution against
// an analytics engine.
//
//nolint:revive // package contains related DTO types
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TableIdentifier uniquely identifies a table in the query engine.
type TableIdentifier struct {
	Catalog string `json:"catalog,omitempty" yaml:"catalog"`
	Schema  string `json:"schema" yaml:"schema"`
	Table   string `json:"table" yaml:"table"`
}

// String returns a dot-separated representation.
func (t TableIdentifier) String() string {
	if t.Catalog != "" {
		return t.Catalog + "." + t.Schema + "." + t.Table
	}
	return t.Schema + "." + t.Table
}

// ParseTableIdentifier parses "schema.table" or "catalog.schema.table".
func ParseTableIdentifier(name string) (TableIdentifier, error) {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 2:
		return TableIdentifier{Schema: parts[0], Table: parts[1]}, nil
	case 3:
		return TableIdentifier{Catalog: parts[0], Schema: parts[1], Table: parts[2]}, nil
	default:
		return TableIdentifier{}, fmt.Errorf("invalid table name %q: want schema.table or catalog.schema.table", name)
	}
}

// Statement is a single SQL statement with optional bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Raw wraps SQL text that carries no arguments.
func Raw(sql string) Statement {
	return Statement{SQL: sql}
}

// Row is an ordered mapping from column name to value. Column order follows
// the result set metadata of the query that produced it.
type Row struct {
	columns []string
	values  map[string]any
}

// NewRow builds a row from parallel column and value slices. A repeated
// column name keeps its first position and its last value.
func NewRow(columns []string, values []any) Row {
	r := Row{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]any, len(columns)),
	}
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if _, seen := r.values[col]; !seen {
			r.columns = append(r.columns, col)
		}
		r.values[col] = v
	}
	return r
}

// Get returns the value for col, or nil when the column is absent.
func (r Row) Get(col string) any {
	return r.values[col]
}

// Lookup returns the value for col and whether the column exists.
func (r Row) Lookup(col string) (any, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Text returns the value for col formatted as a string, or "" when the
// column is absent or NULL.
func (r Row) Text(col string) string {
	v, ok := r.values[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// Map returns an unordered copy of the row.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, fmt.Errorf("encoding column name %q: %w", col, err)
		}
		val, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, fmt.Errorf("encoding column %q: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
