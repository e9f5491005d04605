package sqlsafe

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/txn2/analytics-gateway/pkg/query"
)

// Null is the sentinel filter value rendered as IS NULL. An untyped nil is
// treated the same way.
var Null = nullValue{}

type nullValue struct{}

// FilterSpec maps column names to scalar equality filters.
type FilterSpec map[string]any

// Option adjusts a SELECT built by Build or Builder.Select.
type Option func(*selectSpec)

type orderTerm struct {
	column     string
	descending bool
}

type selectSpec struct {
	limit    int
	hasLimit bool
	orderBy  []orderTerm
}

// WithLimit appends LIMIT n. n must be positive.
func WithLimit(n int) Option {
	return func(s *selectSpec) {
		s.limit = n
		s.hasLimit = true
	}
}

// WithOrderBy appends an ORDER BY term.
func WithOrderBy(column string, descending bool) Option {
	return func(s *selectSpec) {
		s.orderBy = append(s.orderBy, orderTerm{column: column, descending: descending})
	}
}

// Build renders "SELECT * FROM table [WHERE ...] [ORDER BY ...] [LIMIT n]"
// with every filter value inlined as an escaped literal. Nothing is returned
// unless the whole statement validates.
func Build(table string, filters FilterSpec, opts ...Option) (string, error) {
	spec, err := prepare(table, filters, opts)
	if err != nil {
		return "", err
	}

	where, err := BuildWhere(filters)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(table)
	if where != "" {
		b.WriteByte(' ')
		b.WriteString(where)
	}
	b.WriteString(spec.orderClause())
	if spec.hasLimit {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(spec.limit))
	}
	return b.String(), nil
}

// BuildWhere renders the WHERE clause for filters, or "" when filters is
// empty. Keys are rendered in sorted order.
func BuildWhere(filters FilterSpec) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}

	keys := sortedKeys(filters)
	terms := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, err := Validate(k, ColumnName); err != nil {
			return "", err
		}
		term, err := renderTerm(k, filters[k])
		if err != nil {
			return "", err
		}
		terms = append(terms, term)
	}
	return "WHERE " + strings.Join(terms, " AND "), nil
}

// QuoteString renders s as a single-quoted SQL literal with embedded quotes
// doubled.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func prepare(table string, filters FilterSpec, opts []Option) (*selectSpec, error) {
	if _, err := Validate(table, TableName); err != nil {
		return nil, err
	}

	spec := &selectSpec{}
	for _, opt := range opts {
		opt(spec)
	}
	if spec.hasLimit && spec.limit <= 0 {
		return nil, &query.ValidationError{Field: "limit", Reason: "must be a positive integer"}
	}
	for _, o := range spec.orderBy {
		if _, err := Validate(o.column, ColumnName); err != nil {
			return nil, err
		}
	}
	for k, v := range filters {
		if _, err := Validate(k, ColumnName); err != nil {
			return nil, err
		}
		if _, err := renderValue(k, v); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

func (s *selectSpec) orderClause() string {
	if len(s.orderBy) == 0 {
		return ""
	}
	terms := make([]string, len(s.orderBy))
	for i, o := range s.orderBy {
		terms[i] = o.String()
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (o orderTerm) String() string {
	if o.descending {
		return o.column + " DESC"
	}
	return o.column + " ASC"
}

func renderTerm(column string, v any) (string, error) {
	if isNull(v) {
		return column + " IS NULL", nil
	}
	lit, err := renderValue(column, v)
	if err != nil {
		return "", err
	}
	return column + " = " + lit, nil
}

// renderValue returns the literal form of v. Null values render as NULL.
func renderValue(column string, v any) (string, error) {
	switch val := v.(type) {
	case nil, nullValue:
		return "NULL", nil
	case string:
		return QuoteString(val), nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return formatFloat(column, float64(val), 32)
	case float64:
		return formatFloat(column, val, 64)
	default:
		return "", &query.ValidationError{
			Field:  "filter " + column,
			Reason: fmt.Sprintf("unsupported value type %T", v),
		}
	}
}

func formatFloat(column string, f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", &query.ValidationError{Field: "filter " + column, Reason: "non-finite number"}
	}
	return strconv.FormatFloat(f, 'g', -1, bits), nil
}

func isNull(v any) bool {
	switch v.(type) {
	case nil, nullValue:
		return true
	}
	return false
}

func sortedKeys(filters FilterSpec) []string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
