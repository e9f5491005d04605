package sqlsafe

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/analytics-gateway/pkg/query"
)

// Builder produces SELECT statements in one of two modes. In bound mode
// filter values travel as '?' arguments; otherwise they are inlined through
// Build. Both modes run the same validation first.
type Builder struct {
	bind bool
}

// NewBuilder creates a builder. bind selects bound-argument mode.
func NewBuilder(bind bool) *Builder {
	return &Builder{bind: bind}
}

// Binds reports whether the builder emits bound arguments.
func (b *Builder) Binds() bool {
	return b.bind
}

// Select builds "SELECT * FROM table" with equality filters and options.
func (b *Builder) Select(table string, filters FilterSpec, opts ...Option) (query.Statement, error) {
	if !b.bind {
		sql, err := Build(table, filters, opts...)
		if err != nil {
			return query.Statement{}, err
		}
		return query.Raw(sql), nil
	}

	spec, err := prepare(table, filters, opts)
	if err != nil {
		return query.Statement{}, err
	}

	qb := sq.Select("*").From(table)
	if len(filters) > 0 {
		eq := make(sq.Eq, len(filters))
		for k, v := range filters {
			if isNull(v) {
				eq[k] = nil
				continue
			}
			eq[k] = v
		}
		qb = qb.Where(eq)
	}
	for _, o := range spec.orderBy {
		qb = qb.OrderBy(o.String())
	}
	if spec.hasLimit {
		qb = qb.Limit(uint64(spec.limit)) //nolint:gosec // positive, checked in prepare
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return query.Statement{}, fmt.Errorf("building select: %w", err)
	}
	return query.Statement{SQL: sql, Args: args}, nil
}
