package database

import (
	"strings"
)

// QueryBuilder rewrites ? placeholders into the dialect's own form, so
// store queries are written once.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts a query with ? placeholders.
//
//	input:    "UPDATE mine_info SET year = ? WHERE level = ?"
//	SQLite:   unchanged
//	Postgres: "UPDATE mine_info SET year = $1 WHERE level = $2"
func (qb *QueryBuilder) Build(query string) string {
	if qb.dialect.Placeholder(1) == "?" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(qb.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
