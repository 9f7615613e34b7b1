package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
)

// Dialect renders the database specific parts of generated SQL
type Dialect interface {
	// Name returns the dialect name used in configuration
	Name() string
	// Placeholder returns the marker of the n-th parameter, starting at 1
	Placeholder(n int) string
	// Quote quotes an identifier
	Quote(ident string) string
	// Returning reports whether INSERT ... RETURNING is supported
	Returning() bool
}

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) Quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}
func (postgresDialect) Returning() bool { return true }

// SQLite accepts the same double quoted identifiers as PostgreSQL
type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) Quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}
func (sqliteDialect) Returning() bool { return false }

var (
	// Postgres numbers parameters ($1, $2, ...)
	Postgres Dialect = postgresDialect{}
	// SQLite uses positional ? parameters
	SQLite Dialect = sqliteDialect{}
)

// DialectByName returns the dialect registered under name
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

// TableName renders the quoted, qualified table name of om
func TableName(d Dialect, om *mapping.ObjectMapper) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{om.Database, om.Owner, om.Table} {
		if p != "" {
			parts = append(parts, d.Quote(p))
		}
	}
	return strings.Join(parts, ".")
}
