package journal

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name   string
	Driver string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// DDL for the migration bookkeeping table
	migrationsTable string
}

var (
	Postgres = Dialect{
		Name:     "postgres",
		Driver:   "postgres",
		numbered: true,
		migrationsTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	MySQL = Dialect{
		Name:   "mysql",
		Driver: "mysql",
		migrationsTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
)

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns a comma separated list of n bind parameters.
func (d Dialect) Placeholders(n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
