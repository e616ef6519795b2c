// Package dialect provides the database-specific SQL fragments quarry needs:
// case folding, date truncation, pagination and placeholder rebinding.
//
// # Supported Dialects
//
//   - MySQL:     limit ?, ? (offset, size)
//   - Postgres:  limit ? offset ? (size, offset), $N placeholders
//   - SQLite:    limit ? offset ? (size, offset)
//   - SQLServer: offset ? rows fetch next ? rows only (offset, size)
//   - Oracle:    rownum window (offset+size, offset), :N placeholders
//
// Every implementation is a stateless value and safe for concurrent use.
// Generated SQL always uses "?" markers; Bind rewrites them for drivers that
// expect a different placeholder syntax.
package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect names.
const (
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
)

// ErrUnknownDialect is returned by Get for a name with no registered dialect.
var ErrUnknownDialect = errors.New("quarry: unknown dialect")

// Precision selects how much of a temporal value is kept by Truncate.
type Precision int

const (
	// Day keeps YYYY-MM-DD.
	Day Precision = iota
	// Minute keeps YYYY-MM-DD HH:MM.
	Minute
	// Second keeps YYYY-MM-DD HH:MM:SS.
	Second
)

// Page bounds the rows returned by a list query. A nil *Page means no limit.
type Page struct {
	Size   int
	Offset int64
}

// PaginateSQL is the final list SQL plus the values bound by the pagination
// clause. Args always follow every predicate value.
type PaginateSQL struct {
	SQL  string
	Args []any
}

// Dialect produces dialect-specific SQL fragments.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string

	// UpperCase folds expr to upper case.
	UpperCase(expr string) string

	// Truncate renders expr as a string with the given precision so it can
	// be compared against a literal of the same shape.
	Truncate(expr string, p Precision) string

	// Paginate joins the select list and from/where tail and applies page.
	// A nil page returns every row and binds no values.
	Paginate(selectSQL, fromWhereSQL string, page *Page) PaginateSQL

	// Bind rewrites "?" markers into the driver's placeholder syntax.
	Bind(query string) (string, error)
}

var registry = map[string]Dialect{
	MySQL:        MySQLDialect{},
	"mariadb":    MySQLDialect{},
	Postgres:     PostgresDialect{},
	"postgresql": PostgresDialect{},
	"pgx":        PostgresDialect{},
	SQLite:       SQLiteDialect{},
	"sqlite3":    SQLiteDialect{},
	SQLServer:    SQLServerDialect{},
	"mssql":      SQLServerDialect{},
	Oracle:       OracleDialect{},
}

// Get returns the dialect registered under name (case-insensitive).
// Driver names such as "pgx", "sqlite3" and "mssql" are accepted as aliases.
func Get(name string) (Dialect, error) {
	d, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// Names returns the canonical dialect names.
func Names() []string {
	return []string{MySQL, Postgres, SQLite, SQLServer, Oracle}
}
