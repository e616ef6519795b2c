package dialect

import (
	"github.com/Masterminds/squirrel"

	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
)

// PostgresDialect renders PostgreSQL SQL.
type PostgresDialect struct{}

// Shared with Oracle, which uses the same to_char masks.
var toCharFormats = [...]string{
	Day:    "YYYY-MM-DD",
	Minute: "YYYY-MM-DD HH24:MI",
	Second: "YYYY-MM-DD HH24:MI:SS",
}

// Name implements Dialect.
func (PostgresDialect) Name() string { return Postgres }

// UpperCase implements Dialect.
func (PostgresDialect) UpperCase(expr string) string {
	return sqldsl.Upper(sqldsl.Raw(expr)).SQL()
}

// Truncate implements Dialect using to_char.
func (PostgresDialect) Truncate(expr string, p Precision) string {
	return toChar(expr, p)
}

// Paginate implements Dialect.
func (PostgresDialect) Paginate(selectSQL, fromWhereSQL string, page *Page) PaginateSQL {
	return limitOffset(selectSQL, fromWhereSQL, page)
}

// Bind implements Dialect, rewriting "?" to $1, $2, ...
func (PostgresDialect) Bind(query string) (string, error) {
	return squirrel.Dollar.ReplacePlaceholders(query)
}

func toChar(expr string, p Precision) string {
	return sqldsl.Func{
		Name: "to_char",
		Args: []sqldsl.Expr{sqldsl.Raw(expr), sqldsl.Literal(toCharFormats[p])},
	}.SQL()
}

// limitOffset appends "limit ? offset ?" binding size then offset.
func limitOffset(selectSQL, fromWhereSQL string, page *Page) PaginateSQL {
	out := PaginateSQL{SQL: selectSQL + fromWhereSQL}
	if page != nil {
		out.SQL += " limit ? offset ?"
		out.Args = []any{page.Size, page.Offset}
	}
	return out
}
