package dialect

import (
	"github.com/Masterminds/squirrel"

	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
)

// SQLiteDialect renders SQLite SQL.
type SQLiteDialect struct{}

var strftimeFormats = [...]string{
	Day:    "%Y-%m-%d",
	Minute: "%Y-%m-%d %H:%M",
	Second: "%Y-%m-%d %H:%M:%S",
}

// Name implements Dialect.
func (SQLiteDialect) Name() string { return SQLite }

// UpperCase implements Dialect.
func (SQLiteDialect) UpperCase(expr string) string {
	return sqldsl.Upper(sqldsl.Raw(expr)).SQL()
}

// Truncate implements Dialect using strftime. Note the mask comes first.
func (SQLiteDialect) Truncate(expr string, p Precision) string {
	return sqldsl.Func{
		Name: "strftime",
		Args: []sqldsl.Expr{sqldsl.Literal(strftimeFormats[p]), sqldsl.Raw(expr)},
	}.SQL()
}

// Paginate implements Dialect.
func (SQLiteDialect) Paginate(selectSQL, fromWhereSQL string, page *Page) PaginateSQL {
	return limitOffset(selectSQL, fromWhereSQL, page)
}

// Bind implements Dialect.
func (SQLiteDialect) Bind(query string) (string, error) {
	return squirrel.Question.ReplacePlaceholders(query)
}
