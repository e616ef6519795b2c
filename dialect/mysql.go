package dialect

import (
	"github.com/Masterminds/squirrel"

	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
)

// MySQLDialect renders MySQL and MariaDB SQL.
type MySQLDialect struct{}

var mysqlFormats = [...]string{
	Day:    "%Y-%m-%d",
	Minute: "%Y-%m-%d %H:%i",
	Second: "%Y-%m-%d %H:%i:%s",
}

// Name implements Dialect.
func (MySQLDialect) Name() string { return MySQL }

// UpperCase implements Dialect.
func (MySQLDialect) UpperCase(expr string) string {
	return sqldsl.Upper(sqldsl.Raw(expr)).SQL()
}

// Truncate implements Dialect using date_format.
func (MySQLDialect) Truncate(expr string, p Precision) string {
	return sqldsl.Func{
		Name: "date_format",
		Args: []sqldsl.Expr{sqldsl.Raw(expr), sqldsl.Literal(mysqlFormats[p])},
	}.SQL()
}

// Paginate implements Dialect. MySQL binds the offset before the row count.
func (MySQLDialect) Paginate(selectSQL, fromWhereSQL string, page *Page) PaginateSQL {
	out := PaginateSQL{SQL: selectSQL + fromWhereSQL}
	if page != nil {
		out.SQL += " limit ?, ?"
		out.Args = []any{page.Offset, page.Size}
	}
	return out
}

// Bind implements Dialect. MySQL drivers accept "?" as-is.
func (MySQLDialect) Bind(query string) (string, error) {
	return squirrel.Question.ReplacePlaceholders(query)
}
