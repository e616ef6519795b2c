package dialect

import (
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
)

// SQLServerDialect renders Microsoft SQL Server (2012+) SQL.
type SQLServerDialect struct{}

// convert(varchar(N), x, 120) yields "yyyy-mm-dd hh:mi:ss" cut to N chars.
var sqlServerWidths = [...]string{
	Day:    "varchar(10)",
	Minute: "varchar(16)",
	Second: "varchar(19)",
}

// Name implements Dialect.
func (SQLServerDialect) Name() string { return SQLServer }

// UpperCase implements Dialect.
func (SQLServerDialect) UpperCase(expr string) string {
	return sqldsl.Upper(sqldsl.Raw(expr)).SQL()
}

// Truncate implements Dialect using convert with style 120 (ODBC canonical).
func (SQLServerDialect) Truncate(expr string, p Precision) string {
	return sqldsl.Func{
		Name: "convert",
		Args: []sqldsl.Expr{sqldsl.Raw(sqlServerWidths[p]), sqldsl.Raw(expr), sqldsl.Raw("120")},
	}.SQL()
}

// Paginate implements Dialect with OFFSET/FETCH. SQL Server rejects OFFSET
// without ORDER BY, so a neutral ordering is added when none is present.
func (SQLServerDialect) Paginate(selectSQL, fromWhereSQL string, page *Page) PaginateSQL {
	out := PaginateSQL{SQL: selectSQL + fromWhereSQL}
	if page == nil {
		return out
	}
	if !strings.Contains(strings.ToLower(fromWhereSQL), " order by ") {
		out.SQL += " order by (select null)"
	}
	out.SQL += " offset ? rows fetch next ? rows only"
	out.Args = []any{page.Offset, page.Size}
	return out
}

// Bind implements Dialect, rewriting "?" to @p1, @p2, ...
func (SQLServerDialect) Bind(query string) (string, error) {
	return squirrel.AtP.ReplacePlaceholders(query)
}
