package dialect

import (
	"github.com/Masterminds/squirrel"

	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
)

// OracleDialect renders Oracle SQL. Pagination uses a rownum window so it
// also runs on releases without OFFSET/FETCH.
type OracleDialect struct{}

// Name implements Dialect.
func (OracleDialect) Name() string { return Oracle }

// UpperCase implements Dialect.
func (OracleDialect) UpperCase(expr string) string {
	return sqldsl.Upper(sqldsl.Raw(expr)).SQL()
}

// Truncate implements Dialect using to_char.
func (OracleDialect) Truncate(expr string, p Precision) string {
	return toChar(expr, p)
}

// Paginate implements Dialect. The window binds the upper row bound
// (offset+size) and then the offset.
func (OracleDialect) Paginate(selectSQL, fromWhereSQL string, page *Page) PaginateSQL {
	inner := selectSQL + fromWhereSQL
	if page == nil {
		return PaginateSQL{SQL: inner}
	}
	window := sqldsl.Derived{Query: inner, Alias: "row_"}.SQL()
	return PaginateSQL{
		SQL:  "select * from (select row_.*, rownum rownum_ from " + window + " where rownum <= ?) where rownum_ > ?",
		Args: []any{page.Offset + int64(page.Size), page.Offset},
	}
}

// Bind implements Dialect, rewriting "?" to :1, :2, ...
func (OracleDialect) Bind(query string) (string, error) {
	return squirrel.Colon.ReplacePlaceholders(query)
}
