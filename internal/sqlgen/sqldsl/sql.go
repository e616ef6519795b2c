package sqldsl

import (
	"fmt"
	"strings"
)

// Optf returns formatted string if condition is true, empty string otherwise.
// Useful for optional SQL clauses.
func Optf(cond bool, format string, args ...any) string {
	if !cond {
		return ""
	}
	return fmt.Sprintf(format, args...)
}

// SelectList is the "select [distinct] item, item" head of a query.
type SelectList struct {
	Distinct bool
	Items    []Expr
}

// SQL renders the select list.
func (s SelectList) SQL() string {
	items := "1"
	if len(s.Items) > 0 {
		items = joinExprs(s.Items, ", ")
	}
	return "select " + Optf(s.Distinct, "distinct ") + items
}

// FromWhere is the tail of a query that follows the select list. It renders
// with a leading space so it can be appended directly to a SelectList.
type FromWhere struct {
	Tables  string
	Where   Expr
	GroupBy string
	OrderBy string
}

// SQL renders the from/where/group by/order by tail.
func (f FromWhere) SQL() string {
	var sb strings.Builder
	sb.WriteString(" from ")
	sb.WriteString(f.Tables)
	if f.Where != nil {
		if where := f.Where.SQL(); where != "" {
			sb.WriteString(" where ")
			sb.WriteString(where)
		}
	}
	if f.GroupBy != "" {
		sb.WriteString(" group by ")
		sb.WriteString(f.GroupBy)
	}
	if f.OrderBy != "" {
		sb.WriteString(" order by ")
		sb.WriteString(f.OrderBy)
	}
	return sb.String()
}

// Derived is a parenthesized subquery used as a table source.
//
// Example: Derived{Query: "select ...", Alias: "tbl_"}
// Renders: (select ...) tbl_
type Derived struct {
	Query string
	Alias string
}

// SQL renders the derived table.
func (d Derived) SQL() string {
	return "(" + d.Query + ") " + d.Alias
}
