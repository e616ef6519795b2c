package sqldsl

import (
	"strings"
)

// Comparison operators accepted by Cmp.
const (
	OpEq   = "="
	OpNe   = "!="
	OpGt   = ">"
	OpGte  = ">="
	OpLt   = "<"
	OpLte  = "<="
	OpLike = "like"
)

// Cmp represents a binary comparison (left op right).
type Cmp struct {
	Left  Expr
	Op    string
	Right Expr
}

func (c Cmp) SQL() string { return c.Left.SQL() + " " + c.Op + " " + c.Right.SQL() }

// Bind compares expr against a positional marker with the given operator.
func Bind(expr Expr, op string) Cmp {
	return Cmp{Left: expr, Op: op, Right: Placeholder{}}
}

// Between represents "expr between ? and ?".
type Between struct {
	Expr Expr
}

func (b Between) SQL() string { return b.Expr.SQL() + " between ? and ?" }

// IsNull represents IS NULL check.
type IsNull struct {
	Expr Expr
}

func (i IsNull) SQL() string { return i.Expr.SQL() + " is null" }

// IsNotNull represents IS NOT NULL check.
type IsNotNull struct {
	Expr Expr
}

func (i IsNotNull) SQL() string { return i.Expr.SQL() + " is not null" }

// filterNilExprs removes nil expressions from the slice.
func filterNilExprs(exprs []Expr) []Expr {
	filtered := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// joinExprs renders expressions joined by a separator. Callers that need
// grouping wrap the result in Paren.
func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.SQL()
	}
	return strings.Join(parts, sep)
}

// AndExpr represents a logical AND of multiple expressions.
type AndExpr struct {
	Exprs []Expr
}

func (a AndExpr) SQL() string { return joinExprs(a.Exprs, " and ") }

// And creates an AND expression from multiple expressions.
func And(exprs ...Expr) AndExpr {
	return AndExpr{Exprs: filterNilExprs(exprs)}
}

// OrExpr represents a logical OR of multiple expressions.
type OrExpr struct {
	Exprs []Expr
}

func (o OrExpr) SQL() string { return joinExprs(o.Exprs, " or ") }

// Or creates an OR expression from multiple expressions.
func Or(exprs ...Expr) OrExpr {
	return OrExpr{Exprs: filterNilExprs(exprs)}
}
