package sqldsl

import (
	"strings"
)

// Expr is the interface that all SQL expression types implement.
type Expr interface {
	SQL() string
}

// Raw is a SQL expression taken verbatim from a bean descriptor.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string {
	return string(r)
}

// Placeholder is a positional bind marker.
type Placeholder struct{}

// SQL renders the marker.
func (Placeholder) SQL() string {
	return "?"
}

// Func represents a SQL function call.
type Func struct {
	Name string
	Args []Expr
}

// SQL renders the function call.
func (f Func) SQL() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		args[i] = arg.SQL()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// Alias attaches a name to a select item. The AS keyword is omitted so the
// same text is accepted by every supported dialect, Oracle included.
type Alias struct {
	Expr Expr
	Name string
}

// SQL renders the aliased expression.
func (a Alias) SQL() string {
	return a.Expr.SQL() + " " + a.Name
}

// Paren wraps an expression in parentheses.
type Paren struct {
	Expr Expr
}

// SQL renders the parenthesized expression.
func (p Paren) SQL() string {
	return "(" + p.Expr.SQL() + ")"
}

// Literal is a quoted string literal. Dialects use it for format masks;
// user values are always bound instead.
type Literal string

// SQL renders the literal with single quotes.
func (l Literal) SQL() string {
	escaped := strings.ReplaceAll(string(l), "'", "''")
	return "'" + escaped + "'"
}

// Count renders count(1).
func Count() Func {
	return Func{Name: "count", Args: []Expr{Raw("1")}}
}

// Sum renders sum(expr).
func Sum(expr Expr) Func {
	return Func{Name: "sum", Args: []Expr{expr}}
}

// Upper renders upper(expr).
func Upper(expr Expr) Func {
	return Func{Name: "upper", Args: []Expr{expr}}
}
