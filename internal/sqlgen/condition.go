package sqlgen

import (
	"regexp"
	"strings"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
	"github.com/pthm/quarry/meta"
	"github.com/pthm/quarry/param"
)

// Temporal literal shapes. A value on a temporal field that matches one of
// these compares against the column truncated to the same precision.
var (
	dayPattern    = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	minutePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}$`)
	secondPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}$`)
)

// nullToken in a MultiValue condition matches NULL instead of a value.
const nullToken = "NULL"

var comparisonOps = map[param.Operator]string{
	param.Equal:        sqldsl.OpEq,
	param.NotEqual:     sqldsl.OpNe,
	param.GreaterThan:  sqldsl.OpGt,
	param.GreaterEqual: sqldsl.OpGte,
	param.LessThan:     sqldsl.OpLt,
	param.LessEqual:    sqldsl.OpLte,
}

// Column is the physical side of a filter: a rewritten column expression,
// the values of the virtual parameters it embeds, and its declared type.
type Column struct {
	SQL  string
	Args []any
	Type meta.FieldType
}

// Compiler turns filter conditions into predicates.
type Compiler struct {
	dialect dialect.Dialect
}

// NewCompiler creates a Compiler for d.
func NewCompiler(d dialect.Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Compile renders one condition on col. It returns the predicate and the
// values its markers bind, in marker order: every occurrence of the column
// binds col.Args before the compared value. A nil predicate means the
// condition contributes nothing (for example Between with both bounds
// blank). cond is not modified.
func (c *Compiler) Compile(col Column, cond param.FilterCondition) (sqldsl.Expr, []any) {
	op := cond.Operator
	values := cond.Values
	first := cond.FirstValue()
	target := sqldsl.Expr(sqldsl.Raw(col.SQL))

	switch {
	case cond.IgnoreCase:
		values = upperAll(values)
		first = strings.ToUpper(first)
		if op != param.MultiValue {
			target = sqldsl.Raw(c.dialect.UpperCase(col.SQL))
		}
	case col.Type.IsTemporal() && op != param.MultiValue:
		target = c.truncated(col.SQL, first)
	}

	bind := func(vals ...any) []any {
		return concat(col.Args, vals)
	}

	switch op {
	case param.Include:
		return sqldsl.Bind(target, sqldsl.OpLike), bind("%" + first + "%")
	case param.StartWith:
		return sqldsl.Bind(target, sqldsl.OpLike), bind(first + "%")
	case param.EndWith:
		return sqldsl.Bind(target, sqldsl.OpLike), bind("%" + first)
	case param.Empty:
		return sqldsl.IsNull{Expr: target}, bind()
	case param.NotEmpty:
		return sqldsl.IsNotNull{Expr: target}, bind()
	case param.Between:
		pred, args := between(target, values)
		if pred == nil {
			return nil, nil
		}
		return pred, bind(args...)
	case param.MultiValue:
		return c.multiValue(col, values, cond.IgnoreCase)
	}

	if sqlOp, ok := comparisonOps[op]; ok {
		return sqldsl.Bind(target, sqlOp), bind(first)
	}
	return nil, nil
}

func between(target sqldsl.Expr, values []string) (sqldsl.Expr, []any) {
	var lower, upper string
	if len(values) > 0 {
		lower = strings.TrimSpace(values[0])
	}
	if len(values) > 1 {
		upper = strings.TrimSpace(values[1])
	}

	switch {
	case lower != "" && upper != "":
		return sqldsl.Between{Expr: target}, []any{lower, upper}
	case lower != "":
		return sqldsl.Bind(target, sqldsl.OpGte), []any{lower}
	case upper != "":
		return sqldsl.Bind(target, sqldsl.OpLte), []any{upper}
	}
	return nil, nil
}

// multiValue renders (b1 or b2 ...). Case folding and truncation apply per
// branch since each value may have its own shape.
func (c *Compiler) multiValue(col Column, values []string, ignoreCase bool) (sqldsl.Expr, []any) {
	if len(values) == 0 {
		return nil, nil
	}

	branches := make([]sqldsl.Expr, 0, len(values))
	var args []any
	for _, v := range values {
		args = append(args, col.Args...)
		if strings.EqualFold(strings.TrimSpace(v), nullToken) {
			branches = append(branches, sqldsl.IsNull{Expr: sqldsl.Raw(col.SQL)})
			continue
		}

		target := sqldsl.Expr(sqldsl.Raw(col.SQL))
		switch {
		case ignoreCase:
			target = sqldsl.Raw(c.dialect.UpperCase(col.SQL))
		case col.Type.IsTemporal():
			target = c.truncated(col.SQL, v)
		}
		branches = append(branches, sqldsl.Bind(target, sqldsl.OpEq))
		args = append(args, v)
	}
	return sqldsl.Paren{Expr: sqldsl.Or(branches...)}, args
}

// truncated wraps column to the precision of value, or leaves it alone when
// value has no temporal shape.
func (c *Compiler) truncated(column, value string) sqldsl.Expr {
	switch {
	case dayPattern.MatchString(value):
		return sqldsl.Raw(c.dialect.Truncate(column, dialect.Day))
	case minutePattern.MatchString(value):
		return sqldsl.Raw(c.dialect.Truncate(column, dialect.Minute))
	case secondPattern.MatchString(value):
		return sqldsl.Raw(c.dialect.Truncate(column, dialect.Second))
	}
	return sqldsl.Raw(column)
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
