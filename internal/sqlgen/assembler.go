package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/sqlgen/sqldsl"
	"github.com/pthm/quarry/internal/vparam"
	"github.com/pthm/quarry/meta"
	"github.com/pthm/quarry/param"
)

// Sentinel errors.
var (
	// ErrUnmappedSummaryField is wrapped by UnmappedSummaryFieldError.
	ErrUnmappedSummaryField = errors.New("quarry: summary field has no column mapping")

	// ErrUnknownFilterField is returned when a filter names a field the bean
	// does not declare.
	ErrUnknownFilterField = errors.New("quarry: filter on unknown field")
)

// UnmappedSummaryFieldError reports a requested summary field that the bean
// does not map to a column.
type UnmappedSummaryFieldError struct {
	Bean  string
	Field string
}

func (e *UnmappedSummaryFieldError) Error() string {
	return fmt.Sprintf("%v: bean %q field %q", ErrUnmappedSummaryField, e.Bean, e.Field)
}

func (e *UnmappedSummaryFieldError) Unwrap() error {
	return ErrUnmappedSummaryField
}

// SQLResult is the SQL of one search and the values to bind, in marker order.
type SQLResult struct {
	ListSQL  string
	ListArgs []any

	// ClusterSQL is empty when neither a count nor sums were requested.
	ClusterSQL  string
	ClusterArgs []any

	// CountAlias names the count column of the cluster query, if requested.
	CountAlias string

	// SummaryAliases name the sum columns, parallel to the requested summary fields.
	SummaryAliases []string
	SummaryFields  []string

	// ListAliases name the list columns, parallel to ListFields.
	ListAliases []string
	ListFields  []string

	ShouldQueryList    bool
	ShouldQueryCluster bool
}

// Assembler builds SQLResults for one dialect. It is safe for concurrent use.
type Assembler struct {
	dialect  dialect.Dialect
	compiler *Compiler
	cache    *DescriptorCache
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithCache shares a descriptor cache between assemblers.
func WithCache(c *DescriptorCache) Option {
	return func(a *Assembler) {
		a.cache = c
	}
}

// WithVirtualParamPrefix sets the virtual parameter sentinel. It is ignored
// when WithCache is also given.
func WithVirtualParamPrefix(prefix string) Option {
	return func(a *Assembler) {
		if a.cache == nil {
			a.cache = NewDescriptorCache(vparam.New(prefix))
		}
	}
}

// NewAssembler creates an Assembler for d.
func NewAssembler(d dialect.Dialect, opts ...Option) *Assembler {
	a := &Assembler{
		dialect:  d,
		compiler: NewCompiler(d),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = NewDescriptorCache(nil)
	}
	return a
}

// Dialect returns the assembler's dialect.
func (a *Assembler) Dialect() dialect.Dialect {
	return a.dialect
}

// Cache returns the descriptor cache.
func (a *Assembler) Cache() *DescriptorCache {
	return a.cache
}

// Assemble builds the list and cluster SQL for bean. Nothing is returned on
// error. p is not modified.
func (a *Assembler) Assemble(bean *meta.Bean, p *param.SearchParam) (*SQLResult, error) {
	rb, err := a.cache.get(bean)
	if err != nil {
		return nil, err
	}
	vp := p.VirtualParams

	res := &SQLResult{
		ShouldQueryList:    p.ShouldQueryList,
		ShouldQueryCluster: p.ShouldQueryCluster(),
	}

	// Select list.
	items := make([]sqldsl.Expr, len(rb.fields))
	var fieldArgs []any
	for i := range rb.fields {
		f := &rb.fields[i]
		items[i] = sqldsl.Alias{Expr: sqldsl.Raw(f.expr.SQL), Name: f.alias}
		fieldArgs = append(fieldArgs, vparam.Values(f.expr.Names, vp)...)
		res.ListAliases = append(res.ListAliases, f.alias)
		res.ListFields = append(res.ListFields, f.field.Name)
	}
	selectSQL := sqldsl.SelectList{Distinct: bean.Distinct, Items: items}.SQL()

	// From/where.
	whereArgs := vparam.Values(rb.tables.Names, vp)
	var preds []sqldsl.Expr
	if strings.TrimSpace(rb.joinCond.SQL) != "" {
		preds = append(preds, sqldsl.Paren{Expr: sqldsl.Raw(rb.joinCond.SQL)})
		whereArgs = append(whereArgs, vparam.Values(rb.joinCond.Names, vp)...)
	}
	for _, cond := range p.ActiveFilters() {
		f, ok := rb.field(cond.Field)
		if !ok {
			return nil, fmt.Errorf("%w: bean %q field %q", ErrUnknownFilterField, bean.Name, cond.Field)
		}
		col := Column{SQL: f.expr.SQL, Args: vparam.Values(f.expr.Names, vp), Type: f.field.Type}
		pred, args := a.compiler.Compile(col, cond)
		if pred == nil {
			continue
		}
		preds = append(preds, pred)
		whereArgs = append(whereArgs, args...)
	}
	fromWhere := sqldsl.FromWhere{
		Tables:  rb.tables.SQL,
		Where:   sqldsl.And(preds...),
		GroupBy: strings.TrimSpace(bean.GroupBy),
	}

	if res.ShouldQueryCluster {
		if err := a.cluster(res, rb, p, selectSQL, fromWhere.SQL(), fieldArgs, whereArgs); err != nil {
			return nil, err
		}
	}

	// List query.
	if p.Sort != nil {
		if f, ok := rb.field(p.Sort.Field); ok {
			fromWhere.OrderBy = f.alias + sqldsl.Optf(p.Sort.Order != "", " %s", p.Sort.Order)
		}
	}
	var page *dialect.Page
	if p.Page != nil {
		page = &dialect.Page{Size: p.Page.Max, Offset: p.Page.Offset}
	}
	paginated := a.dialect.Paginate(selectSQL, fromWhere.SQL(), page)
	res.ListSQL = paginated.SQL
	res.ListArgs = concat(fieldArgs, whereArgs, paginated.Args)

	return res, nil
}

// cluster fills the count/sum query. With neither distinct nor group by the
// aggregates read the from/where directly. Otherwise the base query becomes
// a derived table and sums read its select aliases.
func (a *Assembler) cluster(res *SQLResult, rb *resolvedBean, p *param.SearchParam,
	selectSQL, fromWhereSQL string, fieldArgs, whereArgs []any) error {
	bean := rb.bean
	grouped := strings.TrimSpace(bean.GroupBy) != ""
	wrapped := bean.Distinct || grouped

	summaries := make([]*resolvedField, len(p.SummaryFields))
	for i, name := range p.SummaryFields {
		f, ok := rb.field(name)
		if !ok {
			return &UnmappedSummaryFieldError{Bean: bean.Name, Field: name}
		}
		summaries[i] = f
	}

	var inner string
	var innerArgs []any
	switch {
	case !wrapped:
		inner = fromWhereSQL
	case grouped && !bean.Distinct && len(summaries) == 0:
		// Derived tables need named columns on SQL Server.
		rowAlias := GenerateAlias(columnAliasSeed, fromWhereSQL)
		inner = sqldsl.SelectList{Items: []sqldsl.Expr{
			sqldsl.Alias{Expr: sqldsl.Count(), Name: rowAlias},
		}}.SQL() + fromWhereSQL
	default:
		inner = selectSQL + fromWhereSQL
		innerArgs = fieldArgs
	}

	aliases := newAliasGenerator(inner)
	var aggs []sqldsl.Expr
	var sumArgs []any
	if p.ShouldQueryTotal {
		res.CountAlias = aliases.next(countAliasSeed)
		aggs = append(aggs, sqldsl.Alias{Expr: sqldsl.Count(), Name: res.CountAlias})
	}
	for _, f := range summaries {
		alias := aliases.column(f.field.Name)
		target := sqldsl.Raw(f.alias)
		if !wrapped {
			target = sqldsl.Raw(f.expr.SQL)
			sumArgs = append(sumArgs, vparam.Values(f.expr.Names, p.VirtualParams)...)
		}
		aggs = append(aggs, sqldsl.Alias{Expr: sqldsl.Sum(target), Name: alias})
		res.SummaryAliases = append(res.SummaryAliases, alias)
		res.SummaryFields = append(res.SummaryFields, f.field.Name)
	}
	head := sqldsl.SelectList{Items: aggs}.SQL()

	if !wrapped {
		res.ClusterSQL = head + fromWhereSQL
		res.ClusterArgs = concat(sumArgs, whereArgs)
		return nil
	}
	table := sqldsl.Derived{Query: inner, Alias: aliases.next(tableAliasSeed)}
	res.ClusterSQL = head + " from " + table.SQL()
	res.ClusterArgs = concat(innerArgs, whereArgs)
	return nil
}

func concat(parts ...[]any) []any {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]any, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
