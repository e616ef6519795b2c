// Package executor runs assembled search SQL over database/sql and maps the
// result columns back to logical field names.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/sqlgen"
)

// Querier is the subset of *sql.DB, *sql.Tx and *sql.Conn the executor needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is one list row keyed by logical field name.
type Row map[string]any

// Result is what the database returned for one SQLResult.
type Result struct {
	Rows  []Row
	Total int64

	// Summaries holds one sum per requested summary field, in request order.
	// NULL sums are 0.
	Summaries []float64
}

// Executor runs SQLResults. It is safe for concurrent use when its Querier is.
type Executor struct {
	db      Querier
	dialect dialect.Dialect
	logger  *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for query tracing.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor that rebinds placeholders for d.
func New(db Querier, d dialect.Dialect, opts ...Option) *Executor {
	e := &Executor{db: db, dialect: d, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the list query when res asks for rows and the cluster query
// when it asks for a count or sums.
func (e *Executor) Execute(ctx context.Context, res *sqlgen.SQLResult) (*Result, error) {
	out := &Result{}
	if res.ShouldQueryList {
		rows, err := e.list(ctx, res)
		if err != nil {
			return nil, err
		}
		out.Rows = rows
	}
	if res.ShouldQueryCluster && res.ClusterSQL != "" {
		if err := e.cluster(ctx, res, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Executor) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	bound, err := e.dialect.Bind(query)
	if err != nil {
		return nil, fmt.Errorf("binding placeholders: %w", err)
	}
	e.logger.Debug("query", zap.String("sql", bound), zap.Int("args", len(args)))
	return e.db.QueryContext(ctx, bound, args...)
}

func (e *Executor) list(ctx context.Context, res *sqlgen.SQLResult) ([]Row, error) {
	rows, err := e.query(ctx, res.ListSQL, res.ListArgs)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	fields := make([]string, len(cols))
	for i, c := range cols {
		fields[i] = fieldFor(c, res.ListAliases, res.ListFields)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if fields[i] == "" {
				continue
			}
			row[fields[i]] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return out, nil
}

func (e *Executor) cluster(ctx context.Context, res *sqlgen.SQLResult, out *Result) error {
	rows, err := e.query(ctx, res.ClusterSQL, res.ClusterArgs)
	if err != nil {
		return fmt.Errorf("cluster query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("cluster columns: %w", err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning cluster row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cluster rows: %w", err)
	}

	byName := make(map[string]any, len(cols))
	for i, c := range cols {
		byName[strings.ToLower(c)] = values[i]
	}

	if res.CountAlias != "" {
		n, err := toFloat(byName[strings.ToLower(res.CountAlias)])
		if err != nil {
			return fmt.Errorf("count column %s: %w", res.CountAlias, err)
		}
		out.Total = int64(n)
	}
	out.Summaries = make([]float64, len(res.SummaryAliases))
	for i, alias := range res.SummaryAliases {
		v, err := toFloat(byName[strings.ToLower(alias)])
		if err != nil {
			return fmt.Errorf("summary column %s: %w", alias, err)
		}
		out.Summaries[i] = v
	}
	return nil
}

// fieldFor maps a result column to its logical field. Drivers may change the
// case of unquoted aliases, so the match ignores case. Columns added by
// pagination wrappers (Oracle's rownum_) map to "" and are dropped.
func fieldFor(column string, aliases, fields []string) string {
	for i, a := range aliases {
		if strings.EqualFold(a, column) {
			return fields[i]
		}
	}
	return ""
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case []byte:
		return parseFloat(string(t))
	case string:
		return parseFloat(t)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
