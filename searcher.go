package quarry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/executor"
	"github.com/pthm/quarry/internal/sqlgen"
	"github.com/pthm/quarry/meta"
	"github.com/pthm/quarry/param"
)

// Result is the outcome of a search.
type Result struct {
	Rows []Row `json:"rows"`

	// Total is the number of matching rows. Only set when the search
	// queried it.
	Total int64 `json:"total"`

	// Summaries holds one sum per requested summary field, in request
	// order. NULL sums are 0.
	Summaries []float64 `json:"summaries,omitempty"`

	// Max and Offset echo the page that was applied. Max is 0 without a limit.
	Max    int   `json:"max"`
	Offset int64 `json:"offset"`

	// TotalPage is ceil(Total/Max) when both are known, otherwise 1.
	TotalPage int64 `json:"total_page"`

	// Page is StartPage + Offset/Max when both Max and Total are known,
	// otherwise StartPage.
	Page int64 `json:"page"`
}

// Searcher runs searches over the beans of a Provider.
// It is safe for concurrent use.
type Searcher struct {
	provider  meta.Provider
	assembler *sqlgen.Assembler
	resolver  *param.Resolver
	executor  *executor.Executor
	logger    *zap.Logger
}

type options struct {
	dialect     dialect.Dialect
	prefix      string
	paramConfig param.Config
	cache       *sqlgen.DescriptorCache
	logger      *zap.Logger
}

// Option configures a Searcher.
type Option func(*options)

// WithDialect sets the SQL dialect. The default is MySQL.
func WithDialect(d dialect.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithVirtualParamPrefix sets the sentinel that introduces a virtual
// parameter in descriptor snippets. The default is ":".
func WithVirtualParamPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithParamConfig sets the request keys and paging limits.
func WithParamConfig(cfg param.Config) Option {
	return func(o *options) {
		o.paramConfig = cfg
	}
}

// WithDescriptorCache shares rewritten descriptors between searchers, for
// example one per dialect over the same provider.
func WithDescriptorCache(c *sqlgen.DescriptorCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithLogger sets the logger. Generated SQL is logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewSearcher creates a Searcher. db may be nil when only Build is used.
func NewSearcher(db Querier, provider meta.Provider, opts ...Option) *Searcher {
	o := options{
		dialect:     dialect.MySQLDialect{},
		paramConfig: param.DefaultConfig(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	asmOpts := []sqlgen.Option{sqlgen.WithVirtualParamPrefix(o.prefix)}
	if o.cache != nil {
		asmOpts = []sqlgen.Option{sqlgen.WithCache(o.cache)}
	}

	s := &Searcher{
		provider:  provider,
		assembler: sqlgen.NewAssembler(o.dialect, asmOpts...),
		resolver:  param.NewResolver(o.paramConfig),
		logger:    o.logger,
	}
	if db != nil {
		s.executor = executor.New(db, o.dialect, executor.WithLogger(o.logger))
	}
	return s
}

// Dialect returns the searcher's dialect.
func (s *Searcher) Dialect() dialect.Dialect {
	return s.assembler.Dialect()
}

// Prepare checks bean's descriptor and rewrites its virtual parameters so
// that descriptor errors surface before the first search.
func (s *Searcher) Prepare(bean string) error {
	b, err := s.provider.Bean(bean)
	if err != nil {
		return err
	}
	if err := param.ValidateBean(b); err != nil {
		return err
	}
	return s.assembler.Cache().Warm(b)
}

// Search returns one page of rows, the total count and the requested sums.
func (s *Searcher) Search(ctx context.Context, bean string, raw map[string]any, summaryFields ...string) (*Result, error) {
	return s.search(ctx, bean, raw, param.Fetch{Total: true, List: true, Summaries: summaryFields})
}

// SearchFirst returns the first matching row, or nil.
func (s *Searcher) SearchFirst(ctx context.Context, bean string, raw map[string]any) (Row, error) {
	res, err := s.search(ctx, bean, raw, param.Fetch{List: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

// SearchList returns one page of rows without counting.
func (s *Searcher) SearchList(ctx context.Context, bean string, raw map[string]any) ([]Row, error) {
	res, err := s.search(ctx, bean, raw, param.Fetch{List: true})
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// SearchAll returns every matching row, ignoring paging parameters.
func (s *Searcher) SearchAll(ctx context.Context, bean string, raw map[string]any) ([]Row, error) {
	res, err := s.search(ctx, bean, raw, param.Fetch{List: true, All: true})
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// SearchCount returns the number of matching rows.
func (s *Searcher) SearchCount(ctx context.Context, bean string, raw map[string]any) (int64, error) {
	res, err := s.search(ctx, bean, raw, param.Fetch{Total: true, All: true})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// SearchSum returns the sum of each field over the matching rows.
func (s *Searcher) SearchSum(ctx context.Context, bean string, raw map[string]any, fields ...string) ([]float64, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("bean %q: %w", bean, ErrNoSummaryFields)
	}
	res, err := s.search(ctx, bean, raw, param.Fetch{All: true, Summaries: fields})
	if err != nil {
		return nil, err
	}
	return res.Summaries, nil
}

// Build resolves the request and returns the SQL a search with fetch would
// run, without executing it.
func (s *Searcher) Build(bean string, raw map[string]any, fetch param.Fetch) (*SQLResult, error) {
	_, sqlRes, err := s.build(bean, raw, fetch)
	return sqlRes, err
}

func (s *Searcher) build(bean string, raw map[string]any, fetch param.Fetch) (*param.SearchParam, *SQLResult, error) {
	b, err := s.provider.Bean(bean)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.resolver.Resolve(b, fetch, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("bean %q: %w", bean, err)
	}
	sqlRes, err := s.assembler.Assemble(b, p)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("assembled search",
		zap.String("bean", bean),
		zap.Strings("params", param.Keys(raw)),
		zap.String("list_sql", sqlRes.ListSQL),
		zap.Int("list_args", len(sqlRes.ListArgs)),
		zap.String("cluster_sql", sqlRes.ClusterSQL),
		zap.Int("cluster_args", len(sqlRes.ClusterArgs)),
	)
	return p, sqlRes, nil
}

func (s *Searcher) search(ctx context.Context, bean string, raw map[string]any, fetch param.Fetch) (*Result, error) {
	if s.executor == nil {
		return nil, ErrNoDatabase
	}
	p, sqlRes, err := s.build(bean, raw, fetch)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := s.executor.Execute(ctx, sqlRes)
	if err != nil {
		s.logger.Warn("search failed", zap.String("bean", bean), zap.Error(err))
		return nil, fmt.Errorf("bean %q: %w", bean, err)
	}
	s.logger.Debug("search done",
		zap.String("bean", bean),
		zap.Int("rows", len(out.Rows)),
		zap.Duration("elapsed", time.Since(start)),
	)

	res := &Result{
		Rows:      out.Rows,
		Total:     out.Total,
		Summaries: out.Summaries,
	}
	s.paginate(res, p)
	return res, nil
}

// paginate fills the page fields of res.
func (s *Searcher) paginate(res *Result, p *param.SearchParam) {
	startPage := int64(s.resolver.Config().StartPage)
	if p.Page != nil {
		res.Max = p.Page.Max
		res.Offset = p.Page.Offset
	}
	if res.Max > 0 && p.ShouldQueryTotal {
		max := int64(res.Max)
		res.TotalPage = (res.Total + max - 1) / max
		res.Page = startPage + res.Offset/max
		return
	}
	res.TotalPage = 1
	res.Page = startPage
}
