package param

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pthm/quarry/meta"
)

// Config names the request keys understood by Resolver and its paging limits.
type Config struct {
	DefaultMax int `mapstructure:"default_max" json:"default_max"`
	MaxAllowed int `mapstructure:"max_allowed" json:"max_allowed"`
	StartPage  int `mapstructure:"start_page" json:"start_page"`

	MaxParam    string `mapstructure:"max_param" json:"max_param"`
	OffsetParam string `mapstructure:"offset_param" json:"offset_param"`
	PageParam   string `mapstructure:"page_param" json:"page_param"`
	SortParam   string `mapstructure:"sort_param" json:"sort_param"`
	OrderParam  string `mapstructure:"order_param" json:"order_param"`

	OperatorSuffix   string `mapstructure:"operator_suffix" json:"operator_suffix"`
	IgnoreCaseSuffix string `mapstructure:"ignore_case_suffix" json:"ignore_case_suffix"`
	Separator        string `mapstructure:"separator" json:"separator"`
}

// DefaultConfig returns the default request keys and limits.
func DefaultConfig() Config {
	return Config{
		DefaultMax:       15,
		MaxAllowed:       100,
		StartPage:        0,
		MaxParam:         "max",
		OffsetParam:      "offset",
		PageParam:        "page",
		SortParam:        "sort",
		OrderParam:       "order",
		OperatorSuffix:   "op",
		IgnoreCaseSuffix: "ic",
		Separator:        "-",
	}
}

// withDefaults fills zero-valued fields from DefaultConfig. StartPage keeps
// its value since zero is meaningful.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultMax <= 0 {
		c.DefaultMax = d.DefaultMax
	}
	if c.MaxAllowed <= 0 {
		c.MaxAllowed = d.MaxAllowed
	}
	setDefault(&c.MaxParam, d.MaxParam)
	setDefault(&c.OffsetParam, d.OffsetParam)
	setDefault(&c.PageParam, d.PageParam)
	setDefault(&c.SortParam, d.SortParam)
	setDefault(&c.OrderParam, d.OrderParam)
	setDefault(&c.OperatorSuffix, d.OperatorSuffix)
	setDefault(&c.IgnoreCaseSuffix, d.IgnoreCaseSuffix)
	setDefault(&c.Separator, d.Separator)
	return c
}

func setDefault(s *string, def string) {
	if *s == "" {
		*s = def
	}
}

// Fetch selects what a search returns.
type Fetch struct {
	Total bool
	List  bool

	// All removes the page limit.
	All bool

	// Limit, when positive, replaces the requested page size. It is not
	// capped by MaxAllowed.
	Limit int

	Summaries []string
}

// Resolver turns a raw request map into a SearchParam for one bean.
//
// For a conditional field f it reads:
//
//	f          value (also the first indexed value when f-0 is absent)
//	f-0, f-1   indexed values, e.g. the bounds of Between
//	f-op       operator name or code, default Equal
//	f-ic       ignore case flag
//
// Resolver is immutable and safe for concurrent use.
type Resolver struct {
	cfg Config
}

// NewResolver creates a Resolver. Zero-valued config fields take their defaults.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Resolve builds the search parameters. raw is not modified.
func (r *Resolver) Resolve(bean *meta.Bean, fetch Fetch, raw map[string]any) (*SearchParam, error) {
	p := &SearchParam{
		ShouldQueryTotal: fetch.Total,
		ShouldQueryList:  fetch.List,
		SummaryFields:    append([]string(nil), fetch.Summaries...),
		VirtualParams:    make(map[string]any, len(raw)),
	}
	for k, v := range raw {
		p.VirtualParams[k] = scalar(v)
	}

	for i := range bean.Fields {
		f := &bean.Fields[i]
		if !f.IsConditional() {
			continue
		}
		cond, ok, err := r.filter(f, raw)
		if err != nil {
			return nil, err
		}
		if ok {
			p.Filters = append(p.Filters, cond)
		}
	}

	sortSpec, err := r.sort(bean, raw)
	if err != nil {
		return nil, err
	}
	p.Sort = sortSpec

	if !fetch.All {
		page, err := r.page(fetch.Limit, raw)
		if err != nil {
			return nil, err
		}
		p.Page = page
	}
	return p, nil
}

func (r *Resolver) key(field, suffix string) string {
	return field + r.cfg.Separator + suffix
}

func (r *Resolver) filter(f *meta.Field, raw map[string]any) (FilterCondition, bool, error) {
	values := r.values(f.Name, raw)
	opRaw, hasOp := raw[r.key(f.Name, r.cfg.OperatorSuffix)]
	if len(values) == 0 && !hasOp {
		return FilterCondition{}, false, nil
	}

	op := Equal
	if hasOp {
		if s := stringValue(opRaw); !isBlank(s) {
			parsed, err := ParseOperator(s)
			if err != nil {
				return FilterCondition{}, false, fmt.Errorf("field %q: %w", f.Name, err)
			}
			op = parsed
		}
	}
	if len(f.OnlyOn) > 0 {
		allowed, err := allows(f.OnlyOn, op)
		if err != nil {
			return FilterCondition{}, false, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if !allowed {
			return FilterCondition{}, false, nil
		}
	}

	switch op {
	case Between:
		values = pad(values, 2)[:2]
	case MultiValue:
		values = nonBlank(values)
	}

	cond := FilterCondition{
		Field:      f.Name,
		Operator:   op,
		Values:     values,
		IgnoreCase: truthy(raw[r.key(f.Name, r.cfg.IgnoreCaseSuffix)]),
	}
	return cond, cond.Active(), nil
}

// values collects f and f-<n> entries. Indexed positions that are missing
// become blank so Between keeps its lower/upper slots. An index can never
// exceed the number of request entries, so larger ones are ignored.
func (r *Resolver) values(field string, raw map[string]any) []string {
	indexed := map[int]string{}
	maxIndex := -1
	prefix := field + r.cfg.Separator
	for k, v := range raw {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		n, err := strconv.Atoi(k[len(prefix):])
		if err != nil || n < 0 || n >= len(raw) {
			continue
		}
		indexed[n] = stringValue(v)
		if n > maxIndex {
			maxIndex = n
		}
	}

	if plain, ok := raw[field]; ok {
		if maxIndex < 0 {
			return stringValues(plain)
		}
		if _, has := indexed[0]; !has {
			indexed[0] = stringValue(plain)
		}
	}
	if maxIndex < 0 {
		return nil
	}

	out := make([]string, maxIndex+1)
	for n, v := range indexed {
		out[n] = v
	}
	return out
}

func (r *Resolver) sort(bean *meta.Bean, raw map[string]any) (*SortSpec, error) {
	field := stringValue(raw[r.cfg.SortParam])
	if isBlank(field) {
		return nil, nil
	}
	if _, ok := bean.Field(field); !ok {
		return nil, nil
	}

	order := Asc
	if s := strings.TrimSpace(stringValue(raw[r.cfg.OrderParam])); s != "" {
		switch strings.ToLower(s) {
		case string(Asc):
		case string(Desc):
			order = Desc
		default:
			return nil, fmt.Errorf("%w: %s must be asc or desc, got %q", ErrInvalidParam, r.cfg.OrderParam, s)
		}
	}
	return &SortSpec{Field: field, Order: order}, nil
}

func (r *Resolver) page(limit int, raw map[string]any) (*PageSpec, error) {
	size := r.cfg.DefaultMax
	if limit > 0 {
		size = limit
	} else if v, ok, err := r.intParam(raw, r.cfg.MaxParam); err != nil {
		return nil, err
	} else if ok && v > 0 {
		size = min(int(v), r.cfg.MaxAllowed)
	}

	offset, ok, err := r.intParam(raw, r.cfg.OffsetParam)
	if err != nil {
		return nil, err
	}
	if !ok {
		page, hasPage, err := r.intParam(raw, r.cfg.PageParam)
		if err != nil {
			return nil, err
		}
		if hasPage {
			offset = (page - int64(r.cfg.StartPage)) * int64(size)
		}
	}
	if offset < 0 {
		offset = 0
	}
	return &PageSpec{Max: size, Offset: offset}, nil
}

func (r *Resolver) intParam(raw map[string]any, key string) (int64, bool, error) {
	v, ok := raw[key]
	if !ok {
		return 0, false, nil
	}
	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidParam, key, s)
	}
	return n, true, nil
}

// ValidateBean checks that every only_on entry of bean names an operator.
func ValidateBean(bean *meta.Bean) error {
	for i := range bean.Fields {
		for _, name := range bean.Fields[i].OnlyOn {
			if _, err := ParseOperator(name); err != nil {
				return fmt.Errorf("bean %q field %q: %w", bean.Name, bean.Fields[i].Name, err)
			}
		}
	}
	return nil
}

func allows(onlyOn []string, op Operator) (bool, error) {
	for _, name := range onlyOn {
		allowed, err := ParseOperator(name)
		if err != nil {
			return false, err
		}
		if allowed == op {
			return true, nil
		}
	}
	return false, nil
}

func pad(values []string, n int) []string {
	for len(values) < n {
		values = append(values, "")
	}
	return values
}

func nonBlank(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if !isBlank(v) {
			out = append(out, v)
		}
	}
	return out
}

// scalar unwraps single-element string slices, as produced by url.Values.
func scalar(v any) any {
	if ss, ok := v.([]string); ok {
		if len(ss) == 0 {
			return nil
		}
		return ss[0]
	}
	return v
}

func stringValue(v any) string {
	switch t := scalar(v).(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func stringValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = stringValue(e)
		}
		return out
	default:
		return []string{stringValue(t)}
	}
}

func truthy(v any) bool {
	switch t := scalar(v).(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		b, err := strconv.ParseBool(strings.TrimSpace(stringValue(t)))
		return err == nil && b
	}
}

// Keys returns the sorted keys of raw. Useful for stable logging.
func Keys(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
