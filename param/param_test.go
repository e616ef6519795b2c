package param

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/quarry/meta"
)

func testBean() *meta.Bean {
	no := false
	return &meta.Bean{
		Name:   "user",
		Tables: "user u",
		Fields: []meta.Field{
			{Name: "id", Expr: "u.id", Type: meta.Long},
			{Name: "name", Expr: "u.name"},
			{Name: "age", Expr: "u.age", Type: meta.Int},
			{Name: "dept", Expr: "u.dept", OnlyOn: []string{"eq", "MultiValue"}},
			{Name: "secret", Expr: "u.secret", Conditional: &no},
		},
	}
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"eq", Equal},
		{"Equal", Equal},
		{"EQUAL", Equal},
		{"ne", NotEqual},
		{"gt", GreaterThan},
		{"ge", GreaterEqual},
		{"lt", LessThan},
		{"le", LessEqual},
		{"in", Include},
		{"sw", StartWith},
		{"ew", EndWith},
		{"ey", Empty},
		{"ny", NotEmpty},
		{"bt", Between},
		{" mv ", MultiValue},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseOperator("like")
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestOperator_String(t *testing.T) {
	assert.Equal(t, "GreaterEqual", GreaterEqual.String())
	assert.Equal(t, "bt", Between.Code())
	assert.Equal(t, "Operator(99)", Operator(99).String())
	assert.False(t, Operator(-1).Valid())
	assert.False(t, Empty.CarriesValue())
	assert.True(t, Include.CarriesValue())
}

func TestFilterCondition(t *testing.T) {
	c := FilterCondition{Operator: Between, Values: []string{" ", "10"}}
	assert.Equal(t, "10", c.FirstValue())
	assert.False(t, c.AllBlank())
	assert.True(t, c.Active())

	blank := FilterCondition{Operator: Between, Values: []string{"", " "}}
	assert.True(t, blank.AllBlank())
	assert.False(t, blank.Active())

	empty := FilterCondition{Operator: Empty}
	assert.True(t, empty.Active())
}

func TestSearchParam_ActiveFilters(t *testing.T) {
	p := &SearchParam{Filters: []FilterCondition{
		{Field: "a", Operator: Equal, Values: []string{""}},
		{Field: "b", Operator: NotEmpty},
		{Field: "c", Operator: Equal, Values: []string{"x"}},
	}}

	active := p.ActiveFilters()
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].Field)
	assert.Equal(t, "c", active[1].Field)
	assert.Len(t, p.Filters, 3)
}

func TestResolve_Filters(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want []FilterCondition
	}{
		{
			name: "plain value defaults to equal",
			raw:  map[string]any{"name": "Jack"},
			want: []FilterCondition{{Field: "name", Operator: Equal, Values: []string{"Jack"}}},
		},
		{
			name: "operator code and ignore case",
			raw:  map[string]any{"name": "ja", "name-op": "sw", "name-ic": "true"},
			want: []FilterCondition{{Field: "name", Operator: StartWith, Values: []string{"ja"}, IgnoreCase: true}},
		},
		{
			name: "between with upper bound only",
			raw:  map[string]any{"age-1": "30", "age-op": "bt"},
			want: []FilterCondition{{Field: "age", Operator: Between, Values: []string{"", "30"}}},
		},
		{
			name: "between with both bounds blank is dropped",
			raw:  map[string]any{"age-0": "", "age-1": " ", "age-op": "bt"},
		},
		{
			name: "plain value fills index zero",
			raw:  map[string]any{"age": 20, "age-1": 30, "age-op": "Between"},
			want: []FilterCondition{{Field: "age", Operator: Between, Values: []string{"20", "30"}}},
		},
		{
			name: "empty needs no value",
			raw:  map[string]any{"name-op": "ey"},
			want: []FilterCondition{{Field: "name", Operator: Empty}},
		},
		{
			name: "multi value drops blanks",
			raw:  map[string]any{"dept-0": "a", "dept-1": "", "dept-2": "NULL", "dept-op": "mv"},
			want: []FilterCondition{{Field: "dept", Operator: MultiValue, Values: []string{"a", "NULL"}}},
		},
		{
			name: "only_on rejects other operators",
			raw:  map[string]any{"dept": "a", "dept-op": "ne"},
		},
		{
			name: "non conditional field never filters",
			raw:  map[string]any{"secret": "x"},
		},
		{
			name: "blank equal is dropped",
			raw:  map[string]any{"name": "  "},
		},
		{
			name: "index beyond the request is ignored",
			raw:  map[string]any{"age-9223372036854775807": "1"},
		},
		{
			name: "huge index does not displace real values",
			raw:  map[string]any{"age-0": "20", "age-1000000000": "5"},
			want: []FilterCondition{{Field: "age", Operator: Equal, Values: []string{"20"}}},
		},
		{
			name: "url values",
			raw:  map[string]any{"name": []string{"Tom"}, "name-op": []string{"ne"}},
			want: []FilterCondition{{Field: "name", Operator: NotEqual, Values: []string{"Tom"}}},
		},
	}

	r := NewResolver(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(testBean(), Fetch{List: true}, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Filters)
		})
	}
}

func TestResolve_UnknownOperator(t *testing.T) {
	r := NewResolver(DefaultConfig())
	_, err := r.Resolve(testBean(), Fetch{List: true}, map[string]any{"name": "x", "name-op": "regex"})
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestResolve_Sort(t *testing.T) {
	r := NewResolver(DefaultConfig())

	p, err := r.Resolve(testBean(), Fetch{List: true}, map[string]any{"sort": "age", "order": "DESC"})
	require.NoError(t, err)
	assert.Equal(t, &SortSpec{Field: "age", Order: Desc}, p.Sort)

	p, err = r.Resolve(testBean(), Fetch{List: true}, map[string]any{"sort": "age"})
	require.NoError(t, err)
	assert.Equal(t, Asc, p.Sort.Order)

	p, err = r.Resolve(testBean(), Fetch{List: true}, map[string]any{"sort": "unknown"})
	require.NoError(t, err)
	assert.Nil(t, p.Sort)

	_, err = r.Resolve(testBean(), Fetch{List: true}, map[string]any{"sort": "age", "order": "up"})
	require.ErrorIs(t, err, ErrInvalidParam)
}

func TestResolve_Page(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		fetch Fetch
		raw   map[string]any
		want  *PageSpec
	}{
		{"defaults", Config{}, Fetch{}, nil, &PageSpec{Max: 15}},
		{"max and offset", Config{}, Fetch{}, map[string]any{"max": "10", "offset": "20"}, &PageSpec{Max: 10, Offset: 20}},
		{"max capped", Config{}, Fetch{}, map[string]any{"max": 1000}, &PageSpec{Max: 100}},
		{"page", Config{}, Fetch{}, map[string]any{"max": 10, "page": 2}, &PageSpec{Max: 10, Offset: 20}},
		{"page from one", Config{StartPage: 1}, Fetch{}, map[string]any{"max": 10, "page": 2}, &PageSpec{Max: 10, Offset: 10}},
		{"offset wins over page", Config{}, Fetch{}, map[string]any{"offset": 3, "page": 9}, &PageSpec{Max: 15, Offset: 3}},
		{"negative offset clamps", Config{}, Fetch{}, map[string]any{"offset": -4}, &PageSpec{Max: 15}},
		{"limit overrides max", Config{}, Fetch{Limit: 1}, map[string]any{"max": 50, "offset": 5}, &PageSpec{Max: 1, Offset: 5}},
		{"all removes page", Config{}, Fetch{All: true}, map[string]any{"max": 10}, nil},
		{"custom keys", Config{MaxParam: "size", OffsetParam: "skip"}, Fetch{}, map[string]any{"size": 5, "skip": 5}, &PageSpec{Max: 5, Offset: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewResolver(tt.cfg).Resolve(testBean(), tt.fetch, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Page)
		})
	}

	_, err := NewResolver(Config{}).Resolve(testBean(), Fetch{}, map[string]any{"max": "ten"})
	require.ErrorIs(t, err, ErrInvalidParam)
}

func TestResolve_FetchAndVirtualParams(t *testing.T) {
	q := url.Values{"minAge": {"18"}, "name": {"Jack"}}
	raw := make(map[string]any, len(q))
	for k, v := range q {
		raw[k] = v
	}

	p, err := NewResolver(Config{}).Resolve(testBean(), Fetch{Total: true, Summaries: []string{"age"}}, raw)
	require.NoError(t, err)
	assert.True(t, p.ShouldQueryTotal)
	assert.False(t, p.ShouldQueryList)
	assert.True(t, p.ShouldQueryCluster())
	assert.Equal(t, []string{"age"}, p.SummaryFields)
	assert.Equal(t, "18", p.VirtualParams["minAge"])
	assert.Equal(t, []string{"minAge", "name"}, Keys(raw))
}

func TestValidateBean(t *testing.T) {
	require.NoError(t, ValidateBean(testBean()))

	b := testBean()
	b.Fields[0].OnlyOn = []string{"approx"}
	require.ErrorIs(t, ValidateBean(b), ErrUnknownOperator)
}
