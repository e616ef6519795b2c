package quarry_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	_ "modernc.org/sqlite"

	"github.com/pthm/quarry"
	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/sqlgen"
	"github.com/pthm/quarry/meta"
	"github.com/pthm/quarry/param"
)

const employeeBeans = `
beans:
  - name: employee
    tables: employee e, dept d
    join_cond: e.dept_id = d.id
    fields:
      - {name: id, expr: e.id, type: long}
      - {name: name, expr: e.name}
      - {name: age, expr: e.age, type: int}
      - {name: deptName, expr: d.name}
      - {name: salary, expr: e.salary, type: double}
  - name: senior
    tables: employee e
    join_cond: e.age >= :minAge
    fields:
      - {name: id, expr: e.id, type: long}
      - {name: name, expr: e.name}
`

func registry(t *testing.T) *meta.Registry {
	t.Helper()
	reg, err := meta.Load([]byte(employeeBeans))
	require.NoError(t, err)
	return reg
}

// sqliteDB opens an in-memory database seeded with three employees in two
// departments.
func sqliteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`create table dept (id integer primary key, name text)`,
		`create table employee (id integer primary key, name text, age integer, dept_id integer, salary real)`,
		`insert into dept values (1, 'Sales'), (2, 'Ops')`,
		`insert into employee values
			(1, 'Jack', 20, 1, 1000),
			(2, 'Tom', 30, 1, 2000),
			(3, 'Jerry', 40, 2, 3000)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func sqliteSearcher(t *testing.T) *quarry.Searcher {
	return quarry.NewSearcher(sqliteDB(t), registry(t), quarry.WithDialect(dialect.SQLiteDialect{}))
}

func names(rows []quarry.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestSearch_SQLite(t *testing.T) {
	s := sqliteSearcher(t)
	ctx := context.Background()

	t.Run("filter sort and sum", func(t *testing.T) {
		res, err := s.Search(ctx, "employee", map[string]any{
			"name":    "J",
			"name-op": "sw",
			"sort":    "age",
			"order":   "desc",
		}, "salary")
		require.NoError(t, err)

		assert.Equal(t, []string{"Jerry", "Jack"}, names(res.Rows))
		assert.Equal(t, "Ops", res.Rows[0]["deptName"])
		assert.Equal(t, int64(3), res.Rows[0]["id"])
		assert.Equal(t, int64(2), res.Total)
		assert.Equal(t, []float64{4000}, res.Summaries)
		assert.Equal(t, 15, res.Max)
		assert.Equal(t, int64(1), res.TotalPage)
		assert.Equal(t, int64(0), res.Page)
	})

	t.Run("ignore case", func(t *testing.T) {
		rows, err := s.SearchList(ctx, "employee", map[string]any{"name": "tom", "name-ic": true})
		require.NoError(t, err)
		assert.Equal(t, []string{"Tom"}, names(rows))
	})

	t.Run("between", func(t *testing.T) {
		rows, err := s.SearchList(ctx, "employee", map[string]any{
			"age-0": "25", "age-1": "45", "age-op": "bt", "sort": "id",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Tom", "Jerry"}, names(rows))
	})

	t.Run("multi value", func(t *testing.T) {
		n, err := s.SearchCount(ctx, "employee", map[string]any{
			"name": []string{"Jack", "Jerry", ""}, "name-op": "mv",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("paging", func(t *testing.T) {
		res, err := s.Search(ctx, "employee", map[string]any{"max": 2, "page": 1, "sort": "id"})
		require.NoError(t, err)

		assert.Equal(t, []string{"Jerry"}, names(res.Rows))
		assert.Equal(t, int64(3), res.Total)
		assert.Equal(t, 2, res.Max)
		assert.Equal(t, int64(2), res.Offset)
		assert.Equal(t, int64(2), res.TotalPage)
		assert.Equal(t, int64(1), res.Page)
	})

	t.Run("first", func(t *testing.T) {
		row, err := s.SearchFirst(ctx, "employee", map[string]any{"sort": "salary", "order": "desc"})
		require.NoError(t, err)
		assert.Equal(t, "Jerry", row["name"])

		row, err = s.SearchFirst(ctx, "employee", map[string]any{"name": "Nobody"})
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("all ignores paging", func(t *testing.T) {
		rows, err := s.SearchAll(ctx, "employee", map[string]any{"max": 1})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("sum", func(t *testing.T) {
		sums, err := s.SearchSum(ctx, "employee", map[string]any{"deptName": "Sales"}, "salary", "age")
		require.NoError(t, err)
		assert.Equal(t, []float64{3000, 50}, sums)
	})

	t.Run("sum of nothing is zero", func(t *testing.T) {
		sums, err := s.SearchSum(ctx, "employee", map[string]any{"name": "Nobody"}, "salary")
		require.NoError(t, err)
		assert.Equal(t, []float64{0}, sums)
	})

	t.Run("virtual parameter", func(t *testing.T) {
		n, err := s.SearchCount(ctx, "senior", map[string]any{"minAge": 30})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		// A missing virtual parameter binds NULL, which matches nothing.
		n, err = s.SearchCount(ctx, "senior", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestSearch_Errors(t *testing.T) {
	s := sqliteSearcher(t)
	ctx := context.Background()

	_, err := s.Search(ctx, "nope", nil)
	assert.True(t, quarry.IsUnknownBeanErr(err))

	_, err = s.SearchList(ctx, "employee", map[string]any{"name": "x", "name-op": "zz"})
	assert.ErrorIs(t, err, quarry.ErrUnknownOperator)
	assert.True(t, quarry.IsBadRequestErr(err))

	_, err = s.SearchSum(ctx, "employee", nil)
	assert.ErrorIs(t, err, quarry.ErrNoSummaryFields)

	_, err = s.Search(ctx, "employee", nil, "bonus")
	assert.True(t, quarry.IsUnmappedSummaryFieldErr(err))

	_, err = s.SearchList(ctx, "employee", map[string]any{"max": "ten"})
	assert.ErrorIs(t, err, quarry.ErrInvalidParam)
}

func TestSearcher_WithoutDatabase(t *testing.T) {
	s := quarry.NewSearcher(nil, registry(t))
	assert.Equal(t, "mysql", s.Dialect().Name())

	_, err := s.Search(context.Background(), "employee", nil)
	assert.ErrorIs(t, err, quarry.ErrNoDatabase)

	res, err := s.Build("employee", map[string]any{"age": "30", "age-op": "ge"}, param.Fetch{Total: true, List: true})
	require.NoError(t, err)
	assert.Equal(t,
		"select e.id d_0, e.name d_1, e.age d_2, d.name d_3, e.salary d_4 from employee e, dept d where (e.dept_id = d.id) and e.age >= ? limit ?, ?",
		res.ListSQL)
	assert.Equal(t, []any{"30", int64(0), 15}, res.ListArgs)
	assert.Equal(t, "select count(1) col_count from employee e, dept d where (e.dept_id = d.id) and e.age >= ?", res.ClusterSQL)
}

func TestSearcher_Prepare(t *testing.T) {
	bad, err := meta.NewRegistry(meta.Bean{
		Name:     "broken",
		Tables:   "t",
		JoinCond: "t.a = : and t.b = 1",
		Fields:   []meta.Field{{Name: "a", Expr: "t.a"}},
	})
	require.NoError(t, err)

	s := quarry.NewSearcher(nil, bad)
	assert.True(t, quarry.IsSyntaxErr(s.Prepare("broken")))
	assert.True(t, quarry.IsUnknownBeanErr(s.Prepare("missing")))

	require.NoError(t, quarry.NewSearcher(nil, registry(t)).Prepare("senior"))
}

func TestSearcher_CustomPrefixAndParamConfig(t *testing.T) {
	reg, err := meta.NewRegistry(meta.Bean{
		Name:     "scoped",
		Tables:   "item i",
		JoinCond: "i.tenant = @tenant",
		Fields:   []meta.Field{{Name: "id", Expr: "i.id"}, {Name: "title", Expr: "i.title"}},
	})
	require.NoError(t, err)

	cfg := param.DefaultConfig()
	cfg.OperatorSuffix = "operator"
	cfg.Separator = "_"
	cfg.MaxParam = "size"

	s := quarry.NewSearcher(nil, reg,
		quarry.WithDialect(dialect.PostgresDialect{}),
		quarry.WithVirtualParamPrefix("@"),
		quarry.WithParamConfig(cfg),
	)
	res, err := s.Build("scoped", map[string]any{
		"tenant": "acme", "title": "lamp", "title_operator": "in", "size": 5,
	}, param.Fetch{List: true})
	require.NoError(t, err)

	assert.Equal(t, "select i.id d_0, i.title d_1 from item i where (i.tenant = ?) and i.title like ? limit ? offset ?", res.ListSQL)
	assert.Equal(t, []any{"acme", "%lamp%", 5, int64(0)}, res.ListArgs)
	assert.Empty(t, res.ClusterSQL)
}

func TestSearcher_SQLMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	core, logs := observer.New(zap.DebugLevel)
	s := quarry.NewSearcher(db, registry(t),
		quarry.WithDialect(dialect.PostgresDialect{}),
		quarry.WithLogger(zap.New(core)),
	)

	escape := regexp.QuoteMeta
	mock.ExpectQuery(escape("select e.id d_0, e.name d_1 from employee e where (e.age >= $1) limit $2 offset $3")).
		WithArgs(30, 1, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"d_0", "d_1"}).AddRow(int64(2), "Tom"))

	row, err := s.SearchFirst(context.Background(), "senior", map[string]any{"minAge": 30})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, quarry.Row{"id": int64(2), "name": "Tom"}, row)

	entries := logs.FilterMessage("assembled search").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "senior", entries[0].ContextMap()["bean"])
}

func TestSearcher_SharedDescriptorCache(t *testing.T) {
	reg := registry(t)
	cache := sqlgen.NewDescriptorCache(nil)
	mysql := quarry.NewSearcher(nil, reg, quarry.WithDescriptorCache(cache))
	pg := quarry.NewSearcher(nil, reg,
		quarry.WithDialect(dialect.PostgresDialect{}),
		quarry.WithDescriptorCache(cache),
	)

	raw := map[string]any{"minAge": 18}
	a, err := mysql.Build("senior", raw, param.Fetch{List: true})
	require.NoError(t, err)
	b, err := pg.Build("senior", raw, param.Fetch{List: true})
	require.NoError(t, err)

	assert.Contains(t, a.ListSQL, "limit ?, ?")
	assert.Contains(t, b.ListSQL, "limit ? offset ?")
	assert.Equal(t, []any{18, int64(0), 15}, a.ListArgs)
	assert.Equal(t, []any{18, 15, int64(0)}, b.ListArgs)
	assert.Equal(t, 1, cache.Size())
}
