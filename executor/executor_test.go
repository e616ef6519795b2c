package executor

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/sqlgen"
)

var escape = regexp.QuoteMeta

func listAndCount() *sqlgen.SQLResult {
	return &sqlgen.SQLResult{
		ListSQL:            "select u.id d_0, u.name d_1 from user u where u.age > ? limit ? offset ?",
		ListArgs:           []any{"18", 10, int64(0)},
		ClusterSQL:         "select count(1) col_count, sum(u.age) col_age from user u where u.age > ?",
		ClusterArgs:        []any{"18"},
		CountAlias:         "col_count",
		SummaryAliases:     []string{"col_age"},
		SummaryFields:      []string{"age"},
		ListAliases:        []string{"d_0", "d_1"},
		ListFields:         []string{"id", "name"},
		ShouldQueryList:    true,
		ShouldQueryCluster: true,
	}
}

func TestExecute_ListAndCluster(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(escape("select u.id d_0, u.name d_1 from user u where u.age > $1 limit $2 offset $3")).
		WithArgs("18", 10, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"d_0", "d_1"}).
			AddRow(int64(1), []byte("Jack")).
			AddRow(int64(2), "Tom"))
	mock.ExpectQuery(escape("select count(1) col_count, sum(u.age) col_age from user u where u.age > $1")).
		WithArgs("18").
		WillReturnRows(sqlmock.NewRows([]string{"col_count", "col_age"}).AddRow(int64(2), []byte("61.5")))

	res, err := New(db, dialect.PostgresDialect{}).Execute(context.Background(), listAndCount())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []Row{
		{"id": int64(1), "name": "Jack"},
		{"id": int64(2), "name": "Tom"},
	}, res.Rows)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, []float64{61.5}, res.Summaries)
}

func TestExecute_NullSummaryIsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlRes := listAndCount()
	sqlRes.ShouldQueryList = false

	mock.ExpectQuery(escape(sqlRes.ClusterSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"COL_COUNT", "COL_AGE"}).AddRow(int64(0), nil))

	res, err := New(db, dialect.MySQLDialect{}).Execute(context.Background(), sqlRes)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Nil(t, res.Rows)
	assert.Equal(t, int64(0), res.Total)
	assert.Equal(t, []float64{0}, res.Summaries)
}

func TestExecute_ListOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlRes := listAndCount()
	sqlRes.ShouldQueryCluster = false

	mock.ExpectQuery(escape(sqlRes.ListSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"d_0", "ROWNUM_"}).AddRow(int64(7), int64(1)))

	res, err := New(db, dialect.SQLiteDialect{}).Execute(context.Background(), sqlRes)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []Row{{"id": int64(7)}}, res.Rows)
	assert.Nil(t, res.Summaries)
}

func TestExecute_OracleWindowColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := dialect.OracleDialect{}
	page := d.Paginate("select u.id d_0, u.name d_1", " from user u", &dialect.Page{Size: 10})
	sqlRes := &sqlgen.SQLResult{
		ListSQL:         page.SQL,
		ListArgs:        page.Args,
		ListAliases:     []string{"d_0", "d_1"},
		ListFields:      []string{"id", "name"},
		ShouldQueryList: true,
	}
	bound, err := d.Bind(page.SQL)
	require.NoError(t, err)

	mock.ExpectQuery(escape(bound)).
		WillReturnRows(sqlmock.NewRows([]string{"D_0", "D_1", "ROWNUM_"}).AddRow(int64(1), "Jack", int64(1)))

	res, err := New(db, d).Execute(context.Background(), sqlRes)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []Row{{"id": int64(1), "name": "Jack"}}, res.Rows)
}

func TestExecute_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(".+").WillReturnError(boom)

	_, err = New(db, dialect.MySQLDialect{}).Execute(context.Background(), listAndCount())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list query")
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{int64(3), 3},
		{int32(3), 3},
		{3.5, 3.5},
		{float32(0.5), 0.5},
		{"12.25", 12.25},
		{[]byte(" 4 "), 4},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := toFloat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := toFloat(true)
	require.Error(t, err)
}
