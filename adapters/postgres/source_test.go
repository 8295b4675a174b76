package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popdash/domain/core"
)

func TestRowsToTable(t *testing.T) {
	columns := []string{"year", "0-14", "region"}
	values := [][]interface{}{
		{int64(2020), []byte("1,234"), []byte("X")},
		{int64(2021), int64(1300), nil},
		{time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), float64(1400), []byte("X")},
	}

	table, err := rowsToTable(columns, values)
	require.NoError(t, err)

	assert.Equal(t, columns, table.Headers)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, int64(2020), table.Rows[0]["year"])
	assert.Equal(t, "1,234", table.Rows[0]["0-14"])
	assert.Equal(t, "X", table.Rows[0]["region"])

	_, present := table.Rows[1]["region"]
	assert.False(t, present, "NULL should leave the cell absent")
	assert.Equal(t, "2022", table.Rows[2]["year"])
}

func TestRowsToTableRejectsBadResults(t *testing.T) {
	_, err := rowsToTable([]string{"year"}, nil)
	assert.Error(t, err)

	_, err = rowsToTable([]string{"year", "year"}, [][]interface{}{{int64(1), int64(2)}})
	assert.Error(t, err)
}

func TestQuerySourceWithoutDatabase(t *testing.T) {
	src := NewQuerySource(nil, "age", "SELECT 1")

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsDataSourceError(err))
	assert.Equal(t, "postgres:age", src.Describe())
}
