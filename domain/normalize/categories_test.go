package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popdash/domain/core"
	"popdash/domain/dataset"
)

func sampleRecords() []dataset.Record {
	return []dataset.Record{
		{Period: dataset.NumericPeriod(2021), Category: "retail", Value: 3},
		{Period: dataset.NumericPeriod(2021), Category: "food", Value: 5},
		{Period: dataset.NumericPeriod(2020), Category: "retail", Value: 2},
		{Period: dataset.NumericPeriod(2020), Category: "food", Value: 4},
		{Period: dataset.NumericPeriod(2020), Category: "lodging", Value: 1},
	}
}

func TestListCategoriesSortedAndDistinct(t *testing.T) {
	assert.Equal(t, []string{"food", "lodging", "retail"}, ListCategories(sampleRecords()))
	assert.Empty(t, ListCategories(nil))
}

func TestFilterByCategorySelectAllPreservesRecords(t *testing.T) {
	records := sampleRecords()
	all := dataset.NewSelection(ListCategories(records)...)

	assert.Equal(t, records, FilterByCategory(records, all))
}

func TestFilterByCategoryEmptySelection(t *testing.T) {
	got := FilterByCategory(sampleRecords(), dataset.NewSelection())
	require.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, FilterByCategory(sampleRecords(), nil))
}

func TestFilterByCategoryKeepsRelativeOrder(t *testing.T) {
	got := FilterByCategory(sampleRecords(), dataset.NewSelection("retail"))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2021), got[0].Period.Num)
	assert.Equal(t, int64(2020), got[1].Period.Num)
}

func TestValidateSelection(t *testing.T) {
	records := sampleRecords()

	assert.NoError(t, ValidateSelection(records, dataset.NewSelection("food", "retail")))
	assert.NoError(t, ValidateSelection(records, dataset.NewSelection()))

	err := ValidateSelection(records, dataset.NewSelection("food", "mining"))
	assert.True(t, core.IsUnknownCategoryError(err))
	assert.Contains(t, err.Error(), "mining")
}

func TestListPeriodsAscending(t *testing.T) {
	periods := ListPeriods(sampleRecords())
	require.Len(t, periods, 2)
	assert.Equal(t, "2020", periods[0].Label)
	assert.Equal(t, "2021", periods[1].Label)
}
