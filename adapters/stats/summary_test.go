package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popdash/domain/dataset"
)

func TestSummarize(t *testing.T) {
	records := []dataset.Record{
		{Period: dataset.NumericPeriod(2022), Category: "B", Value: 30},
		{Period: dataset.NumericPeriod(2020), Category: "A", Value: 100},
		{Period: dataset.NumericPeriod(2020), Category: "B", Value: 10},
		{Period: dataset.NumericPeriod(2021), Category: "A", Value: 110},
		{Period: dataset.NumericPeriod(2021), Category: "B", Value: 20},
		{Period: dataset.NumericPeriod(2022), Category: "A", Value: 150},
	}

	summaries, err := NewCategorySummarizer().Summarize(records)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	a := summaries[0]
	assert.Equal(t, "A", a.Category)
	assert.Equal(t, 3, a.Periods)
	assert.Equal(t, int64(360), a.Total)
	assert.InDelta(t, 120.0, a.Mean, 1e-9)
	assert.InDelta(t, 110.0, a.Median, 1e-9)
	assert.Equal(t, int64(100), a.Min)
	assert.Equal(t, int64(150), a.Max)
	assert.Equal(t, int64(100), a.First)
	assert.Equal(t, int64(150), a.Last)
	assert.Equal(t, "2020", a.FirstPeriod)
	assert.Equal(t, "2022", a.LastPeriod)
	assert.InDelta(t, 50.0, a.ChangePct, 1e-9)
	assert.InDelta(t, 25.0, a.TrendSlope, 1e-6)

	b := summaries[1]
	assert.Equal(t, "B", b.Category)
	assert.Equal(t, int64(10), b.First, "records are taken in period order")
	assert.InDelta(t, 10.0, b.TrendSlope, 1e-6)
	assert.InDelta(t, 200.0, b.ChangePct, 1e-9)
}

func TestSummarizeEdgeCases(t *testing.T) {
	summaries, err := NewCategorySummarizer().Summarize(nil)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	single := []dataset.Record{{Period: dataset.LabelPeriod("2020 Q1"), Category: "A", Value: 0}}
	summaries, err = NewCategorySummarizer().Summarize(single)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].TrendSlope)
	assert.Zero(t, summaries[0].ChangePct, "zero first value leaves change at zero")
}

func TestTrendSlopeOrdinalPeriods(t *testing.T) {
	recs := []dataset.Record{
		{Period: dataset.LabelPeriod("Q1"), Category: "A", Value: 5},
		{Period: dataset.LabelPeriod("Q2"), Category: "A", Value: 7},
		{Period: dataset.LabelPeriod("Q3"), Category: "A", Value: 9},
	}
	assert.InDelta(t, 2.0, trendSlope(recs), 1e-9)
}
