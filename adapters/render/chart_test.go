package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popdash/domain/chart"
	"popdash/domain/dataset"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func yearRecords() []dataset.Record {
	return []dataset.Record{
		{Period: dataset.NumericPeriod(2020), Category: "0-14", Value: 1234},
		{Period: dataset.NumericPeriod(2020), Category: "15-64", Value: 5000},
		{Period: dataset.NumericPeriod(2021), Category: "0-14", Value: 1300},
		{Period: dataset.NumericPeriod(2021), Category: "15-64", Value: 5100},
	}
}

func TestRenderLinePNG(t *testing.T) {
	var buf bytes.Buffer
	cfg := chart.Config{Title: "Population", Mode: chart.ModeLine, Markers: true, Width: 4, Height: 3}

	require.NoError(t, NewChartRenderer().Render(&buf, yearRecords(), cfg))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRenderBarSVG(t *testing.T) {
	var buf bytes.Buffer
	cfg := chart.Config{Title: "Population", Mode: chart.ModeBar, Format: chart.FormatSVG, Width: 4, Height: 3}

	require.NoError(t, NewChartRenderer().Render(&buf, yearRecords(), cfg))
	out := buf.String()
	assert.True(t, strings.Contains(out, "<svg"), "expected svg document")
	assert.Contains(t, out, "0-14")
	assert.Contains(t, out, "15-64")
}

func TestRenderOrdinalPeriods(t *testing.T) {
	records := []dataset.Record{
		{Period: dataset.LabelPeriod("2020 Q1"), Category: "A", Value: 1},
		{Period: dataset.LabelPeriod("2020 Q2"), Category: "A", Value: 2},
		{Period: dataset.LabelPeriod("2020 Q2"), Category: "B", Value: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, NewChartRenderer().Render(&buf, records, chart.Config{Format: chart.FormatSVG}))
	assert.Contains(t, buf.String(), "2020 Q1")
}

func TestRenderEmptyChart(t *testing.T) {
	for _, mode := range []chart.Mode{chart.ModeLine, chart.ModeBar} {
		t.Run(string(mode), func(t *testing.T) {
			var buf bytes.Buffer
			err := NewChartRenderer().Render(&buf, nil, chart.Config{Title: "Nothing selected", Mode: mode})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestPeriodTicksThinLongSeries(t *testing.T) {
	periods := make([]dataset.Period, 45)
	for i := range periods {
		periods[i] = dataset.NumericPeriod(int64(1980 + i))
	}

	ticks := periodTicks(periods, true)
	require.Len(t, ticks, 45)
	labelled := 0
	for _, tick := range ticks {
		if tick.Label != "" {
			labelled++
		}
	}
	assert.LessOrEqual(t, labelled, maxTickLabels)
	assert.Equal(t, 1980.0, ticks[0].Value)
	assert.Equal(t, "1980", ticks[0].Label)
}
