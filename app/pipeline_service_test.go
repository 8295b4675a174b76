package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popdash/adapters/stats"
	"popdash/domain/chart"
	"popdash/domain/core"
	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/internal/testkit"
)

func ageRequest() Request {
	return Request{
		Normalize: normalize.Options{
			Period:    normalize.ByIndex(0),
			RowFilter: &normalize.RowFilter{Column: "region", Value: "X"},
			Blocklist: []string{"total"},
		},
	}
}

func TestRunSelectsAllByDefault(t *testing.T) {
	svc := NewPipelineService(&testkit.RecordingRenderer{}, stats.NewCategorySummarizer(), nil)

	result, err := svc.Run(context.Background(), testkit.AgeGroupSource(), ageRequest())
	require.NoError(t, err)

	assert.Len(t, result.Records, 9)
	assert.Equal(t, result.Records, result.Filtered)
	assert.Equal(t, []string{"0-14", "15-64", "65+"}, result.Categories)
	assert.Equal(t, result.Categories, result.Selected)
	assert.Len(t, result.Summary, 3)
	assert.False(t, result.Fingerprint.IsEmpty())
	assert.Equal(t, "age-groups", result.Source)
	assert.False(t, result.RunID.String() == "")

	first := result.Records[0]
	assert.Equal(t, dataset.NumericPeriod(2019), first.Period)
	assert.Equal(t, "0-14", first.Category)
	assert.Equal(t, int64(1100), first.Value)
}

func TestRunWithSelection(t *testing.T) {
	svc := NewPipelineService(nil, nil, nil)

	req := ageRequest()
	sel := dataset.NewSelection("65+")
	req.Selection = &sel

	result, err := svc.Run(context.Background(), testkit.AgeGroupSource(), req)
	require.NoError(t, err)
	require.Len(t, result.Filtered, 3)
	for _, rec := range result.Filtered {
		assert.Equal(t, "65+", rec.Category)
	}
	assert.Len(t, result.Records, 9, "selection never changes the normalized records")
	assert.Nil(t, result.Summary)

	empty := dataset.NewSelection()
	req.Selection = &empty
	result, err = svc.Run(context.Background(), testkit.AgeGroupSource(), req)
	require.NoError(t, err)
	assert.Empty(t, result.Filtered)
	assert.NotNil(t, result.Filtered)
}

func TestRunErrors(t *testing.T) {
	svc := NewPipelineService(nil, nil, nil)

	_, err := svc.Run(context.Background(), &testkit.FailingSource{}, ageRequest())
	assert.True(t, core.IsDataSourceError(err))

	req := ageRequest()
	req.Normalize.Period = normalize.ByName("year")
	_, err = svc.Run(context.Background(), testkit.AgeGroupSource(), req)
	assert.True(t, core.IsSchemaError(err))

	req = ageRequest()
	req.Normalize.Blocklist = nil
	req.Normalize.RowFilter = nil
	src := testkit.NewStaticSource("bad", []string{"year", "A"}, [][]string{{"2020", "12a"}})
	_, err = svc.Run(context.Background(), src, req)
	assert.True(t, core.IsValueParseError(err))

	req = ageRequest()
	sel := dataset.NewSelection("0-14", "80+")
	req.Selection = &sel
	_, err = svc.Run(context.Background(), testkit.AgeGroupSource(), req)
	assert.True(t, core.IsUnknownCategoryError(err))
}

func TestRunLongLayout(t *testing.T) {
	svc := NewPipelineService(nil, nil, nil)
	src := testkit.NewStaticSource("long", []string{"year", "age_group", "population"}, [][]string{
		{"2020", "0-14", "1,234"},
		{"2020", "15-64", "5000"},
		{"2021", "0-14", "1300"},
	})

	result, err := svc.Run(context.Background(), src, Request{
		Long: &normalize.LongOptions{PeriodColumn: "year", CategoryColumn: "age_group", ValueColumn: "population"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
	assert.Equal(t, []string{"0-14", "15-64"}, result.Categories)
}

func TestRenderChartUsesFilteredRecords(t *testing.T) {
	renderer := &testkit.RecordingRenderer{}
	svc := NewPipelineService(renderer, nil, nil)

	req := ageRequest()
	sel := dataset.NewSelection("0-14", "65+")
	req.Selection = &sel
	result, err := svc.Run(context.Background(), testkit.AgeGroupSource(), req)
	require.NoError(t, err)

	var buf bytes.Buffer
	cfg := chart.Config{Mode: chart.ModeBar}
	require.NoError(t, svc.RenderChart(&buf, result, cfg))

	assert.Equal(t, 1, renderer.Calls)
	assert.Equal(t, result.Filtered, renderer.Records)
	assert.Equal(t, "chart:bar:6", buf.String())

	renderer.Err = errors.New("canvas too small")
	assert.Error(t, svc.RenderChart(&buf, result, cfg))
	assert.Error(t, NewPipelineService(nil, nil, nil).RenderChart(&buf, result, cfg))
}

func TestRunTable(t *testing.T) {
	svc := NewPipelineService(nil, nil, nil)
	raw := dataset.NewRawTable([]string{"Unnamed: 0", "A", "B"}, [][]string{{"2020", "1", "2"}, {"2021", "3", "4"}})

	result, err := svc.RunTable(raw, "upload.csv", Request{Normalize: normalize.Options{Period: normalize.ByIndex(0)}})
	require.NoError(t, err)
	assert.Len(t, result.Records, 4)
	assert.Equal(t, "upload.csv", result.Source)
}
