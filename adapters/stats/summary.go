// Package stats computes per-category summaries of normalized records.
package stats

import (
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/ports"
)

// CategorySummarizer implements ports.Summarizer
type CategorySummarizer struct{}

// NewCategorySummarizer creates a summarizer
func NewCategorySummarizer() *CategorySummarizer {
	return &CategorySummarizer{}
}

// Summarize returns one summary per category, ordered like ListCategories.
// Within a category, values are taken in period order.
func (s *CategorySummarizer) Summarize(records []dataset.Record) ([]ports.CategorySummary, error) {
	categories := normalize.ListCategories(records)
	periods := normalize.ListPeriods(records)
	position := make(map[dataset.Period]int, len(periods))
	for i, period := range periods {
		position[period] = i
	}

	byCategory := make(map[string][]dataset.Record, len(categories))
	for _, rec := range records {
		byCategory[rec.Category] = append(byCategory[rec.Category], rec)
	}

	summaries := make([]ports.CategorySummary, 0, len(categories))
	for _, category := range categories {
		recs := byCategory[category]
		sortByPeriod(recs, position)

		summary, err := summarizeCategory(category, recs)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %q: %w", category, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func summarizeCategory(category string, recs []dataset.Record) (ports.CategorySummary, error) {
	summary := ports.CategorySummary{Category: category, Periods: len(recs)}
	if len(recs) == 0 {
		return summary, nil
	}

	values := make(mstats.Float64Data, len(recs))
	for i, rec := range recs {
		values[i] = float64(rec.Value)
		summary.Total += rec.Value
	}

	mean, err := mstats.Mean(values)
	if err != nil {
		return summary, err
	}
	median, err := mstats.Median(values)
	if err != nil {
		return summary, err
	}
	min, err := mstats.Min(values)
	if err != nil {
		return summary, err
	}
	max, err := mstats.Max(values)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.Median = median
	summary.Min = int64(min)
	summary.Max = int64(max)

	first, last := recs[0], recs[len(recs)-1]
	summary.First = first.Value
	summary.Last = last.Value
	summary.FirstPeriod = first.Period.Label
	summary.LastPeriod = last.Period.Label
	if first.Value != 0 {
		summary.ChangePct = float64(last.Value-first.Value) / float64(first.Value) * 100
	}

	summary.TrendSlope = trendSlope(recs)
	return summary, nil
}

// trendSlope fits value = a + b*x by least squares and returns b. Numeric
// periods use their value as x; otherwise x is the position in period order,
// so the slope is per step.
func trendSlope(recs []dataset.Record) float64 {
	if len(recs) < 2 {
		return 0
	}

	numeric := true
	for _, rec := range recs {
		if !rec.Period.Numeric {
			numeric = false
			break
		}
	}

	xs := make([]float64, len(recs))
	ys := make([]float64, len(recs))
	for i, rec := range recs {
		xs[i] = float64(i)
		if numeric {
			xs[i] = float64(rec.Period.Num)
		}
		ys[i] = float64(rec.Value)
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}

// sortByPeriod orders a category's records along the shared period axis
func sortByPeriod(recs []dataset.Record, position map[dataset.Period]int) {
	sort.SliceStable(recs, func(i, j int) bool {
		return position[recs[i].Period] < position[recs[j].Period]
	})
}
