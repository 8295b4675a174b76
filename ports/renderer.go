package ports

import (
	"io"

	"popdash/domain/chart"
	"popdash/domain/dataset"
)

// ChartRenderer draws records onto an image. The pipeline never inspects
// the rendered output.
type ChartRenderer interface {
	Render(w io.Writer, records []dataset.Record, cfg chart.Config) error
}

// RecordExporter writes long-form records in a downloadable format.
type RecordExporter interface {
	Export(w io.Writer, records []dataset.Record) error
	ContentType() string
}

// CategorySummary aggregates the values of one category over its periods.
type CategorySummary struct {
	Category    string  `json:"category"`
	Periods     int     `json:"periods"`
	Total       int64   `json:"total"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Min         int64   `json:"min"`
	Max         int64   `json:"max"`
	First       int64   `json:"first"`
	Last        int64   `json:"last"`
	ChangePct   float64 `json:"change_pct"`
	TrendSlope  float64 `json:"trend_slope"`
	FirstPeriod string  `json:"first_period"`
	LastPeriod  string  `json:"last_period"`
}

// Summarizer computes per-category statistics for the dashboard table.
type Summarizer interface {
	Summarize(records []dataset.Record) ([]CategorySummary, error)
}
