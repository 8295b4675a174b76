// Package render draws normalized records as line or grouped bar charts
// using gonum/plot.
package render

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"popdash/domain/chart"
	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/internal"
)

// maxTickLabels keeps the x axis readable for long series
const maxTickLabels = 20

// ChartRenderer implements ports.ChartRenderer
type ChartRenderer struct{}

// NewChartRenderer creates a renderer
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{}
}

// series is one category's values keyed by the period's position on the x axis
type series struct {
	category string
	points   map[int]float64
}

// Render writes the chart for records to w in the configured format
func (r *ChartRenderer) Render(w io.Writer, records []dataset.Record, cfg chart.Config) error {
	startTime := time.Now()
	cfg = cfg.WithDefaults()

	p := plot.New()
	p.Title.Text = cfg.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = cfg.XLabel
	p.Y.Label.Text = cfg.YLabel
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	periods := normalize.ListPeriods(records)
	all := buildSeries(records, periods)

	var err error
	switch cfg.Mode {
	case chart.ModeBar:
		err = addBars(p, all, periods, cfg)
	default:
		err = addLines(p, all, periods, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s chart: %w", cfg.Mode, err)
	}

	wt, err := p.WriterTo(vg.Length(cfg.Width)*vg.Inch, vg.Length(cfg.Height)*vg.Inch, string(cfg.Format))
	if err != nil {
		return fmt.Errorf("failed to create %s canvas: %w", cfg.Format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}

	internal.DefaultLogger.Debug("[ChartRenderer] %s chart with %d series, %d periods rendered in %v",
		cfg.Mode, len(all), len(periods), time.Since(startTime))
	return nil
}

// buildSeries groups records by category in ListCategories order
func buildSeries(records []dataset.Record, periods []dataset.Period) []series {
	position := make(map[dataset.Period]int, len(periods))
	for i, period := range periods {
		position[period] = i
	}

	categories := normalize.ListCategories(records)
	index := make(map[string]int, len(categories))
	out := make([]series, len(categories))
	for i, category := range categories {
		index[category] = i
		out[i] = series{category: category, points: make(map[int]float64)}
	}
	for _, rec := range records {
		out[index[rec.Category]].points[position[rec.Period]] = float64(rec.Value)
	}
	return out
}

// allNumeric reports whether the periods can sit on a linear axis
func allNumeric(periods []dataset.Period) bool {
	for _, period := range periods {
		if !period.Numeric {
			return false
		}
	}
	return len(periods) > 0
}

func addLines(p *plot.Plot, all []series, periods []dataset.Period, cfg chart.Config) error {
	numeric := allNumeric(periods)

	for i, s := range all {
		xys := make(plotter.XYs, 0, len(s.points))
		for pos := range periods {
			y, ok := s.points[pos]
			if !ok {
				continue
			}
			x := float64(pos)
			if numeric {
				x = float64(periods[pos].Num)
			}
			xys = append(xys, plotter.XY{X: x, Y: y})
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("category %q: %w", s.category, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)

		if cfg.Markers {
			scatter, err := plotter.NewScatter(xys)
			if err != nil {
				return fmt.Errorf("category %q: %w", s.category, err)
			}
			scatter.GlyphStyle.Color = plotutil.Color(i)
			scatter.GlyphStyle.Shape = draw.CircleGlyph{}
			scatter.GlyphStyle.Radius = vg.Points(3)
			p.Add(scatter)
			p.Legend.Add(s.category, line, scatter)
		} else {
			p.Legend.Add(s.category, line)
		}
	}

	if numeric {
		p.X.Tick.Marker = plot.ConstantTicks(periodTicks(periods, true))
	} else if len(periods) > 0 {
		p.X.Tick.Marker = plot.ConstantTicks(periodTicks(periods, false))
		p.X.Min = -0.5
		p.X.Max = float64(len(periods)) - 0.5
	}
	return nil
}

func addBars(p *plot.Plot, all []series, periods []dataset.Period, cfg chart.Config) error {
	if len(periods) == 0 || len(all) == 0 {
		return nil
	}

	// Slot per period is roughly the plot width over the period count
	slot := vg.Length(cfg.Width) * vg.Inch * 0.8 / vg.Length(len(periods))
	barWidth := slot * 0.8 / vg.Length(len(all))
	if barWidth < vg.Points(1) {
		barWidth = vg.Points(1)
	}

	for i, s := range all {
		values := make(plotter.Values, len(periods))
		for pos := range periods {
			values[pos] = s.points[pos]
		}

		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return fmt.Errorf("category %q: %w", s.category, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = barWidth * (vg.Length(i) - vg.Length(len(all)-1)/2)
		p.Add(bars)
		p.Legend.Add(s.category, bars)
	}

	p.X.Tick.Marker = plot.ConstantTicks(periodTicks(periods, false))
	p.X.Min = -0.5
	p.X.Max = float64(len(periods)) - 0.5
	return nil
}

// periodTicks labels the x axis. Numeric ticks sit at the period value,
// nominal ticks at the period's position. Long series are thinned.
func periodTicks(periods []dataset.Period, numeric bool) []plot.Tick {
	step := 1
	if len(periods) > maxTickLabels {
		step = (len(periods) + maxTickLabels - 1) / maxTickLabels
	}

	ticks := make([]plot.Tick, 0, len(periods))
	for i, period := range periods {
		value := float64(i)
		if numeric {
			value = float64(period.Num)
		}
		label := ""
		if i%step == 0 {
			label = period.Label
		}
		ticks = append(ticks, plot.Tick{Value: value, Label: label})
	}
	return ticks
}
