package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"popdash/domain/chart"
	"popdash/domain/core"
	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/internal"
	"popdash/ports"
)

// PipelineService runs load → normalize → select → summarize for one request.
// It holds no per-request state; every call reads its source afresh.
type PipelineService struct {
	renderer   ports.ChartRenderer
	summarizer ports.Summarizer
	logger     *internal.Logger
}

// Request describes how to reshape a source and which categories to keep
type Request struct {
	Normalize normalize.Options
	// Long, when set, reads the table as already long and ignores Normalize
	Long *normalize.LongOptions
	// Selection nil means every category; an empty selection keeps nothing
	Selection *dataset.Selection
}

// Result is the outcome of one pipeline run
type Result struct {
	RunID       core.RunID              `json:"run_id"`
	Source      string                  `json:"source"`
	Records     []dataset.Record        `json:"-"`
	Filtered    []dataset.Record        `json:"records"`
	Categories  []string                `json:"categories"`
	Selected    []string                `json:"selected"`
	Summary     []ports.CategorySummary `json:"summary,omitempty"`
	Fingerprint core.Hash               `json:"fingerprint"`
	RuntimeMs   int64                   `json:"runtime_ms"`
}

// NewPipelineService creates a pipeline service. A nil summarizer skips the
// summary step; a nil logger uses the package default.
func NewPipelineService(renderer ports.ChartRenderer, summarizer ports.Summarizer, logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PipelineService{
		renderer:   renderer,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Run loads src and applies req. Any error halts the pipeline.
func (s *PipelineService) Run(ctx context.Context, src ports.TableSource, req Request) (*Result, error) {
	startTime := time.Now()
	runID := core.NewRunID()

	// Step 1: Load the raw table
	raw, err := src.Load(ctx)
	if err != nil {
		s.logger.Warn("[Pipeline] %s: load from %s failed: %v", runID, src.Describe(), err)
		return nil, err
	}

	return s.run(runID, src.Describe(), raw, req, startTime)
}

// RunTable applies req to an already loaded table, e.g. an upload or a JSON body
func (s *PipelineService) RunTable(raw *dataset.RawTable, origin string, req Request) (*Result, error) {
	return s.run(core.NewRunID(), origin, raw, req, time.Now())
}

func (s *PipelineService) run(runID core.RunID, origin string, raw *dataset.RawTable, req Request, startTime time.Time) (*Result, error) {
	// Step 2: Reshape wide (or long) rows into records
	var records []dataset.Record
	var err error
	if req.Long != nil {
		records, err = normalize.FromLong(raw, *req.Long)
	} else {
		records, err = normalize.Normalize(raw, req.Normalize)
	}
	if err != nil {
		s.logger.Warn("[Pipeline] %s: normalizing %s failed: %v", runID, origin, err)
		return nil, err
	}

	categories := normalize.ListCategories(records)

	// Step 3: Apply the category selection
	filtered := records
	selected := categories
	if req.Selection != nil {
		if err := normalize.ValidateSelection(records, *req.Selection); err != nil {
			return nil, err
		}
		filtered = normalize.FilterByCategory(records, *req.Selection)
		selected = req.Selection.Labels()
	}

	result := &Result{
		RunID:       runID,
		Source:      origin,
		Records:     records,
		Filtered:    filtered,
		Categories:  categories,
		Selected:    selected,
		Fingerprint: dataset.Fingerprint(filtered),
	}

	// Step 4: Summarize the selected categories
	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(filtered)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize records: %w", err)
		}
		result.Summary = summary
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("[Pipeline] %s: %s → %d records, %d categories, %d selected in %dms",
		runID, origin, len(records), len(categories), len(filtered), result.RuntimeMs)
	return result, nil
}

// RenderChart draws the filtered records of result
func (s *PipelineService) RenderChart(w io.Writer, result *Result, cfg chart.Config) error {
	if s.renderer == nil {
		return fmt.Errorf("no chart renderer configured")
	}
	if result == nil {
		return fmt.Errorf("no pipeline result to render")
	}
	if err := s.renderer.Render(w, result.Filtered, cfg); err != nil {
		s.logger.Error("[Pipeline] %s: chart rendering failed: %v", result.RunID, err)
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
