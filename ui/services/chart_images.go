package services

import (
	"bytes"
	"encoding/base64"
	"html/template"

	"popdash/app"
	"popdash/domain/chart"
)

// ChartImageService renders charts for embedding directly in a page, used
// where nothing may be kept server-side between requests.
type ChartImageService struct {
	pipeline *app.PipelineService
}

func NewChartImageService(pipeline *app.PipelineService) *ChartImageService {
	return &ChartImageService{pipeline: pipeline}
}

// DataURI renders the result's filtered records and returns a data: URL
func (s *ChartImageService) DataURI(result *app.Result, cfg chart.Config) (template.URL, error) {
	cfg = cfg.WithDefaults()
	var buf bytes.Buffer
	if err := s.pipeline.RenderChart(&buf, result, cfg); err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return template.URL("data:" + cfg.Format.ContentType() + ";base64," + encoded), nil
}
