package testkit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"popdash/domain/chart"
	"popdash/domain/core"
	"popdash/domain/dataset"
)

// StaticSource serves a fixed raw table. Each Load returns a fresh copy so
// callers may mutate the result.
type StaticSource struct {
	Name  string
	Table *dataset.RawTable

	mu    sync.Mutex
	loads int
}

// NewStaticSource creates a source from headers and string rows
func NewStaticSource(name string, headers []string, rows [][]string) *StaticSource {
	return &StaticSource{Name: name, Table: dataset.NewRawTable(headers, rows)}
}

// Load returns a copy of the table
func (s *StaticSource) Load(ctx context.Context) (*dataset.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewDataSourceError(s.Describe(), err)
	}
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()

	out := &dataset.RawTable{
		Headers: append([]string(nil), s.Table.Headers...),
		Rows:    make([]dataset.Row, len(s.Table.Rows)),
	}
	for i, row := range s.Table.Rows {
		cp := make(dataset.Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out, nil
}

// Describe returns the source name
func (s *StaticSource) Describe() string {
	if s.Name == "" {
		return "static"
	}
	return s.Name
}

// Loads reports how many times Load was called
func (s *StaticSource) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// FailingSource always fails with a DataSourceError
type FailingSource struct {
	Name string
	Err  error
}

func (s *FailingSource) Load(ctx context.Context) (*dataset.RawTable, error) {
	err := s.Err
	if err == nil {
		err = fmt.Errorf("connection refused")
	}
	return nil, core.NewDataSourceError(s.Describe(), err)
}

func (s *FailingSource) Describe() string {
	if s.Name == "" {
		return "failing"
	}
	return s.Name
}

// RecordingRenderer captures what it was asked to draw and writes a marker
// instead of an image.
type RecordingRenderer struct {
	mu      sync.Mutex
	Calls   int
	Records []dataset.Record
	Config  chart.Config
	Err     error
}

// Render records the call
func (r *RecordingRenderer) Render(w io.Writer, records []dataset.Record, cfg chart.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	r.Records = append([]dataset.Record(nil), records...)
	r.Config = cfg
	if r.Err != nil {
		return r.Err
	}
	_, err := fmt.Fprintf(w, "chart:%s:%d", cfg.Mode, len(records))
	return err
}

// AgeGroupHeaders and AgeGroupRows mirror a typical age-group export: an
// unnamed year column, a region column, the age groups and a total.
var AgeGroupHeaders = []string{"Unnamed: 0", "region", "0-14", "15-64", "65+", "total"}

var AgeGroupRows = [][]string{
	{"2019", "X", "1,100", "5,000", "800", "6,900"},
	{"2019", "Y", "900", "4,000", "700", "5,600"},
	{"2020", "X", "1,234", "5,100", "850", "7,184"},
	{"2020", "Y", "950", "4,100", "720", "5,770"},
	{"2021", "X", "1,300", "5,150", "900", "7,350"},
	{"2021", "Y", "980", "4,050", "760", "5,790"},
}

// AgeGroupSource returns a StaticSource over the age-group fixture
func AgeGroupSource() *StaticSource {
	return NewStaticSource("age-groups", AgeGroupHeaders, AgeGroupRows)
}

// AgeGroupCSV renders the age-group fixture as CSV text
func AgeGroupCSV() string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(AgeGroupHeaders)
	_ = w.WriteAll(AgeGroupRows)
	return buf.String()
}
