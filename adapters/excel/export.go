package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"popdash/domain/dataset"
)

const exportSheet = "records"

var exportHeaders = []string{dataset.PeriodKey, "category", "value"}

// WorkbookExporter writes long-form records to an XLSX workbook
type WorkbookExporter struct{}

// NewWorkbookExporter creates an XLSX exporter
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{}
}

// ContentType returns the XLSX MIME type
func (e *WorkbookExporter) ContentType() string {
	return ContentTypeXLSX
}

// Export writes one row per record under a period/category/value header
func (e *WorkbookExporter) Export(w io.Writer, records []dataset.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, r := range records {
		row := i + 2
		var period interface{} = r.Period.Label
		if r.Period.Numeric {
			period = r.Period.Num
		}
		values := []interface{}{period, r.Category, r.Value}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// CSVExporter writes long-form records as CSV
type CSVExporter struct{}

// NewCSVExporter creates a CSV exporter
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType returns the CSV MIME type
func (e *CSVExporter) ContentType() string {
	return "text/csv"
}

// Export writes a header and one line per record
func (e *CSVExporter) Export(w io.Writer, records []dataset.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Period.Label, r.Category, strconv.FormatInt(r.Value, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
