package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"popdash/domain/core"
	"popdash/domain/dataset"
	"popdash/internal"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
}

// NewDataReader creates a new data reader that handles both Excel and CSV files.
// An empty sheet selects the first sheet of a workbook.
func NewDataReader(filePath, sheet string) *DataReader {
	fileType := DetectFileType(filePath)
	if fileType == "" {
		fileType = FileTypeXLSX
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: sheet}
}

// Describe returns the file path
func (r *DataReader) Describe() string {
	return r.filePath
}

// Load reads the file into a raw table. The file is read fresh on every call.
func (r *DataReader) Load(ctx context.Context) (*dataset.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewDataSourceError(r.filePath, err)
	}
	internal.DefaultLogger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, core.NewDataSourceError(r.filePath, err)
	}
	defer f.Close()

	table, err := Parse(f, r.fileType, r.sheet)
	if err != nil {
		return nil, core.NewDataSourceError(r.filePath, err)
	}
	return table, nil
}

// ReadUpload parses a user-supplied upload stream. The file name decides
// between CSV and XLSX.
func ReadUpload(rd io.Reader, filename, sheet string) (*dataset.RawTable, error) {
	fileType := DetectFileType(filename)
	if fileType == "" {
		return nil, core.NewDataSourceError(filename, fmt.Errorf("unsupported file type (want .csv or .xlsx)"))
	}
	table, err := Parse(rd, fileType, sheet)
	if err != nil {
		return nil, core.NewDataSourceError(filename, err)
	}
	return table, nil
}

// ParseBytes parses an in-memory CSV or XLSX document.
func ParseBytes(data []byte, fileType, sheet string) (*dataset.RawTable, error) {
	return Parse(bytes.NewReader(data), fileType, sheet)
}

// Parse reads a CSV or XLSX stream into a raw table
func Parse(rd io.Reader, fileType, sheet string) (*dataset.RawTable, error) {
	var rows [][]string
	var err error

	readStart := time.Now()
	switch fileType {
	case FileTypeCSV:
		rows, err = readCSVRows(rd)
	case FileTypeXLSX:
		rows, err = readExcelRows(rd, sheet)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
	if err != nil {
		return nil, err
	}
	internal.DefaultLogger.Debug("[DataReader] %s read in %.2fms (%d rows)",
		strings.ToUpper(fileType), float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return processRows(rows)
}

// readCSVRows reads every CSV record; ragged rows are allowed
func readCSVRows(rd io.Reader) ([][]string, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// readExcelRows reads the configured sheet, or the first one
func readExcelRows(rd io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// processRows converts raw string rows into a table. Blank header cells get
// the positional name "Unnamed: i"; blank data rows are skipped.
func processRows(rows [][]string) (*dataset.RawTable, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have at least a header row and one data row")
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if header == "" {
			header = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[header] {
			return nil, fmt.Errorf("duplicate column %q", header)
		}
		seen[header] = true
		headers[i] = header
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		dataRows = append(dataRows, cells)
	}
	if len(dataRows) == 0 {
		return nil, fmt.Errorf("file has no data rows")
	}

	internal.DefaultLogger.Debug("[DataReader] processed %d columns, %d rows", len(headers), len(dataRows))
	return dataset.NewRawTable(headers, dataRows), nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
