package dataset

import (
	"encoding/json"
	"strconv"
)

// PeriodKey is the canonical label the period column is renamed to.
const PeriodKey = "period"

// Row maps a column label to its raw cell. Cells are strings or numbers
// (int, int64, float64, json.Number); an absent key is an absent cell.
type Row map[string]any

// RawTable is a wide table as read from a source: one row per period, one
// column per category plus the period column and any bookkeeping columns.
type RawTable struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// NewRawTable builds a table from a header row and positional string rows,
// the shape produced by CSV and spreadsheet readers. Short rows leave the
// trailing cells absent.
func NewRawTable(headers []string, rows [][]string) *RawTable {
	t := &RawTable{Headers: headers, Rows: make([]Row, 0, len(rows))}
	for _, cells := range rows {
		row := make(Row, len(headers))
		for j, cell := range cells {
			if j < len(headers) {
				row[headers[j]] = cell
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ColumnIndex returns the position of the named column, or -1.
func (t *RawTable) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the header row contains name.
func (t *RawTable) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Period is the time key of a row: usually a year, sometimes an ordinal label.
type Period struct {
	Label   string
	Num     int64
	Numeric bool
}

// NumericPeriod returns a period keyed by an integer such as a year.
func NumericPeriod(n int64) Period {
	return Period{Label: strconv.FormatInt(n, 10), Num: n, Numeric: true}
}

// LabelPeriod returns an ordinal period such as "2020 Q1".
func LabelPeriod(label string) Period {
	return Period{Label: label}
}

func (p Period) String() string { return p.Label }

// Less orders numeric periods numerically and before labelled ones; labels
// compare lexicographically.
func (p Period) Less(other Period) bool {
	switch {
	case p.Numeric && other.Numeric:
		return p.Num < other.Num
	case p.Numeric != other.Numeric:
		return p.Numeric
	default:
		return p.Label < other.Label
	}
}

// MarshalJSON writes numeric periods as JSON numbers and labels as strings.
func (p Period) MarshalJSON() ([]byte, error) {
	if p.Numeric {
		return []byte(strconv.FormatInt(p.Num, 10)), nil
	}
	return json.Marshal(p.Label)
}

// Record is one (period, category) observation in long form.
type Record struct {
	Period   Period `json:"period"`
	Category string `json:"category"`
	Value    int64  `json:"value"`
}
