package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"popdash/domain/core"
	"popdash/domain/dataset"
	"popdash/internal"
)

// QuerySource loads a wide table from the result of a SQL query. Column names
// become headers; each result row becomes one raw row.
type QuerySource struct {
	db    *sqlx.DB
	query string
	name  string
}

// NewQuerySource creates a source running query against db
func NewQuerySource(db *sqlx.DB, name, query string) *QuerySource {
	return &QuerySource{db: db, query: query, name: name}
}

// Describe returns a short label for logs and error messages
func (s *QuerySource) Describe() string {
	return "postgres:" + s.name
}

// Load runs the query and collects every row
func (s *QuerySource) Load(ctx context.Context) (*dataset.RawTable, error) {
	if s.db == nil {
		return nil, core.NewDataSourceError(s.Describe(), fmt.Errorf("no database connection configured"))
	}
	startTime := time.Now()

	rows, err := s.db.QueryxContext(ctx, s.query)
	if err != nil {
		return nil, core.NewDataSourceError(s.Describe(), fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, core.NewDataSourceError(s.Describe(), err)
	}

	var values [][]interface{}
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, core.NewDataSourceError(s.Describe(), fmt.Errorf("failed to scan row: %w", err))
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewDataSourceError(s.Describe(), err)
	}

	table, err := rowsToTable(columns, values)
	if err != nil {
		return nil, core.NewDataSourceError(s.Describe(), err)
	}

	internal.DefaultLogger.Info("[QuerySource] %s returned %d rows in %v", s.name, table.Len(), time.Since(startTime))
	return table, nil
}

// rowsToTable converts scanned values into a raw table. Text arrives as
// []byte from lib/pq; NULL leaves the cell absent.
func rowsToTable(columns []string, values [][]interface{}) (*dataset.RawTable, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("query returned no rows")
	}

	headers := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		col = strings.TrimSpace(col)
		if seen[col] {
			return nil, fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = true
		headers[i] = col
	}

	table := &dataset.RawTable{Headers: headers, Rows: make([]dataset.Row, 0, len(values))}
	for _, vals := range values {
		row := make(dataset.Row, len(headers))
		for j, v := range vals {
			if j >= len(headers) || v == nil {
				continue
			}
			row[headers[j]] = cellValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func cellValue(v interface{}) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return strconv.Itoa(val.Year())
	default:
		return val
	}
}
