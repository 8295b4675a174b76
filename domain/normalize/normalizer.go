// Package normalize turns wide population and business-count tables into
// long (period, category, value) records and filters them by category.
package normalize

import (
	"fmt"

	"popdash/domain/core"
	"popdash/domain/dataset"
)

// indexedRow keeps the source position of a row for error reporting.
type indexedRow struct {
	index int
	row   dataset.Row
}

// Normalize reshapes a wide table into one record per (period, category).
// It is a pure function of its inputs; the first coercion failure aborts the
// whole run.
func Normalize(raw *dataset.RawTable, opts Options) ([]dataset.Record, error) {
	if raw == nil || len(raw.Headers) == 0 {
		return nil, &core.SchemaError{Column: opts.Period.String(), Reason: "table has no columns"}
	}
	if err := checkUniqueHeaders(raw.Headers); err != nil {
		return nil, err
	}

	// Step 1: Rename the hinted column to the canonical period key
	periodColumn, err := opts.Period.resolve(raw.Headers)
	if err != nil {
		return nil, err
	}

	// Step 2: Optional row filter for tables carrying several regions
	rows, err := filterRows(raw, opts.RowFilter)
	if err != nil {
		return nil, err
	}

	// Step 3: Reshape every remaining column into records
	excluded := make(map[string]bool, len(opts.Blocklist)+2)
	excluded[periodColumn] = true
	for _, col := range opts.Blocklist {
		excluded[col] = true
	}
	if opts.RowFilter != nil {
		excluded[opts.RowFilter.Column] = true
	}
	var categories []string
	for _, h := range raw.Headers {
		if !excluded[h] {
			categories = append(categories, h)
		}
	}

	separators := separatorsOrDefault(opts.Separators)
	seen := make(map[string]int, len(rows))
	records := make([]dataset.Record, 0, len(rows)*len(categories))

	for _, ir := range rows {
		period, ok := parsePeriod(ir.row[periodColumn])
		if !ok {
			return nil, &core.SchemaError{
				Column: periodColumn,
				Reason: fmt.Sprintf("row %d has no %s value", ir.index, dataset.PeriodKey),
			}
		}
		if prev, dup := seen[period.Label]; dup {
			return nil, &core.SchemaError{
				Column: periodColumn,
				Reason: fmt.Sprintf("duplicate %s %s in rows %d and %d", dataset.PeriodKey, period, prev, ir.index),
			}
		}
		seen[period.Label] = ir.index

		// Step 4: Numeric coercion, failing loudly by default
		for _, category := range categories {
			value, keep, err := coerceCell(ir.row[category], opts.Missing, separators)
			if err != nil {
				err.Row, err.Period, err.Category = ir.index, period.Label, category
				return nil, err
			}
			if keep {
				records = append(records, dataset.Record{Period: period, Category: category, Value: value})
			}
		}
	}

	return records, nil
}

// FromLong validates and coerces a table that is already in long form.
// A repeated (period, category) pair is a schema error.
func FromLong(raw *dataset.RawTable, opts LongOptions) ([]dataset.Record, error) {
	if raw == nil {
		return nil, &core.SchemaError{Column: opts.PeriodColumn, Reason: "table has no columns"}
	}
	if err := checkUniqueHeaders(raw.Headers); err != nil {
		return nil, err
	}
	for _, col := range []string{opts.PeriodColumn, opts.CategoryColumn, opts.ValueColumn} {
		if col == "" || !raw.HasColumn(col) {
			return nil, core.NewMissingColumnError(col)
		}
	}

	rows, err := filterRows(raw, opts.RowFilter)
	if err != nil {
		return nil, err
	}

	separators := separatorsOrDefault(opts.Separators)
	seen := make(map[[2]string]int, len(rows))
	records := make([]dataset.Record, 0, len(rows))

	for _, ir := range rows {
		period, ok := parsePeriod(ir.row[opts.PeriodColumn])
		if !ok {
			return nil, &core.SchemaError{
				Column: opts.PeriodColumn,
				Reason: fmt.Sprintf("row %d has no %s value", ir.index, dataset.PeriodKey),
			}
		}
		category := cellText(ir.row[opts.CategoryColumn])
		if category == "" {
			return nil, &core.SchemaError{
				Column: opts.CategoryColumn,
				Reason: fmt.Sprintf("row %d has no category", ir.index),
			}
		}
		key := [2]string{period.Label, category}
		if prev, dup := seen[key]; dup {
			return nil, &core.SchemaError{
				Column: opts.CategoryColumn,
				Reason: fmt.Sprintf("duplicate pair (%s, %s) in rows %d and %d", period, category, prev, ir.index),
			}
		}
		seen[key] = ir.index

		value, keep, perr := coerceCell(ir.row[opts.ValueColumn], opts.Missing, separators)
		if perr != nil {
			perr.Row, perr.Period, perr.Category = ir.index, period.Label, category
			return nil, perr
		}
		if keep {
			records = append(records, dataset.Record{Period: period, Category: category, Value: value})
		}
	}

	return records, nil
}

// checkUniqueHeaders rejects repeated labels, which would otherwise emit the
// same (period, category) pair twice per row.
func checkUniqueHeaders(headers []string) error {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if seen[h] {
			return &core.SchemaError{Column: h, Reason: "duplicate column"}
		}
		seen[h] = true
	}
	return nil
}

func filterRows(raw *dataset.RawTable, filter *RowFilter) ([]indexedRow, error) {
	if filter != nil && !raw.HasColumn(filter.Column) {
		return nil, core.NewMissingColumnError(filter.Column)
	}
	rows := make([]indexedRow, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		if filter != nil && cellText(row[filter.Column]) != cellText(filter.Value) {
			continue
		}
		rows = append(rows, indexedRow{index: i, row: row})
	}
	return rows, nil
}

// coerceCell applies the missing policy and count parsing to one cell.
// keep is false when the cell is skipped.
func coerceCell(cell any, policy MissingPolicy, separators string) (value int64, keep bool, err *core.ValueParseError) {
	if isMissing(cell) {
		switch policy {
		case MissingZero:
			return 0, true, nil
		case MissingSkip:
			return 0, false, nil
		default:
			return 0, false, &core.ValueParseError{Raw: cellText(cell), Reason: reasonMissing}
		}
	}
	n, reason := parseCount(cell, separators)
	if reason != "" {
		return 0, false, &core.ValueParseError{Raw: cellText(cell), Reason: reason}
	}
	return n, true, nil
}
