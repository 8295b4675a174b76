package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"popdash/domain/core"
	"popdash/domain/dataset"
)

const reasonMissing = "missing value"

// CoerceCount converts a cell into a non-negative integer count. Text has
// its thousands separators stripped first; numbers pass through when they
// are integral and non-negative.
func CoerceCount(cell any, separators string) (int64, error) {
	n, reason := parseCount(cell, separatorsOrDefault(separators))
	if reason != "" {
		return 0, &core.ValueParseError{Row: -1, Raw: cellText(cell), Reason: reason}
	}
	return n, nil
}

func parseCount(cell any, separators string) (int64, string) {
	switch v := cell.(type) {
	case nil:
		return 0, reasonMissing
	case string:
		return parseCountText(v, separators)
	case int:
		return checkSign(int64(v))
	case int32:
		return checkSign(int64(v))
	case int64:
		return checkSign(v)
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, "count out of range"
		}
		return int64(v), ""
	case uint32:
		return int64(v), ""
	case uint64:
		if v > math.MaxInt64 {
			return 0, "count out of range"
		}
		return int64(v), ""
	case float32:
		return parseCountFloat(float64(v))
	case float64:
		return parseCountFloat(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return checkSign(n)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, "not a number"
		}
		return parseCountFloat(f)
	}
	return 0, fmt.Sprintf("unsupported cell type %T", cell)
}

func parseCountText(s, separators string) (int64, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, reasonMissing
	}
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(separators, r) {
			return -1
		}
		return r
	}, s)
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, "count out of range"
		}
		return 0, "not an integer"
	}
	return checkSign(n)
}

func parseCountFloat(f float64) (int64, string) {
	switch {
	case math.IsNaN(f):
		return 0, reasonMissing
	case math.IsInf(f, 0) || f >= 1<<63 || f < -1<<63:
		return 0, "count out of range"
	case f != math.Trunc(f):
		return 0, "not an integer"
	}
	return checkSign(int64(f))
}

func checkSign(n int64) (int64, string) {
	if n < 0 {
		return 0, "negative count"
	}
	return n, ""
}

// isMissing reports whether a cell should be handled by the missing policy.
func isMissing(cell any) bool {
	switch v := cell.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

// parsePeriod reads the period key of a row. Integer-like cells become
// numeric periods; anything else is kept as an ordinal label.
func parsePeriod(cell any) (dataset.Period, bool) {
	if isMissing(cell) {
		return dataset.Period{}, false
	}
	switch v := cell.(type) {
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return dataset.NumericPeriod(n), true
		}
		return dataset.LabelPeriod(s), true
	case int:
		return dataset.NumericPeriod(int64(v)), true
	case int32:
		return dataset.NumericPeriod(int64(v)), true
	case int64:
		return dataset.NumericPeriod(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return dataset.NumericPeriod(int64(v)), true
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return dataset.NumericPeriod(n), true
		}
	}
	return dataset.LabelPeriod(cellText(cell)), true
}

// cellText renders a cell the way it would appear in the source sheet.
func cellText(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprint(cell)
}
