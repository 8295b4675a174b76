package normalize

import (
	"fmt"
	"strings"

	"popdash/domain/core"
)

// DefaultSeparators are the thousands separators stripped before parsing.
const DefaultSeparators = ","

// ColumnHint points at the period column either by position or by name.
// The zero value selects the first column.
type ColumnHint struct {
	name   string
	index  int
	byName bool
}

// ByIndex selects the column at a zero-based position.
func ByIndex(i int) ColumnHint { return ColumnHint{index: i} }

// ByName selects the column with the given header label.
func ByName(name string) ColumnHint { return ColumnHint{name: name, byName: true} }

func (h ColumnHint) String() string {
	if h.byName {
		return h.name
	}
	return fmt.Sprintf("#%d", h.index)
}

func (h ColumnHint) resolve(headers []string) (string, error) {
	if h.byName {
		for _, header := range headers {
			if header == h.name {
				return header, nil
			}
		}
		return "", core.NewMissingColumnError(h.name)
	}
	if h.index < 0 || h.index >= len(headers) {
		return "", &core.SchemaError{Column: h.String(), Reason: "no column at this position"}
	}
	return headers[h.index], nil
}

// RowFilter keeps only the rows whose Column cell equals Value. It is used
// when one sheet carries several regions or entities.
type RowFilter struct {
	Column string `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

// MissingPolicy decides what happens to an absent or empty count cell.
type MissingPolicy string

const (
	MissingFail MissingPolicy = "fail"
	MissingZero MissingPolicy = "zero"
	MissingSkip MissingPolicy = "skip"
)

// ParseMissingPolicy accepts fail, zero or skip; empty means fail.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MissingFail:
		return MissingFail, nil
	case MissingZero:
		return MissingZero, nil
	case MissingSkip:
		return MissingSkip, nil
	}
	return "", fmt.Errorf("unknown missing-value policy %q (want fail, zero or skip)", s)
}

// Options parameterize a wide-to-long normalization.
type Options struct {
	Period     ColumnHint
	RowFilter  *RowFilter
	Blocklist  []string
	Missing    MissingPolicy
	Separators string
}

// LongOptions describe a table that is already in long form, one row per
// (period, category) pair.
type LongOptions struct {
	PeriodColumn   string
	CategoryColumn string
	ValueColumn    string
	RowFilter      *RowFilter
	Missing        MissingPolicy
	Separators     string
}

func separatorsOrDefault(s string) string {
	if s == "" {
		return DefaultSeparators
	}
	return s
}
