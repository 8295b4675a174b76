package normalize

import (
	"sort"

	"popdash/domain/core"
	"popdash/domain/dataset"
)

// ListCategories returns each category label once, in ascending
// lexicographic order. It feeds the selection control.
func ListCategories(records []dataset.Record) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

// ListPeriods returns the distinct periods in ascending order.
func ListPeriods(records []dataset.Record) []dataset.Period {
	seen := make(map[string]struct{})
	out := make([]dataset.Period, 0)
	for _, r := range records {
		if _, ok := seen[r.Period.Label]; ok {
			continue
		}
		seen[r.Period.Label] = struct{}{}
		out = append(out, r.Period)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// FilterByCategory keeps the records whose category is selected, in their
// input order. An empty selection yields an empty slice.
func FilterByCategory(records []dataset.Record, sel dataset.Selection) []dataset.Record {
	out := make([]dataset.Record, 0, len(records))
	if sel.Len() == 0 {
		return out
	}
	for _, r := range records {
		if sel.Contains(r.Category) {
			out = append(out, r)
		}
	}
	return out
}

// ValidateSelection rejects labels that do not occur in records.
func ValidateSelection(records []dataset.Record, sel dataset.Selection) error {
	known := make(map[string]struct{})
	for _, r := range records {
		known[r.Category] = struct{}{}
	}
	var unknown []string
	for _, label := range sel.Labels() {
		if _, ok := known[label]; !ok {
			unknown = append(unknown, label)
		}
	}
	if len(unknown) > 0 {
		return core.NewUnknownCategoryError(unknown)
	}
	return nil
}
