package dataset

import "sort"

// Selection is the set of category labels a consumer chose to display.
// It never changes the underlying records.
type Selection map[string]struct{}

// NewSelection builds a selection from labels; duplicates collapse.
func NewSelection(labels ...string) Selection {
	s := make(Selection, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Contains reports whether label is selected.
func (s Selection) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

// Len returns the number of selected labels.
func (s Selection) Len() int { return len(s) }

// Labels returns the selected labels in ascending order.
func (s Selection) Labels() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
