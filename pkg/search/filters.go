package search

import (
	"strings"
	"time"

	"github.com/foliolabs/folio/pkg/content"
)

// ApplyFilters returns the subset of items satisfying every active
// filter group (AND across groups, OR within a group). The input slice
// is never mutated and relative order is preserved.
//
// Malformed date bounds deactivate the date predicate rather than
// erroring; an empty non-nil Types slice matches nothing.
func ApplyFilters(items []content.Item, f Filters) []content.Item {
	from, to := f.dateBounds()

	out := make([]content.Item, 0, len(items))
	for i := range items {
		if matchesFilters(&items[i], f, from, to) {
			out = append(out, items[i])
		}
	}
	return out
}

func matchesFilters(it *content.Item, f Filters, from, to time.Time) bool {
	if !matchesTypes(it, f.Types) {
		return false
	}
	if !matchesCategories(it, f.Categories) {
		return false
	}
	if !matchesTags(it, f.Tags) {
		return false
	}
	if !matchesStatus(it, f.Statuses) {
		return false
	}
	if !matchesDateRange(it, from, to) {
		return false
	}
	return true
}

// matchesTypes treats nil as unrestricted. An empty non-nil set means
// the user deselected every type, which matches nothing.
func matchesTypes(it *content.Item, types []content.ItemType) bool {
	if types == nil {
		return true
	}
	for _, t := range types {
		if it.Type == t {
			return true
		}
	}
	return false
}

func matchesCategories(it *content.Item, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	if it.Category == "" {
		return false
	}
	for _, c := range categories {
		if strings.EqualFold(it.Category, c) {
			return true
		}
	}
	return false
}

func matchesTags(it *content.Item, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range it.Tags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// matchesStatus only constrains project items; posts pass through
func matchesStatus(it *content.Item, statuses []content.ProjectStatus) bool {
	if len(statuses) == 0 || it.Type != content.TypeProject {
		return true
	}
	if it.Project == nil {
		return false
	}
	for _, s := range statuses {
		if it.Project.Status == s {
			return true
		}
	}
	return false
}

// matchesDateRange checks the effective date against [from, to]
// inclusive. Undated items fail whenever either bound is active.
func matchesDateRange(it *content.Item, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}

	d := it.EffectiveDate()
	if d.IsZero() {
		return false
	}
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

// dateBounds parses the range, silently dropping malformed bounds
func (f Filters) dateBounds() (from, to time.Time) {
	if f.DateFrom != "" {
		if t, err := content.ParseDate(f.DateFrom); err == nil {
			from = t
		}
	}
	if f.DateTo != "" {
		if t, err := content.ParseDate(f.DateTo); err == nil {
			// Inclusive upper bound covers the whole day
			to = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return from, to
}
