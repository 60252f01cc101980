// Package activity filters and orders a user's activity log the way the
// activity page presents it.
package activity

import (
	"sort"
	"strings"

	"github.com/dukerupert/reloop/internal/model"
)

const (
	SortDate   = "date"
	SortPoints = "points"
	SortID     = "id"

	// AllCategories disables the category filter.
	AllCategories = "all"
)

type Filter struct {
	Category      string
	Search        string
	RecyclingOnly bool
	Sort          string
}

// Apply returns the entries matching f in the order f.Sort asks for. Dates
// and points sort descending, ids ascending. An unknown sort keeps date
// order. The result is never nil.
func Apply(entries []model.Activity, f Filter) []model.Activity {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.TrimSpace(f.Category)

	out := make([]model.Activity, 0, len(entries))
	for _, a := range entries {
		if f.RecyclingOnly && !a.IsRecycling {
			continue
		}
		if category != "" && !strings.EqualFold(category, AllCategories) && !strings.EqualFold(a.Category, category) {
			continue
		}
		if search != "" && !matches(a, search) {
			continue
		}
		out = append(out, a)
	}

	switch f.Sort {
	case SortPoints:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	case SortID:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

func matches(a model.Activity, search string) bool {
	for _, field := range []string{a.Type, a.Category, a.Item} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// Categories returns the distinct categories in entries, sorted.
func Categories(entries []model.Activity) []string {
	seen := make(map[string]struct{})
	cats := []string{}
	for _, a := range entries {
		if _, ok := seen[a.Category]; ok {
			continue
		}
		seen[a.Category] = struct{}{}
		cats = append(cats, a.Category)
	}
	sort.Strings(cats)
	return cats
}
