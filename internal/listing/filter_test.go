package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	s := FilterState{Visibility: "x", QuickDate: "y", SortBy: "z", Page: 0, PageSize: 7}
	assert.Equal(t, DefaultFilterState(), s.Normalize())
}

func TestSameFilters_IgnoresPagination(t *testing.T) {
	a := DefaultFilterState()
	b := a
	b.Page = 9
	b.PageSize = 50
	assert.True(t, a.SameFilters(b))

	b.Author = "x"
	assert.False(t, a.SameFilters(b))
}

func TestCleared_KeepsCategoryAndPageSize(t *testing.T) {
	s := FilterState{
		CategoryID: "4",
		Search:     "ai",
		Author:     "bob",
		Visibility: VisibilityHidden,
		QuickDate:  QuickDateToday,
		SortBy:     SortCreatedDesc,
		Published:  DateRange{Start: date("2024-01-01")},
		Page:       5,
		PageSize:   50,
	}

	got := s.Cleared()
	want := DefaultFilterState()
	want.CategoryID = "4"
	want.PageSize = 50
	assert.Equal(t, want, got)
}

func TestActiveFilters_Order(t *testing.T) {
	s := FilterState{
		CategoryID:   "2",
		Search:       "ai",
		SourceDomain: "example.com",
		Author:       "bob",
		Visibility:   VisibilityVisible,
		Published:    DateRange{Start: date("2024-01-01"), End: date("2024-01-31")},
		Created:      DateRange{End: date("2024-02-01")},
		SortBy:       SortCreatedDesc,
		Page:         1,
		PageSize:     10,
	}
	names := func(id string) string {
		if id == "2" {
			return "Science"
		}
		return ""
	}

	assert.Equal(t, []string{
		"Category: Science",
		`Search: "ai"`,
		"Source: example.com",
		"Author: bob",
		"Visibility: visible",
		"Published: 2024-01-01 to 2024-01-31",
		"Created: any to 2024-02-01",
		"Sort: newest added",
	}, s.ActiveFilters(names))
}

func TestActiveFilters_QuickDateAndUnknownCategory(t *testing.T) {
	s := DefaultFilterState()
	s.CategoryID = "99"
	s.QuickDate = QuickDate30d

	assert.Equal(t, []string{"Category: 99", "Published: last 30 days"}, s.ActiveFilters(nil))
	assert.Empty(t, DefaultFilterState().ActiveFilters(nil))
}

func TestFence(t *testing.T) {
	var f Fence
	a := f.Next()
	b := f.Next()
	assert.False(t, f.IsCurrent(a))
	assert.True(t, f.IsCurrent(b))
	assert.Equal(t, b, f.Latest())
}
