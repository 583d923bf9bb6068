// Package listing holds the article list state machine: filter state, its
// query-string form, debounced and fenced fetching, and incremental loading.
package listing

import (
	"fmt"
	"slices"
	"time"
)

type Visibility string

const (
	VisibilityAll     Visibility = ""
	VisibilityVisible Visibility = "visible"
	VisibilityHidden  Visibility = "hidden"
)

func (v Visibility) valid() bool {
	return v == VisibilityAll || v == VisibilityVisible || v == VisibilityHidden
}

// QuickDate is a relative publication window the backend resolves.
type QuickDate string

const (
	QuickDateNone  QuickDate = ""
	QuickDateToday QuickDate = "today"
	QuickDate3d    QuickDate = "3d"
	QuickDate7d    QuickDate = "7d"
	QuickDate30d   QuickDate = "30d"
)

var QuickDates = []QuickDate{QuickDateNone, QuickDateToday, QuickDate3d, QuickDate7d, QuickDate30d}

func (q QuickDate) valid() bool { return slices.Contains(QuickDates, q) }

func (q QuickDate) Label() string {
	switch q {
	case QuickDateToday:
		return "today"
	case QuickDate3d:
		return "last 3 days"
	case QuickDate7d:
		return "last 7 days"
	case QuickDate30d:
		return "last 30 days"
	}
	return "any time"
}

type SortBy string

const (
	SortPublishedDesc SortBy = "published_at_desc"
	SortCreatedDesc   SortBy = "created_at_desc"
)

func (s SortBy) valid() bool { return s == SortPublishedDesc || s == SortCreatedDesc }

const (
	DefaultPageSize = 10
	DefaultSort     = SortPublishedDesc
	dateLayout      = "2006-01-02"
)

var PageSizes = []int{10, 20, 50, 100}

func ValidPageSize(n int) bool { return slices.Contains(PageSizes, n) }

// DateRange bounds are calendar days at UTC midnight. A zero bound is open.
// Start <= End is left to the backend.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", formatDay(r.Start, "any"), formatDay(r.End, "any"))
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatDay(t time.Time, empty string) string {
	if t.IsZero() {
		return empty
	}
	return t.Format(dateLayout)
}

type FilterState struct {
	CategoryID   string
	Search       string
	SourceDomain string
	Author       string
	Visibility   Visibility
	QuickDate    QuickDate
	SortBy       SortBy
	Published    DateRange
	Created      DateRange
	Page         int
	PageSize     int
}

func DefaultFilterState() FilterState {
	return FilterState{SortBy: DefaultSort, Page: 1, PageSize: DefaultPageSize}
}

// Normalize replaces out-of-range values with their defaults.
func (s FilterState) Normalize() FilterState {
	if !s.Visibility.valid() {
		s.Visibility = VisibilityAll
	}
	if !s.QuickDate.valid() {
		s.QuickDate = QuickDateNone
	}
	if !s.SortBy.valid() {
		s.SortBy = DefaultSort
	}
	if s.Page < 1 {
		s.Page = 1
	}
	if !ValidPageSize(s.PageSize) {
		s.PageSize = DefaultPageSize
	}
	s.Published = DateRange{Start: Day(s.Published.Start), End: Day(s.Published.End)}
	s.Created = DateRange{Start: Day(s.Created.Start), End: Day(s.Created.End)}
	return s
}

// SameFilters compares everything except pagination.
func (s FilterState) SameFilters(o FilterState) bool {
	s.Page, o.Page = 0, 0
	s.PageSize, o.PageSize = 0, 0
	return s.Normalize() == o.Normalize()
}

// Cleared resets every filter to its default except the category and the
// page size, and goes back to the first page.
func (s FilterState) Cleared() FilterState {
	out := DefaultFilterState()
	out.CategoryID = s.CategoryID
	if ValidPageSize(s.PageSize) {
		out.PageSize = s.PageSize
	}
	return out
}

// ActiveFilters lists the non-default filters in display order. categoryName
// resolves a category id to a label and may be nil.
func (s FilterState) ActiveFilters(categoryName func(id string) string) []string {
	var out []string
	if s.CategoryID != "" {
		name := s.CategoryID
		if categoryName != nil {
			if n := categoryName(s.CategoryID); n != "" {
				name = n
			}
		}
		out = append(out, "Category: "+name)
	}
	if s.Search != "" {
		out = append(out, fmt.Sprintf("Search: %q", s.Search))
	}
	if s.SourceDomain != "" {
		out = append(out, "Source: "+s.SourceDomain)
	}
	if s.Author != "" {
		out = append(out, "Author: "+s.Author)
	}
	if s.Visibility != VisibilityAll {
		out = append(out, "Visibility: "+string(s.Visibility))
	}
	switch {
	case !s.Published.IsZero():
		out = append(out, "Published: "+s.Published.String())
	case s.QuickDate != QuickDateNone:
		out = append(out, "Published: "+s.QuickDate.Label())
	}
	if !s.Created.IsZero() {
		out = append(out, "Created: "+s.Created.String())
	}
	if s.SortBy != DefaultSort {
		out = append(out, "Sort: "+sortLabel(s.SortBy))
	}
	return out
}

func sortLabel(s SortBy) string {
	if s == SortCreatedDesc {
		return "newest added"
	}
	return "newest published"
}
