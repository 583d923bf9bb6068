package listing

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Canonical location keys.
const (
	KeyCategory       = "category_id"
	KeySearch         = "search"
	KeySource         = "source_domain"
	KeyAuthor         = "author"
	KeyVisibility     = "visibility"
	KeyQuickDate      = "quick_date"
	KeySortBy         = "sort_by"
	KeyPublishedStart = "published_at_start"
	KeyPublishedEnd   = "published_at_end"
	KeyCreatedStart   = "created_at_start"
	KeyCreatedEnd     = "created_at_end"
	KeyPage           = "page"
	KeySize           = "size"
)

var Keys = []string{
	KeyCategory, KeySearch, KeySource, KeyAuthor, KeyVisibility, KeyQuickDate,
	KeySortBy, KeyPublishedStart, KeyPublishedEnd, KeyCreatedStart, KeyCreatedEnd,
	KeyPage, KeySize,
}

var knownKeys = func() map[string]bool {
	m := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		m[k] = true
	}
	return m
}()

// QueryRecord maps whitelisted keys to values. An absent key means the
// field's default.
type QueryRecord map[string]string

// Encode emits only the fields that differ from their defaults.
func Encode(s FilterState) QueryRecord {
	s = s.Normalize()
	q := QueryRecord{}
	set := func(k, v string) {
		if v != "" {
			q[k] = v
		}
	}
	set(KeyCategory, s.CategoryID)
	set(KeySearch, s.Search)
	set(KeySource, s.SourceDomain)
	set(KeyAuthor, s.Author)
	set(KeyVisibility, string(s.Visibility))
	set(KeyQuickDate, string(s.QuickDate))
	if s.SortBy != DefaultSort {
		set(KeySortBy, string(s.SortBy))
	}
	set(KeyPublishedStart, formatDay(s.Published.Start, ""))
	set(KeyPublishedEnd, formatDay(s.Published.End, ""))
	set(KeyCreatedStart, formatDay(s.Created.Start, ""))
	set(KeyCreatedEnd, formatDay(s.Created.End, ""))
	if s.Page != 1 {
		set(KeyPage, strconv.Itoa(s.Page))
	}
	if s.PageSize != DefaultPageSize {
		set(KeySize, strconv.Itoa(s.PageSize))
	}
	return q
}

// Decode never fails. Malformed or unknown values become defaults.
func Decode(q QueryRecord) FilterState {
	s := DefaultFilterState()
	s.CategoryID = q[KeyCategory]
	s.Search = q[KeySearch]
	s.SourceDomain = q[KeySource]
	s.Author = q[KeyAuthor]
	s.Visibility = Visibility(q[KeyVisibility])
	s.QuickDate = QuickDate(q[KeyQuickDate])
	if v := q[KeySortBy]; v != "" {
		s.SortBy = SortBy(v)
	}
	s.Published = DateRange{Start: day(q[KeyPublishedStart]), End: day(q[KeyPublishedEnd])}
	s.Created = DateRange{Start: day(q[KeyCreatedStart]), End: day(q[KeyCreatedEnd])}
	if n, err := strconv.Atoi(q[KeyPage]); err == nil {
		s.Page = n
	}
	if n, err := strconv.Atoi(q[KeySize]); err == nil {
		s.PageSize = n
	}
	return s.Normalize()
}

func day(v string) time.Time {
	t, _ := ParseDay(v)
	return t
}

// Signature is the canonical form: keys sorted, key=value pairs joined by &.
// Values are query-escaped so the result stays parseable.
func (q QueryRecord) Signature() string {
	keys := make([]string, 0, len(q))
	for k, v := range q {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q[k]))
	}
	return b.String()
}

func (q QueryRecord) Values() url.Values {
	v := make(url.Values, len(q))
	for k, val := range q {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// FromValues keeps whitelisted, non-empty keys. Repeated keys resolve to
// their first element.
func FromValues(v url.Values) QueryRecord {
	q := QueryRecord{}
	for k, vals := range v {
		if !knownKeys[k] || len(vals) == 0 {
			continue
		}
		if vals[0] != "" {
			q[k] = vals[0]
		}
	}
	return q
}

// ParseQuery reads a raw query string, with or without a leading '?'.
// Malformed pairs are skipped.
func ParseQuery(raw string) QueryRecord {
	v, _ := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	return FromValues(v)
}

// Signature of a filter state.
func Signature(s FilterState) string { return Encode(s).Signature() }

// CanonicalSignature decodes and re-encodes v so equivalent spellings
// ("page=1", repeated keys, unknown keys) compare equal.
func CanonicalSignature(v url.Values) string {
	return Signature(Decode(FromValues(v)))
}

// ListParams are the query parameters for the articles endpoint. Page, size
// and sort are always sent so the backend's own defaults never apply.
func ListParams(s FilterState) url.Values {
	s = s.Normalize()
	v := Encode(s).Values()
	v.Set(KeyPage, strconv.Itoa(s.Page))
	v.Set(KeySize, strconv.Itoa(s.PageSize))
	v.Set(KeySortBy, string(s.SortBy))
	return v
}

// StatsParams are the query parameters for category stats: the filter set
// minus category, pagination and sort.
func StatsParams(s FilterState) url.Values {
	v := Encode(s).Values()
	for _, k := range []string{KeyCategory, KeyPage, KeySize, KeySortBy} {
		v.Del(k)
	}
	return v
}
