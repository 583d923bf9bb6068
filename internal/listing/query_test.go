package listing

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, ok := ParseDay(s)
	if !ok {
		panic("bad date " + s)
	}
	return t
}

func TestEncode_OmitsDefaults(t *testing.T) {
	assert.Empty(t, Encode(DefaultFilterState()))
	assert.Equal(t, "", Signature(DefaultFilterState()))
}

func TestEncode_Example(t *testing.T) {
	s := DefaultFilterState()
	s.Search = "ai"
	s.Page = 2
	s.PageSize = 20

	assert.Equal(t, "page=2&search=ai&size=20", Signature(s))

	back := Decode(ParseQuery("page=2&search=ai&size=20"))
	want := DefaultFilterState()
	want.Search = "ai"
	want.Page = 2
	want.PageSize = 20
	assert.Equal(t, want, back)
}

func TestRoundTrip(t *testing.T) {
	full := FilterState{
		CategoryID:   "7",
		Search:       "go & rust",
		SourceDomain: "example.com",
		Author:       "Ada Lovelace",
		Visibility:   VisibilityHidden,
		QuickDate:    QuickDate7d,
		SortBy:       SortCreatedDesc,
		Published:    DateRange{Start: date("2024-01-01"), End: date("2024-02-29")},
		Created:      DateRange{Start: date("2023-12-31")},
		Page:         4,
		PageSize:     100,
	}
	openEnd := DefaultFilterState()
	openEnd.Created = DateRange{End: date("2024-03-01")}

	tests := []struct {
		name  string
		state FilterState
	}{
		{"defaults", DefaultFilterState()},
		{"everything", full},
		{"open start", openEnd},
		{"visible only", FilterState{Visibility: VisibilityVisible, SortBy: DefaultSort, Page: 1, PageSize: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, Decode(Encode(tt.state)))
			// Through the location as well.
			assert.Equal(t, tt.state, Decode(FromValues(Encode(tt.state).Values())))
			assert.Equal(t, Signature(tt.state), Encode(tt.state).Signature())
		})
	}
}

func TestRoundTrip_NormalizesDates(t *testing.T) {
	s := DefaultFilterState()
	s.Published.Start = time.Date(2024, 5, 6, 17, 30, 0, 0, time.UTC)

	got := Decode(Encode(s))
	assert.Equal(t, date("2024-05-06"), got.Published.Start)
	assert.Equal(t, "published_at_start=2024-05-06", Signature(s))
}

func TestDecode_ToleratesMalformedValues(t *testing.T) {
	rec := QueryRecord{
		KeyVisibility:     "sometimes",
		KeyQuickDate:      "yesterday",
		KeySortBy:         "title_asc",
		KeyPublishedStart: "2024-13-40",
		KeyCreatedEnd:     "last tuesday",
		KeyPage:           "-3",
		KeySize:           "33",
	}
	assert.Equal(t, DefaultFilterState(), Decode(rec))

	assert.Equal(t, 1, Decode(QueryRecord{KeyPage: "two"}).Page)
	assert.Equal(t, DefaultPageSize, Decode(QueryRecord{KeySize: "1e3"}).PageSize)
}

func TestSignature_SortedAndOrderIndependent(t *testing.T) {
	a := QueryRecord{"search": "ai", "author": "bob", "page": "3"}
	b := QueryRecord{"page": "3", "search": "ai", "author": "bob"}

	assert.Equal(t, "author=bob&page=3&search=ai", a.Signature())
	assert.Equal(t, a.Signature(), b.Signature())
	assert.Equal(t, "search=a%26b", QueryRecord{"search": "a&b"}.Signature())
}

func TestSignature_EscapedValuesStayDistinct(t *testing.T) {
	spaced := QueryRecord{"search": "a b"}.Signature()
	plus := QueryRecord{"search": "a+b"}.Signature()
	injected := QueryRecord{"search": "x&page=2"}.Signature()

	assert.Equal(t, "search=a+b", spaced)
	assert.Equal(t, "search=a%2Bb", plus)
	assert.NotEqual(t, spaced, plus)
	assert.NotEqual(t, "page=2&search=x", injected)

	parsed, err := url.ParseQuery(spaced)
	require.NoError(t, err)
	assert.Equal(t, "a b", parsed.Get("search"))
}

func TestFromValues(t *testing.T) {
	v := url.Values{
		"search":  {"first", "second"},
		"author":  {""},
		"unknown": {"x"},
		"page":    {"2"},
	}
	rec := FromValues(v)
	assert.Equal(t, QueryRecord{"search": "first", "page": "2"}, rec)
}

func TestParseQuery(t *testing.T) {
	rec := ParseQuery("?search=ai&search=ml&size=50&bogus=1&page=%zz")
	assert.Equal(t, "ai", rec[KeySearch])
	assert.Equal(t, "50", rec[KeySize])
	assert.NotContains(t, rec, "bogus")

	assert.Empty(t, ParseQuery(""))
}

func TestCanonicalSignature(t *testing.T) {
	assert.Equal(t, "", CanonicalSignature(url.Values{"page": {"1"}, "size": {"10"}, "sort_by": {"published_at_desc"}}))
	assert.Equal(t, "page=2", CanonicalSignature(url.Values{"page": {"2", "9"}}))
}

func TestListParams(t *testing.T) {
	s := DefaultFilterState()
	s.Search = "ai"
	s.CategoryID = "3"

	v := ListParams(s)
	assert.Equal(t, "1", v.Get(KeyPage))
	assert.Equal(t, "10", v.Get(KeySize))
	assert.Equal(t, string(SortPublishedDesc), v.Get(KeySortBy))
	assert.Equal(t, "3", v.Get(KeyCategory))
	assert.Equal(t, "ai", v.Get(KeySearch))
}

func TestStatsParams_DropsCategoryAndPagination(t *testing.T) {
	s := DefaultFilterState()
	s.Search = "ai"
	s.CategoryID = "3"
	s.Page = 4
	s.PageSize = 50
	s.SortBy = SortCreatedDesc

	v := StatsParams(s)
	require.Len(t, v, 1)
	assert.Equal(t, "ai", v.Get(KeySearch))
}
