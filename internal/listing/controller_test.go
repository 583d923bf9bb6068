package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pders01/lumina/internal/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu         sync.Mutex
	total      int
	listCalls  []url.Values
	statsCalls []url.Values
	listErr    error
	statsErr   error
}

func (f *fakeBackend) ListArticles(_ context.Context, params url.Values) (*api.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, params)
	if f.listErr != nil {
		return nil, f.listErr
	}
	page, _ := strconv.Atoi(params.Get("page"))
	size, _ := strconv.Atoi(params.Get("size"))
	res := &api.ListResult{Items: []api.Article{}, Total: f.total}
	for i := (page-1)*size + 1; i <= page*size && i <= f.total; i++ {
		res.Items = append(res.Items, api.Article{ID: api.ID(strconv.Itoa(i)), Title: fmt.Sprintf("%s #%d", params.Get("search"), i)})
	}
	return res, nil
}

func (f *fakeBackend) CategoryStats(_ context.Context, params url.Values) ([]api.CategoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls = append(f.statsCalls, params)
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return []api.CategoryCount{{ID: "1", Name: "Tech", Count: len(f.statsCalls)}}, nil
}

func (f *fakeBackend) calls() (list, stats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls), len(f.statsCalls)
}

func (f *fakeBackend) lastList() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[len(f.listCalls)-1]
}

type fakeLocation struct {
	ready    bool
	query    url.Values
	replaces []url.Values
}

func (l *fakeLocation) Ready() bool { return l.ready }
func (l *fakeLocation) Query() url.Values { return l.query }
func (l *fakeLocation) Replace(v url.Values) {
	l.query = v
	l.replaces = append(l.replaces, v)
}

// leaves executes cmd and flattens batches into their messages.
func leaves(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, leaves(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// run executes cmd to completion, feeding controller messages back through
// Update. Everything else is returned.
func run(c *Controller, cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := leaves(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case debounceFireMsg, listLoadedMsg, statsLoadedMsg:
			queue = append(queue, leaves(c.Update(msg))...)
		default:
			out = append(out, msg)
		}
	}
	return out
}

func newTestController(t *testing.T, total int, loc Location) (*Controller, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{total: total}
	c := NewController(backend, loc, Options{Debounce: 5 * time.Millisecond})
	run(c, c.Init())
	return c, backend
}

func ids(items []api.Article) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = string(a.ID)
	}
	return out
}

func TestInit_FetchesImmediately(t *testing.T) {
	backend := &fakeBackend{total: 25}
	c := NewController(backend, nil, Options{Debounce: time.Hour})

	msgs := run(c, c.Init())

	list, stats := backend.calls()
	assert.Equal(t, 1, list)
	assert.Equal(t, 1, stats)
	assert.Len(t, c.Items(), 10)
	assert.Equal(t, 25, c.Total())
	assert.True(t, c.HasMore())
	assert.Equal(t, PhaseApplied, c.Phase())
	require.Len(t, msgs, 1)
	assert.IsType(t, ListAppliedMsg{}, msgs[0])
}

func TestInit_HydratesFromLocation(t *testing.T) {
	loc := &fakeLocation{ready: true, query: url.Values{"search": {"ai"}, "page": {"2"}, "size": {"20"}}}
	c, backend := newTestController(t, 100, loc)

	assert.Equal(t, "ai", c.State().Search)
	assert.Equal(t, 2, c.State().Page)
	assert.Equal(t, 20, c.State().PageSize)
	assert.Equal(t, "2", backend.lastList().Get("page"))
	assert.Empty(t, loc.replaces, "location already matched the state")
}

func TestDebounceCollapsesRapidChanges(t *testing.T) {
	c, backend := newTestController(t, 50, nil)

	cmds := []tea.Cmd{
		c.SetSearch("a"),
		c.SetSearch("ai"),
		c.SetAuthor("bob"),
	}
	assert.Equal(t, PhaseDebouncing, c.Phase())
	for _, cmd := range cmds {
		run(c, cmd)
	}

	list, stats := backend.calls()
	assert.Equal(t, 2, list, "one fetch at init, one after the burst")
	assert.Equal(t, 2, stats)
	last := backend.lastList()
	assert.Equal(t, "ai", last.Get("search"))
	assert.Equal(t, "bob", last.Get("author"))
}

func TestDebounce_StaleTimerIgnored(t *testing.T) {
	c, _ := newTestController(t, 50, nil)

	c.SetSearch("x")
	c.SetSearch("xy")
	assert.Nil(t, c.Update(debounceFireMsg{ctrl: c.id, seq: c.debounceSeq - 1}))
	assert.Nil(t, c.Update(debounceFireMsg{ctrl: c.id + 1000, seq: c.debounceSeq}))
	assert.Equal(t, PhaseDebouncing, c.Phase())

	assert.NotNil(t, c.Update(debounceFireMsg{ctrl: c.id, seq: c.debounceSeq}))
	assert.Equal(t, PhaseFetching, c.Phase())
}

func TestPageChange_SkipsDebounce(t *testing.T) {
	c, backend := newTestController(t, 50, nil)

	cmd := c.SetPage(3)
	assert.Equal(t, PhaseFetching, c.Phase())
	run(c, cmd)

	list, stats := backend.calls()
	assert.Equal(t, 2, list)
	assert.Equal(t, 1, stats, "pagination does not refetch stats")
	assert.Equal(t, []string{"21", "22", "23", "24", "25", "26", "27", "28", "29", "30"}, ids(c.Items()))
}

func TestPageSizeChange_ResetsPageWithoutDebounce(t *testing.T) {
	c, backend := newTestController(t, 200, nil)
	run(c, c.SetPage(4))

	cmd := c.SetPageSize(50)
	assert.False(t, c.debouncing)
	run(c, cmd)

	assert.Equal(t, 1, c.State().Page)
	assert.Equal(t, "50", backend.lastList().Get("size"))
	assert.Len(t, c.Items(), 50)
	assert.Nil(t, c.SetPageSize(33))
}

func TestFilterChange_SuppressesPageResetFetch(t *testing.T) {
	c, backend := newTestController(t, 100, nil)
	run(c, c.SetPage(5))
	before, _ := backend.calls()

	cmd := c.SetSearch("ai")
	assert.Equal(t, 1, c.State().Page)
	assert.False(t, c.PendingSuppression(), "the flag is consumed by the page reset")
	run(c, cmd)

	after, _ := backend.calls()
	assert.Equal(t, before+1, after, "exactly one fetch for filter change plus page reset")
	assert.Equal(t, "1", backend.lastList().Get("page"))
}

func TestStaleListResponseDropped(t *testing.T) {
	c, _ := newTestController(t, 100, nil)

	cmdA := c.SetPage(2)
	cmdB := c.SetPage(3)
	msgB := leaves(cmdB)
	msgA := leaves(cmdA)
	require.Len(t, msgA, 1)
	require.Len(t, msgB, 1)

	c.Update(msgB[0])
	want := ids(c.Items())
	assert.True(t, c.Loading(), "request A is still out")

	assert.Nil(t, c.Update(msgA[0]))
	assert.Equal(t, want, ids(c.Items()))
	assert.Equal(t, "21", want[0])
	assert.False(t, c.Loading())
	assert.Equal(t, PhaseSuperseded, c.Phase())
}

func TestStatsFenceIndependentOfList(t *testing.T) {
	c, backend := newTestController(t, 30, nil)

	first := leaves(c.Refresh())
	second := leaves(c.Refresh())
	require.Len(t, first, 2)
	require.Len(t, second, 2)

	for _, m := range second {
		c.Update(m)
	}
	got := c.Stats()
	for _, m := range first {
		c.Update(m)
	}
	assert.Equal(t, got, c.Stats())
	assert.False(t, c.StatsLoading())
	_, stats := backend.calls()
	assert.Equal(t, 3, stats)
}

func TestFetchFailureKeepsList(t *testing.T) {
	c, backend := newTestController(t, 30, nil)
	before := ids(c.Items())

	backend.listErr = errors.New("connection refused")
	msgs := run(c, c.SetPage(2))

	require.Len(t, msgs, 1)
	failed, ok := msgs[0].(FetchFailedMsg)
	require.True(t, ok)
	assert.EqualError(t, failed.Err, "connection refused")
	assert.Equal(t, before, ids(c.Items()))
	assert.False(t, c.Loading())
	assert.Error(t, c.Err())

	backend.listErr = nil
	run(c, c.Refresh())
	assert.NoError(t, c.Err())
}

func TestStatsFailureIsQuiet(t *testing.T) {
	c, backend := newTestController(t, 30, nil)
	stats := c.Stats()

	backend.statsErr = errors.New("boom")
	msgs := run(c, c.Refresh())

	for _, m := range msgs {
		assert.NotEqual(t, FetchFailedMsg{Err: backend.statsErr}, m)
	}
	assert.Equal(t, stats, c.Stats())
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		total int
		want  bool
	}{
		{0, false},
		{5, false},
		{10, false},
		{11, true},
	}
	for _, tt := range tests {
		c, _ := newTestController(t, tt.total, nil)
		assert.Equal(t, tt.want, c.HasMore(), "total %d", tt.total)
		assert.Equal(t, tt.want, len(c.Items()) < c.Total())
	}
}

func TestLoadMore_AppendsUntilExhausted(t *testing.T) {
	c, backend := newTestController(t, 25, nil)

	cmd := c.LoadMore()
	require.NotNil(t, cmd)
	assert.Equal(t, 2, c.State().Page)
	assert.True(t, c.Appending())
	assert.Nil(t, c.LoadMore(), "guarded while the append is in flight")
	run(c, cmd)

	assert.Len(t, c.Items(), 20)
	assert.Equal(t, "1", c.Items()[0].ID.String())
	assert.True(t, c.HasMore())

	run(c, c.LoadMore())
	assert.Len(t, c.Items(), 25)
	assert.False(t, c.HasMore())
	assert.Nil(t, c.LoadMore())

	list, _ := backend.calls()
	assert.Equal(t, 3, list)
}

func TestLoadMore_BlockedWhileDebouncing(t *testing.T) {
	c, _ := newTestController(t, 25, nil)
	c.SetSearch("x")
	assert.Nil(t, c.LoadMore())
}

func TestLoadMore_FailureRollsBackPage(t *testing.T) {
	loc := &fakeLocation{ready: true, query: url.Values{}}
	c, backend := newTestController(t, 35, loc)

	backend.listErr = errors.New("connection reset")
	msgs := run(c, c.LoadMore())
	require.Len(t, msgs, 1)
	assert.IsType(t, FetchFailedMsg{}, msgs[0])
	assert.Equal(t, 1, c.State().Page)
	assert.Len(t, c.Items(), 10)
	assert.False(t, c.Appending())
	assert.Empty(t, loc.query.Get("page"))

	backend.listErr = nil
	run(c, c.LoadMore())
	assert.Equal(t, "2", backend.lastList().Get("page"))
	assert.Len(t, c.Items(), 20)
	assert.Equal(t, "11", c.Items()[10].ID.String())

	for i := 0; i < 5 && c.HasMore(); i++ {
		run(c, c.LoadMore())
	}
	assert.Len(t, c.Items(), 35)
	assert.False(t, c.HasMore())
	assert.Equal(t, 4, c.State().Page)
	assert.Nil(t, c.LoadMore())
}

// overstatingBackend reports a total larger than the items it serves.
type overstatingBackend struct {
	fakeBackend
	claimed int
}

func (o *overstatingBackend) ListArticles(ctx context.Context, params url.Values) (*api.ListResult, error) {
	res, err := o.fakeBackend.ListArticles(ctx, params)
	if res != nil {
		res.Total = o.claimed
	}
	return res, err
}

func TestLoadMore_EmptyPageEndsContinuation(t *testing.T) {
	backend := &overstatingBackend{fakeBackend: fakeBackend{total: 10}, claimed: 20}
	c := NewController(backend, nil, Options{Debounce: 5 * time.Millisecond})
	run(c, c.Init())
	require.True(t, c.HasMore())

	run(c, c.LoadMore())
	assert.Len(t, c.Items(), 10)
	assert.False(t, c.HasMore())
	assert.Nil(t, c.LoadMore())
}

func TestLoadMore_DroppedWhenFiltersChange(t *testing.T) {
	c, _ := newTestController(t, 35, nil)

	cmd := c.LoadMore()
	require.NotNil(t, cmd)
	c.SetSearch("go")
	assert.Equal(t, 1, c.State().Page)

	for _, m := range leaves(cmd) {
		c.Update(m)
	}
	assert.Len(t, c.Items(), 10, "old filter's page is not appended")
	assert.Equal(t, 1, c.State().Page)
}

func TestRefresh_AfterAppendsKeepsAllPages(t *testing.T) {
	c, backend := newTestController(t, 35, nil)
	run(c, c.LoadMore())
	run(c, c.LoadMore())
	require.Len(t, c.Items(), 30)

	before, _ := backend.calls()
	run(c, c.Refresh())
	after, _ := backend.calls()

	assert.Equal(t, 3, after-before, "pages 1 to 3 are refetched")
	assert.Len(t, c.Items(), 30)
	assert.Equal(t, "1", c.Items()[0].ID.String())
	assert.Equal(t, "30", c.Items()[29].ID.String())
	assert.Equal(t, 3, c.State().Page)
	assert.True(t, c.HasMore())

	run(c, c.LoadMore())
	assert.Len(t, c.Items(), 35)
	assert.Equal(t, "31", c.Items()[30].ID.String())
	assert.False(t, c.HasMore())
}

func TestRefresh_SupersedesPendingAppend(t *testing.T) {
	c, _ := newTestController(t, 35, nil)
	run(c, c.LoadMore())
	require.Len(t, c.Items(), 20)

	pending := c.LoadMore()
	require.NotNil(t, pending)
	assert.Equal(t, 3, c.State().Page)

	run(c, c.Refresh())
	assert.Equal(t, 2, c.State().Page)
	assert.Len(t, c.Items(), 20)

	for _, m := range leaves(pending) {
		c.Update(m)
	}
	assert.Len(t, c.Items(), 20, "superseded append is dropped")
	assert.False(t, c.Appending())

	run(c, c.LoadMore())
	assert.Len(t, c.Items(), 30)
	assert.Equal(t, "21", c.Items()[20].ID.String())
}

func TestRefresh_AfterPageNavigationFetchesOnePage(t *testing.T) {
	c, backend := newTestController(t, 35, nil)
	run(c, c.SetPage(3))

	before, _ := backend.calls()
	run(c, c.Refresh())
	after, _ := backend.calls()
	assert.Equal(t, 1, after-before)
	assert.Equal(t, "21", c.Items()[0].ID.String())
}

func TestJumpToPage(t *testing.T) {
	c, _ := newTestController(t, 45, nil)
	assert.Equal(t, 5, c.TotalPages())

	_, err := c.JumpToPage(6)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Contains(t, err.Error(), "between 1 and 5")
	_, err = c.JumpToPage(0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Equal(t, 1, c.State().Page)

	cmd, err := c.JumpToPage(5)
	require.NoError(t, err)
	run(c, cmd)
	assert.Equal(t, 5, c.State().Page)
	assert.Len(t, c.Items(), 5)
}

func TestNextPrevPage(t *testing.T) {
	c, _ := newTestController(t, 20, nil)

	assert.Nil(t, c.PrevPage())
	run(c, c.NextPage())
	assert.Equal(t, 2, c.State().Page)
	assert.Nil(t, c.NextPage())
	run(c, c.PrevPage())
	assert.Equal(t, 1, c.State().Page)
}

func TestClearFiltersAtPageFive(t *testing.T) {
	loc := &fakeLocation{ready: true, query: url.Values{"search": {"ai"}, "category_id": {"3"}, "page": {"5"}}}
	c, backend := newTestController(t, 100, loc)
	require.Equal(t, 5, c.State().Page)
	before, _ := backend.calls()

	run(c, c.ClearFilters())

	assert.Equal(t, 1, c.State().Page)
	assert.Equal(t, "", c.State().Search)
	assert.Equal(t, "3", c.State().CategoryID)
	assert.Equal(t, "category_id=3", c.Signature())
	assert.NotContains(t, loc.query, "page")
	after, _ := backend.calls()
	assert.Equal(t, before+1, after)
}

func TestSelection(t *testing.T) {
	c, _ := newTestController(t, 30, nil)

	c.ToggleSelect("2")
	c.ToggleSelect("1")
	c.ToggleSelect("99")
	assert.Equal(t, []api.ID{"1", "2"}, c.Selected())

	run(c, c.NextPage())
	assert.Equal(t, 3, c.SelectionCount(), "page navigation keeps the selection")

	c.SetVisibility(VisibilityHidden)
	assert.Zero(t, c.SelectionCount(), "filter changes clear the selection")

	c.SelectAll()
	assert.Len(t, c.Selected(), len(c.Items()))
	c.SelectAll()
	assert.Zero(t, c.SelectionCount())
}

func TestReflect_ReplacesLocationOnce(t *testing.T) {
	loc := &fakeLocation{ready: true, query: url.Values{}}
	c, _ := newTestController(t, 30, loc)

	run(c, c.SetSearch("ai"))
	require.Len(t, loc.replaces, 1)
	assert.Equal(t, "ai", loc.query.Get("search"))

	assert.Nil(t, c.SetSearch("ai"))
	assert.Len(t, loc.replaces, 1)

	// Hydrating our own write is a no-op.
	assert.Nil(t, c.Hydrate())
	assert.Len(t, loc.replaces, 1)
}

func TestReflect_NotReadySkipsLocation(t *testing.T) {
	loc := &fakeLocation{ready: false}
	c, _ := newTestController(t, 30, loc)

	run(c, c.SetSearch("ai"))
	assert.Empty(t, loc.replaces)
	assert.Nil(t, c.Hydrate())
}

func TestHydrate_BackNavigationRestoresView(t *testing.T) {
	loc := &fakeLocation{ready: true, query: url.Values{}}
	c, backend := newTestController(t, 30, loc)
	run(c, c.SetSearch("ai"))
	replaces := len(loc.replaces)

	// Simulate back navigation to an older entry.
	loc.query = url.Values{"search": {"go"}, "page": {"2"}}
	cmd := c.Hydrate()
	require.NotNil(t, cmd)
	assert.Equal(t, "go", c.State().Search)
	assert.Equal(t, 2, c.State().Page)
	run(c, cmd)

	assert.Equal(t, "go", backend.lastList().Get("search"))
	assert.Len(t, loc.replaces, replaces, "hydration must not write back")
	assert.Nil(t, c.Hydrate(), "same signature hydrates once")
}

func TestHydrate_PageOnlyFetchesImmediately(t *testing.T) {
	loc := &fakeLocation{ready: true, query: url.Values{}}
	c, _ := newTestController(t, 30, loc)

	loc.query = url.Values{"page": {"3"}}
	cmd := c.Hydrate()
	assert.Equal(t, PhaseFetching, c.Phase())
	run(c, cmd)
	assert.Equal(t, "21", c.Items()[0].ID.String())
}

func TestForeignMessagesIgnored(t *testing.T) {
	c, _ := newTestController(t, 10, nil)
	other := NewController(&fakeBackend{total: 99}, nil, Options{})

	msgs := leaves(other.Refresh())
	for _, m := range msgs {
		assert.Nil(t, c.Update(m))
	}
	assert.Equal(t, 10, c.Total())
	assert.Nil(t, c.Update(tea.KeyMsg{}))
}
