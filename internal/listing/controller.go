package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/debuglog"
)

const DefaultDebounce = 400 * time.Millisecond

var ErrPageOutOfRange = errors.New("page out of range")

// Backend serves the two reads the list needs.
type Backend interface {
	ListArticles(ctx context.Context, params url.Values) (*api.ListResult, error)
	CategoryStats(ctx context.Context, params url.Values) ([]api.CategoryCount, error)
}

// Location is where the canonical query lives, the terminal counterpart of
// the browser URL.
type Location interface {
	Ready() bool
	Query() url.Values
	// Replace swaps the current entry without growing history.
	Replace(url.Values)
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseFetching
	PhaseApplied
	PhaseSuperseded
)

func (p Phase) String() string {
	switch p {
	case PhaseDebouncing:
		return "debouncing"
	case PhaseFetching:
		return "fetching"
	case PhaseApplied:
		return "applied"
	case PhaseSuperseded:
		return "superseded"
	}
	return "idle"
}

type debounceFireMsg struct {
	ctrl int64
	seq  int
}

type listLoadedMsg struct {
	ctrl   int64
	id     uint64
	append bool
	// first and last are the pages covered by result.
	first  int
	last   int
	result *api.ListResult
	err    error
}

type statsLoadedMsg struct {
	ctrl  int64
	id    uint64
	stats []api.CategoryCount
	err   error
}

// FetchFailedMsg reports a failed list fetch. The previous list is kept.
type FetchFailedMsg struct {
	Err error
}

// ListAppliedMsg follows every list response that changed the items.
type ListAppliedMsg struct {
	Revision int
	Items    []api.Article
	Append   bool
}

var controllerIDs atomic.Int64

type Options struct {
	Debounce time.Duration
	PageSize int
}

// Controller owns the list state. All methods must be called from the
// bubbletea update loop. Commands it returns perform network calls and
// report back through Update.
type Controller struct {
	id       int64
	backend  Backend
	loc      Location
	debounce time.Duration

	state FilterState
	items []api.Article
	total int
	more  bool
	stats []api.CategoryCount
	err   error

	listFence  Fence
	statsFence Fence

	debounceSeq int
	debouncing  bool

	// In-flight counters. Every completion, stale or not, clears its own
	// contribution.
	listInFlight   int
	statsInFlight  int
	appendInFlight int

	appendMode         bool
	pendingSuppression bool
	outcome            Phase

	selection map[api.ID]struct{}

	lastHydratedSignature string
	lastSyncedSignature   string

	// Pages whose items are in items. They differ once appends have run.
	firstPage int
	lastPage  int

	revision int
}

func NewController(backend Backend, loc Location, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	state := DefaultFilterState()
	if ValidPageSize(opts.PageSize) {
		state.PageSize = opts.PageSize
	}
	return &Controller{
		id:        controllerIDs.Add(1),
		backend:   backend,
		loc:       loc,
		debounce:  opts.Debounce,
		state:     state,
		selection: make(map[api.ID]struct{}),
	}
}

// Init hydrates from the location once and fetches right away.
func (c *Controller) Init() tea.Cmd {
	if c.loc != nil && c.loc.Ready() {
		rec := FromValues(c.loc.Query())
		sig := Signature(Decode(rec))
		c.lastHydratedSignature = sig
		if len(rec) > 0 {
			c.state = Decode(rec)
		}
		c.lastSyncedSignature = sig
	}
	c.reflect()
	return tea.Batch(c.fetchList(), c.fetchStats())
}

func (c *Controller) State() FilterState { return c.state }
func (c *Controller) Items() []api.Article { return c.items }
func (c *Controller) Total() int { return c.total }
func (c *Controller) HasMore() bool { return c.more }
func (c *Controller) Stats() []api.CategoryCount { return c.stats }
func (c *Controller) Err() error { return c.err }
func (c *Controller) Revision() int { return c.revision }
func (c *Controller) Loading() bool { return c.listInFlight > 0 }
func (c *Controller) StatsLoading() bool { return c.statsInFlight > 0 }
func (c *Controller) Appending() bool { return c.appendInFlight > 0 }
func (c *Controller) Signature() string { return Signature(c.state) }
func (c *Controller) PendingSuppression() bool { return c.pendingSuppression }
func (c *Controller) Location() Location { return c.loc }
func (c *Controller) ActiveFilters(name func(string) string) []string {
	return c.state.ActiveFilters(name)
}

func (c *Controller) Phase() Phase {
	switch {
	case c.debouncing:
		return PhaseDebouncing
	case c.listInFlight > 0:
		return PhaseFetching
	}
	return c.outcome
}

// TotalPages is at least 1.
func (c *Controller) TotalPages() int {
	size := c.state.PageSize
	if size <= 0 || c.total <= 0 {
		return 1
	}
	return (c.total + size - 1) / size
}

// CategoryName resolves an id from the latest stats.
func (c *Controller) CategoryName(id string) string {
	for _, s := range c.stats {
		if string(s.ID) == id {
			return s.Name
		}
	}
	return ""
}

func (c *Controller) mutate(fn func(*FilterState)) tea.Cmd {
	next := c.state
	fn(&next)
	if next.SameFilters(c.state) {
		return nil
	}
	next.Page = 1
	return c.transition(next)
}

func (c *Controller) SetCategory(id string) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.CategoryID = id })
}

func (c *Controller) SetSearch(q string) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.Search = q })
}

func (c *Controller) SetSource(domain string) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.SourceDomain = domain })
}

func (c *Controller) SetAuthor(author string) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.Author = author })
}

func (c *Controller) SetVisibility(v Visibility) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.Visibility = v })
}

func (c *Controller) SetQuickDate(q QuickDate) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.QuickDate = q })
}

func (c *Controller) SetSortBy(by SortBy) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.SortBy = by })
}

func (c *Controller) SetPublishedRange(r DateRange) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.Published = r })
}

func (c *Controller) SetCreatedRange(r DateRange) tea.Cmd {
	return c.mutate(func(s *FilterState) { s.Created = r })
}

// SetFilters replaces every filter at once, as the filter form does on
// submit. Pagination is reset.
func (c *Controller) SetFilters(f FilterState) tea.Cmd {
	if f.SameFilters(c.state) {
		return nil
	}
	f.Page = 1
	f.PageSize = c.state.PageSize
	return c.transition(f)
}

// ClearFilters keeps the category and page size.
func (c *Controller) ClearFilters() tea.Cmd {
	return c.transition(c.state.Cleared())
}

// SetPage is explicit navigation: no debounce and the selection survives.
func (c *Controller) SetPage(page int) tea.Cmd {
	next := c.state
	next.Page = page
	return c.transition(next)
}

// SetPageSize goes back to the first page and fetches without debounce.
func (c *Controller) SetPageSize(size int) tea.Cmd {
	if !ValidPageSize(size) {
		return nil
	}
	next := c.state
	next.PageSize = size
	next.Page = 1
	return c.transition(next)
}

func (c *Controller) NextPage() tea.Cmd {
	if c.state.Page >= c.TotalPages() {
		return nil
	}
	return c.SetPage(c.state.Page + 1)
}

func (c *Controller) PrevPage() tea.Cmd {
	if c.state.Page <= 1 {
		return nil
	}
	return c.SetPage(c.state.Page - 1)
}

// JumpToPage rejects pages outside 1..TotalPages without touching state.
func (c *Controller) JumpToPage(page int) (tea.Cmd, error) {
	if last := c.TotalPages(); page < 1 || page > last {
		return nil, fmt.Errorf("%w: choose a page between 1 and %d", ErrPageOutOfRange, last)
	}
	return c.SetPage(page), nil
}

// LoadMore appends the next page. It does nothing while a fetch is in
// flight, while a filter change is pending, or when no pages remain.
func (c *Controller) LoadMore() tea.Cmd {
	if c.listInFlight > 0 || c.debouncing || c.appendMode || !c.more {
		return nil
	}
	c.appendMode = true
	next := c.state
	next.Page++
	return c.transition(next)
}

// Refresh refetches the displayed pages and the stats, typically after a
// mutation. A list grown by appends is refetched from its first page so no
// item drops out.
func (c *Controller) Refresh() tea.Cmd {
	if c.appendInFlight > 0 && c.lastPage > 0 && c.state.Page > c.lastPage {
		// The refresh supersedes the pending append.
		c.state.Page = c.lastPage
		c.reflect()
	}
	first := c.state.Page
	if c.lastPage == c.state.Page && c.firstPage >= 1 && c.firstPage < first {
		first = c.firstPage
	}
	return tea.Batch(c.fetchPages(first), c.fetchStats())
}

func (c *Controller) transition(next FilterState) tea.Cmd {
	next = next.Normalize()
	prev := c.state
	filtersChanged := !prev.SameFilters(next)
	pageChanged := prev.Page != next.Page || prev.PageSize != next.PageSize
	if !filtersChanged && !pageChanged {
		c.appendMode = false
		return nil
	}
	c.state = next

	var cmds []tea.Cmd
	if filtersChanged {
		c.ClearSelection()
		c.appendMode = false
		if pageChanged {
			// The debounced fetch covers the page reset.
			c.pendingSuppression = true
		}
		cmds = append(cmds, c.scheduleDebounce())
	}
	if pageChanged {
		if c.pendingSuppression {
			c.pendingSuppression = false
		} else {
			cmds = append(cmds, c.fetchList())
		}
	}
	c.reflect()
	return tea.Batch(cmds...)
}

func (c *Controller) scheduleDebounce() tea.Cmd {
	c.debounceSeq++
	c.debouncing = true
	ctrl, seq := c.id, c.debounceSeq
	return tea.Tick(c.debounce, func(time.Time) tea.Msg {
		return debounceFireMsg{ctrl: ctrl, seq: seq}
	})
}

func (c *Controller) fetchList() tea.Cmd {
	return c.fetchPages(c.state.Page)
}

// fetchPages requests pages first through the current page and joins them
// into one response.
func (c *Controller) fetchPages(first int) tea.Cmd {
	id := c.listFence.Next()
	appendMode := c.appendMode
	c.appendMode = false
	c.listInFlight++
	if appendMode {
		c.appendInFlight++
	}
	last := c.state.Page
	if first < 1 || first > last {
		first = last
	}
	pages := make([]url.Values, 0, last-first+1)
	for p := first; p <= last; p++ {
		s := c.state
		s.Page = p
		pages = append(pages, ListParams(s))
	}
	backend, ctrl := c.backend, c.id

	debuglog.WithFields(map[string]any{"fence": id, "append": appendMode, "pages": len(pages)}).
		Debugf("list fetch %s", pages[len(pages)-1].Encode())
	return func() tea.Msg {
		msg := listLoadedMsg{ctrl: ctrl, id: id, append: appendMode, first: first, last: last}
		joined := &api.ListResult{}
		for _, params := range pages {
			res, err := backend.ListArticles(context.Background(), params)
			if err != nil {
				msg.err = err
				return msg
			}
			if res == nil {
				continue
			}
			joined.Items = append(joined.Items, res.Items...)
			joined.Total = res.Total
		}
		msg.result = joined
		return msg
	}
}

func (c *Controller) fetchStats() tea.Cmd {
	id := c.statsFence.Next()
	c.statsInFlight++
	params := StatsParams(c.state)
	backend, ctrl := c.backend, c.id
	return func() tea.Msg {
		stats, err := backend.CategoryStats(context.Background(), params)
		return statsLoadedMsg{ctrl: ctrl, id: id, stats: stats, err: err}
	}
}

// Update consumes the controller's own messages and ignores the rest.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceFireMsg:
		if msg.ctrl != c.id || msg.seq != c.debounceSeq || !c.debouncing {
			return nil
		}
		c.debouncing = false
		return tea.Batch(c.fetchList(), c.fetchStats())

	case listLoadedMsg:
		if msg.ctrl != c.id {
			return nil
		}
		return c.applyList(msg)

	case statsLoadedMsg:
		if msg.ctrl != c.id {
			return nil
		}
		c.applyStats(msg)
	}
	return nil
}

func (c *Controller) applyList(msg listLoadedMsg) tea.Cmd {
	if c.listInFlight > 0 {
		c.listInFlight--
	}
	if msg.append && c.appendInFlight > 0 {
		c.appendInFlight--
	}

	if !c.listFence.IsCurrent(msg.id) {
		debuglog.Debugf("dropping stale list response %d (latest %d)", msg.id, c.listFence.Latest())
		if c.listInFlight == 0 {
			c.outcome = PhaseSuperseded
		}
		return nil
	}

	if msg.append && c.debouncing {
		// The filters changed under the append; the debounced fetch replaces
		// the list anyway.
		return nil
	}

	if msg.err != nil {
		debuglog.Errorf("list fetch failed: %v", msg.err)
		c.err = msg.err
		c.outcome = PhaseIdle
		if msg.append {
			c.rollbackAppend(msg.last)
		}
		err := msg.err
		return func() tea.Msg { return FetchFailedMsg{Err: err} }
	}

	res := msg.result
	if res == nil {
		res = &api.ListResult{}
	}
	if msg.append {
		c.items = append(c.items, res.Items...)
	} else {
		c.items = append([]api.Article(nil), res.Items...)
		c.firstPage = msg.first
	}
	c.lastPage = msg.last
	c.total = res.Total
	c.more = len(c.items) < c.total
	if msg.append && len(res.Items) == 0 {
		// A total that overstates the pages must not keep the loader going.
		c.more = false
	}
	c.err = nil
	c.revision++
	c.outcome = PhaseApplied

	applied := ListAppliedMsg{Revision: c.revision, Items: res.Items, Append: msg.append}
	return func() tea.Msg { return applied }
}

// rollbackAppend returns the page to the last one whose items are shown, so
// the next LoadMore asks for the failed page again.
func (c *Controller) rollbackAppend(page int) {
	if c.state.Page != page || c.lastPage < 1 {
		return
	}
	c.state.Page = c.lastPage
	c.reflect()
}

func (c *Controller) applyStats(msg statsLoadedMsg) {
	if c.statsInFlight > 0 {
		c.statsInFlight--
	}
	if !c.statsFence.IsCurrent(msg.id) {
		return
	}
	if msg.err != nil {
		// Stats are secondary; the list error, if any, is what gets shown.
		debuglog.Warnf("category stats fetch failed: %v", msg.err)
		return
	}
	c.stats = msg.stats
}

// Hydrate pulls state from the location when its signature changed since the
// last hydration. Back and forward navigation land here.
func (c *Controller) Hydrate() tea.Cmd {
	if c.loc == nil || !c.loc.Ready() {
		return nil
	}
	rec := FromValues(c.loc.Query())
	next := Decode(rec)
	sig := Signature(next)
	if sig == c.lastHydratedSignature {
		return nil
	}
	c.lastHydratedSignature = sig
	if sig == c.Signature() {
		return nil
	}
	c.lastSyncedSignature = sig
	return c.transition(next)
}

// reflect writes the state to the location unless it is already there.
func (c *Controller) reflect() {
	if c.loc == nil || !c.loc.Ready() {
		return
	}
	rec := Encode(c.state)
	sig := rec.Signature()
	if sig == c.lastSyncedSignature {
		return
	}
	if sig == CanonicalSignature(c.loc.Query()) {
		c.lastSyncedSignature = sig
		return
	}
	c.loc.Replace(rec.Values())
	c.lastSyncedSignature = sig
}

func (c *Controller) ToggleSelect(id api.ID) {
	if _, ok := c.selection[id]; ok {
		delete(c.selection, id)
		return
	}
	c.selection[id] = struct{}{}
}

func (c *Controller) IsSelected(id api.ID) bool {
	_, ok := c.selection[id]
	return ok
}

// SelectAll selects every loaded item, or clears the selection when all of
// them are already selected.
func (c *Controller) SelectAll() {
	all := len(c.items) > 0
	for _, a := range c.items {
		if !c.IsSelected(a.ID) {
			all = false
			break
		}
	}
	if all {
		c.ClearSelection()
		return
	}
	for _, a := range c.items {
		c.selection[a.ID] = struct{}{}
	}
}

func (c *Controller) ClearSelection() {
	clear(c.selection)
}

// Selected returns the selected ids in list order.
func (c *Controller) Selected() []api.ID {
	var out []api.ID
	for _, a := range c.items {
		if c.IsSelected(a.ID) {
			out = append(out, a.ID)
		}
	}
	return out
}

func (c *Controller) SelectionCount() int { return len(c.selection) }
