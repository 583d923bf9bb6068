package tui

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/config"
	"github.com/pders01/lumina/internal/listing"
	"github.com/pders01/lumina/internal/search"
)

var errPageNumber = errors.New("enter a page number")

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, config: cfg, modifierKey: cfg.Keys.Modifier + "+"}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return kh.app, tea.Quit
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegate(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewList:
		return kh.app.searching
	case ViewJump, ViewFilters:
		return true
	case ViewSearch:
		return kh.app.offlineInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	key := msg.String()

	switch a.view {
	case ViewList:
		switch key {
		case "esc", "enter":
			a.searching = false
			a.searchInput.Blur()
			return a, nil
		}
		prev := a.searchInput.Value()
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		if a.searchInput.Value() == prev {
			return a, cmd
		}
		return a, tea.Batch(cmd, a.ctrl.SetSearch(a.searchInput.Value()))

	case ViewJump:
		switch key {
		case "esc":
			return kh.navigateBack()
		case "enter":
			return kh.submitJump()
		}
		var cmd tea.Cmd
		a.jumpInput, cmd = a.jumpInput.Update(msg)
		a.jumpErr = nil
		return a, cmd

	case ViewFilters:
		switch key {
		case "esc":
			return kh.navigateBack()
		case "enter":
			next, err := a.form.State(a.ctrl.State())
			if err != nil {
				a.form.err = err
				return a, nil
			}
			a.closeFilters()
			return a, a.ctrl.SetFilters(next)
		case "tab", "down":
			a.form.Next()
			return a, nil
		case "shift+tab", "up":
			a.form.Prev()
			return a, nil
		}
		return a, a.form.Update(msg)

	case ViewSearch:
		switch key {
		case "esc":
			return kh.navigateBack()
		case "enter":
			if len(a.offlineHits) > 0 {
				return kh.selectOfflineHit(a.offlineHits[0])
			}
			return a, nil
		case "tab", "down":
			if len(a.offlineHits) > 0 {
				a.offlineInput.Blur()
				a.offlineCursor = 0
			}
			return a, nil
		}
		return kh.updateOfflineInput(msg)
	}
	return a, nil
}

// updateOfflineInput feeds the query box and schedules a debounced search
// when its value changes.
func (kh *KeyHandler) updateOfflineInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	prev := a.offlineInput.Value()
	var cmd tea.Cmd
	a.offlineInput, cmd = a.offlineInput.Update(msg)

	query := strings.TrimSpace(a.offlineInput.Value())
	if query == strings.TrimSpace(prev) {
		return a, cmd
	}
	a.pendingOfflineQuery = query
	a.offlineSeq++
	if len(query) < 2 {
		a.offlineHits = nil
		return a, cmd
	}
	seq := a.offlineSeq
	return a, tea.Batch(cmd, tea.Tick(kh.config.List.Debounce, func(time.Time) tea.Msg {
		return offlineDebounceMsg{seq: seq}
	}))
}

func (kh *KeyHandler) submitJump() (tea.Model, tea.Cmd) {
	a := kh.app
	page, err := strconv.Atoi(strings.TrimSpace(a.jumpInput.Value()))
	if err != nil {
		a.jumpErr = errPageNumber
		return a, nil
	}
	cmd, err := a.ctrl.JumpToPage(page)
	if err != nil {
		a.jumpErr = err
		return a, nil
	}
	a.jumpInput.Blur()
	a.view = ViewList
	return a, cmd
}

func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.config.Keys.Bindings

	switch key {
	case b.Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.modifierKey + b.OfflineSearch:
		return a, kh.openOfflineSearch(), true
	case kh.modifierKey + "r":
		a.setStatus(MsgLoading, StatusInfo)
		return a, a.ctrl.Refresh(), true
	case b.HistoryBack:
		if a.view == ViewList || a.view == ViewReader {
			if a.history.Back() {
				return a, a.syncLocation(), true
			}
			return a, nil, true
		}
	case b.HistoryForward:
		if a.view == ViewList || a.view == ViewReader {
			if a.history.Forward() {
				return a, a.syncLocation(), true
			}
			return a, nil, true
		}
	}

	switch a.view {
	case ViewList:
		return kh.handleListKeys(key)
	case ViewReader:
		return kh.handleReaderKeys(key)
	case ViewDeleteConfirm:
		if key == "enter" || key == "y" {
			targets := a.targets
			a.view = a.previousView
			a.setStatus(MsgDeleting, StatusInfo)
			return a, a.deleteArticles(targets), true
		}
		if key == "n" {
			model, cmd := kh.navigateBack()
			return model, cmd, true
		}
		return a, nil, true
	case ViewCategory:
		return kh.handleCategoryKeys(key)
	case ViewSearch:
		return kh.handleOfflineResultKeys(key)
	}
	return a, nil, false
}

func (kh *KeyHandler) handleListKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.config.Keys.Bindings
	st := a.ctrl.State()

	switch key {
	case b.Quit:
		return a, tea.Quit, true
	case b.Search:
		a.searching = true
		a.searchInput.SetValue(st.Search)
		a.searchInput.CursorEnd()
		return a, a.searchInput.Focus(), true
	case b.Filters:
		a.openFilters()
		return a, nil, true
	case b.ClearFilters:
		a.searchInput.SetValue("")
		return a, a.ctrl.ClearFilters(), true
	case b.NextPage:
		return a, a.ctrl.NextPage(), true
	case b.PrevPage:
		return a, a.ctrl.PrevPage(), true
	case b.JumpPage:
		a.jumpInput.SetValue("")
		a.jumpErr = nil
		a.view = ViewJump
		return a, a.jumpInput.Focus(), true
	case b.PageSize:
		return a, a.ctrl.SetPageSize(nextPageSize(st.PageSize)), true
	case b.Sort:
		next := listing.SortCreatedDesc
		if st.SortBy == listing.SortCreatedDesc {
			next = listing.SortPublishedDesc
		}
		return a, a.ctrl.SetSortBy(next), true
	case b.QuickDate:
		i := slices.Index(listing.QuickDates, st.QuickDate)
		return a, a.ctrl.SetQuickDate(listing.QuickDates[(i+1)%len(listing.QuickDates)]), true
	case b.Select:
		if it := a.currentItem(); it != nil {
			a.ctrl.ToggleSelect(it.ID)
		}
		return a, nil, true
	case b.SelectAll:
		if a.ctrl.SelectionCount() > 0 && a.ctrl.SelectionCount() == len(a.ctrl.Items()) {
			a.ctrl.ClearSelection()
		} else {
			a.ctrl.SelectAll()
		}
		return a, nil, true
	case b.ToggleVisibility:
		return a, kh.toggleVisibility(), true
	case b.Category:
		return a, kh.openCategoryPicker(), true
	case b.Delete:
		return a, kh.confirmDelete(), true
	case kh.modifierKey + b.Open, b.Open:
		if it := a.currentItem(); it != nil {
			return a, a.openURL(it.URL), true
		}
		return a, nil, true
	case "enter":
		if it := a.currentItem(); it != nil {
			return a, a.showReader(*it), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleReaderKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.config.Keys.Bindings

	switch key {
	case b.Quit:
		return a, tea.Quit, true
	case kh.modifierKey + b.Open, b.Open:
		if a.current != nil {
			return a, a.openURL(a.current.URL), true
		}
		return a, nil, true
	case b.ToggleVisibility:
		return a, kh.toggleVisibility(), true
	case b.Category:
		return a, kh.openCategoryPicker(), true
	case b.Delete:
		return a, kh.confirmDelete(), true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleCategoryKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	stats := a.ctrl.Stats()

	switch key {
	case "up", "k":
		a.categoryCursor = clamp(a.categoryCursor-1, 0, max(0, len(stats)-1))
	case "down", "j":
		a.categoryCursor = clamp(a.categoryCursor+1, 0, max(0, len(stats)-1))
	case "enter":
		if a.categoryCursor >= len(stats) {
			return a, nil, true
		}
		c := stats[a.categoryCursor]
		targets := a.targets
		a.view = a.previousView
		a.setStatus(MsgUpdating, StatusInfo)
		return a, a.setCategory(targets, api.ID(c.ID), c.Name), true
	}
	return a, nil, true
}

func (kh *KeyHandler) handleOfflineResultKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch key {
	case "up", "k":
		if a.offlineCursor == 0 {
			return a, a.offlineInput.Focus(), true
		}
		a.offlineCursor--
	case "down", "j":
		a.offlineCursor = clamp(a.offlineCursor+1, 0, max(0, len(a.offlineHits)-1))
	case "tab", "/":
		return a, a.offlineInput.Focus(), true
	case "enter":
		if a.offlineCursor < len(a.offlineHits) {
			model, cmd := kh.selectOfflineHit(a.offlineHits[a.offlineCursor])
			return model, cmd, true
		}
	}
	return a, nil, true
}

func (kh *KeyHandler) openOfflineSearch() tea.Cmd {
	a := kh.app
	if a.view == ViewSearch {
		return a.offlineInput.Focus()
	}
	if a.index == nil {
		a.setError(errNoIndex)
		return nil
	}
	a.previousView = a.view
	a.view = ViewSearch
	a.offlineInput.SetValue("")
	a.offlineHits = nil
	a.offlineCursor = 0
	a.pendingOfflineQuery = ""
	return a.offlineInput.Focus()
}

func (kh *KeyHandler) selectOfflineHit(hit search.Hit) (tea.Model, tea.Cmd) {
	a := kh.app
	a.offlineInput.Blur()
	art := api.Article{ID: hit.ID, Title: hit.Title, URL: hit.URL, SourceDomain: hit.SourceDomain}
	return a, a.showReader(art)
}

func (kh *KeyHandler) toggleVisibility() tea.Cmd {
	a := kh.app
	ids := a.actionTargets()
	if len(ids) == 0 {
		a.setStatus(MsgNothingTargets, StatusInfo)
		return nil
	}
	visible := false
	if a.view == ViewReader && a.current != nil {
		visible = !a.current.Visible
	} else {
		for _, id := range ids {
			if art := a.articleByID(id); art != nil && !art.Visible {
				visible = true
				break
			}
		}
	}
	a.setStatus(MsgUpdating, StatusInfo)
	return a.setVisibility(ids, visible)
}

func (kh *KeyHandler) openCategoryPicker() tea.Cmd {
	a := kh.app
	a.targets = a.actionTargets()
	if len(a.targets) == 0 {
		a.setStatus(MsgNothingTargets, StatusInfo)
		return nil
	}
	a.categoryCursor = 0
	a.previousView = a.view
	a.view = ViewCategory
	return nil
}

func (kh *KeyHandler) confirmDelete() tea.Cmd {
	a := kh.app
	a.targets = a.actionTargets()
	if len(a.targets) == 0 {
		a.setStatus(MsgNothingTargets, StatusInfo)
		return nil
	}
	a.previousView = a.view
	a.view = ViewDeleteConfirm
	return nil
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewReader:
		return a, a.leaveReader()
	case ViewFilters:
		a.closeFilters()
	case ViewJump:
		a.jumpInput.Blur()
		a.jumpErr = nil
		a.view = ViewList
	case ViewDeleteConfirm, ViewCategory:
		a.targets = nil
		a.view = a.previousView
	case ViewSearch:
		a.offlineInput.Blur()
		a.offlineHits = nil
		a.pendingOfflineQuery = ""
		a.offlineSeq++
		a.view = a.previousView
	case ViewList:
		if a.ctrl.SelectionCount() > 0 {
			a.ctrl.ClearSelection()
		}
		a.err = nil
		a.status = ""
	}
	return a, nil
}

// delegate handles cursor movement in the list and scrolling in the reader.
func (kh *KeyHandler) delegate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewList:
		n := len(a.ctrl.Items())
		if n == 0 {
			return a, nil
		}
		page := max(1, a.visibleRows)
		switch msg.String() {
		case "up", "k":
			a.cursor--
		case "down", "j":
			a.cursor++
		case "pgup", "ctrl+u":
			a.cursor -= page
		case "pgdown", "ctrl+d":
			a.cursor += page
		case "home":
			a.cursor = 0
		case "end", "G":
			a.cursor = n - 1
		default:
			return a, nil
		}
		a.cursor = clamp(a.cursor, 0, n-1)
		return a, a.loader.Check(a.ctrl, a.sentinelCursor())

	case ViewReader:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func nextPageSize(current int) int {
	i := slices.Index(listing.PageSizes, current)
	return listing.PageSizes[(i+1)%len(listing.PageSizes)]
}

func displayKey(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.config.Keys.Bindings
	mod := kh.modifierKey

	switch kh.app.view {
	case ViewList:
		if kh.app.searching {
			return []string{"type to search", "enter/esc: done"}
		}
		return []string{
			"enter: read",
			b.Search + ": search",
			b.Filters + ": filters",
			b.NextPage + "/" + b.PrevPage + ": page",
			displayKey(b.Select) + ": select",
			b.ToggleVisibility + ": hide/show",
			b.Category + ": category",
			b.Delete + ": delete",
			b.HistoryBack + b.HistoryForward + ": history",
			mod + b.OfflineSearch + ": offline",
			b.Quit + ": quit",
		}
	case ViewReader:
		return []string{
			"↑↓: scroll",
			b.Open + ": open in browser",
			b.ToggleVisibility + ": hide/show",
			b.Category + ": category",
			b.Delete + ": delete",
			b.Back + ": back",
		}
	case ViewFilters:
		return []string{"tab: next field", "←→: change", "enter: apply", "esc: cancel"}
	case ViewSearch:
		return []string{"type to search", "tab: results", "enter: open", "esc: back"}
	case ViewJump, ViewDeleteConfirm, ViewCategory:
		return []string{"enter: confirm", "esc: cancel"}
	}
	return nil
}
