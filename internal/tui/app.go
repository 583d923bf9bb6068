package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/browser"
	"github.com/pders01/lumina/internal/config"
	"github.com/pders01/lumina/internal/listing"
	"github.com/pders01/lumina/internal/location"
	"github.com/pders01/lumina/internal/render"
	"github.com/pders01/lumina/internal/search"
	"github.com/pders01/lumina/internal/storage"
)

// articleParam marks history entries that show the reader. The list codec
// ignores it.
const articleParam = "article"

// chromeHeight is the separator, status line and help line.
const chromeHeight = 3

// Backend is everything the TUI asks of the articles API.
type Backend interface {
	listing.Backend
	GetArticle(ctx context.Context, id api.ID) (*api.Article, error)
	SetVisibility(ctx context.Context, id api.ID, visible bool) error
	BatchSetVisibility(ctx context.Context, ids []api.ID, visible bool) (*api.BatchResult, error)
	SetCategory(ctx context.Context, id api.ID, categoryID api.ID) error
	BatchSetCategory(ctx context.Context, ids []api.ID, categoryID api.ID) (*api.BatchResult, error)
	DeleteArticle(ctx context.Context, id api.ID) error
	BatchDelete(ctx context.Context, ids []api.ID) (*api.BatchResult, error)
}

// Cache is the local article store. *storage.Store satisfies it.
type Cache interface {
	SaveArticles(articles []api.Article) error
	GetArticle(id api.ID) (*storage.CachedArticle, error)
	DeleteArticles(ids []api.ID) error
	Prune(maxAge time.Duration) ([]api.ID, error)
}

type Index interface {
	search.Searcher
	search.Indexer
}

// Deps wires the app. Cache and Index are optional.
type Deps struct {
	Backend Backend
	Cache   Cache
	Index   Index
	History *location.History
	Open    func(url string) error
}

type App struct {
	config     *config.Config
	backend    Backend
	cache      Cache
	index      Index
	history    *location.History
	ctrl       *listing.Controller
	loader     *listing.Loader
	renderer   *render.Renderer
	keyHandler *KeyHandler
	open       func(string) error

	view         View
	previousView View
	width        int
	height       int
	cursor       int
	offset       int
	visibleRows  int

	searching   bool
	searchInput textinput.Model
	jumpInput   textinput.Model
	jumpErr     error
	form        *filterForm

	offlineInput        textinput.Model
	offlineHits         []search.Hit
	offlineCursor       int
	offlineSeq          int
	pendingOfflineQuery string

	categoryCursor int
	targets        []api.ID

	viewport       viewport.Model
	spinner        spinner.Model
	current        *api.Article
	currentOffline bool
	loadingArticle bool

	status     string
	statusKind StatusKind
	err        error
}

func NewApp(cfg *config.Config, deps Deps) *App {
	ApplyTheme(cfg.UI.Colors)

	history := deps.History
	if history == nil {
		history = location.New(nil, nil)
	}
	open := deps.Open
	if open == nil {
		open = browser.Open
	}

	si := textinput.New()
	si.Placeholder = "Search articles..."
	si.Prompt = ""
	si.CharLimit = 256

	ji := textinput.New()
	ji.Placeholder = "page number"
	ji.CharLimit = 6

	oi := textinput.New()
	oi.Placeholder = "Search cached articles..."

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		config:   cfg,
		backend:  deps.Backend,
		cache:    deps.Cache,
		index:    deps.Index,
		history:  history,
		ctrl:     listing.NewController(deps.Backend, history, listing.Options{Debounce: cfg.List.Debounce, PageSize: cfg.List.PageSize}),
		loader:   listing.NewLoader(cfg.List.CompactWidth, cfg.List.SentinelRows),
		renderer: render.New(cfg.UI.Style, cfg.UI.Article.WordWrapMinWidth, cfg.UI.Article.WordWrapMaxWidth),
		open:     open,

		view:         ViewList,
		previousView: ViewList,
		searchInput:  si,
		jumpInput:    ji,
		offlineInput: oi,
		form:         newFilterForm(),
		viewport:     viewport.New(0, 0),
		spinner:      sp,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

// Controller exposes the list controller, mostly for tests.
func (a *App) Controller() *listing.Controller { return a.ctrl }

func (a *App) Init() tea.Cmd {
	a.history.SetReady(true)
	cmds := []tea.Cmd{a.ctrl.Init(), a.spinner.Tick, a.pruneCache()}
	if id := a.history.Query().Get(articleParam); id != "" {
		cmds = append(cmds, a.showReader(api.Article{ID: api.ID(id)}))
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		if a.view == ViewReader && a.current != nil && !a.loadingArticle {
			cmds = append(cmds, a.renderArticle(*a.current))
		}

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case listing.ListAppliedMsg:
		if msg.Append {
			a.cursor = clamp(a.cursor, 0, len(a.ctrl.Items())-1)
		} else {
			a.cursor, a.offset = 0, 0
		}
		a.err = nil
		cmds = append(cmds, a.cacheArticles(msg.Items), a.loader.Settle(msg.Revision))

	case listing.FetchFailedMsg:
		a.setError(msg.Err)
		a.loader.Rearm(a.ctrl)

	case listing.StabilizedMsg:
		a.loader.Stabilized(msg, a.ctrl)
		cmds = append(cmds, a.loader.Check(a.ctrl, a.sentinelCursor()))

	case articleLoadedMsg:
		if a.view != ViewReader {
			break
		}
		if msg.err != nil {
			a.loadingArticle = false
			a.setError(msg.err)
			break
		}
		a.current = msg.article
		a.currentOffline = msg.offline
		cmds = append(cmds, a.renderArticle(*msg.article))

	case articleRenderedMsg:
		if a.view == ViewReader && a.current != nil && a.current.ID == msg.id {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingArticle = false
			if a.currentOffline {
				a.setStatus("Showing cached copy", StatusInfo)
			}
		}

	case moderatedMsg:
		if msg.err != nil {
			a.setError(msg.err)
			break
		}
		a.setStatus(msg.status, StatusSuccess)
		a.targets = nil
		a.ctrl.ClearSelection()
		if a.view == ViewReader && a.current != nil {
			if containsID(msg.deleted, a.current.ID) {
				cmds = append(cmds, a.leaveReader())
			} else {
				cmds = append(cmds, a.loadArticle(a.current.ID))
			}
		}
		cmds = append(cmds, a.ctrl.Refresh())

	case offlineDebounceMsg:
		if a.view == ViewSearch && msg.seq == a.offlineSeq && len(a.pendingOfflineQuery) > 1 {
			cmds = append(cmds, a.performOfflineSearch(a.pendingOfflineQuery))
		}

	case offlineResultsMsg:
		if a.view != ViewSearch || msg.query != a.pendingOfflineQuery {
			break
		}
		if msg.err != nil {
			a.setError(msg.err)
			break
		}
		a.offlineHits = msg.hits
		a.offlineCursor = 0
		a.setStatus(MsgResultsCount(len(msg.hits)), StatusInfo)

	case statusMsg:
		a.setStatus(msg.text, msg.kind)

	case errorMsg:
		a.setError(msg.err)

	default:
		cmds = append(cmds, a.ctrl.Update(msg))
	}

	return a, tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.loader.Resize(width)
	if a.view == ViewFilters && a.loader.Compact() && !a.loader.OverlayOpen() {
		a.closeFilters()
	}
	a.viewport.Width = width
	a.viewport.Height = max(1, height-chromeHeight)
	a.searchInput.Width = clamp(width-12, 10, 80)
	a.jumpInput.Width = 12
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
	if kind != StatusError {
		a.err = nil
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.status = ""
	a.statusKind = StatusError
}

// sentinelCursor treats a fully visible list end as a cursor on the last
// row, so short lists continue loading without scrolling.
func (a *App) sentinelCursor() int {
	n := len(a.ctrl.Items())
	if n > 0 && a.visibleRows > 0 && a.offset+a.visibleRows >= n {
		return n - 1
	}
	return a.cursor
}

func (a *App) currentItem() *api.Article {
	items := a.ctrl.Items()
	if a.cursor < 0 || a.cursor >= len(items) {
		return nil
	}
	return &items[a.cursor]
}

// actionTargets is the selection, or the focused article when nothing is
// selected.
func (a *App) actionTargets() []api.ID {
	if a.view == ViewReader && a.current != nil {
		return []api.ID{a.current.ID}
	}
	if ids := a.ctrl.Selected(); len(ids) > 0 {
		return ids
	}
	if it := a.currentItem(); it != nil {
		return []api.ID{it.ID}
	}
	return nil
}

func (a *App) openFilters() {
	a.form.Load(a.ctrl.State(), a.ctrl.Stats())
	a.loader.OpenOverlay()
	a.view = ViewFilters
}

func (a *App) closeFilters() {
	a.form.Blur()
	a.loader.CloseOverlay()
	a.view = ViewList
}

// showReader pushes a history entry for art and starts loading it.
func (a *App) showReader(art api.Article) tea.Cmd {
	q := a.history.Query()
	if q.Get(articleParam) != string(art.ID) {
		q.Set(articleParam, string(art.ID))
		a.history.Push(q)
	}
	return a.enterReader(art)
}

func (a *App) enterReader(art api.Article) tea.Cmd {
	a.view = ViewReader
	a.current = &art
	a.currentOffline = false
	a.loadingArticle = true
	a.viewport.SetContent("")
	return a.loadArticle(art.ID)
}

// leaveReader returns to the list, walking history back when the reader
// entry is the current one.
func (a *App) leaveReader() tea.Cmd {
	if a.history.Query().Get(articleParam) != "" && a.history.CanBack() {
		a.history.Back()
		return a.syncLocation()
	}
	a.view = ViewList
	a.current = nil
	a.loadingArticle = false
	return nil
}

// syncLocation follows the history's current entry after back/forward.
func (a *App) syncLocation() tea.Cmd {
	cmds := []tea.Cmd{a.ctrl.Hydrate()}
	if id := a.history.Query().Get(articleParam); id != "" {
		art := api.Article{ID: api.ID(id)}
		if known := a.articleByID(art.ID); known != nil {
			art = *known
		} else if cached, ok := a.cachedArticle(art.ID); ok {
			art = cached.Article
		}
		cmds = append(cmds, a.enterReader(art))
	} else {
		a.view = ViewList
		a.current = nil
		a.loadingArticle = false
	}
	return tea.Batch(cmds...)
}

func (a *App) View() string {
	contentHeight := max(1, a.height-chromeHeight)
	var content string

	switch a.view {
	case ViewList:
		content = a.renderList(a.width, contentHeight)
	case ViewFilters:
		if a.loader.Compact() {
			content = lipgloss.NewStyle().Width(a.width).Height(contentHeight).MaxHeight(contentHeight).
				Render(a.form.View(a.width))
		} else {
			panelWidth := clamp(a.width/3, 44, 64)
			listWidth := max(20, a.width-panelWidth-2)
			panel := PanelStyle.Width(panelWidth).Height(contentHeight - 2).Render(a.form.View(panelWidth - 2))
			content = lipgloss.JoinHorizontal(lipgloss.Top, a.renderList(listWidth, contentHeight), panel)
		}
	case ViewReader:
		if a.loadingArticle {
			content = renderCentered(a.width, contentHeight, renderMuted(a.spinner.View()+" "+MsgLoadingArticle))
		} else {
			content = a.viewport.View()
		}
	case ViewJump:
		content = a.renderJump(a.width, contentHeight)
	case ViewDeleteConfirm:
		content = a.renderDeleteConfirm(a.width, contentHeight)
	case ViewCategory:
		content = a.renderCategoryPicker(a.width, contentHeight)
	case ViewSearch:
		content = a.renderOfflineSearch(a.width, contentHeight)
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(0, a.width)))
	return lipgloss.JoinVertical(lipgloss.Left, content, separator, a.statusLine(), a.helpLine())
}

func (a *App) statusLine() string {
	style := lipgloss.NewStyle().Width(a.width).MaxWidth(a.width).Padding(0, 1)
	if a.err != nil {
		return style.Render(StatusErrorStyle.Render("✗ " + a.err.Error()))
	}
	st := a.ctrl.State()
	summary := MsgPageSummary(st.Page, a.ctrl.TotalPages(), a.ctrl.Total(), st.PageSize)
	if a.status == "" {
		return style.Render(StatusInfoStyle.Render(summary))
	}
	text := StatusInfoStyle.Render(a.status)
	if a.statusKind == StatusSuccess {
		text = StatusOKStyle.Render(a.status)
	}
	return style.Render(text + StatusInfoStyle.Render(" • "+summary))
}

func (a *App) helpLine() string {
	return lipgloss.NewStyle().
		Width(a.width).
		MaxWidth(a.width).
		Padding(0, 1).
		Foreground(MutedColor).
		Render(strings.Join(a.keyHandler.GetHelpForCurrentView(), " • "))
}

func containsID(ids []api.ID, id api.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
