package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/lumina/internal/api"
)

// rowHeight is the number of lines one article occupies in the list.
const rowHeight = 2

func (a *App) listRows(height int) int {
	n := height / rowHeight
	if n < 1 {
		n = 1
	}
	return n
}

// scrollTo keeps the cursor inside the visible window.
func (a *App) scrollTo(rows int) {
	if a.cursor < a.offset {
		a.offset = a.cursor
	}
	if a.cursor >= a.offset+rows {
		a.offset = a.cursor - rows + 1
	}
	a.offset = clamp(a.offset, 0, max(0, len(a.ctrl.Items())-rows))
}

func (a *App) renderItem(art api.Article, selected, current bool, width int) string {
	check := "  "
	if selected {
		check = CursorStyle.Render("✓ ")
	}
	marker := "  "
	if current {
		marker = CursorStyle.Render("› ")
	}

	title := art.Title
	if title == "" {
		title = "Untitled"
	}
	titleStyle := ItemStyle
	if !art.Visible {
		titleStyle = HiddenItemStyle
	}
	if current {
		titleStyle = titleStyle.Bold(true)
	}
	line1 := marker + check + titleStyle.Render(truncateEnd(title, width-6))

	var meta []string
	if art.SourceDomain != "" {
		meta = append(meta, truncateMiddle(art.SourceDomain, 30))
	}
	if art.CategoryName != "" {
		meta = append(meta, art.CategoryName)
	}
	if art.PublishedAt != nil {
		meta = append(meta, art.PublishedAt.Format("Jan 2, 15:04"))
	}
	if !art.Visible {
		meta = append(meta, "hidden")
	}
	summary := a.renderer.PlainText(art.Summary)
	if limit := a.config.UI.Article.MaxSummaryLength; limit > 0 {
		summary = truncateEnd(summary, limit)
	}
	line2 := "    " + TimeStyle.Render(strings.Join(meta, " • "))
	if summary != "" {
		line2 += renderMuted(" — " + summary)
	}
	return line1 + "\n" + lipgloss.NewStyle().MaxWidth(width).Render(line2)
}

// sentinelLine marks the end of the list in compact mode.
func (a *App) sentinelLine() string {
	switch {
	case a.ctrl.Appending():
		return renderMuted("    " + a.spinner.View() + " loading more…")
	case a.ctrl.HasMore():
		return renderMuted("    ↓ more below")
	default:
		return renderMuted("    — end of list —")
	}
}

func (a *App) renderList(width, height int) string {
	items := a.ctrl.Items()
	header := a.renderListHeader(width)
	bodyHeight := height - lipgloss.Height(header)
	if bodyHeight < rowHeight {
		bodyHeight = rowHeight
	}

	if len(items) == 0 {
		var body string
		switch {
		case a.ctrl.Loading():
			body = renderMuted(a.spinner.View() + " " + MsgLoading)
		case a.ctrl.Err() != nil:
			body = StatusErrorStyle.Render("✗ " + a.ctrl.Err().Error())
		default:
			body = GetWelcomeMessage()
		}
		return lipgloss.JoinVertical(lipgloss.Left, header, renderCentered(width, bodyHeight, body))
	}

	rows := a.listRows(bodyHeight)
	compact := a.loader.Compact()
	if compact && rows > 1 {
		rows = (bodyHeight - 1) / rowHeight
		if rows < 1 {
			rows = 1
		}
	}
	a.scrollTo(rows)
	a.visibleRows = rows

	end := min(len(items), a.offset+rows)
	lines := make([]string, 0, end-a.offset+1)
	for i := a.offset; i < end; i++ {
		art := items[i]
		lines = append(lines, a.renderItem(art, a.ctrl.IsSelected(art.ID), i == a.cursor, width))
	}
	if compact && end == len(items) {
		lines = append(lines, a.sentinelLine())
	}
	body := lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (a *App) renderListHeader(width int) string {
	title := TitleStyle.Render("› " + AppName)
	if a.ctrl.Loading() || a.ctrl.StatsLoading() {
		title += " " + a.spinner.View()
	}
	if n := a.ctrl.SelectionCount(); n > 0 {
		title += renderMuted("  " + strconv.Itoa(n) + " selected")
	}

	var chips []string
	for _, f := range a.ctrl.ActiveFilters(a.ctrl.CategoryName) {
		chips = append(chips, ChipStyle.Render("["+f+"]"))
	}
	rows := []string{title}
	if a.searching {
		rows = append(rows, "search: "+a.searchInput.View())
	}
	if len(chips) > 0 {
		rows = append(rows, lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(chips, "")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) renderCategoryPicker(width, height int) string {
	rows := []string{renderHeader("› move to category", strconv.Itoa(len(a.targets))+" selected", width), ""}
	stats := a.ctrl.Stats()
	if len(stats) == 0 {
		rows = append(rows, renderMuted("No categories loaded yet."))
	}
	for i, c := range stats {
		marker := "  "
		style := ItemStyle
		if i == a.categoryCursor {
			marker = CursorStyle.Render("› ")
			style = style.Bold(true)
		}
		rows = append(rows, marker+style.Render(c.Name)+renderMuted(" ("+strconv.Itoa(c.Count)+")"))
	}
	rows = append(rows, "", renderHelp("↑↓: choose • enter: move • esc: cancel"))
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a *App) renderDeleteConfirm(width, height int) string {
	modalWidth := clamp((width*4)/5, 15, width)
	what := "this article"
	if len(a.targets) == 1 {
		if art := a.articleByID(a.targets[0]); art != nil && art.Title != "" {
			what = art.Title
		}
	} else {
		what = strconv.Itoa(len(a.targets)) + " articles"
	}
	center := lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center)
	return renderCentered(width, height, lipgloss.JoinVertical(
		lipgloss.Center,
		StatusErrorStyle.Render("⚠ Delete"),
		"",
		center.Foreground(TextColor).Render("Delete "+truncateEnd(what, modalWidth-10)+"?"),
		"",
		center.Foreground(MutedColor).Render("This cannot be undone."),
		"",
		renderHelp("enter: confirm • esc: cancel"),
	))
}

func (a *App) renderJump(width, height int) string {
	rows := []string{
		TitleStyle.Render("› jump to page"),
		"",
		a.jumpInput.View(),
		"",
		renderMuted("1 – " + strconv.Itoa(a.ctrl.TotalPages())),
	}
	if a.jumpErr != nil {
		rows = append(rows, "", StatusErrorStyle.Render("✗ "+a.jumpErr.Error()))
	}
	rows = append(rows, "", renderHelp("enter: go • esc: cancel"))
	return renderCentered(width, height, lipgloss.JoinVertical(lipgloss.Center, rows...))
}

func (a *App) renderOfflineSearch(width, height int) string {
	inputWidth := clamp(width-8, 10, width)
	a.offlineInput.Width = inputWidth
	border := MutedColor
	if a.offlineInput.Focused() {
		border = AccentColor
	}
	input := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(inputWidth + 4).
		Render(a.offlineInput.View())

	var help string
	switch {
	case a.offlineInput.Focused():
		help = "Type to search cached articles • tab/↓: results • esc: back"
	case len(a.offlineHits) > 0:
		help = "↑↓: navigate • enter: open • tab: search box • esc: back"
	default:
		help = MsgNoResults + " • tab: search box • esc: back"
	}

	rows := []string{HeaderStyle.Render("› offline search"), "", input, renderMuted(help), ""}
	for i, h := range a.offlineHits {
		marker := "  "
		style := ItemStyle
		if !a.offlineInput.Focused() && i == a.offlineCursor {
			marker = CursorStyle.Render("› ")
			style = style.Bold(true)
		}
		title := h.Title
		if title == "" {
			title = string(h.ID)
		}
		rows = append(rows, marker+style.Render(truncateEnd(title, width-4)))
		if h.SourceDomain != "" {
			rows = append(rows, "    "+TimeStyle.Render(h.SourceDomain))
		}
	}
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a *App) articleByID(id api.ID) *api.Article {
	items := a.ctrl.Items()
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
