package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/listing"
	"github.com/pders01/lumina/internal/validation"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldDate
	fieldChoice
)

type choice struct {
	value string
	label string
}

type formField struct {
	label   string
	kind    fieldKind
	input   textinput.Model
	choices []choice
	picked  int
}

func (f *formField) value() string {
	if f.kind == fieldChoice {
		if len(f.choices) == 0 {
			return ""
		}
		return f.choices[f.picked].value
	}
	return strings.TrimSpace(f.input.Value())
}

func (f *formField) pick(value string) {
	f.picked = 0
	for i, c := range f.choices {
		if c.value == value {
			f.picked = i
			return
		}
	}
}

func (f *formField) cycle(delta int) {
	if n := len(f.choices); n > 0 {
		f.picked = (f.picked + delta + n) % n
	}
}

const (
	fieldCategory = iota
	fieldSearch
	fieldSource
	fieldAuthor
	fieldVisibility
	fieldQuickDate
	fieldSort
	fieldPublishedFrom
	fieldPublishedTo
	fieldCreatedFrom
	fieldCreatedTo
	fieldCount
)

// filterForm edits every filter at once. In compact terminals it is shown
// as a full-screen drawer, otherwise as a side panel.
type filterForm struct {
	fields [fieldCount]*formField
	focus  int
	err    error
}

func newTextField(label, placeholder string, limit int) *formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return &formField{label: label, kind: fieldText, input: ti}
}

func newDateField(label string) *formField {
	f := newTextField(label, "YYYY-MM-DD", 10)
	f.kind = fieldDate
	return f
}

func newFilterForm() *filterForm {
	f := &filterForm{}
	f.fields[fieldCategory] = &formField{label: "Category", kind: fieldChoice}
	f.fields[fieldSearch] = newTextField("Search", "title or content", 256)
	f.fields[fieldSource] = newTextField("Source", "example.com", 253)
	f.fields[fieldAuthor] = newTextField("Author", "name", 200)
	f.fields[fieldVisibility] = &formField{label: "Visibility", kind: fieldChoice, choices: []choice{
		{string(listing.VisibilityAll), "all"},
		{string(listing.VisibilityVisible), "visible"},
		{string(listing.VisibilityHidden), "hidden"},
	}}
	quick := make([]choice, 0, len(listing.QuickDates))
	for _, q := range listing.QuickDates {
		quick = append(quick, choice{string(q), q.Label()})
	}
	f.fields[fieldQuickDate] = &formField{label: "Published", kind: fieldChoice, choices: quick}
	f.fields[fieldSort] = &formField{label: "Sort", kind: fieldChoice, choices: []choice{
		{string(listing.SortPublishedDesc), "newest published"},
		{string(listing.SortCreatedDesc), "newest added"},
	}}
	f.fields[fieldPublishedFrom] = newDateField("Published from")
	f.fields[fieldPublishedTo] = newDateField("Published to")
	f.fields[fieldCreatedFrom] = newDateField("Added from")
	f.fields[fieldCreatedTo] = newDateField("Added to")
	return f
}

func dayString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Load copies s into the form. stats supply the category choices.
func (f *filterForm) Load(s listing.FilterState, stats []api.CategoryCount) {
	cats := []choice{{"", "all categories"}}
	for _, c := range stats {
		cats = append(cats, choice{string(c.ID), fmt.Sprintf("%s (%d)", c.Name, c.Count)})
	}
	f.fields[fieldCategory].choices = cats
	f.fields[fieldCategory].pick(s.CategoryID)

	f.fields[fieldSearch].input.SetValue(s.Search)
	f.fields[fieldSource].input.SetValue(s.SourceDomain)
	f.fields[fieldAuthor].input.SetValue(s.Author)
	f.fields[fieldVisibility].pick(string(s.Visibility))
	f.fields[fieldQuickDate].pick(string(s.QuickDate))
	f.fields[fieldSort].pick(string(s.SortBy))
	f.fields[fieldPublishedFrom].input.SetValue(dayString(s.Published.Start))
	f.fields[fieldPublishedTo].input.SetValue(dayString(s.Published.End))
	f.fields[fieldCreatedFrom].input.SetValue(dayString(s.Created.Start))
	f.fields[fieldCreatedTo].input.SetValue(dayString(s.Created.End))
	f.err = nil
	f.setFocus(fieldSearch)
}

func (f *filterForm) setFocus(i int) {
	f.focus = (i + fieldCount) % fieldCount
	for idx, field := range f.fields {
		if field.kind == fieldChoice {
			continue
		}
		if idx == f.focus {
			field.input.Focus()
		} else {
			field.input.Blur()
		}
	}
}

func (f *filterForm) Blur() {
	for _, field := range f.fields {
		if field.kind != fieldChoice {
			field.input.Blur()
		}
	}
}

func (f *filterForm) Next() { f.setFocus(f.focus + 1) }
func (f *filterForm) Prev() { f.setFocus(f.focus - 1) }

// Update feeds a key to the focused field. Choice fields cycle with
// left/right and space.
func (f *filterForm) Update(msg tea.KeyMsg) tea.Cmd {
	field := f.fields[f.focus]
	if field.kind == fieldChoice {
		switch msg.String() {
		case "left", "h":
			field.cycle(-1)
		case "right", "l", " ":
			field.cycle(1)
		}
		return nil
	}
	var cmd tea.Cmd
	field.input, cmd = field.input.Update(msg)
	return cmd
}

func (f *filterForm) date(i int) (time.Time, error) {
	v := f.fields[i].value()
	if v == "" {
		return time.Time{}, nil
	}
	d, ok := listing.ParseDay(v)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: %q is not a YYYY-MM-DD date", f.fields[i].label, v)
	}
	return d, nil
}

// State merges the form into base. Invalid input is reported and leaves
// base untouched.
func (f *filterForm) State(base listing.FilterState) (listing.FilterState, error) {
	next := base
	next.CategoryID = f.fields[fieldCategory].value()
	next.Search = f.fields[fieldSearch].value()
	next.Author = f.fields[fieldAuthor].value()
	next.Visibility = listing.Visibility(f.fields[fieldVisibility].value())
	next.QuickDate = listing.QuickDate(f.fields[fieldQuickDate].value())
	next.SortBy = listing.SortBy(f.fields[fieldSort].value())

	domain, err := validation.Domain(f.fields[fieldSource].value())
	if err != nil {
		return base, fmt.Errorf("source: %w", err)
	}
	next.SourceDomain = domain

	days := make([]time.Time, 4)
	for i, idx := range []int{fieldPublishedFrom, fieldPublishedTo, fieldCreatedFrom, fieldCreatedTo} {
		d, err := f.date(idx)
		if err != nil {
			return base, err
		}
		days[i] = d
	}
	next.Published = listing.DateRange{Start: days[0], End: days[1]}
	next.Created = listing.DateRange{Start: days[2], End: days[3]}
	return next, nil
}

func (f *filterForm) View(width int) string {
	labelWidth := 16
	rows := []string{TitleStyle.Render("› filters"), ""}
	for i, field := range f.fields {
		label := LabelStyle
		marker := "  "
		if i == f.focus {
			label = FocusedLabelStyle
			marker = CursorStyle.Render("› ")
		}
		var value string
		switch field.kind {
		case fieldChoice:
			v := "-"
			if len(field.choices) > 0 {
				v = field.choices[field.picked].label
			}
			if i == f.focus {
				v = "‹ " + v + " ›"
			}
			value = ItemStyle.Render(v)
		default:
			field.input.Width = clamp(width-labelWidth-6, 8, 60)
			value = field.input.View()
		}
		rows = append(rows, marker+label.Width(labelWidth).Render(field.label)+value)
	}
	rows = append(rows, "")
	if f.err != nil {
		rows = append(rows, StatusErrorStyle.Render("✗ "+f.err.Error()), "")
	}
	rows = append(rows, renderHelp("tab/↑↓: field • ←→: change • enter: apply • esc: cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
