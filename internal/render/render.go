// Package render turns article bodies into sanitized terminal text.
package render

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pders01/lumina/internal/api"
)

var htmlTag = regexp.MustCompile(`(?i)<(p|div|br|a|b|i|em|strong|ul|ol|li|h[1-6]|img|span|blockquote|pre|code|table|figure)[\s/>]`)

type Renderer struct {
	style    string
	minWidth int
	maxWidth int
	policy   *bluemonday.Policy

	mu    sync.Mutex
	term  *glamour.TermRenderer
	width int
}

// New builds a renderer. style is a glamour standard style name or "auto".
func New(style string, minWidth, maxWidth int) *Renderer {
	if minWidth <= 0 {
		minWidth = 40
	}
	if maxWidth < minWidth {
		maxWidth = 120
	}
	return &Renderer{
		style:    style,
		minWidth: minWidth,
		maxWidth: maxWidth,
		policy:   bluemonday.UGCPolicy(),
	}
}

// WrapWidth picks a readable wrap width for a terminal of termWidth
// columns.
func (r *Renderer) WrapWidth(termWidth int) int {
	w := (termWidth * 9) / 10
	if w > r.maxWidth {
		w = r.maxWidth
	}
	if w < r.minWidth {
		w = r.minWidth
	}
	if termWidth < 50 {
		w = termWidth - 4
		if w < 20 {
			w = 20
		}
	}
	return w
}

func (r *Renderer) termRenderer(wrap int) (*glamour.TermRenderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.term != nil && abs(r.width-wrap) <= 10 {
		return r.term, nil
	}
	styleOpt := glamour.WithAutoStyle()
	if r.style != "" && r.style != "auto" {
		styleOpt = glamour.WithStandardStyle(r.style)
	}
	t, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	r.term = t
	r.width = wrap
	return t, nil
}

// Markdown converts an article body to markdown. HTML is sanitized first;
// bodies that are already markdown pass through.
func (r *Renderer) Markdown(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" || !htmlTag.MatchString(body) {
		return body, nil
	}
	clean := r.policy.Sanitize(body)
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("converting html: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Document assembles the markdown shown in the reader.
func (r *Renderer) Document(a api.Article) (string, error) {
	var b strings.Builder
	title := a.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	var meta []string
	if a.SourceName != "" {
		meta = append(meta, a.SourceName)
	} else if a.SourceDomain != "" {
		meta = append(meta, a.SourceDomain)
	}
	if a.Author != "" {
		meta = append(meta, "by "+a.Author)
	}
	if a.PublishedAt != nil {
		meta = append(meta, a.PublishedAt.Format("2006-01-02 15:04"))
	}
	if a.CategoryName != "" {
		meta = append(meta, a.CategoryName)
	}
	if !a.Visible {
		meta = append(meta, "hidden")
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "[Read Online](%s)\n\n", a.URL)
	}
	b.WriteString("---\n\n")

	body := a.Content
	if strings.TrimSpace(body) == "" {
		body = a.Summary
	}
	md, err := r.Markdown(body)
	if err != nil {
		return "", err
	}
	if md == "" {
		md = "_No content._"
	}
	b.WriteString(md)
	b.WriteString("\n")
	return b.String(), nil
}

// Article renders a for a terminal termWidth columns wide.
func (r *Renderer) Article(a api.Article, termWidth int) (string, error) {
	doc, err := r.Document(a)
	if err != nil {
		return "", err
	}
	t, err := r.termRenderer(r.WrapWidth(termWidth))
	if err != nil {
		return "", err
	}
	out, err := t.Render(doc)
	if err != nil {
		return "", fmt.Errorf("rendering article: %w", err)
	}
	return out, nil
}

// PlainText strips all markup, for list previews and the search index.
func (r *Renderer) PlainText(body string) string {
	text := bluemonday.StrictPolicy().Sanitize(body)
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#39;", "'", "&#34;", `"`, "&quot;", `"`).Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
