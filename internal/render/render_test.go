package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/lumina/internal/api"
)

func TestWrapWidth(t *testing.T) {
	r := New("notty", 40, 120)
	tests := []struct {
		term int
		want int
	}{
		{200, 120},
		{100, 90},
		{60, 54},
		{45, 41},
		{10, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.WrapWidth(tt.term), "term width %d", tt.term)
	}
}

func TestMarkdown_SanitizesHTML(t *testing.T) {
	r := New("notty", 40, 120)

	md, err := r.Markdown(`<p>Hello <b>world</b><script>alert(1)</script></p><p><a href="https://example.com" onclick="x()">link</a></p>`)
	require.NoError(t, err)
	assert.Contains(t, md, "**world**")
	assert.Contains(t, md, "[link](https://example.com)")
	assert.NotContains(t, md, "alert")
	assert.NotContains(t, md, "onclick")
}

func TestMarkdown_PassesMarkdownThrough(t *testing.T) {
	r := New("notty", 40, 120)

	md, err := r.Markdown("  ## Heading\n\nsome *text* with a < sign  ")
	require.NoError(t, err)
	assert.Equal(t, "## Heading\n\nsome *text* with a < sign", md)
}

func TestDocument(t *testing.T) {
	r := New("notty", 40, 120)
	pub := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	doc, err := r.Document(api.Article{
		Title:        "Go 1.24",
		URL:          "https://go.dev/blog",
		Author:       "gopher",
		SourceDomain: "go.dev",
		Summary:      "Release notes",
		PublishedAt:  &pub,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "# Go 1.24\n"))
	assert.Contains(t, doc, "go.dev · by gopher · 2024-05-01 09:30 · hidden")
	assert.Contains(t, doc, "[Read Online](https://go.dev/blog)")
	assert.Contains(t, doc, "Release notes")

	empty, err := r.Document(api.Article{Visible: true})
	require.NoError(t, err)
	assert.Contains(t, empty, "# Untitled")
	assert.Contains(t, empty, "_No content._")
}

func TestArticle_Renders(t *testing.T) {
	r := New("notty", 40, 120)

	out, err := r.Article(api.Article{Title: "Rendered", Content: "<p>Body text</p>", Visible: true}, 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered")
	assert.Contains(t, out, "Body text")

	// A small resize reuses the cached renderer.
	first := r.term
	_, err = r.Article(api.Article{Title: "Again", Visible: true}, 84)
	require.NoError(t, err)
	assert.Same(t, first, r.term)
}

func TestPlainText(t *testing.T) {
	r := New("notty", 40, 120)
	assert.Equal(t, "Tom & Jerry say hi", r.PlainText("<p>Tom &amp; <b>Jerry</b></p>\n<p>say   hi</p>"))
}
