package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// renderHeader returns a styled header with an optional muted subtitle.
func renderHeader(title, subtitle string, width int) string {
	rows := []string{HeaderStyle.Render(truncateEnd(title, width-2))}
	if subtitle != "" {
		rows = append(rows, renderMuted(truncateEnd(subtitle, width-2)))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}

// truncateEnd shortens s to at most limit runes, ending in an ellipsis.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s, for URLs and domains.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	left := (limit - 1) / 2
	right := limit - 1 - left
	return string(r[:left]) + "…" + string(r[len(r)-right:])
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
