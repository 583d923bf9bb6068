package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/lumina/internal/config"
)

const AppName = "lumina"

var LogoLines = []string{
	"█   █ █ █▄ ▄█ █ █▄ █ ▄▀▄",
	"█   █ █ █ ▀ █ █ █ ▀█ █▀█",
	"█▄▄ ▀▄▀ █   █ █ █  █ █ █",
}

const CompactLogo = `lumina ›`

// Palette. ApplyTheme overrides these from the config before the first
// render.
var (
	PrimaryColor   = lipgloss.Color("#F59E0B")
	SecondaryColor = lipgloss.Color("#38BDF8")
	AccentColor    = lipgloss.Color("#A78BFA")
	TextColor      = lipgloss.Color("#EAEAEA")
	MutedColor     = lipgloss.Color("#94A3B8")
	ErrorColor     = lipgloss.Color("#F87171")
	SuccessColor   = lipgloss.Color("#4ADE80")
	HiddenColor    = lipgloss.Color("#64748B")
)

var (
	LogoStyle         lipgloss.Style
	TitleStyle        lipgloss.Style
	HeaderStyle       lipgloss.Style
	HelpStyle         lipgloss.Style
	TimeStyle         lipgloss.Style
	ItemStyle         lipgloss.Style
	HiddenItemStyle   lipgloss.Style
	CursorStyle       lipgloss.Style
	ChipStyle         lipgloss.Style
	SeparatorStyle    lipgloss.Style
	StatusInfoStyle   lipgloss.Style
	StatusOKStyle     lipgloss.Style
	StatusErrorStyle  lipgloss.Style
	FocusedLabelStyle lipgloss.Style
	LabelStyle        lipgloss.Style
	PanelStyle        lipgloss.Style
)

func init() { buildStyles() }

// ApplyTheme installs the configured colors. Empty values keep the default.
func ApplyTheme(c config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	TitleStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	TimeStyle = lipgloss.NewStyle().Foreground(MutedColor).Faint(true)
	ItemStyle = lipgloss.NewStyle().Foreground(TextColor)
	HiddenItemStyle = lipgloss.NewStyle().Foreground(HiddenColor).Strikethrough(true)
	CursorStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	ChipStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Padding(0, 1)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusOKStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	FocusedLabelStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	LabelStyle = lipgloss.NewStyle().Foreground(MutedColor)
	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1)
}

func GetWelcomeMessage() string {
	return GetCompactBanner("No articles match. Press f to change filters or c to clear them.")
}

func GetCompactBanner(message string) string {
	lines := make([]string, 0, len(LogoLines))
	for _, line := range LogoLines {
		lines = append(lines, LogoStyle.Render(line))
	}
	return lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, lines...),
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the logo with a version tagline for the CLI.
func Banner(version string) string {
	tag := "    Article Reader"
	if version != "" && version != "dev" {
		if version[0] != 'v' {
			version = "v" + version
		}
		tag = fmt.Sprintf("    Article Reader %s", version)
	}
	lines := make([]string, 0, len(LogoLines)+2)
	for i, line := range LogoLines {
		color := PrimaryColor
		if i%2 == 1 {
			color = SecondaryColor
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Bold(true).Render(line))
	}
	lines = append(lines, "", HelpStyle.Render(tag))

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1).
		Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	return lipgloss.NewStyle().Width(60).Align(lipgloss.Center).Render(box)
}

func ShowBanner(version string) {
	fmt.Println(Banner(version))
}
