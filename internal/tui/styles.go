package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all the lipgloss styles for the TUI.
type Styles struct {
	App lipgloss.Style

	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// Menu and module list
	MenuItem         lipgloss.Style
	MenuItemSelected lipgloss.Style
	MenuItemDim      lipgloss.Style

	// Connection state
	StatusOnline  lipgloss.Style
	StatusOffline lipgloss.Style

	// Content
	Label     lipgloss.Style
	Value     lipgloss.Style
	Highlight lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Reply     lipgloss.Style

	Help lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	muted := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	text := lipgloss.AdaptiveColor{Light: "#343433", Dark: "#C1C6B2"}
	accent := lipgloss.AdaptiveColor{Light: "#1F6FD1", Dark: "#4EA1FF"}
	good := lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	bad := lipgloss.Color("#FF6B6B")

	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(accent).
			Padding(0, 1),

		Subtitle: lipgloss.NewStyle().
			Foreground(muted),

		MenuItem: lipgloss.NewStyle(),

		MenuItemSelected: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),

		MenuItemDim: lipgloss.NewStyle().
			Foreground(muted).
			PaddingLeft(4),

		StatusOnline: lipgloss.NewStyle().
			Foreground(good).
			Bold(true),

		StatusOffline: lipgloss.NewStyle().
			Foreground(bad).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}).
			Width(14),

		Value: lipgloss.NewStyle().
			Foreground(text),

		Highlight: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(muted),

		Error: lipgloss.NewStyle().
			Foreground(bad),

		Success: lipgloss.NewStyle().
			Foreground(good),

		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC00")),

		Reply: lipgloss.NewStyle().
			Foreground(text).
			Border(lipgloss.NormalBorder()).
			BorderForeground(muted).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1),
	}
}
