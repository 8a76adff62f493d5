package tui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitaminmoo/wxload/internal/config"
)

// Run starts the TUI application. A non-empty address skips discovery and
// opens that module directly.
func Run(settings config.Settings, address string) error {
	// messages and debug output would tear the alternate screen
	out := config.Output
	config.Output = io.Discard
	defer func() { config.Output = out }()

	m := NewModel(settings, address)
	p := tea.NewProgram(m, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	if fm, ok := final.(Model); ok && fm.client != nil {
		fm.client.Close()
	}
	return nil
}
