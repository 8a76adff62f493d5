package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vitaminmoo/wxload/internal/api"
	"github.com/vitaminmoo/wxload/internal/firmware"
)

// ProgressState tracks an image transfer to the target.
type ProgressState struct {
	progress progress.Model
	state    firmware.TransferProgress
	isActive bool
}

// NewProgressState creates a new progress tracking state.
func NewProgressState() ProgressState {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)
	return ProgressState{
		progress: p,
	}
}

// Start begins tracking a transfer of total bytes.
func (p *ProgressState) Start(total int64) {
	p.isActive = true
	p.state = firmware.TransferProgress{TotalBytes: total, Phase: "starting"}
}

// Update records the bytes sent so far and the current phase.
func (p *ProgressState) Update(sent, total int64, phase string) {
	p.state.BytesSent = sent
	if total > 0 {
		p.state.TotalBytes = total
		p.state.TotalChunks = firmware.Chunks(total, api.MaxDataSize)
	}
	p.state.ChunksSent = firmware.Chunks(sent, api.MaxDataSize)
	if phase != "" {
		p.state.Phase = phase
	}
}

// Percent returns the transfer progress (0.0 to 1.0).
func (p ProgressState) Percent() float64 {
	return p.state.Percent()
}

// Complete marks the transfer as complete.
func (p *ProgressState) Complete() {
	p.state.BytesSent = p.state.TotalBytes
	p.state.ChunksSent = p.state.TotalChunks
	p.isActive = false
}

// Cancel stops the progress without completing.
func (p *ProgressState) Cancel() {
	p.isActive = false
}

// IsActive returns whether a transfer is in progress.
func (p *ProgressState) IsActive() bool {
	return p.isActive
}

// View renders the progress bar.
func (p ProgressState) View() string {
	if !p.isActive {
		return ""
	}
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	st := p.state
	desc := fmt.Sprintf("%s: %d / %d bytes", st.Phase, st.BytesSent, st.TotalBytes)
	if st.TotalChunks > 0 {
		desc += fmt.Sprintf(" (chunk %d of %d)", st.ChunksSent, st.TotalChunks)
	}
	return descStyle.Render(desc) + "\n" + p.progress.ViewAs(p.Percent())
}

// progressUpdateMsg reports transfer progress.
type progressUpdateMsg struct {
	sent  int64
	total int64
	phase string
}

// progressCompleteMsg signals the transfer completed.
type progressCompleteMsg struct {
	message string
}

// progressErrorMsg signals the transfer failed.
type progressErrorMsg struct {
	err error
}

// waitForProgress delivers the next message from a running transfer.
// A closed channel yields nil, which ends the chain.
func waitForProgress(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
