// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the status screen
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Info is the static header content
type Info struct {
	Product  string
	DeviceID string
	Format   string
}

// NewModel creates a new TUI model
func NewModel(info Info) Model {
	return Model{
		product:  info.Product,
		deviceID: info.DeviceID,
		format:   info.Format,
		phase:    "disconnected",
	}
}

// New creates the status screen program. The caller runs it and sends
// LinkMsg, PlaybackMsg, GainMsg and DiagMsg values to it.
func New(info Info) *tea.Program {
	return tea.NewProgram(NewModel(info), tea.WithAltScreen())
}
