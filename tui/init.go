package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Init starts listening for batch events.
func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.waitForEvent())
}
