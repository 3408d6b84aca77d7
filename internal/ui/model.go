// Package ui provides ephemeral terminal notifications for bubbletea models.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Lifetime is how long a notification stays visible.
var Lifetime = 3 * time.Second

// Model holds the current notification.
type Model struct {
	notification string
	notifiedAt   time.Time
}

// NotificationMsg replaces the current notification.
type NotificationMsg string

// ClearNotificationMsg clears notifications older than Lifetime.
type ClearNotificationMsg struct{}

// Notify returns a tea.Cmd that shows msg.
func Notify(msg string) tea.Cmd {
	return func() tea.Msg {
		return NotificationMsg(msg)
	}
}

// ClearNotification returns a delayed tea.Cmd that clears the current notification.
func ClearNotification() tea.Cmd {
	return tea.Tick(Lifetime, func(time.Time) tea.Msg {
		return ClearNotificationMsg{}
	})
}

// Update handles notification messages and ignores everything else.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case NotificationMsg:
		m.notification = string(msg)
		m.notifiedAt = time.Now()
		return ClearNotification()
	case ClearNotificationMsg:
		// a newer notification restarts the clock
		if time.Since(m.notifiedAt) >= Lifetime {
			m.notification = ""
		}
	}
	return nil
}

// Current returns the visible notification.
func (m *Model) Current() string {
	return m.notification
}

var faint = lipgloss.NewStyle().Faint(true)

// View appends the notification to the last line of mainContent.
func (m *Model) View(mainContent string) string {
	if m.notification == "" {
		return mainContent
	}

	lines := strings.Split(mainContent, "\n")
	lines[len(lines)-1] += "  " + faint.Render(m.notification)
	return strings.Join(lines, "\n")
}
