package tui

import (
	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/internal/ui"
	"github.com/anisan-cli/seriesdl/log"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if cmd := b.notifier.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	notify := func(text string) {
		if text != "" {
			cmds = append(cmds, ui.Notify(text))
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		cmds = append(cmds, cmd)
	case eventMsg:
		notify(b.handleEvent(msg.event))
		cmds = append(cmds, b.waitForEvent())
	case eventsDone:
		b.events = nil
	case controlMsg:
		notify(b.handleControl(msg))
	case finishedMsg:
		b.results = msg.results
		for _, r := range msg.results {
			if row, ok := b.rows[r.Episode]; ok {
				row.status = r.Status
				row.err = r.Error
			}
		}
		if msg.err != nil {
			log.Error(msg.err)
			b.raiseError(msg.err)
		} else {
			b.setState(doneState)
		}
		if b.quitting {
			return b, tea.Quit
		}
	case tea.KeyMsg:
		return b, tea.Batch(append(cmds, b.handleKey(msg))...)
	}

	return b, tea.Batch(cmds...)
}

func (b *statefulBubble) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case bubblesKey.Matches(msg, b.keymap.forceQuit):
		return tea.Quit
	case bubblesKey.Matches(msg, b.keymap.quit):
		if b.state == doneState || b.state == errorState {
			return tea.Quit
		}
		b.quitting = true
		return tea.Batch(b.cancelAll(), ui.Notify("cancelling..."))
	case bubblesKey.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case bubblesKey.Matches(msg, b.keymap.up):
		if b.cursor > 0 {
			b.cursor--
		}
	case bubblesKey.Matches(msg, b.keymap.down):
		if b.cursor < len(b.order)-1 {
			b.cursor++
		}
	}

	if b.state != downloadingState && b.state != mergingState {
		return nil
	}

	switch {
	case bubblesKey.Matches(msg, b.keymap.cancelAll):
		return tea.Batch(b.cancelAll(), ui.Notify("cancelling all episodes"))
	case b.state != downloadingState:
		return nil
	}

	r, ok := b.selected()
	if !ok {
		return nil
	}

	switch {
	case bubblesKey.Matches(msg, b.keymap.pause):
		if r.status == downloader.Downloading || r.status == downloader.Paused {
			return b.togglePause(r)
		}
		return ui.Notify("episode is not downloading")
	case bubblesKey.Matches(msg, b.keymap.cancel):
		if r.status.Active() {
			return b.cancel(r)
		}
		return ui.Notify("episode is not active")
	}
	return nil
}
