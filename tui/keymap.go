package tui

import (
	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/charmbracelet/bubbles/key"
)

// statefulKeymap defines the keys available in each dashboard state.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	pause, cancel, cancelAll,
	up, down,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit now"),
		),
		pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause/resume"),
		),
		cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel"),
		),
		cancelAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp(style.Fg(color.Red)("C"), style.Fg(color.Red)("cancel all")),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	switch k.state {
	case downloadingState:
		return h(k.pause, k.cancel, k.cancelAll, k.quit, k.showHelp),
			h(k.up, k.down, k.pause, k.cancel, k.cancelAll, k.quit, k.forceQuit)
	case mergingState:
		return h(k.cancelAll, k.quit), h(k.cancelAll, k.quit, k.forceQuit)
	default:
		return h(k.up, k.down, k.quit), h(k.up, k.down, k.quit)
	}
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
