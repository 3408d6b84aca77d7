package style

import "github.com/charmbracelet/lipgloss"

// Palette, a catppuccin mocha subset.
var (
	Text     = lipgloss.Color("#cdd6f4")
	Overlay  = lipgloss.Color("#6c7086")
	Mauve    = lipgloss.Color("#cba6f7")
	Red      = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")
	Yellow   = lipgloss.Color("#f9e2af")
	Green    = lipgloss.Color("#a6e3a1")
	Sky      = lipgloss.Color("#89dceb")
	Blue     = lipgloss.Color("#89b4fa")
	Lavender = lipgloss.Color("#b4befe")

	AccentColor = Mauve
	HiRed       = Red
)

// Episode states on the dashboard.
var (
	DownloadingColor = Sky
	PausedColor      = Yellow
	CompletedColor   = Green
	FailedColor      = Red
	CancelledColor   = Overlay
)

// Gradients of the progress bars, from and to.
var (
	EpisodeGradient = [2]string{string(Blue), string(Lavender)}
	MergeGradient   = [2]string{string(Mauve), string(Peach)}
)
