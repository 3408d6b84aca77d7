package tui

import (
	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/internal/ui"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// mergeView is what the dashboard knows about the merge step.
type mergeView struct {
	started    bool
	output     string
	inputs     int
	percentage float64
	done       bool
	err        string
}

// statefulBubble is the dashboard model.
type statefulBubble struct {
	state    state
	quitting bool

	keymap *statefulKeymap

	// components
	spinnerC  spinner.Model
	progressC progress.Model
	mergeC    progress.Model
	helpC     help.Model
	notifier  *ui.Model

	control controller
	events  *event.Chan

	title  string
	rows   map[int]*row
	order  []int
	cursor int
	merge  mergeView

	results   []downloader.Result
	lastError error

	width, height int
}

func newBubble(control controller, series *source.Series, req engine.Request) *statefulBubble {
	title := req.SeriesTitle
	if title == "" && series != nil {
		title = series.Title
	}

	order := slices.Clone(req.Episodes)
	slices.Sort(order)

	bubble := &statefulBubble{
		keymap:   newStatefulKeymap(),
		notifier: &ui.Model{},
		control:  control,
		title:    title,
		order:    order,
		rows: lo.SliceToMap(order, func(ep int) (int, *row) {
			return ep, &row{episode: ep, status: downloader.Pending}
		}),
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(style.AccentColor)

	bubble.progressC = progress.New(progress.WithGradient(style.EpisodeGradient[0], style.EpisodeGradient[1]), progress.WithoutPercentage())
	bubble.mergeC = progress.New(progress.WithGradient(style.MergeGradient[0], style.MergeGradient[1]), progress.WithoutPercentage())

	bubble.resize(80, 24)
	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	return bubble
}

// setState switches the workflow state together with its keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// raiseError shows a fatal batch error.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

// resize propagates terminal dimension changes to the child components.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()

	b.width = width - x
	b.height = height - y

	b.progressC.Width = util.Clamp(b.width/3, 10, 40)
	b.mergeC.Width = util.Clamp(b.width/2, 10, 60)
	b.helpC.Width = b.width
}

// selected returns the episode under the cursor.
func (b *statefulBubble) selected() (*row, bool) {
	if len(b.order) == 0 {
		return nil, false
	}
	return b.rows[b.order[b.cursor]], true
}

// totals sums up the batch for the footer.
func (b *statefulBubble) totals() (speed float64, finished, failed int) {
	for _, r := range b.rows {
		switch r.status {
		case downloader.Downloading:
			speed += r.speed
		case downloader.Completed:
			finished++
		case downloader.Failed, downloader.Cancelled:
			failed++
		}
	}
	return
}
