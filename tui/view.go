package tui

import (
	"fmt"
	"strings"

	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
)

var (
	paddingStyle  = lipgloss.NewStyle().Padding(1, 2)
	cursorStyle   = lipgloss.NewStyle().Foreground(style.AccentColor).Bold(true)
	statusColumn  = lipgloss.NewStyle().Width(12)
	episodeColumn = lipgloss.NewStyle().Width(8)
)

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case errorState:
		output = b.viewError()
	default:
		output = b.viewDashboard()
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) viewDashboard() string {
	header := style.Title(b.title)
	switch b.state {
	case downloadingState:
		header += " " + b.spinnerC.View()
	case doneState:
		header += " " + style.Faint("done")
	}

	lines := []string{header, ""}
	lines = append(lines, b.visibleRows()...)
	lines = append(lines, "", b.viewFooter())

	if m := b.viewMerge(); m != "" {
		lines = append(lines, "", m)
	}

	return b.renderLines(true, lines)
}

// visibleRows renders the episode lines that fit the terminal, keeping the cursor in view.
func (b *statefulBubble) visibleRows() []string {
	// header, footer, merge and help take roughly this many lines
	room := max(b.height-10, 3)

	from := 0
	if b.cursor >= room {
		from = b.cursor - room + 1
	}
	to := min(from+room, len(b.order))

	var lines []string
	for i := from; i < to; i++ {
		lines = append(lines, b.viewRow(b.rows[b.order[i]], i == b.cursor))
	}
	return lines
}

func (b *statefulBubble) viewRow(r *row, selected bool) string {
	pointer := "  "
	if selected {
		pointer = cursorStyle.Render(icon.Get(icon.Arrow)) + " "
	}

	episode := episodeColumn.Render(fmt.Sprintf("EP %d", r.episode))
	if selected {
		episode = cursorStyle.Render(episode)
	}

	cells := []string{
		pointer + episode,
		b.progressC.ViewAs(r.ratio()),
		fmt.Sprintf("%5.1f%%", r.percentage),
		statusColumn.Render(viewStatus(r.status)),
	}

	switch r.status {
	case downloader.Downloading:
		cells = append(cells, fmt.Sprintf("%s / %s", util.Bytes(r.downloaded), viewTotal(r.total)), util.Speed(r.speed))
	case downloader.Paused:
		cells = append(cells, fmt.Sprintf("%s / %s", util.Bytes(r.downloaded), viewTotal(r.total)))
	case downloader.Completed:
		cells = append(cells, util.Bytes(r.total))
	case downloader.Failed:
		cells = append(cells, style.Fg(style.FailedColor)(r.err))
	}

	return truncate.StringWithTail(strings.Join(cells, "  "), uint(max(b.width, 20)), "…")
}

func viewTotal(total int64) string {
	if total <= 0 {
		return "?"
	}
	return util.Bytes(total)
}

func viewStatus(s downloader.Status) string {
	switch s {
	case downloader.Downloading:
		return style.Fg(style.DownloadingColor)(icon.Get(icon.Download) + " " + s.String())
	case downloader.Paused:
		return style.Fg(style.PausedColor)(icon.Get(icon.Pause) + " " + s.String())
	case downloader.Completed:
		return style.Fg(style.CompletedColor)(icon.Get(icon.Success) + " " + s.String())
	case downloader.Failed:
		return style.Fg(style.FailedColor)(icon.Get(icon.Fail) + " " + s.String())
	case downloader.Cancelled:
		return style.Fg(style.CancelledColor)(icon.Get(icon.Cancel) + " " + s.String())
	default:
		return style.Faint(s.String())
	}
}

func (b *statefulBubble) viewFooter() string {
	speed, finished, failed := b.totals()

	parts := []string{
		fmt.Sprintf("%s %s", icon.Get(icon.Download), util.Speed(speed)),
		fmt.Sprintf("%d/%d done", finished, len(b.order)),
	}
	if failed > 0 {
		parts = append(parts, style.Fg(style.FailedColor)(fmt.Sprintf("%d failed or cancelled", failed)))
	}
	return strings.Join(parts, style.Faint(" · "))
}

func (b *statefulBubble) viewMerge() string {
	m := b.merge
	switch {
	case m.err != "":
		return style.Fg(style.FailedColor)(icon.Get(icon.Fail)+" merge failed: ") + wrap.String(m.err, max(b.width-16, 20))
	case m.done:
		return style.Fg(style.CompletedColor)(icon.Get(icon.Success) + " merged into " + m.output)
	case m.started:
		return fmt.Sprintf("%s merging %s  %s %5.1f%%",
			icon.Get(icon.Merge),
			util.Quantify(m.inputs, "episode", "episodes"),
			b.mergeC.ViewAs(min(m.percentage/100, 1)),
			m.percentage,
		)
	default:
		return ""
	}
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(style.FailedColor).Bold(true)
	errorMsg := wrap.String(errorStyle.Render(b.lastError.Error()), b.width)
	return b.renderLines(
		true,
		[]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " The batch could not start:",
			"",
			errorMsg,
		},
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
