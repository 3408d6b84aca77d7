package tui

import (
	"errors"
	"fmt"

	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/log"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	eventMsg    struct{ event event.Event }
	eventsDone  struct{}
	finishedMsg struct {
		results []downloader.Result
		err     error
	}
	controlMsg struct {
		episode int
		status  downloader.Status
		err     error
	}
)

// waitForEvent reads the next event of the batch.
func (b *statefulBubble) waitForEvent() tea.Cmd {
	if b.events == nil {
		return nil
	}

	return func() tea.Msg {
		e, ok := <-b.events.C
		if !ok {
			return eventsDone{}
		}
		return eventMsg{event: e}
	}
}

// Control calls run off the update loop. They may wait for a transfer to stop,
// which in turn may wait for the event channel to be drained.

func (b *statefulBubble) togglePause(r *row) tea.Cmd {
	episode, paused := r.episode, r.status == downloader.Paused

	return func() tea.Msg {
		if paused {
			err := b.control.ResumeDownload(episode)
			return controlMsg{episode: episode, status: downloader.Downloading, err: err}
		}
		err := b.control.PauseDownload(episode)
		return controlMsg{episode: episode, status: downloader.Paused, err: err}
	}
}

func (b *statefulBubble) cancel(r *row) tea.Cmd {
	episode := r.episode

	return func() tea.Msg {
		err := b.control.CancelDownload(episode)
		return controlMsg{episode: episode, status: downloader.Cancelled, err: err}
	}
}

func (b *statefulBubble) cancelAll() tea.Cmd {
	return func() tea.Msg {
		b.control.CancelAll()
		return nil
	}
}

// handleControl applies the result of a control call.
func (b *statefulBubble) handleControl(msg controlMsg) string {
	r, ok := b.rows[msg.episode]
	if !ok {
		return ""
	}

	if msg.err != nil {
		if errors.Is(msg.err, downloader.ErrNotActive) {
			return fmt.Sprintf("episode %d is not active", msg.episode)
		}
		log.Warnf("episode %d: %s", msg.episode, msg.err)
		return msg.err.Error()
	}

	// a result event may already have moved the row on
	if !r.status.Terminal() {
		r.status = msg.status
	}

	switch msg.status {
	case downloader.Paused:
		return fmt.Sprintf("episode %d paused", msg.episode)
	case downloader.Downloading:
		return fmt.Sprintf("episode %d resumed", msg.episode)
	default:
		return fmt.Sprintf("episode %d cancelled", msg.episode)
	}
}

// handleEvent folds an engine event into the dashboard.
func (b *statefulBubble) handleEvent(e event.Event) string {
	switch e := e.(type) {
	case event.DownloadProgress:
		if r, ok := b.rows[e.Episode]; ok {
			r.progress(e)
		}
	case event.DownloadResult:
		if r, ok := b.rows[e.Episode]; ok {
			r.finish(e)
		}
	case event.MergeStarted:
		b.merge = mergeView{started: true, output: e.OutputPath, inputs: len(e.Inputs)}
		b.setState(mergingState)
	case event.MergeProgress:
		b.merge.percentage = e.Percentage
	case event.MergeComplete:
		b.merge.done = true
		b.merge.percentage = 100
		b.merge.output = e.OutputPath
	case event.MergeError:
		b.merge.err = e.Message
	case event.Log:
		return e.Message
	}
	return ""
}
