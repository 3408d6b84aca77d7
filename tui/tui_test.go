package tui

import (
	"sync"
	"testing"

	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/internal/ui"
	"github.com/anisan-cli/seriesdl/source"
	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeControl struct {
	mu        sync.Mutex
	calls     []string
	cancelAll int
	err       error
}

func (f *fakeControl) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeControl) PauseDownload(int) error  { return f.record("pause") }
func (f *fakeControl) ResumeDownload(int) error { return f.record("resume") }
func (f *fakeControl) CancelDownload(int) error { return f.record("cancel") }
func (f *fakeControl) CancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAll++
}
func (f *fakeControl) Status(int) (downloader.Status, bool) { return downloader.Pending, false }

func press(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and any batched commands, returning the produced messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, run(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// feed sends msg and then every message its commands produce, except notifications.
func feed(b *statefulBubble, msg tea.Msg) []tea.Msg {
	_, cmd := b.Update(msg)
	msgs := run(cmd)
	for _, m := range msgs {
		if _, ok := m.(controlMsg); ok {
			b.Update(m)
		}
	}
	return msgs
}

func newTestBubble(control *fakeControl) *statefulBubble {
	series := &source.Series{Title: "Dashboard Show"}
	return newBubble(control, series, engine.Request{SeriesID: 1, Episodes: []int{3, 1, 2}})
}

func TestEvents(t *testing.T) {
	Convey("Given a dashboard of three episodes", t, func() {
		b := newTestBubble(&fakeControl{})

		Convey("Episodes should be listed in order and start pending", func() {
			So(b.order, ShouldResemble, []int{1, 2, 3})
			So(b.rows[2].status, ShouldEqual, downloader.Pending)
			So(b.title, ShouldEqual, "Dashboard Show")
		})

		Convey("Progress should update the row and the aggregate speed", func() {
			b.Update(eventMsg{event.DownloadProgress{Episode: 1, Downloaded: 50, Total: 100, Speed: 1000, Percentage: 50}})
			b.Update(eventMsg{event.DownloadProgress{Episode: 2, Downloaded: 10, Total: 100, Speed: 500, Percentage: 10}})

			So(b.rows[1].status, ShouldEqual, downloader.Downloading)
			So(b.rows[1].ratio(), ShouldEqual, 0.5)

			speed, finished, failed := b.totals()
			So(speed, ShouldEqual, 1500)
			So(finished, ShouldEqual, 0)
			So(failed, ShouldEqual, 0)
			So(b.View(), ShouldContainSubstring, "EP 1")
		})

		Convey("Results should be terminal and ignore late progress", func() {
			b.Update(eventMsg{event.DownloadResult{Episode: 1, Success: true, Status: "completed", Size: 100}})
			b.Update(eventMsg{event.DownloadResult{Episode: 2, Status: "failed", Error: "http 404 Not Found"}})
			b.Update(eventMsg{event.DownloadProgress{Episode: 1, Downloaded: 1, Total: 100}})

			So(b.rows[1].status, ShouldEqual, downloader.Completed)
			So(b.rows[1].percentage, ShouldEqual, 100)
			So(b.rows[2].status, ShouldEqual, downloader.Failed)
			So(b.rows[2].err, ShouldContainSubstring, "404")

			_, finished, failed := b.totals()
			So(finished, ShouldEqual, 1)
			So(failed, ShouldEqual, 1)
		})

		Convey("Merge events should drive the merge line", func() {
			b.Update(eventMsg{event.MergeStarted{OutputPath: "/out/Show.mp4", Inputs: []string{"a", "b"}}})
			So(b.state, ShouldEqual, mergingState)

			b.Update(eventMsg{event.MergeProgress{Percentage: 40}})
			So(b.viewMerge(), ShouldContainSubstring, "40.0%")

			b.Update(eventMsg{event.MergeComplete{OutputPath: "/out/Show.mp4"}})
			So(b.viewMerge(), ShouldContainSubstring, "/out/Show.mp4")
		})

		Convey("A log event should become a notification", func() {
			msgs := feed(b, eventMsg{event.Log{Level: event.LevelWarning, Message: "ffmpeg not found"}})
			So(msgs, ShouldContain, ui.NotificationMsg("ffmpeg not found"))
		})

		Convey("The finished batch should settle every row", func() {
			b.Update(finishedMsg{results: []downloader.Result{
				{Episode: 1, Success: true, Status: downloader.Completed},
				{Episode: 2, Status: downloader.Cancelled, Error: "cancelled"},
				{Episode: 3, Status: downloader.Cancelled, Error: "cancelled"},
			}})
			So(b.state, ShouldEqual, doneState)
			So(b.rows[3].status, ShouldEqual, downloader.Cancelled)
		})
	})
}

func TestKeys(t *testing.T) {
	Convey("Given a running dashboard", t, func() {
		control := &fakeControl{}
		b := newTestBubble(control)
		b.Update(eventMsg{event.DownloadProgress{Episode: 1, Downloaded: 1, Total: 10, Percentage: 10}})

		Convey("p should pause and then resume the selected episode", func() {
			feed(b, press("p"))
			So(b.rows[1].status, ShouldEqual, downloader.Paused)

			feed(b, press("p"))
			So(b.rows[1].status, ShouldEqual, downloader.Downloading)
			So(control.calls, ShouldResemble, []string{"pause", "resume"})
		})

		Convey("p on a pending episode should not call the engine", func() {
			feed(b, press("down"))
			So(b.cursor, ShouldEqual, 1)
			feed(b, press("p"))
			So(control.calls, ShouldBeEmpty)
		})

		Convey("c should cancel the selected episode", func() {
			feed(b, press("c"))
			So(control.calls, ShouldResemble, []string{"cancel"})
			So(b.rows[1].status, ShouldEqual, downloader.Cancelled)
		})

		Convey("a rejected control call should leave the row alone", func() {
			control.err = downloader.ErrNotActive
			msgs := feed(b, press("p"))
			So(b.rows[1].status, ShouldEqual, downloader.Downloading)
			So(msgs, ShouldHaveLength, 1)
		})

		Convey("C should cancel everything", func() {
			feed(b, press("C"))
			So(control.cancelAll, ShouldEqual, 1)
		})

		Convey("q should cancel the batch and quit once it has finished", func() {
			feed(b, press("q"))
			So(control.cancelAll, ShouldEqual, 1)
			So(b.quitting, ShouldBeTrue)

			_, cmd := b.Update(finishedMsg{})
			So(cmd, ShouldNotBeNil)
			So(cmd(), ShouldHaveSameTypeAs, tea.QuitMsg{})
		})

		Convey("the cursor should stay within the episodes", func() {
			feed(b, press("up"))
			So(b.cursor, ShouldEqual, 0)
			for range 5 {
				feed(b, press("down"))
			}
			So(b.cursor, ShouldEqual, 2)
		})
	})
}
