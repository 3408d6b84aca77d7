package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/history"
	"github.com/anisan-cli/seriesdl/merge"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

var dirSeq atomic.Int64

func freshDir() string {
	return fmt.Sprintf("/series/run-%d", dirSeq.Add(1))
}

// media serves /ep/N. Episodes in missing answer 404; delay(N) slows an episode down.
func media(missing []int, delay func(ep int) time.Duration) *httptest.Server {
	payload := bytes.Repeat([]byte("v"), 4096)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ep, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/ep/"))
		if lo.Contains(missing, ep) {
			http.NotFound(w, r)
			return
		}
		if delay != nil {
			select {
			case <-time.After(delay(ep)):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
}

type resolver struct {
	series *source.Series
}

func (resolver) ID() string        { return "test" }
func (resolver) Match(string) bool { return true }
func (r resolver) Resolve(context.Context, string) (*source.Series, error) {
	return r.series, nil
}

func seriesOn(base string, id, episodes int) *source.Series {
	urls := make(map[int]string, episodes)
	for ep := 1; ep <= episodes; ep++ {
		urls[ep] = fmt.Sprintf("%s/ep/%d", base, ep)
	}
	return &source.Series{SeriesID: id, Title: "Test Series", TotalEpisodes: episodes, EpisodeURLs: urls}
}

// tool is a merge tool that records the manifest it was given.
type tool struct {
	missing bool

	mu        sync.Mutex
	manifests []string
}

func (t *tool) Version(context.Context) (string, error) {
	if t.missing {
		return "", merge.ErrToolMissing
	}
	return "ffmpeg version 6.1-test", nil
}

func (t *tool) Duration(context.Context, string) (float64, error) { return 10, nil }

func (t *tool) Concat(_ context.Context, inv merge.Invocation, progress func(merge.Progress)) error {
	content, err := filesystem.API().ReadFile(inv.Manifest)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.manifests = append(t.manifests, string(content))
	t.mu.Unlock()

	progress(merge.Progress{End: true})
	return filesystem.API().WriteFile(inv.Output, []byte("merged"), 0644)
}

func (t *tool) calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.manifests...)
}

// manifestEpisodes returns the episode file names listed in a manifest, in order.
func manifestEpisodes(manifest string) []string {
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(manifest), "\n") {
		line = strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		names = append(names, line[strings.LastIndex(line, "/")+1:])
	}
	return names
}

type fixture struct {
	engine  *Engine
	tool    *tool
	server  *httptest.Server
	records []*history.Record
	series  *source.Series
}

func newFixture(episodes int, missing []int, delay func(int) time.Duration) *fixture {
	f := &fixture{tool: &tool{}}
	f.server = media(missing, delay)
	f.series = seriesOn(f.server.URL, 42, episodes)
	f.engine = New(Options{
		Settings: config.Settings{
			OutputDir:        freshDir(),
			Concurrent:       2,
			ProgressInterval: 10 * time.Millisecond,
			SaveHistory:      true,
			HistoryLimit:     10,
		},
		Tool: f.tool,
		Resolver: func(string) (source.Resolver, error) {
			return resolver{series: f.series}, nil
		},
		History: func(r *history.Record) error {
			f.records = append(f.records, r)
			return nil
		},
		ScheduleInterval: 10 * time.Millisecond,
	})
	return f
}

func (f *fixture) request(episodes ...int) Request {
	req := NewRequest(f.series, episodes, f.engine.Settings())
	req.OutputDir = freshDir()
	req.AutoMerge = true
	return req
}

func TestFetchSeries(t *testing.T) {
	Convey("Given a resolvable series", t, func() {
		f := newFixture(6, nil, nil)
		defer f.server.Close()

		Convey("FetchSeries should return every episode URL", func() {
			series, err := f.engine.FetchSeries(context.Background(), "https://rongyok.com/watch/?series_id=42")
			So(err, ShouldBeNil)
			So(series.Episodes(), ShouldHaveLength, series.TotalEpisodes)
		})

		Convey("A resolver error should be returned", func() {
			e := New(Options{Resolver: func(string) (source.Resolver, error) {
				return nil, errors.New("unsupported")
			}})
			_, err := e.FetchSeries(context.Background(), "https://example.com")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStartDownload(t *testing.T) {
	ctx := context.Background()

	Convey("Given five episodes where episode 3 is missing", t, func() {
		f := newFixture(5, []int{3}, nil)
		defer f.server.Close()
		_, err := f.engine.FetchSeries(ctx, "series")
		So(err, ShouldBeNil)

		rec := &event.Recorder{}
		results, err := f.engine.StartDownload(ctx, f.request(1, 2, 3, 4, 5), rec)

		Convey("Then the other episodes should complete and only they are merged", func() {
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 5)
			So(lo.Map(results, func(r downloader.Result, _ int) int { return r.Episode }), ShouldResemble, []int{1, 2, 3, 4, 5})
			So(results[2].Success, ShouldBeFalse)
			So(results[2].Status, ShouldEqual, downloader.Failed)

			calls := f.tool.calls()
			So(calls, ShouldHaveLength, 1)
			So(manifestEpisodes(calls[0]), ShouldResemble, []string{"ep_001.mp4", "ep_002.mp4", "ep_004.mp4", "ep_005.mp4"})

			So(rec.Of(event.KindDownloadResult), ShouldHaveLength, 5)
			So(rec.Of(event.KindMergeComplete), ShouldHaveLength, 1)
		})

		Convey("Then a partial history record should be saved", func() {
			So(f.records, ShouldHaveLength, 1)
			r := f.records[0]
			So(r.Status, ShouldEqual, history.StatusPartial)
			So(r.Completed, ShouldResemble, []int{1, 2, 4, 5})
			So(r.Failed, ShouldResemble, []int{3})
			So(r.TotalSize, ShouldEqual, 4*4096)
			So(r.MergedPath, ShouldEndWith, "Test Series.mp4")
		})
	})

	Convey("Given episodes that finish in reverse order", t, func() {
		f := newFixture(3, nil, func(ep int) time.Duration {
			return time.Duration(4-ep) * 40 * time.Millisecond
		})
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")

		req := f.request(3, 1, 2)
		req.ConcurrentDownloads = 3
		_, err := f.engine.StartDownload(ctx, req, nil)

		Convey("Then the merge should still follow episode order", func() {
			So(err, ShouldBeNil)
			So(manifestEpisodes(f.tool.calls()[0]), ShouldResemble, []string{"ep_001.mp4", "ep_002.mp4", "ep_003.mp4"})
			So(f.records[0].Status, ShouldEqual, history.StatusCompleted)
		})
	})

	Convey("Given an unavailable merge tool", t, func() {
		f := newFixture(2, nil, nil)
		defer f.server.Close()
		f.tool.missing = true
		_, _ = f.engine.FetchSeries(ctx, "series")

		rec := &event.Recorder{}
		results, err := f.engine.StartDownload(ctx, f.request(1, 2), rec)

		Convey("Then downloads should finish and the merge should be skipped with a warning", func() {
			So(err, ShouldBeNil)
			So(lo.EveryBy(results, func(r downloader.Result) bool { return r.Success }), ShouldBeTrue)
			So(f.tool.calls(), ShouldBeEmpty)

			logs := rec.Of(event.KindLog)
			So(logs, ShouldHaveLength, 1)
			So(logs[0].(event.Log).Level, ShouldEqual, event.LevelWarning)
			So(rec.Of(event.KindMergeStarted), ShouldBeEmpty)
		})
	})

	Convey("Given a batch where nothing completes", t, func() {
		f := newFixture(2, []int{1, 2}, nil)
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")

		rec := &event.Recorder{}
		_, err := f.engine.StartDownload(ctx, f.request(1, 2), rec)

		Convey("Then no merge should run", func() {
			So(err, ShouldBeNil)
			So(f.tool.calls(), ShouldBeEmpty)
			So(rec.Of(event.KindMergeStarted), ShouldBeEmpty)
			So(f.records[0].Status, ShouldEqual, history.StatusFailed)
		})
	})

	Convey("Given a download without auto merge", t, func() {
		f := newFixture(2, nil, nil)
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")

		req := f.request(1, 2)
		req.AutoMerge = false
		_, err := f.engine.StartDownload(ctx, req, nil)

		Convey("Then the episodes should be left on disk unmerged", func() {
			So(err, ShouldBeNil)
			So(f.tool.calls(), ShouldBeEmpty)
			ok, _ := filesystem.API().Exists(req.OutputDir + "/ep_002.mp4")
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given a speed schedule", t, func() {
		f := newFixture(1, nil, func(int) time.Duration { return 50 * time.Millisecond })
		defer f.server.Close()
		f.engine.settings.Schedule = []string{"* 00:00-23:59 64"}
		_, _ = f.engine.FetchSeries(ctx, "series")

		results, err := f.engine.StartDownload(ctx, f.request(1), nil)

		Convey("Then the download should still complete", func() {
			So(err, ShouldBeNil)
			So(results[0].Success, ShouldBeTrue)
		})
	})
}

func TestValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fetched series of three episodes", t, func() {
		f := newFixture(3, nil, nil)
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")

		Convey("an empty selection should be rejected", func() {
			_, err := f.engine.StartDownload(ctx, f.request(), nil)
			So(errors.Is(err, ErrEmptySelection), ShouldBeTrue)
		})

		Convey("a duplicated episode should be rejected", func() {
			_, err := f.engine.StartDownload(ctx, f.request(1, 2, 1), nil)
			So(errors.Is(err, ErrDuplicateEpisode), ShouldBeTrue)
		})

		Convey("an episode the series does not have should be rejected", func() {
			_, err := f.engine.StartDownload(ctx, f.request(1, 9), nil)
			So(errors.Is(err, ErrUnknownEpisode), ShouldBeTrue)
		})

		Convey("a series that was never fetched should be rejected", func() {
			req := f.request(1)
			req.SeriesID = 999
			_, err := f.engine.StartDownload(ctx, req, nil)
			So(errors.Is(err, ErrSeriesNotLoaded), ShouldBeTrue)
		})

		Convey("nothing should have been recorded", func() {
			_, _ = f.engine.StartDownload(ctx, f.request(), nil)
			So(f.records, ShouldBeEmpty)
		})
	})
}

func TestControls(t *testing.T) {
	ctx := context.Background()

	Convey("Without a running batch", t, func() {
		e := New(Options{})
		So(e.Running(), ShouldBeFalse)
		So(errors.Is(e.PauseDownload(1), downloader.ErrNotActive), ShouldBeTrue)
		So(errors.Is(e.ResumeDownload(1), downloader.ErrNotActive), ShouldBeTrue)
		So(errors.Is(e.CancelDownload(1), downloader.ErrNotActive), ShouldBeTrue)
		e.CancelAll()
	})

	Convey("Given a slow batch", t, func() {
		f := newFixture(4, nil, func(int) time.Duration { return time.Second })
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")

		done := make(chan []downloader.Result, 1)
		go func() {
			results, _ := f.engine.StartDownload(ctx, f.request(1, 2, 3, 4), nil)
			done <- results
		}()

		deadline := time.Now().Add(2 * time.Second)
		for !f.engine.Running() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		Convey("CancelAll should cancel every episode and skip the merge", func() {
			So(f.engine.Running(), ShouldBeTrue)
			f.engine.CancelAll()

			var results []downloader.Result
			select {
			case results = <-done:
			case <-time.After(5 * time.Second):
			}

			So(results, ShouldHaveLength, 4)
			So(lo.EveryBy(results, func(r downloader.Result) bool { return r.Status == downloader.Cancelled }), ShouldBeTrue)
			So(f.tool.calls(), ShouldBeEmpty)
			So(f.records[0].Status, ShouldEqual, history.StatusCancelled)
		})
	})

	Convey("Given a batch whose first episode is done and second is slow", t, func() {
		f := newFixture(3, nil, func(ep int) time.Duration {
			if ep == 1 {
				return 0
			}
			return 3 * time.Second
		})
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")

		done := make(chan []downloader.Result, 1)
		go func() {
			results, _ := f.engine.StartDownload(ctx, f.request(1, 2), nil)
			done <- results
		}()

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if status, _ := f.engine.Status(1); status == downloader.Completed {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}

		Convey("A rejected second batch should not undo CancelAll of the running one", func() {
			status, _ := f.engine.Status(1)
			So(status, ShouldEqual, downloader.Completed)

			_, err := f.engine.StartDownload(ctx, f.request(3), nil)
			So(errors.Is(err, downloader.ErrBusy), ShouldBeTrue)

			f.engine.CancelAll()

			var results []downloader.Result
			select {
			case results = <-done:
			case <-time.After(5 * time.Second):
			}

			So(results, ShouldHaveLength, 2)
			So(results[0].Success, ShouldBeTrue)
			So(results[1].Status, ShouldEqual, downloader.Cancelled)
			So(f.tool.calls(), ShouldBeEmpty)
		})
	})

	Convey("Given a CancelAll issued while nothing runs", t, func() {
		f := newFixture(2, nil, nil)
		defer f.server.Close()
		_, _ = f.engine.FetchSeries(ctx, "series")
		f.engine.CancelAll()

		Convey("The next batch should download and merge normally", func() {
			results, err := f.engine.StartDownload(ctx, f.request(1, 2), nil)
			So(err, ShouldBeNil)
			So(lo.EveryBy(results, func(r downloader.Result) bool { return r.Success }), ShouldBeTrue)
			So(f.tool.calls(), ShouldNotBeEmpty)
		})
	})
}

func TestToolVersion(t *testing.T) {
	Convey("ToolVersion should report the merge tool banner", t, func() {
		e := New(Options{Tool: &tool{}})
		v, err := e.ToolVersion(context.Background())
		So(err, ShouldBeNil)
		So(v, ShouldContainSubstring, "ffmpeg")
		So(e.CheckToolAvailable(context.Background()), ShouldBeTrue)

		e = New(Options{Tool: &tool{missing: true}})
		So(e.CheckToolAvailable(context.Background()), ShouldBeFalse)
	})
}
