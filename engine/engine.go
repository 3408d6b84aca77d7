// Package engine is the command/event boundary between a driver (CLI, TUI) and the
// download and merge core.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anisan-cli/seriesdl/config"
	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/history"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/merge"
	"github.com/anisan-cli/seriesdl/network"
	"github.com/anisan-cli/seriesdl/provider"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/anisan-cli/seriesdl/throttle"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/samber/lo"
)

var (
	// ErrEmptySelection is returned for a download request without episodes.
	ErrEmptySelection = errors.New("no episodes selected")

	// ErrDuplicateEpisode is returned when an episode is requested twice.
	ErrDuplicateEpisode = errors.New("episode selected more than once")

	// ErrSeriesNotLoaded is returned when StartDownload refers to a series that was never fetched.
	ErrSeriesNotLoaded = errors.New("series has not been fetched")

	// ErrUnknownEpisode is returned for an episode the series has no media URL for.
	ErrUnknownEpisode = errors.New("series has no such episode")
)

// Options configure an Engine. Zero values select the production collaborators.
type Options struct {
	Settings config.Settings

	// Client transfers episodes. Defaults to network.Media.
	Client *http.Client

	// Tool performs merges. When nil, ffmpeg is looked up on first use.
	Tool merge.Tool

	// Resolver picks the resolver for a series URL. Defaults to provider.ForURL.
	Resolver func(url string) (source.Resolver, error)

	// History receives the summary of every finished batch when Settings.SaveHistory is set.
	// Defaults to history.Save with Settings.HistoryLimit.
	History func(*history.Record) error

	// ScheduleInterval is how often speed schedules are re-evaluated. Defaults to a minute.
	ScheduleInterval time.Duration
}

// Request is a start-download command.
type Request struct {
	SeriesID            int           `json:"seriesId"`
	SeriesTitle         string        `json:"seriesTitle"`
	Episodes            []int         `json:"episodes"`
	OutputDir           string        `json:"outputDir"`
	AutoMerge           bool          `json:"autoMerge"`
	DeleteAfterMerge    bool          `json:"deleteAfterMerge"`
	ConcurrentDownloads int           `json:"concurrentDownloads"`
	SpeedLimitKB        int           `json:"speedLimit"`
	FileNaming          source.Naming `json:"fileNaming"`
}

// NewRequest fills a request for series from settings.
func NewRequest(series *source.Series, episodes []int, settings config.Settings) Request {
	return Request{
		SeriesID:            series.SeriesID,
		SeriesTitle:         series.Title,
		Episodes:            episodes,
		OutputDir:           settings.OutputDir,
		AutoMerge:           settings.AutoMerge,
		DeleteAfterMerge:    settings.DeleteAfterMerge,
		ConcurrentDownloads: settings.Concurrent,
		SpeedLimitKB:        settings.SpeedLimitKB,
		FileNaming:          settings.FileNaming,
	}
}

type fetched struct {
	series *source.Series
	url    string
}

// Engine exposes the operations a driver can invoke.
type Engine struct {
	settings     config.Settings
	orchestrator *downloader.Orchestrator
	resolver     func(string) (source.Resolver, error)
	saveHistory  func(*history.Record) error
	interval     time.Duration

	mu          sync.Mutex
	series      map[int]fetched
	tool        merge.Tool
	invoker     *merge.Invoker
	cancelMerge context.CancelFunc
}

// New returns an engine.
func New(options Options) *Engine {
	settings := options.Settings.Normalize()

	client := options.Client
	if client == nil {
		client = network.Media
	}

	e := &Engine{
		settings:     settings,
		orchestrator: downloader.New(client),
		resolver:     options.Resolver,
		saveHistory:  options.History,
		interval:     options.ScheduleInterval,
		series:       make(map[int]fetched),
		tool:         options.Tool,
	}

	if e.resolver == nil {
		e.resolver = provider.ForURL
	}
	if e.saveHistory == nil {
		e.saveHistory = func(r *history.Record) error {
			return history.Save(r, settings.HistoryLimit)
		}
	}
	if e.interval <= 0 {
		e.interval = time.Minute
	}
	return e
}

// Settings returns the normalized settings the engine runs with.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// mergeTool returns the configured tool, looking up ffmpeg once it is first needed.
func (e *Engine) mergeTool() (merge.Tool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tool != nil {
		return e.tool, nil
	}

	ffmpeg, err := merge.Lookup(e.settings.FFmpegPath)
	if err != nil {
		return nil, err
	}
	ffmpeg.StallTimeout = e.settings.MergeStall
	e.tool = ffmpeg
	return e.tool, nil
}

// ToolVersion returns the version banner of the merge tool.
func (e *Engine) ToolVersion(ctx context.Context) (string, error) {
	tool, err := e.mergeTool()
	if err != nil {
		return "", err
	}
	return tool.Version(ctx)
}

// CheckToolAvailable reports whether merging is possible.
func (e *Engine) CheckToolAvailable(ctx context.Context) bool {
	tool, err := e.mergeTool()
	if err != nil {
		log.Debugf("merge tool unavailable: %s", err)
		return false
	}
	return merge.Available(ctx, tool)
}

// FetchSeries resolves a series URL and remembers the result for StartDownload.
func (e *Engine) FetchSeries(ctx context.Context, url string) (*source.Series, error) {
	resolver, err := e.resolver(url)
	if err != nil {
		return nil, err
	}

	series, err := resolver.Resolve(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", url, err)
	}

	e.mu.Lock()
	e.series[series.SeriesID] = fetched{series: series, url: url}
	e.mu.Unlock()

	return series, nil
}

// validate checks req against the fetched series and returns the batch tasks.
func (e *Engine) validate(req Request) (fetched, error) {
	if len(req.Episodes) == 0 {
		return fetched{}, ErrEmptySelection
	}
	if dup := lo.FindDuplicates(req.Episodes); len(dup) > 0 {
		return fetched{}, fmt.Errorf("%w: %d", ErrDuplicateEpisode, dup[0])
	}

	e.mu.Lock()
	f, ok := e.series[req.SeriesID]
	e.mu.Unlock()
	if !ok {
		return fetched{}, fmt.Errorf("%w: %d", ErrSeriesNotLoaded, req.SeriesID)
	}

	for _, ep := range req.Episodes {
		if _, ok := f.series.URL(ep); !ok {
			return fetched{}, fmt.Errorf("%w: %d", ErrUnknownEpisode, ep)
		}
	}
	return f, nil
}

// StartDownload runs a batch and, when requested, merges the completed episodes.
// It blocks until everything is done. Progress is reported to sink; the returned
// results hold one entry per requested episode in ascending order.
//
// Only validation errors are returned. Transfer and merge failures are reported
// through the results and the sink.
func (e *Engine) StartDownload(ctx context.Context, req Request, sink event.Sink) ([]downloader.Result, error) {
	if sink == nil {
		sink = event.Discard
	}

	f, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	title := req.SeriesTitle
	if title == "" {
		title = f.series.Title
	}

	outputDir := util.ExpandHome(req.OutputDir)
	if outputDir == "" {
		outputDir = e.settings.OutputDir
	}
	if err := filesystem.API().MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	naming := req.FileNaming.Normalize()
	batch := downloader.Batch{
		SeriesID:         req.SeriesID,
		SeriesTitle:      title,
		OutputDir:        outputDir,
		Concurrency:      config.ClampConcurrent(req.ConcurrentDownloads),
		ChunkTimeout:     e.settings.ChunkTimeout,
		ProgressInterval: e.settings.ProgressInterval,
		Tasks: lo.Map(req.Episodes, func(ep int, _ int) downloader.Task {
			url, _ := f.series.URL(ep)
			return downloader.Task{
				Episode: ep,
				URL:     url,
				Path:    filepath.Join(outputDir, naming.FileName(title, ep)),
			}
		}),
	}

	autoMerge := req.AutoMerge
	if autoMerge && !e.CheckToolAvailable(ctx) {
		autoMerge = false
		sink.Emit(event.Log{Level: event.LevelWarning, Message: "ffmpeg not found, episodes will not be merged"})
		log.Warn("merge requested but ffmpeg is unavailable")
	}

	schedule, err := throttle.ParseSchedule(e.settings.Schedule)
	if err != nil {
		log.Warnf("ignoring speed schedule: %s", err)
		schedule = nil
	}
	baseKB := max(req.SpeedLimitKB, 0)
	batch.SpeedLimit = schedule.LimitAt(time.Now(), baseKB) * 1024

	record := history.NewRecord(req.SeriesID, title, lo.Map(batch.Tasks, func(t downloader.Task, _ int) int { return t.Episode }), time.Now())
	record.SourceURL = f.url
	record.OutputDir = outputDir

	var aborted atomic.Bool
	batch.OnCancelAll = func() { aborted.Store(true) }

	stopSchedule := e.followSchedule(schedule, baseKB)
	results, err := e.orchestrator.Run(ctx, batch, sink)
	stopSchedule()
	if err != nil {
		return nil, err
	}

	completed := lo.Filter(results, func(r downloader.Result, _ int) bool { return r.Success })
	if aborted.Load() {
		log.Info("batch cancelled, skipping merge")
	} else if autoMerge && len(completed) > 0 {
		record.MergedPath = e.merge(ctx, merge.Request{
			Inputs:           lo.Map(completed, func(r downloader.Result, _ int) string { return r.FilePath }),
			Output:           filepath.Join(outputDir, source.MergedName(title)),
			DeleteSources:    req.DeleteAfterMerge,
			ReencodeFallback: e.settings.ReencodeFallback,
		}, sink)
	} else if autoMerge {
		log.Info("no episode completed, skipping merge")
	}

	e.record(record, results)
	return results, nil
}

// followSchedule applies schedule to the running batch until the returned func is called.
func (e *Engine) followSchedule(schedule throttle.Schedule, baseKB int) (stop func()) {
	if len(schedule) == 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		current := -1
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				limit := schedule.LimitAt(now, baseKB)
				if limit != current {
					log.Infof("speed schedule: limit is now %s", limitString(limit))
					e.orchestrator.SetSpeedLimit(limit * 1024)
					current = limit
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func limitString(kb int) string {
	if kb <= 0 {
		return "unlimited"
	}
	return util.Speed(float64(kb) * 1024)
}

// merge runs the merge step and returns the merged path, or "" if it failed.
func (e *Engine) merge(ctx context.Context, req merge.Request, sink event.Sink) string {
	tool, err := e.mergeTool()
	if err != nil {
		sink.Emit(event.MergeError{Message: err.Error()})
		return ""
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.invoker == nil {
		e.invoker = merge.NewInvoker(tool)
	}
	invoker := e.invoker
	e.cancelMerge = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancelMerge = nil
		e.mu.Unlock()
	}()

	job, err := invoker.Merge(ctx, req, sink)
	if errors.Is(err, merge.ErrConflict) {
		// rejected before it started, nothing has been emitted yet
		sink.Emit(event.MergeError{Message: err.Error()})
		return ""
	}
	if err != nil {
		return ""
	}
	return job.Output
}

// record stores the batch summary in history.
func (e *Engine) record(record *history.Record, results []downloader.Result) {
	for _, r := range results {
		switch {
		case r.Success:
			record.Completed = append(record.Completed, r.Episode)
			record.TotalSize += r.Size
		case r.Status == downloader.Cancelled:
			record.Cancelled = append(record.Cancelled, r.Episode)
		default:
			record.Failed = append(record.Failed, r.Episode)
		}
	}
	record.Finish(time.Now())

	if !e.settings.SaveHistory {
		return
	}
	if err := e.saveHistory(record); err != nil {
		log.Warnf("could not save history: %s", err)
	}
}

// PauseDownload pauses an active episode of the running batch.
func (e *Engine) PauseDownload(episode int) error {
	return e.orchestrator.Pause(episode)
}

// ResumeDownload resumes a paused episode of the running batch.
func (e *Engine) ResumeDownload(episode int) error {
	return e.orchestrator.Resume(episode)
}

// CancelDownload cancels an active episode of the running batch.
func (e *Engine) CancelDownload(episode int) error {
	return e.orchestrator.Cancel(episode)
}

// CancelAll cancels the running batch and any merge in progress.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	cancel := e.cancelMerge
	e.mu.Unlock()

	e.orchestrator.CancelAll()
	if cancel != nil {
		cancel()
	}
}

// Status returns the state of an episode of the running batch.
func (e *Engine) Status(episode int) (downloader.Status, bool) {
	return e.orchestrator.Status(episode)
}

// Running reports whether a batch is in progress.
func (e *Engine) Running() bool {
	return e.orchestrator.Running()
}
