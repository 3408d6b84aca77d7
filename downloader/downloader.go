// Package downloader runs a batch of episode transfers under a concurrency ceiling.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/throttle"
	"github.com/anisan-cli/seriesdl/transfer"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

var (
	// ErrNotActive is returned by Pause, Resume and Cancel when the episode is not
	// currently downloading or paused. It is an expected condition, e.g. the episode
	// already finished.
	ErrNotActive = errors.New("episode is not active")

	// ErrBusy is returned by Run while another batch is in progress.
	ErrBusy = errors.New("a batch is already running")

	// ErrInvalidBatch is returned for batches that can never start.
	ErrInvalidBatch = errors.New("invalid batch")
)

// Status re-exports the episode lifecycle states.
type Status = transfer.Status

const (
	Pending     = transfer.Pending
	Downloading = transfer.Downloading
	Paused      = transfer.Paused
	Completed   = transfer.Completed
	Failed      = transfer.Failed
	Cancelled   = transfer.Cancelled
)

// Task is one episode of a batch.
type Task = transfer.Task

// Batch is a full download session.
type Batch struct {
	SeriesID    int
	SeriesTitle string
	OutputDir   string
	Concurrency int
	SpeedLimit  int // bytes per second, 0 = unbounded
	Tasks       []Task

	// ChunkTimeout and ProgressInterval are passed to every transfer unit.
	ChunkTimeout     time.Duration
	ProgressInterval time.Duration

	// OnCancelAll is called when CancelAll stops this batch. A batch rejected with
	// ErrBusy never has it called.
	OnCancelAll func()
}

// Result is the terminal state of one episode.
type Result struct {
	Episode  int    `json:"episode"`
	Success  bool   `json:"success"`
	Status   Status `json:"status"`
	FilePath string `json:"filePath,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Error    string `json:"error,omitempty"`
}

// job is the orchestrator's bookkeeping for one task. Fields below mu are guarded by
// the orchestrator's mutex; emitMu serializes progress emission against Cancel.
type job struct {
	task    Task
	status  Status
	unit    *transfer.Unit
	unitCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	result  Result

	emitMu   sync.Mutex
	silenced bool
}

// Orchestrator admits tasks in ascending episode order, keeps at most Concurrency of
// them active, and aggregates one Result per task. All shared batch state is guarded
// by a single mutex; units report only through callbacks that take it.
type Orchestrator struct {
	client *http.Client

	mu      sync.Mutex
	running bool
	jobs    map[int]*job
	limiter *throttle.Limiter
	stop    context.CancelFunc
	aborted func()
	active  int
	peak    int
}

// New returns an Orchestrator using client for transfers. A nil client selects the
// shared media client.
func New(client *http.Client) *Orchestrator {
	return &Orchestrator{client: client}
}

// Validate checks the structural invariants of a batch.
func (b Batch) Validate() error {
	if b.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidBatch)
	}
	if len(b.Tasks) == 0 {
		return fmt.Errorf("%w: no episodes", ErrInvalidBatch)
	}

	seen := make(map[int]struct{}, len(b.Tasks))
	for _, t := range b.Tasks {
		if _, dup := seen[t.Episode]; dup {
			return fmt.Errorf("%w: episode %d listed twice", ErrInvalidBatch, t.Episode)
		}
		seen[t.Episode] = struct{}{}
	}
	return nil
}

// Run executes the batch and blocks until every task is terminal. Progress and
// per-episode results are emitted to sink; the returned slice holds exactly one
// Result per task, ordered by episode number.
//
// Only validation errors and ErrBusy are returned as errors. Transfer failures and
// cancellations are reported in the results.
func (o *Orchestrator) Run(ctx context.Context, batch Batch, sink event.Sink) ([]Result, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = event.Discard
	}

	tasks := slices.Clone(batch.Tasks)
	slices.SortFunc(tasks, func(a, b Task) int { return a.Episode - b.Episode })

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.running = true
	o.stop = stop
	o.aborted = batch.OnCancelAll
	o.active, o.peak = 0, 0
	o.limiter = throttle.New(batch.SpeedLimit)
	o.jobs = make(map[int]*job, len(tasks))
	for _, t := range tasks {
		o.jobs[t.Episode] = &job{task: t, status: transfer.Pending, done: make(chan struct{})}
	}
	o.mu.Unlock()

	log.Infof("batch started: %d episodes, concurrency %d, limit %d B/s", len(tasks), batch.Concurrency, batch.SpeedLimit)

	o.supervise(ctx, batch, tasks, sink)

	o.mu.Lock()
	results := make([]Result, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, o.jobs[t.Episode].result)
	}
	o.running = false
	o.stop = nil
	o.aborted = nil
	o.mu.Unlock()

	completed := lo.CountBy(results, func(r Result) bool { return r.Success })
	log.Infof("batch finished: %d/%d completed", completed, len(results))

	return results, nil
}

// supervise admits pending tasks in order while slots are free and waits for all
// admitted units to finish.
func (o *Orchestrator) supervise(ctx context.Context, batch Batch, tasks []Task, sink event.Sink) {
	slots := make(chan struct{}, batch.Concurrency)
	var wg sync.WaitGroup

	for _, t := range tasks {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
		}

		j, ok := o.admit(ctx, t.Episode, batch, sink)
		if !ok {
			// Never started: either cancelled while pending or the batch is stopping.
			if ctx.Err() == nil {
				<-slots
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			o.execute(j, sink)
		}()
	}

	wg.Wait()
}

// admit moves a pending job to Downloading. It returns false and finalizes the job
// as Cancelled when it must not start.
func (o *Orchestrator) admit(ctx context.Context, episode int, batch Batch, sink event.Sink) (*job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	j := o.jobs[episode]
	if j.status != transfer.Pending {
		return nil, false
	}
	if ctx.Err() != nil {
		o.finishLocked(j, transfer.Outcome{Episode: episode, Status: transfer.Cancelled}, sink)
		return nil, false
	}

	unitCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.status = transfer.Downloading
	j.unit = transfer.New(j.task, transfer.Options{
		Client:           o.client,
		Limiter:          o.limiter,
		ChunkTimeout:     batch.ChunkTimeout,
		ProgressInterval: batch.ProgressInterval,
		OnProgress: func(p transfer.Progress) {
			o.emit(j, sink, event.DownloadProgress{
				Episode:    p.Episode,
				Downloaded: p.Downloaded,
				Total:      p.Total,
				Speed:      p.Speed,
				Percentage: p.Percentage,
			})
		},
	})

	j.unitCtx = unitCtx

	o.active++
	o.peak = max(o.peak, o.active)
	log.Episode(episode).Debugf("admitted (%d active)", o.active)
	return j, true
}

func (o *Orchestrator) execute(j *job, sink event.Sink) {
	defer close(j.done)

	outcome := j.unit.Run(j.unitCtx)

	o.mu.Lock()
	o.active--
	o.finishLocked(j, outcome, sink)
	o.mu.Unlock()
}

// finishLocked records the terminal outcome of j and emits its result. o.mu must be held.
func (o *Orchestrator) finishLocked(j *job, outcome transfer.Outcome, sink event.Sink) {
	if j.cancel != nil {
		j.cancel()
	}

	j.status = outcome.Status
	j.result = Result{
		Episode: j.task.Episode,
		Success: outcome.Status == transfer.Completed,
		Status:  outcome.Status,
	}

	switch outcome.Status {
	case transfer.Completed:
		j.result.FilePath = outcome.Path
		j.result.Size = outcome.Size
	case transfer.Failed:
		if outcome.Err != nil {
			j.result.Error = outcome.Err.Error()
		} else {
			j.result.Error = "download failed"
		}
	case transfer.Cancelled:
		j.result.Error = "cancelled"
	}

	if j.unit == nil {
		// Never admitted: nothing can race with this close.
		close(j.done)
	}

	sink.Emit(event.DownloadResult{
		Episode:  j.result.Episode,
		Success:  j.result.Success,
		Status:   j.result.Status.String(),
		FilePath: j.result.FilePath,
		Size:     j.result.Size,
		Error:    j.result.Error,
	})

	log.Episode(j.task.Episode).Infof("%s %s", outcome.Status, filepath.Base(j.task.Path))
}

// emit forwards a progress event unless the job has been cancelled.
func (o *Orchestrator) emit(j *job, sink event.Sink, e event.Event) {
	j.emitMu.Lock()
	defer j.emitMu.Unlock()

	if !j.silenced {
		sink.Emit(e)
	}
}

// silence guarantees that no further progress event of j is emitted once it returns.
func (j *job) silence() {
	j.emitMu.Lock()
	j.silenced = true
	j.emitMu.Unlock()
}

// lookup returns the job for an episode if it is currently active.
func (o *Orchestrator) lookup(episode int) (*job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return nil, fmt.Errorf("episode %d: %w", episode, ErrNotActive)
	}

	j, ok := o.jobs[episode]
	if !ok || !j.status.Active() {
		return nil, fmt.Errorf("episode %d: %w", episode, ErrNotActive)
	}
	return j, nil
}

// Pause suspends an active episode. Pausing an already paused episode is a no-op
// that returns nil.
func (o *Orchestrator) Pause(episode int) error {
	j, err := o.lookup(episode)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if j.status.Active() {
		j.unit.Pause()
		j.status = transfer.Paused
	}
	log.Episode(episode).Infof("paused")
	return nil
}

// Resume continues a paused episode. Resuming an episode that is downloading is a
// no-op that returns nil.
func (o *Orchestrator) Resume(episode int) error {
	j, err := o.lookup(episode)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if j.status.Active() {
		j.unit.Resume()
		j.status = transfer.Downloading
	}
	log.Episode(episode).Infof("resumed")
	return nil
}

// Cancel stops an active episode and waits for its unit to exit. No progress event
// for the episode is emitted after Cancel returns.
func (o *Orchestrator) Cancel(episode int) error {
	j, err := o.lookup(episode)
	if err != nil {
		return err
	}

	j.silence()
	j.cancel()
	<-j.done
	return nil
}

// CancelAll cancels every active and pending episode of the running batch and waits
// until all active units have observed it. Pending episodes never start.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}

	jobs := lo.Values(o.jobs)
	stop, aborted := o.stop, o.aborted
	o.mu.Unlock()

	if aborted != nil {
		aborted()
	}

	for _, j := range jobs {
		j.silence()
	}

	// Stopping the batch context cancels every unit and makes the supervisor finalize
	// the remaining pending jobs as cancelled.
	stop()

	for _, j := range jobs {
		o.mu.Lock()
		admitted := j.unit != nil
		o.mu.Unlock()
		if admitted {
			<-j.done
		}
	}
	log.Info("batch cancelled")
}

// Status returns the current status of an episode in the running batch.
func (o *Orchestrator) Status(episode int) (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return transfer.Pending, false
	}
	j, ok := o.jobs[episode]
	if !ok {
		return transfer.Pending, false
	}
	return j.status, true
}

// Running reports whether a batch is in progress.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// SetSpeedLimit changes the shared ceiling of the running batch.
func (o *Orchestrator) SetSpeedLimit(bytesPerSec int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.limiter.SetLimit(bytesPerSec)
}

// Peak returns the highest number of simultaneously active episodes seen in the
// current or last batch.
func (o *Orchestrator) Peak() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.peak
}
