package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/log"
	"golang.org/x/exp/slices"
)

// Status is the state of a merge job.
type Status int

const (
	Idle Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Request asks for inputs to be concatenated, in the given order, into Output.
type Request struct {
	Inputs []string
	Output string

	// DeleteSources removes the inputs after a successful merge.
	DeleteSources bool

	// ReencodeFallback retries once with a transcoding pass if stream copy fails.
	ReencodeFallback bool
}

// Job is the state of one merge.
type Job struct {
	Inputs        []string
	Output        string
	Status        Status
	Percentage    float64
	CurrentTime   float64
	TotalDuration float64
	Err           error
}

// Invoker runs merges through a Tool. At most one merge runs per output path.
type Invoker struct {
	tool Tool

	mu      sync.Mutex
	running map[string]struct{}

	// ProgressInterval and ProgressDelta bound how often merge progress is emitted.
	ProgressInterval time.Duration
	ProgressDelta    float64

	now func() time.Time
}

// NewInvoker returns an invoker for tool.
func NewInvoker(tool Tool) *Invoker {
	return &Invoker{
		tool:             tool,
		running:          make(map[string]struct{}),
		ProgressInterval: time.Second,
		ProgressDelta:    1,
		now:              time.Now,
	}
}

func (i *Invoker) reserve(output string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, busy := i.running[output]; busy {
		return false
	}
	i.running[output] = struct{}{}
	return true
}

func (i *Invoker) release(output string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.running, output)
}

// Merge concatenates req.Inputs into req.Output and blocks until done. Events go to sink.
//
// A request for an output that is already being merged fails with ErrConflict and
// does not emit anything. Every other failure is also reported as a merge-error event.
func (i *Invoker) Merge(ctx context.Context, req Request, sink event.Sink) (*Job, error) {
	if sink == nil {
		sink = event.Discard
	}
	if len(req.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	if req.Output == "" {
		return nil, errors.New("merge output path is empty")
	}

	output, err := filepath.Abs(req.Output)
	if err != nil {
		return nil, err
	}

	if !i.reserve(output) {
		return nil, fmt.Errorf("%w: %s", ErrConflict, output)
	}
	defer i.release(output)

	job := &Job{
		Inputs: slices.Clone(req.Inputs),
		Output: output,
		Status: Running,
	}

	sink.Emit(event.MergeStarted{OutputPath: output, Inputs: job.Inputs})
	log.Infof("merging %d files into %s", len(job.Inputs), output)

	if len(job.Inputs) == 1 {
		err = move(job.Inputs[0], output)
	} else {
		err = i.concat(ctx, job, req.ReencodeFallback, sink)
		if err != nil {
			_ = filesystem.API().Remove(output)
		}
	}

	if err != nil {
		job.Status = Failed
		job.Err = err
		log.Errorf("merge into %s failed: %s", output, err)
		sink.Emit(event.MergeError{Message: err.Error()})
		return job, err
	}

	job.Status = Completed
	job.Percentage = 100
	job.CurrentTime = job.TotalDuration

	if req.DeleteSources && len(job.Inputs) > 1 {
		for _, input := range job.Inputs {
			if err := filesystem.API().Remove(input); err != nil {
				log.Warnf("could not delete %s after merge: %s", input, err)
			}
		}
	}

	log.Infof("merged into %s", output)
	sink.Emit(event.MergeComplete{OutputPath: output})
	return job, nil
}

func (i *Invoker) concat(ctx context.Context, job *Job, fallback bool, sink event.Sink) error {
	job.TotalDuration = i.duration(ctx, job.Inputs)

	manifest, err := writeManifest(filepath.Dir(job.Output), job.Inputs)
	if err != nil {
		return fmt.Errorf("write merge manifest: %w", err)
	}
	defer func() {
		if err := filesystem.API().Remove(manifest); err != nil {
			log.Warnf("could not remove merge manifest %s: %s", manifest, err)
		}
	}()

	inv := Invocation{Manifest: manifest, Output: job.Output}
	err = i.run(ctx, job, inv, sink)
	if err == nil || !fallback || ctx.Err() != nil || errors.Is(err, ErrStalled) {
		return err
	}

	log.Warnf("stream copy failed, re-encoding: %s", err)
	inv.Reencode = true
	job.Percentage, job.CurrentTime = 0, 0
	return i.run(ctx, job, inv, sink)
}

func (i *Invoker) run(ctx context.Context, job *Job, inv Invocation, sink event.Sink) error {
	gate := &coalescer{interval: i.ProgressInterval, delta: i.ProgressDelta}

	err := i.tool.Concat(ctx, inv, func(p Progress) {
		if p.End {
			job.Percentage = 100
			job.CurrentTime = job.TotalDuration
		} else {
			job.CurrentTime = p.Elapsed.Seconds()
			job.Percentage = percent(p.Elapsed, job.TotalDuration)
		}

		if !p.End && !gate.ready(i.now(), job.Percentage) {
			return
		}

		sink.Emit(event.MergeProgress{
			Percentage:    job.Percentage,
			CurrentTime:   job.CurrentTime,
			TotalDuration: job.TotalDuration,
		})
	})
	if err != nil {
		return err
	}

	// ffmpeg may exit cleanly on a concat list it could not open
	if exists, _ := filesystem.API().Exists(job.Output); !exists {
		return fmt.Errorf("ffmpeg exited without writing %s", job.Output)
	}
	return nil
}

// duration sums the input durations. Unknown durations make the total unknown (0).
func (i *Invoker) duration(ctx context.Context, inputs []string) float64 {
	var total float64
	for _, input := range inputs {
		d, err := i.tool.Duration(ctx, input)
		if err != nil {
			log.Warnf("unknown duration, merge progress disabled: %s", err)
			return 0
		}
		total += d
	}
	return total
}

// move renames src to dst, copying when the rename crosses devices.
func move(src, dst string) error {
	fs := filesystem.API()
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = fs.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	_ = in.Close()
	return fs.Remove(src)
}
