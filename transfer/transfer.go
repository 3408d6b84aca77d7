package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/network"
	"github.com/anisan-cli/seriesdl/throttle"
	"github.com/spf13/afero"
)

const (
	defaultChunkSize        = 32 * 1024
	defaultProgressInterval = 100 * time.Millisecond
	speedWindow             = time.Second
)

// Task describes one episode to download.
type Task struct {
	Episode int
	URL     string
	Path    string
}

// Progress is a single progress sample.
type Progress struct {
	Episode    int
	Downloaded int64
	Total      int64 // 0 when unknown
	Speed      float64
	Percentage float64
}

// Outcome is the terminal result of a Unit.
type Outcome struct {
	Episode int
	Status  Status
	Path    string
	Size    int64
	Err     error
}

// Options tune a Unit. The zero value is usable.
type Options struct {
	Client  *http.Client
	Limiter *throttle.Limiter

	// ChunkSize is the size of a single read.
	ChunkSize int

	// ChunkTimeout fails the transfer when one read blocks longer than this. Zero disables it.
	ChunkTimeout time.Duration

	// ProgressInterval is the minimum time between two samples; zero reports every chunk.
	// A negative value selects the default of 100ms.
	ProgressInterval time.Duration

	// OnProgress receives samples from the goroutine running the Unit.
	OnProgress func(Progress)

	Header http.Header
}

// Unit downloads one Task. Run must be called at most once; Pause and Resume may be
// called from any goroutine.
//
// Files are written to <Path>.part and renamed once complete, so Path never holds
// a partial file. Cancellation and failure remove the .part file. A .part file left
// behind by a killed process is resumed with a Range request.
type Unit struct {
	task Task
	opts Options
	log  log.Entry

	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// New returns a Unit for task.
func New(task Task, opts Options) *Unit {
	if opts.Client == nil {
		opts.Client = network.Media
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ProgressInterval < 0 {
		opts.ProgressInterval = defaultProgressInterval
	}

	return &Unit{
		task: task,
		opts: opts,
		log:  log.Episode(task.Episode),
	}
}

// Task returns the unit's task.
func (u *Unit) Task() Task {
	return u.task
}

// Pause suspends the read loop before its next chunk. The connection is kept open.
// It returns false if the unit was already paused.
func (u *Unit) Pause() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.paused {
		return false
	}
	u.paused = true
	u.resume = make(chan struct{})
	return true
}

// Resume lets a paused unit continue. It returns false if the unit was not paused.
func (u *Unit) Resume() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.paused {
		return false
	}
	u.paused = false
	close(u.resume)
	return true
}

// Paused reports whether the unit is currently paused.
func (u *Unit) Paused() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.paused
}

// waitResumed blocks while the unit is paused. It reports whether it had to wait.
func (u *Unit) waitResumed(ctx context.Context) (bool, error) {
	u.mu.Lock()
	paused, ch := u.paused, u.resume
	u.mu.Unlock()

	if !paused {
		return false, nil
	}

	u.log.Debugf("paused")
	select {
	case <-ch:
		u.log.Debugf("resumed")
		return true, nil
	case <-ctx.Done():
		return true, context.Cause(ctx)
	}
}

// Run downloads the task. Cancelling ctx stops it between chunks and yields Cancelled.
func (u *Unit) Run(ctx context.Context) Outcome {
	fs := filesystem.API()
	part := u.task.Path + constant.PartSuffix

	if info, err := fs.Stat(u.task.Path); err == nil && !info.IsDir() {
		u.log.Infof("already downloaded, skipping")
		u.report(info.Size(), info.Size(), 0, true)
		return u.done(Completed, info.Size(), nil)
	}

	if err := fs.MkdirAll(filepath.Dir(u.task.Path), os.ModePerm); err != nil {
		return u.done(Failed, 0, fmt.Errorf("create output directory: %w", err))
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	size, err := u.download(ctx, cancel, fs, part)
	if err != nil {
		_ = fs.Remove(part)

		if ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrStalled) {
			u.log.Infof("cancelled")
			return u.done(Cancelled, 0, nil)
		}

		u.log.Warnf("failed: %v", err)
		return u.done(Failed, 0, err)
	}

	if err := fs.Rename(part, u.task.Path); err != nil {
		_ = fs.Remove(part)
		return u.done(Failed, 0, fmt.Errorf("finalize %s: %w", filepath.Base(u.task.Path), err))
	}

	u.log.Infof("completed, %d bytes", size)
	return u.done(Completed, size, nil)
}

func (u *Unit) done(status Status, size int64, err error) Outcome {
	o := Outcome{Episode: u.task.Episode, Status: status, Err: err}
	if status == Completed {
		o.Path = u.task.Path
		o.Size = size
	}
	return o
}

// open issues the GET, asking for bytes from offset onwards when offset > 0.
func (u *Unit) open(ctx context.Context, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.task.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range u.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", constant.UserAgent)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := u.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// download streams the body into part and returns the final size.
func (u *Unit) download(ctx context.Context, cancel context.CancelCauseFunc, fs afero.Afero, part string) (int64, error) {
	var offset int64
	if info, err := fs.Stat(part); err == nil {
		offset = info.Size()
	}

	resp, err := u.open(ctx, offset)
	if err != nil {
		return 0, err
	}

	flags := os.O_CREATE | os.O_WRONLY
	var total int64

	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0:
		resp.Body.Close()
		u.log.Infof("partial file already complete")
		u.report(offset, offset, 0, true)
		return offset, nil
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		flags |= os.O_APPEND
		total = contentTotal(resp, offset)
		u.log.Infof("resuming at byte %d", offset)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if offset > 0 {
			u.log.Infof("range ignored by server, restarting")
		}
		offset = 0
		flags |= os.O_TRUNC
		total = max(resp.ContentLength, 0)
	default:
		resp.Body.Close()
		return 0, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	f, err := fs.OpenFile(part, flags, 0644)
	if err != nil {
		resp.Body.Close()
		return 0, fmt.Errorf("open %s: %w", filepath.Base(part), err)
	}
	defer f.Close()

	written, err := u.stream(ctx, cancel, resp, f, offset, total)
	if err != nil {
		return 0, err
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", filepath.Base(part), err)
	}

	if total > 0 && written < total {
		return 0, fmt.Errorf("%w: got %d of %d bytes", ErrShortBody, written, total)
	}

	return written, nil
}

// stream copies resp into w chunk by chunk, honouring pause, cancel, the rate limiter
// and the per-chunk watchdog. It owns resp.Body. Each read is paid for before it is
// issued and is never larger than the limiter's burst.
func (u *Unit) stream(ctx context.Context, cancel context.CancelCauseFunc, resp *http.Response, w io.Writer, offset, total int64) (int64, error) {
	body := resp.Body
	defer func() { body.Close() }()

	var (
		buf        = make([]byte, u.opts.ChunkSize)
		downloaded = offset
		speed      = newMeter(speedWindow)
		lastReport time.Time
		idle       bool // paused since the last successful read
	)

	for {
		if err := ctx.Err(); err != nil {
			return downloaded, context.Cause(ctx)
		}

		waited, err := u.waitResumed(ctx)
		if err != nil {
			return downloaded, err
		}
		if waited {
			speed.reset()
			idle = true
		}

		chunk := buf
		if burst := u.opts.Limiter.Burst(); burst > 0 && burst < len(chunk) {
			chunk = buf[:burst]
		}
		if err := u.opts.Limiter.Wait(ctx, len(chunk)); err != nil {
			if ctx.Err() != nil {
				return downloaded, context.Cause(ctx)
			}
			return downloaded, fmt.Errorf("throttle: %w", err)
		}

		n, rerr := u.read(cancel, body, chunk)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return downloaded, fmt.Errorf("write: %w", werr)
			}
			downloaded += int64(n)
			idle = false

			now := time.Now()
			bps := speed.observe(now, downloaded)
			if u.opts.ProgressInterval == 0 || now.Sub(lastReport) >= u.opts.ProgressInterval {
				lastReport = now
				u.report(downloaded, total, bps, false)
			}
		}

		if rerr == io.EOF {
			u.report(downloaded, total, speed.observe(time.Now(), downloaded), true)
			return downloaded, nil
		}
		if rerr == nil {
			continue
		}

		if ctx.Err() != nil {
			return downloaded, context.Cause(ctx)
		}

		// A connection that sat idle through a pause may have been dropped by the
		// server. Pick up from the last written byte on a fresh request.
		if idle {
			idle = false
			u.log.Infof("connection lost while paused, reconnecting at byte %d", downloaded)
			body.Close()

			next, err := u.reopen(ctx, downloaded)
			if err != nil {
				return downloaded, err
			}
			body = next.Body
			continue
		}

		return downloaded, fmt.Errorf("read: %w", rerr)
	}
}

// reopen reconnects at offset and insists on a ranged response.
func (u *Unit) reopen(ctx context.Context, offset int64) (*http.Response, error) {
	resp, err := u.open(ctx, offset)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, ErrNoRangeSupport
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// read performs one read guarded by the chunk watchdog.
func (u *Unit) read(cancel context.CancelCauseFunc, r io.Reader, buf []byte) (int, error) {
	if u.opts.ChunkTimeout <= 0 {
		return r.Read(buf)
	}

	timer := time.AfterFunc(u.opts.ChunkTimeout, func() {
		u.log.Warnf("no data for %s", u.opts.ChunkTimeout)
		cancel(ErrStalled)
	})
	defer timer.Stop()

	return r.Read(buf)
}

func (u *Unit) report(downloaded, total int64, speed float64, final bool) {
	if u.opts.OnProgress == nil {
		return
	}

	var pct float64
	switch {
	case total > 0:
		pct = float64(downloaded) / float64(total) * 100
	case final:
		pct = 100
	}
	pct = min(max(pct, 0), 100)

	u.opts.OnProgress(Progress{
		Episode:    u.task.Episode,
		Downloaded: downloaded,
		Total:      total,
		Speed:      speed,
		Percentage: pct,
	})
}

// contentTotal derives the full size from a 206 response.
func contentTotal(resp *http.Response, offset int64) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if n, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return n
			}
		}
	}
	if resp.ContentLength >= 0 {
		return offset + resp.ContentLength
	}
	return 0
}
