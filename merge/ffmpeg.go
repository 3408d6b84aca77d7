package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/log"
)

const (
	ffmpegName  = "ffmpeg"
	ffprobeName = "ffprobe"

	stderrTail = 20
)

// FFmpeg runs the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	Path  string
	Probe string

	// StallTimeout kills a concat that prints nothing for this long. 0 disables it.
	StallTimeout time.Duration
}

// NewFFmpeg returns a tool for the given binaries. probe may be empty, in which case
// durations are unknown.
func NewFFmpeg(path, probe string) *FFmpeg {
	return &FFmpeg{Path: path, Probe: probe}
}

func executable(name string) string {
	if runtime.GOOS == constant.Windows {
		return name + ".exe"
	}
	return name
}

// candidates lists the places a bundled binary may live, next to our own executable.
func candidates(name string) []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}

	dir := filepath.Dir(exe)
	return []string{
		filepath.Join(dir, executable(name)),
		filepath.Join(dir, "resources", executable(name)),
	}
}

func find(name string) (string, error) {
	for _, candidate := range candidates(name) {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return exec.LookPath(executable(name))
}

// Lookup resolves ffmpeg: the configured path first, then a binary bundled next to
// the executable, then PATH. ffprobe is searched beside the chosen ffmpeg first.
func Lookup(configured string) (*FFmpeg, error) {
	var (
		path string
		err  error
	)

	if configured != "" {
		path, err = exec.LookPath(configured)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrToolMissing, configured, err)
		}
	} else if path, err = find(ffmpegName); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrToolMissing, err)
	}

	probe, err := exec.LookPath(filepath.Join(filepath.Dir(path), executable(ffprobeName)))
	if err != nil {
		probe, err = find(ffprobeName)
		if err != nil {
			log.Warnf("ffprobe not found, merge progress will be unknown: %s", err)
			probe = ""
		}
	}

	log.Debugf("using ffmpeg at %s, ffprobe at %q", path, probe)
	return NewFFmpeg(path, probe), nil
}

func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, f.Path, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrToolMissing, err)
	}

	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first), nil
}

func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	if f.Probe == "" {
		return 0, errors.New("ffprobe is not available")
	}

	out, err := exec.CommandContext(ctx, f.Probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", filepath.Base(path), err)
	}
	return duration, nil
}

// Args returns the ffmpeg arguments for inv. Paths are separate arguments, never shell text.
func (f *FFmpeg) Args(inv Invocation) []string {
	args := []string{
		"-hide_banner", "-nostats", "-y",
		"-progress", "pipe:1",
		"-f", "concat", "-safe", "0",
		"-i", inv.Manifest,
	}

	if inv.Reencode {
		args = append(args, "-c:v", "libx264", "-preset", "fast", "-crf", "22", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}

	return append(args, inv.Output)
}

func (f *FFmpeg) Concat(ctx context.Context, inv Invocation, progress func(Progress)) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	cmd := exec.CommandContext(ctx, f.Path, f.Args(inv)...)
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	log.Debugf("running %s %s", f.Path, strings.Join(cmd.Args[1:], " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	watchdog := newWatchdog(f.StallTimeout, func() { cancel(ErrStalled) })
	defer watchdog.stop()

	tail := newRing(stderrTail)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanLines(stderr, func(line string) {
			watchdog.kick()
			tail.add(line)
		})
	}()

	go func() {
		defer wg.Done()
		scanLines(stdout, func(line string) {
			watchdog.kick()
			if ctx.Err() != nil {
				return
			}

			p, ok, err := parseProgress(line)
			if err != nil {
				cancel(err)
				return
			}
			if ok && progress != nil {
				progress(p)
			}
		})
	}()

	wg.Wait()
	err = cmd.Wait()

	if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil {
		if errors.Is(cause, ErrStalled) || errors.Is(cause, ErrBadProgress) {
			return cause
		}
		return ctx.Err()
	}
	if err != nil {
		if lines := tail.lines(); len(lines) > 0 {
			return fmt.Errorf("ffmpeg: %w\n%s", err, strings.Join(lines, "\n"))
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}

// ring keeps the last n lines written to it.
type ring struct {
	mu   sync.Mutex
	n    int
	buf  []string
	next int
	full bool
}

func newRing(n int) *ring {
	return &ring{n: n, buf: make([]string, n)}
}

func (r *ring) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = line
	r.next = (r.next + 1) % r.n
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]string(nil), r.buf[:r.next]...)
	}
	return append(append([]string(nil), r.buf[r.next:]...), r.buf[:r.next]...)
}

// watchdog fires once when kick has not been called for timeout.
type watchdog struct {
	timer   *time.Timer
	timeout time.Duration
}

func newWatchdog(timeout time.Duration, fire func()) *watchdog {
	if timeout <= 0 {
		return &watchdog{}
	}
	return &watchdog{timer: time.AfterFunc(timeout, fire), timeout: timeout}
}

func (w *watchdog) kick() {
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}
