// Package merge concatenates downloaded episodes into a single file with an external tool.
package merge

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConflict is returned when a merge for the same output path is already running.
	ErrConflict = errors.New("a merge for this output is already running")

	// ErrToolMissing is returned when no usable ffmpeg binary was found.
	ErrToolMissing = errors.New("ffmpeg not found")

	// ErrNoInputs is returned for a merge request without input files.
	ErrNoInputs = errors.New("nothing to merge")

	// ErrStalled is the failure cause when the tool produces no output within the stall timeout.
	ErrStalled = errors.New("merge tool stopped responding")

	// ErrBadProgress is returned when the tool's progress output cannot be parsed.
	ErrBadProgress = errors.New("unreadable progress output")
)

// Invocation describes one run of the concat tool.
type Invocation struct {
	// Manifest lists the inputs in order, one `file '<path>'` line each.
	Manifest string
	Output   string

	// Reencode selects the slow path that transcodes instead of copying streams.
	Reencode bool
}

// Progress is a single parsed status update of the tool.
type Progress struct {
	// Elapsed is the media time written so far.
	Elapsed time.Duration

	// End is set on the tool's final report.
	End bool
}

// Tool is the capability the invoker needs from the external program.
type Tool interface {
	// Version runs a trivial invocation and returns the first line of the version banner.
	Version(ctx context.Context) (string, error)

	// Duration returns the media duration of path in seconds.
	Duration(ctx context.Context, path string) (float64, error)

	// Concat runs inv and reports parsed progress until the tool exits.
	Concat(ctx context.Context, inv Invocation, progress func(Progress)) error
}

// Available reports whether tool can be invoked at all. A nil tool is unavailable.
func Available(ctx context.Context, tool Tool) bool {
	if tool == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := tool.Version(ctx)
	return err == nil
}
