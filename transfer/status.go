// Package transfer downloads a single episode to disk.
package transfer

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of one episode.
type Status int

const (
	Pending Status = iota
	Downloading
	Paused
	Completed
	Failed
	Cancelled
)

var statusNames = [...]string{
	Pending:     "pending",
	Downloading: "downloading",
	Paused:      "paused",
	Completed:   "completed",
	Failed:      "failed",
	Cancelled:   "cancelled",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = Status(status)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Active reports whether the episode currently owns a transfer slot.
func (s Status) Active() bool {
	return s == Downloading || s == Paused
}

var (
	// ErrStalled is the failure cause when a single read makes no progress within the chunk timeout.
	ErrStalled = errors.New("connection stalled")

	// ErrNoRangeSupport is returned when a transfer has to reconnect after a pause
	// and the server ignores the byte range.
	ErrNoRangeSupport = errors.New("server does not support resuming, refusing to restart from zero")

	// ErrShortBody is returned when the connection ends before Content-Length bytes arrived.
	ErrShortBody = errors.New("response ended before the announced size")
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return "http " + e.Status
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}
