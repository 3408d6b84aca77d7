// Package event defines the typed notifications emitted by downloads and merges.
//
// Each notification is its own struct; the wire names used by external callers
// are only produced by Marshal.
package event

import (
	"encoding/json"
	"fmt"
)

// Kind identifies an event variant.
type Kind int

const (
	KindDownloadProgress Kind = iota
	KindDownloadResult
	KindMergeStarted
	KindMergeProgress
	KindMergeComplete
	KindMergeError
	KindLog
)

var kindNames = map[Kind]string{
	KindDownloadProgress: "download-progress",
	KindDownloadResult:   "download-result",
	KindMergeStarted:     "merge-started",
	KindMergeProgress:    "merge-progress",
	KindMergeComplete:    "merge-complete",
	KindMergeError:       "merge-error",
	KindLog:              "log",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is implemented by every variant.
type Event interface {
	Kind() Kind
}

// DownloadProgress is one progress sample of an episode.
type DownloadProgress struct {
	Episode    int     `json:"episode"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"`
	Speed      float64 `json:"speed"`
	Percentage float64 `json:"percentage"`
}

func (DownloadProgress) Kind() Kind { return KindDownloadProgress }

// DownloadResult is emitted once per episode when it reaches a terminal state.
type DownloadResult struct {
	Episode  int    `json:"episode"`
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	FilePath string `json:"filePath,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (DownloadResult) Kind() Kind { return KindDownloadResult }

// MergeStarted announces a merge job.
type MergeStarted struct {
	OutputPath string   `json:"outputPath"`
	Inputs     []string `json:"inputs"`
}

func (MergeStarted) Kind() Kind { return KindMergeStarted }

// MergeProgress reports elapsed media time of a running merge.
type MergeProgress struct {
	Percentage    float64 `json:"percentage"`
	CurrentTime   float64 `json:"currentTime"`
	TotalDuration float64 `json:"totalDuration"`
}

func (MergeProgress) Kind() Kind { return KindMergeProgress }

// MergeComplete carries the merged file path.
type MergeComplete struct {
	OutputPath string `json:"outputPath"`
}

func (MergeComplete) Kind() Kind { return KindMergeComplete }

// MergeError carries the failure text of a merge.
type MergeError struct {
	Message string `json:"message"`
}

func (MergeError) Kind() Kind { return KindMergeError }

// Level of a Log event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Log is a human readable status line for the caller's activity view.
type Log struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (Log) Kind() Kind { return KindLog }

// Envelope is the wire shape of an event.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Wrap converts an event into its wire envelope.
func Wrap(e Event) Envelope {
	return Envelope{Event: e.Kind().String(), Payload: e}
}

// Marshal encodes an event as its wire envelope.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(Wrap(e))
}
