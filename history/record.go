package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status summarizes how a batch ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Record is the summary of one finished batch.
type Record struct {
	ID          string    `json:"id"`
	SeriesID    int       `json:"seriesId"`
	SeriesTitle string    `json:"seriesTitle"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	Episodes    []int     `json:"episodes"`
	Completed   []int     `json:"completed"`
	Failed      []int     `json:"failed"`
	Cancelled   []int     `json:"cancelled"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
	TotalSize   int64     `json:"totalSize"`
	Status      Status    `json:"status"`
	OutputDir   string    `json:"outputDir"`
	MergedPath  string    `json:"mergedPath,omitempty"`
}

// newID returns a time-ordered identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewRecord starts a record for a batch of episodes.
func NewRecord(seriesID int, title string, episodes []int, startedAt time.Time) *Record {
	return &Record{
		ID:          newID(),
		SeriesID:    seriesID,
		SeriesTitle: title,
		Episodes:    episodes,
		Completed:   []int{},
		Failed:      []int{},
		Cancelled:   []int{},
		StartedAt:   startedAt,
	}
}

// Finish stamps the end time and derives the status from the episode lists.
func (r *Record) Finish(endedAt time.Time) {
	r.EndedAt = endedAt

	switch {
	case len(r.Completed) > 0 && len(r.Failed)+len(r.Cancelled) == 0:
		r.Status = StatusCompleted
	case len(r.Completed) > 0:
		r.Status = StatusPartial
	case len(r.Cancelled) > 0 && len(r.Failed) == 0:
		r.Status = StatusCancelled
	default:
		r.Status = StatusFailed
	}
}

// Duration is the wall time the batch took.
func (r *Record) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// ShortID is the random tail of the id, shown in listings and accepted by Remove.
func (r *Record) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[len(r.ID)-8:]
}

func (r *Record) String() string {
	return fmt.Sprintf("%s: %d/%d episodes %s", r.SeriesTitle, len(r.Completed), len(r.Episodes), r.Status)
}
