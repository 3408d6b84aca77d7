package merge

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseProgress reads one `key=value` line of ffmpeg's -progress output.
// ok is false for lines that carry no timing information.
func parseProgress(line string) (p Progress, ok bool, err error) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return Progress{}, false, nil
	}

	// ffmpeg prints N/A until the first packet has been muxed
	if value == "N/A" {
		return Progress{}, false, nil
	}

	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is in microseconds as well
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Progress{}, false, fmt.Errorf("%w: %s", ErrBadProgress, line)
		}
		return Progress{Elapsed: max(0, time.Duration(us)*time.Microsecond)}, true, nil
	case "out_time":
		d, err := parseClock(value)
		if err != nil {
			return Progress{}, false, fmt.Errorf("%w: %s", ErrBadProgress, line)
		}
		return Progress{Elapsed: d}, true, nil
	case "progress":
		if value == "end" {
			return Progress{End: true}, true, nil
		}
	}

	return Progress{}, false, nil
}

// parseClock parses HH:MM:SS.ffffff, where the hours may be negative at the very start.
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}

	if hours < 0 || strings.HasPrefix(parts[0], "-") {
		return 0, nil
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, nil
}

// percent converts elapsed media time to a 0..100 value.
func percent(elapsed time.Duration, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := elapsed.Seconds() / total * 100
	return min(100, max(0, p))
}

// coalescer drops progress updates that are too close to the previous one.
type coalescer struct {
	interval time.Duration
	delta    float64

	last    time.Time
	lastPct float64
	emitted bool
}

// ready reports whether an update with pct at now should be emitted.
func (c *coalescer) ready(now time.Time, pct float64) bool {
	if c.emitted && now.Sub(c.last) < c.interval && pct-c.lastPct < c.delta {
		return false
	}
	c.emitted = true
	c.last = now
	c.lastPct = pct
	return true
}
