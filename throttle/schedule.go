package throttle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Window overrides the speed limit during a daily time range.
type Window struct {
	Days    []time.Weekday
	Start   time.Duration // offset from midnight
	End     time.Duration
	LimitKB int // 0 = unlimited
}

// ParseWindow parses "<days> <HH:MM>-<HH:MM> <kb>", where days is "*",
// a range such as "mon-fri" or a list such as "sat,sun".
func ParseWindow(s string) (Window, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Window{}, fmt.Errorf("invalid schedule %q: want \"<days> <HH:MM>-<HH:MM> <kb>\"", s)
	}

	days, err := parseDays(fields[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid schedule %q: %w", s, err)
	}

	from, to, ok := strings.Cut(fields[1], "-")
	if !ok {
		return Window{}, fmt.Errorf("invalid schedule %q: time range needs a dash", s)
	}

	start, err := parseClock(from)
	if err != nil {
		return Window{}, fmt.Errorf("invalid schedule %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return Window{}, fmt.Errorf("invalid schedule %q: %w", s, err)
	}

	limit, err := strconv.Atoi(fields[2])
	if err != nil || limit < 0 {
		return Window{}, fmt.Errorf("invalid schedule %q: limit must be a non-negative integer", s)
	}

	return Window{Days: days, Start: start, End: end, LimitKB: limit}, nil
}

func parseDays(s string) ([]time.Weekday, error) {
	if s == "*" {
		return []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}, nil
	}

	var days []time.Weekday
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		if from, to, ok := strings.Cut(part, "-"); ok {
			a, okA := weekdays[from]
			b, okB := weekdays[to]
			if !okA || !okB {
				return nil, fmt.Errorf("unknown day range %q", part)
			}
			for d := a; ; d = (d + 1) % 7 {
				days = append(days, d)
				if d == b {
					break
				}
			}
			continue
		}

		d, ok := weekdays[part]
		if !ok {
			return nil, fmt.Errorf("unknown day %q", part)
		}
		days = append(days, d)
	}

	return lo.Uniq(days), nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether t falls inside the window. Windows whose end is before
// their start wrap past midnight; the day refers to the day the window starts.
func (w Window) Contains(t time.Time) bool {
	offset := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute

	if w.Start <= w.End {
		return lo.Contains(w.Days, t.Weekday()) && offset >= w.Start && offset < w.End
	}

	if offset >= w.Start {
		return lo.Contains(w.Days, t.Weekday())
	}
	if offset < w.End {
		return lo.Contains(w.Days, (t.Weekday()+6)%7)
	}
	return false
}

// Schedule is an ordered list of windows; the first match wins.
type Schedule []Window

// ParseSchedule parses every entry, failing on the first invalid one.
func ParseSchedule(entries []string) (Schedule, error) {
	var s Schedule
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		w, err := ParseWindow(e)
		if err != nil {
			return nil, err
		}
		s = append(s, w)
	}
	return s, nil
}

// LimitAt returns the limit in KB/s in effect at t, falling back to baseKB.
func (s Schedule) LimitAt(t time.Time, baseKB int) int {
	for _, w := range s {
		if w.Contains(t) {
			return w.LimitKB
		}
	}
	return baseKB
}
