package transfer

import "time"

type sample struct {
	at    time.Time
	bytes int64
}

// meter computes throughput over a short sliding window of cumulative byte counts.
type meter struct {
	window  time.Duration
	samples []sample
}

func newMeter(window time.Duration) *meter {
	return &meter{window: window}
}

// observe records the cumulative byte count at t and returns the current speed in bytes/s.
func (m *meter) observe(t time.Time, total int64) float64 {
	m.samples = append(m.samples, sample{at: t, bytes: total})

	// Keep exactly one sample older than the window as the baseline.
	cut := 0
	for i := 0; i < len(m.samples)-1; i++ {
		if t.Sub(m.samples[i+1].at) >= m.window {
			cut = i + 1
		} else {
			break
		}
	}
	m.samples = m.samples[cut:]

	first := m.samples[0]
	elapsed := t.Sub(first.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total-first.bytes) / elapsed
}

// reset drops history, used after a pause so idle time does not count.
func (m *meter) reset() {
	m.samples = m.samples[:0]
}
