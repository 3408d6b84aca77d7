// Package throttle enforces a global byte-per-second ceiling shared by all transfers.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket refilled at the configured rate. Tokens are bytes.
// A nil *Limiter, or one with a zero limit, never blocks.
//
// Reservations are granted in call order, so concurrent transfers are served FIFO
// and none of them can be starved by a faster sibling.
type Limiter struct {
	mu  sync.RWMutex
	bps int
	rl  *rate.Limiter
}

var (
	timeNow = time.Now

	// beforeWait runs between sizing a reservation and waiting for it.
	beforeWait = func() {}
)

// New returns a limiter for bytesPerSec. Zero or a negative value disables throttling.
func New(bytesPerSec int) *Limiter {
	l := &Limiter{}
	l.SetLimit(bytesPerSec)
	return l
}

// burstFor keeps the bucket at roughly 1/10 s of traffic, bounded to stay responsive
// to small limits without forcing tiny reads on large ones.
func burstFor(bps int) int {
	burst := bps / 10
	switch {
	case burst < 1024:
		burst = 1024
	case burst > 256*1024:
		burst = 256 * 1024
	}
	if burst > bps {
		burst = bps
	}
	return burst
}

// SetLimit changes the ceiling. It is safe to call while transfers are waiting.
func (l *Limiter) SetLimit(bytesPerSec int) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if bytesPerSec <= 0 {
		l.bps = 0
		if l.rl != nil {
			l.rl.SetLimit(rate.Inf)
		}
		return
	}

	l.bps = bytesPerSec
	burst := burstFor(bytesPerSec)
	if l.rl == nil {
		// Start with an empty bucket so the first second is not a free burst.
		l.rl = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
		l.rl.AllowN(timeNow(), burst)
		return
	}
	l.rl.SetBurst(burst)
	l.rl.SetLimit(rate.Limit(bytesPerSec))
}

// Limit returns the current ceiling in bytes per second, 0 when unlimited.
func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bps
}

// Burst is the largest amount a single reservation can take, 0 when unlimited.
// Readers size their chunks by it so that no byte passes before it is paid for.
func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.bps == 0 || l.rl == nil {
		return 0
	}
	return l.rl.Burst()
}

// Enabled reports whether Wait can block.
func (l *Limiter) Enabled() bool {
	return l.Limit() > 0
}

// Wait blocks until n bytes may pass or ctx is done. Requests larger than the
// bucket are split into burst-sized reservations.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil || n <= 0 {
		return nil
	}

	for n > 0 {
		l.mu.RLock()
		rl, bps := l.rl, l.bps
		l.mu.RUnlock()

		if bps == 0 || rl == nil {
			return nil
		}

		take := min(n, rl.Burst())
		beforeWait()

		if err := rl.WaitN(ctx, take); err != nil {
			// SetLimit shrank the bucket after take was sized.
			if ctx.Err() == nil && take > rl.Burst() {
				continue
			}
			return err
		}
		n -= take
	}

	return nil
}
