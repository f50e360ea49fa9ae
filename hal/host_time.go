//go:build !tinygo

package hal

import (
	"sync/atomic"
	"time"
)

type hostTime struct {
	ch  chan uint64
	seq uint64

	last    time.Time
	acc     time.Duration
	dropped atomic.Uint64
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024)}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// Dropped returns the number of ticks lost because the consumer fell behind.
func (t *hostTime) Dropped() uint64 { return t.dropped.Load() }

// step emits the ticks elapsed in wall time since the previous step; the
// first step emits n.
func (t *hostTime) step(n uint64) {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(n)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / TickPeriod)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % TickPeriod
	t.stepN(ticks)
}

func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
			t.dropped.Add(1)
		}
	}
}
