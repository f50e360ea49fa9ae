//go:build tinygo

package hal

import "time"

// tickSource emits the 1 kHz system tick. A tick is dropped when the kernel
// has not consumed the previous ones; the next tick still carries the
// current sequence number.
type tickSource struct {
	ch      chan uint64
	seq     uint64
	dropped uint32
}

func newTickSource() *tickSource {
	t := &tickSource{ch: make(chan uint64, 16)}
	go t.run()
	return t
}

func (t *tickSource) run() {
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()
	for range ticker.C {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
			t.dropped++
		}
	}
}

func (t *tickSource) Ticks() <-chan uint64 { return t.ch }
