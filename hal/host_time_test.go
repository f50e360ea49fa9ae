//go:build !tinygo

package hal

import "testing"

func TestHostTimeFirstStep(t *testing.T) {
	ht := newHostTime()
	ht.step(3)
	for want := uint64(1); want <= 3; want++ {
		if got := <-ht.Ticks(); got != want {
			t.Fatalf("tick = %d, want %d", got, want)
		}
	}
}

func TestHostTimeDropsWhenFull(t *testing.T) {
	ht := newHostTime()
	ht.stepN(uint64(cap(ht.ch)) + 5)
	if got := ht.Dropped(); got != 5 {
		t.Fatalf("Dropped() = %d, want 5", got)
	}
}

func TestHostLEDLogsEdgesOnly(t *testing.T) {
	h := New().(*hostHAL)
	h.led.High()
	h.led.High()
	h.led.Low()
	if h.led.edges != 2 {
		t.Fatalf("edges = %d, want 2", h.led.edges)
	}
	if h.led.isOn() {
		t.Fatalf("isOn() = true, want false")
	}
}
