package kernel

import (
	"math"
	"sync/atomic"
)

// Measurement summarises a series of durations in port counter units.
type Measurement struct {
	Best       uint64
	Worst      uint64
	Last       uint64
	N          uint64
	Cumulative uint64
}

// Average returns the mean duration, or 0 before the first sample.
func (m Measurement) Average() uint64 {
	if m.N == 0 {
		return 0
	}
	return m.Cumulative / m.N
}

// Stats is a snapshot of the kernel statistics.
type Stats struct {
	IRQ             uint64
	ContextSwitches uint64
	CritThread      Measurement
	CritISR         Measurement
}

type measure struct {
	best, worst, last, n, cumulative atomic.Uint64
}

func (m *measure) reset() {
	m.best.Store(math.MaxUint64)
	m.worst.Store(0)
	m.last.Store(0)
	m.n.Store(0)
	m.cumulative.Store(0)
}

// add is only called with the kernel locked, so the best/worst updates do
// not race each other; readers may observe a partial update.
func (m *measure) add(d uint64) {
	m.last.Store(d)
	m.n.Add(1)
	m.cumulative.Add(d)
	if d < m.best.Load() {
		m.best.Store(d)
	}
	if d > m.worst.Load() {
		m.worst.Store(d)
	}
}

func (m *measure) snapshot() Measurement {
	s := Measurement{
		Best:       m.best.Load(),
		Worst:      m.worst.Load(),
		Last:       m.last.Load(),
		N:          m.n.Load(),
		Cumulative: m.cumulative.Load(),
	}
	if s.N == 0 {
		s.Best = 0
	}
	return s
}

type kstats struct {
	irq        atomic.Uint64
	switches   atomic.Uint64
	critThread measure
	critISR    measure
}

func (s *kstats) reset() {
	s.irq.Store(0)
	s.switches.Store(0)
	s.critThread.reset()
	s.critISR.reset()
}

// Stats returns a snapshot of the kernel statistics. It does not lock.
func (k *Kernel) Stats() Stats {
	return Stats{
		IRQ:             k.stats.irq.Load(),
		ContextSwitches: k.stats.switches.Load(),
		CritThread:      k.stats.critThread.snapshot(),
		CritISR:         k.stats.critISR.snapshot(),
	}
}

func (k *Kernel) critEnter(kind sectionKind) {
	if !k.cfg.Stats {
		return
	}
	k.critStart[kind-sectionThread] = k.port.Counter()
}

func (k *Kernel) critLeave(kind sectionKind) {
	if !k.cfg.Stats {
		return
	}
	d := k.port.Counter() - k.critStart[kind-sectionThread]
	if kind == sectionISR {
		k.stats.critISR.add(d)
		return
	}
	k.stats.critThread.add(d)
}
