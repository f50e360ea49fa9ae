package monitor

import "kestrel/kestrel/kernel"

// Snapshot is a consistent view of the kernel taken from outside any
// critical section.
type Snapshot struct {
	Now     kernel.Systime
	Stats   kernel.Stats
	Threads []kernel.ThreadInfo
	Halted  bool
}

// Capture reads the kernel state. It must not be called with the kernel
// locked.
func Capture(k *kernel.Kernel) Snapshot {
	return Snapshot{
		Now:     k.Now(),
		Stats:   k.Stats(),
		Threads: k.Threads(),
		Halted:  k.Halted(),
	}
}

// TotalRunTime sums the run time of every thread.
func (s Snapshot) TotalRunTime() uint64 {
	var total uint64
	for _, t := range s.Threads {
		total += t.RunTime
	}
	return total
}

// Load returns the share of run time used by a thread, in per mille.
func (s Snapshot) Load(t kernel.ThreadInfo) int {
	total := s.TotalRunTime()
	if total == 0 {
		return 0
	}
	return int(t.RunTime * 1000 / total)
}
