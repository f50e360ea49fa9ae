package kernel

// HaltInfo describes a kernel halt.
type HaltInfo struct {
	Reason string
	Thread ThreadID
	Name   string
	Stack  []byte
}

// HaltError is the panic value of a halted kernel.
type HaltError struct {
	Reason string
}

func (e *HaltError) Error() string { return "kernel halted: " + e.Reason }

// Halted reports whether the kernel has halted.
func (k *Kernel) Halted() bool {
	return k.halted.Load()
}

// Halt stops the system on an unrecoverable error. The halt hook runs and the
// reason is logged on the first halt only; Halt then panics with a
// *HaltError.
func (k *Kernel) Halt(reason string) {
	k.haltOnce.Do(func() {
		k.halted.Store(true)
		info := HaltInfo{Reason: reason, Thread: k.current, Stack: captureStack()}
		if k.current >= 0 && int(k.current) < len(k.threads) {
			info.Name = k.threads[k.current].name
		}
		if len(k.trace) > 0 {
			k.traceEvent(TraceHalt, k.current, k.current)
		}
		if k.log != nil {
			k.log.WriteLineString("kernel: halt: " + reason)
		}
		if k.cfg.OnHalt != nil {
			k.cfg.OnHalt(info)
		}
	})
	panic(&HaltError{Reason: reason})
}
