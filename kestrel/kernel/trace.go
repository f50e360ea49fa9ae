package kernel

// TraceKind classifies a trace buffer entry.
type TraceKind uint8

const (
	TraceSwitch TraceKind = iota + 1
	TraceReady
	TraceHalt
)

func (t TraceKind) String() string {
	switch t {
	case TraceSwitch:
		return "switch"
	case TraceReady:
		return "ready"
	case TraceHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// TraceEvent is an entry of the scheduler trace buffer. For a switch From is
// the thread leaving and To the thread entering; for a ready both are the
// readied thread.
type TraceEvent struct {
	Kind    TraceKind
	Time    Systime
	Counter uint64
	From    ThreadID
	To      ThreadID
	State   State
}

func (k *Kernel) traceEvent(kind TraceKind, from, to ThreadID) {
	if len(k.trace) == 0 {
		return
	}
	ev := TraceEvent{
		Kind:    kind,
		Time:    k.Now(),
		Counter: k.port.Counter(),
		From:    from,
		To:      to,
	}
	if from >= 0 {
		ev.State = k.threads[from].state
	}
	k.trace[k.traceNext] = ev
	k.traceNext++
	if k.traceNext == len(k.trace) {
		k.traceNext = 0
		k.traceFull = true
	}
}

// Trace returns the trace buffer, oldest entry first. It takes the port lock
// directly and must not be called from inside a critical section.
func (k *Kernel) Trace() []TraceEvent {
	k.port.Lock()
	defer k.port.Unlock()
	if !k.traceFull {
		return append([]TraceEvent(nil), k.trace[:k.traceNext]...)
	}
	out := make([]TraceEvent, 0, len(k.trace))
	out = append(out, k.trace[k.traceNext:]...)
	return append(out, k.trace[:k.traceNext]...)
}
