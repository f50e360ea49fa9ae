package kernel

type sectionKind uint32

const (
	sectionNone sectionKind = iota
	sectionThread
	sectionISR
)

// Section is the token of an open critical section. Operations that must be
// called locked take it as their first argument: S-suffixed methods need a
// token from Lock, I-suffixed methods accept one from Lock or LockFromISR.
type Section struct {
	k    *Kernel
	kind sectionKind
}

// FromISR reports whether the section was opened by LockFromISR.
func (cs Section) FromISR() bool { return cs.kind == sectionISR }

func (cs Section) kernel() *Kernel {
	if cs.k == nil {
		panic("kernel: operation called outside a critical section")
	}
	return cs.k
}

// Lock enters the critical section from thread context. Nesting halts.
//
// A preemption requested by an interrupt while the caller was running is
// honoured here, before Lock returns.
func (k *Kernel) Lock() Section {
	if checks && sectionKind(k.cs.Load()) == sectionThread {
		k.Halt("nested lock")
	}
	k.port.Lock()
	k.cs.Store(uint32(sectionThread))
	k.critEnter(sectionThread)
	cs := Section{k: k, kind: sectionThread}
	if k.started && k.preemptionRequired() {
		k.rescheduleAheadS(cs)
	}
	return cs
}

// Unlock leaves a critical section opened by Lock.
func (k *Kernel) Unlock(cs Section) {
	if checks {
		if cs.k != k || cs.kind != sectionThread || sectionKind(k.cs.Load()) != sectionThread {
			k.Halt("unlock: not the thread critical section")
		}
		k.checkReadyOrder()
	}
	k.critLeave(sectionThread)
	k.cs.Store(uint32(sectionNone))
	k.port.Unlock()
}

// LockFromISR enters the critical section from interrupt context.
func (k *Kernel) LockFromISR() Section {
	if checks && k.isrDepth.Load() <= 0 {
		k.Halt("lock from ISR outside interrupt context")
	}
	k.port.Lock()
	if checks && sectionKind(k.cs.Load()) != sectionNone {
		k.Halt("nested lock from ISR")
	}
	k.cs.Store(uint32(sectionISR))
	k.critEnter(sectionISR)
	return Section{k: k, kind: sectionISR}
}

// UnlockFromISR leaves a critical section opened by LockFromISR. If the
// interrupt readied a thread that should preempt the running one, the
// preemption is requested for when the interrupt returns.
func (k *Kernel) UnlockFromISR(cs Section) {
	if checks {
		if cs.k != k || cs.kind != sectionISR || sectionKind(k.cs.Load()) != sectionISR {
			k.Halt("unlock from ISR: not the ISR critical section")
		}
		k.checkReadyOrder()
	}
	if k.started && k.preemptionRequired() {
		k.pending.Store(true)
	}
	k.critLeave(sectionISR)
	k.cs.Store(uint32(sectionNone))
	k.port.Unlock()
}

// UnconditionalLock enters the thread critical section unless the caller
// already holds it.
func (k *Kernel) UnconditionalLock() {
	if sectionKind(k.cs.Load()) != sectionThread {
		k.Lock()
	}
}

// UnconditionalUnlock leaves the thread critical section if it is held.
func (k *Kernel) UnconditionalUnlock() {
	if sectionKind(k.cs.Load()) == sectionThread {
		k.Unlock(Section{k: k, kind: sectionThread})
	}
}

// EnterISR marks the start of an interrupt service routine.
func (k *Kernel) EnterISR() {
	k.isrDepth.Add(1)
	if k.cfg.Stats {
		k.stats.irq.Add(1)
	}
}

// LeaveISR marks the end of an interrupt service routine. Leaving the
// outermost ISR with a pending preemption interrupts the idle thread.
func (k *Kernel) LeaveISR() {
	if k.isrDepth.Add(-1) < 0 {
		k.Halt("unbalanced LeaveISR")
	}
	if k.isrDepth.Load() == 0 && k.pending.Swap(false) {
		k.port.Interrupt()
	}
}

// ISR runs fn as an interrupt service routine inside the ISR critical section.
func (k *Kernel) ISR(fn func(cs Section)) {
	k.EnterISR()
	cs := k.LockFromISR()
	fn(cs)
	k.UnlockFromISR(cs)
	k.LeaveISR()
}

// Tick is the system tick interrupt: it advances the system time and fires
// the virtual timers that expired.
func (k *Kernel) Tick() {
	k.ISR(k.TimerHandlerI)
}

func (k *Kernel) checkClassI(cs Section) {
	if !checks {
		return
	}
	if cs.k != k || cs.kind == sectionNone || sectionKind(k.cs.Load()) != cs.kind {
		k.Halt("I-class call outside a critical section")
	}
}

func (k *Kernel) checkClassS(cs Section) {
	if !checks {
		return
	}
	if cs.k != k || cs.kind != sectionThread || sectionKind(k.cs.Load()) != sectionThread {
		k.Halt("S-class call outside the thread critical section")
	}
}
