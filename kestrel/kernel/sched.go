package kernel

// waitObject is an object a thread can block on with a timeout. cancelWait
// undoes the enqueue when the timeout fires first.
type waitObject interface {
	cancelWait(k *Kernel, id ThreadID)
}

// enqueueReady inserts id behind the ready threads of equal or higher
// priority.
func (k *Kernel) enqueueReady(id ThreadID) {
	t := &k.threads[id]
	it := k.ready.head
	for it != nilRef && k.threads[it.index()].prio >= t.prio {
		it = k.tlinks[it.index()].next
	}
	k.ready.insertBefore(k.tlinks, it, refOf(int(id)))
	t.state = StateReady
	t.owner = &k.ready
}

// enqueueAhead inserts id in front of the ready threads of equal priority.
// Used for preempted threads.
func (k *Kernel) enqueueAhead(id ThreadID) {
	t := &k.threads[id]
	it := k.ready.head
	for it != nilRef && k.threads[it.index()].prio > t.prio {
		it = k.tlinks[it.index()].next
	}
	k.ready.insertBefore(k.tlinks, it, refOf(int(id)))
	t.state = StateReady
	t.owner = &k.ready
}

// readyI makes a thread ready with the wakeup message msg. The thread must
// already be out of any wait list.
func (k *Kernel) readyI(cs Section, id ThreadID, msg Msg) {
	k.checkClassI(cs)
	t := &k.threads[id]
	if checks {
		if t.owner != nil {
			k.Halt("ready: thread " + t.name + " is still in a list")
		}
		if !t.state.waiting() {
			k.Halt("ready: thread " + t.name + " in state " + t.state.String())
		}
	}
	k.resetTimer(threadTimer(id))
	t.wobj = nil
	t.msg = msg
	k.enqueueReady(id)
	k.traceEvent(TraceReady, id, id)
}

func (k *Kernel) pickNext() ThreadID {
	r := k.ready.popFront(k.tlinks)
	if r == nilRef {
		k.Halt("ready list empty")
	}
	id := ThreadID(r.index())
	k.threads[id].owner = nil
	return id
}

// switchTo makes next the running thread. With discard set the caller's
// context is abandoned.
func (k *Kernel) switchTo(prev, next ThreadID, discard bool) {
	k.current = next
	nt := &k.threads[next]
	nt.state = StateRunning
	nt.switches++
	now := k.port.Counter()
	k.threads[prev].runTime += now - k.runStart
	k.runStart = now
	if k.cfg.Stats {
		k.stats.switches.Add(1)
	}
	k.traceEvent(TraceSwitch, prev, next)

	var from any
	if !discard {
		from = k.threads[prev].ctx
	}
	k.port.Switch(from, nt.ctx)
}

func (k *Kernel) preemptionRequired() bool {
	if k.ready.empty() || k.current == NoThread {
		return false
	}
	return k.threads[k.ready.head.index()].prio > k.threads[k.current].prio
}

// RescheduleS switches to the head of the ready list if it has a higher
// priority than the running thread. It is called after readying threads
// from thread context.
func (k *Kernel) RescheduleS(cs Section) {
	k.checkClassS(cs)
	if k.preemptionRequired() {
		k.rescheduleAheadS(cs)
	}
}

// Reschedule is RescheduleS inside its own critical section.
func (k *Kernel) Reschedule() {
	cs := k.Lock()
	k.RescheduleS(cs)
	k.Unlock(cs)
}

func (k *Kernel) rescheduleAheadS(cs Section) {
	k.checkClassS(cs)
	otp := k.current
	next := k.pickNext()
	k.enqueueAhead(otp)
	k.switchTo(otp, next, false)
}

// YieldS passes control to the next ready thread of equal or higher
// priority; the caller goes behind its equals.
func (k *Kernel) YieldS(cs Section) {
	k.checkClassS(cs)
	if k.ready.empty() {
		return
	}
	otp := k.current
	if k.threads[k.ready.head.index()].prio < k.threads[otp].prio {
		return
	}
	next := k.pickNext()
	k.enqueueReady(otp)
	k.switchTo(otp, next, false)
}

// Yield is YieldS inside its own critical section.
func (k *Kernel) Yield() {
	cs := k.Lock()
	k.YieldS(cs)
	k.Unlock(cs)
}

// goSleepS puts the running thread in state and switches to the next ready
// thread. It returns the wakeup message.
func (k *Kernel) goSleepS(cs Section, state State) Msg {
	k.checkClassS(cs)
	otp := k.current
	if checks && otp == k.idle {
		k.Halt("idle thread cannot block")
	}
	k.threads[otp].state = state
	next := k.pickNext()
	k.switchTo(otp, next, false)
	return k.threads[otp].msg
}

// goSleepTimeoutS is goSleepS with a timeout. Immediate returns MsgTimeout
// without sleeping; Infinite never times out.
func (k *Kernel) goSleepTimeoutS(cs Section, state State, timeout Interval) Msg {
	if timeout == Immediate {
		return MsgTimeout
	}
	if timeout != Infinite {
		k.setTimer(threadTimer(k.current), timeout, k.onTimeout, k.current)
	}
	return k.goSleepS(cs, state)
}

// threadTimeout is the timer callback of bounded waits.
func (k *Kernel) threadTimeout(cs Section, arg any) {
	id := arg.(ThreadID)
	t := &k.threads[id]
	if t.wobj != nil {
		t.wobj.cancelWait(k, id)
	}
	k.unlinkThread(id)
	k.readyI(cs, id, MsgTimeout)
}

// unlinkThread removes id from the wait list holding it.
func (k *Kernel) unlinkThread(id ThreadID) {
	t := &k.threads[id]
	if t.owner != nil {
		t.owner.remove(k.tlinks, refOf(int(id)))
		t.owner = nil
	}
}

// enqueueWait appends the running thread to a wait list.
func (k *Kernel) enqueueWait(ls *list, wobj waitObject) {
	t := &k.threads[k.current]
	ls.pushBack(k.tlinks, refOf(int(k.current)))
	t.owner = ls
	t.wobj = wobj
}

// dequeueWait removes the oldest thread of a wait list.
func (k *Kernel) dequeueWait(ls *list) ThreadID {
	r := ls.popFront(k.tlinks)
	id := ThreadID(r.index())
	k.threads[id].owner = nil
	return id
}

func (k *Kernel) checkReadyOrder() {
	prev := HighPriority
	for it := k.ready.head; it != nilRef; it = k.tlinks[it.index()].next {
		p := k.threads[it.index()].prio
		if p > prev {
			k.Halt("ready list out of priority order")
		}
		prev = p
	}
}
