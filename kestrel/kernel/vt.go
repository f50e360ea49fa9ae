package kernel

// TimerID is the handle of a virtual timer.
type TimerID int

// TimerFunc is a virtual timer callback. It runs in the tick interrupt with
// the kernel locked and may re-arm its own timer.
type TimerFunc func(cs Section, arg any)

type vtimer struct {
	delta Interval
	fn    TimerFunc
	arg   any
	armed bool
}

// threadTimer returns the timer slot dedicated to a thread.
func threadTimer(id ThreadID) TimerID { return TimerID(id) }

// NewTimer hands out one of the Config.Timers application timers.
func (k *Kernel) NewTimer() (TimerID, error) {
	cs := k.Lock()
	defer k.Unlock(cs)
	if k.nextTimer >= len(k.timers) {
		return -1, ErrNoTimer
	}
	id := TimerID(k.nextTimer)
	k.nextTimer++
	return id, nil
}

func (k *Kernel) checkTimer(id TimerID) {
	if checks && (int(id) < len(k.threads) || int(id) >= k.nextTimer) {
		k.Halt("invalid virtual timer")
	}
}

// SetTimerI arms a timer to call fn after delay ticks, re-arming it if it is
// already armed. A delay of 0 fires on the next tick.
func (k *Kernel) SetTimerI(cs Section, id TimerID, delay Interval, fn TimerFunc, arg any) {
	k.checkClassI(cs)
	k.checkTimer(id)
	if checks && fn == nil {
		k.Halt("virtual timer without callback")
	}
	k.setTimer(id, delay, fn, arg)
}

// ResetTimerI disarms a timer. It is a no-op if the timer is not armed.
func (k *Kernel) ResetTimerI(cs Section, id TimerID) {
	k.checkClassI(cs)
	k.checkTimer(id)
	k.resetTimer(id)
}

// IsArmedI reports whether a timer is armed.
func (k *Kernel) IsArmedI(cs Section, id TimerID) bool {
	k.checkClassI(cs)
	return k.timers[id].armed
}

// SetTimer is SetTimerI inside its own critical section.
func (k *Kernel) SetTimer(id TimerID, delay Interval, fn TimerFunc, arg any) {
	cs := k.Lock()
	k.SetTimerI(cs, id, delay, fn, arg)
	k.Unlock(cs)
}

// ResetTimer is ResetTimerI inside its own critical section.
func (k *Kernel) ResetTimer(id TimerID) {
	cs := k.Lock()
	k.ResetTimerI(cs, id)
	k.Unlock(cs)
}

// IsArmed is IsArmedI inside its own critical section.
func (k *Kernel) IsArmed(id TimerID) bool {
	cs := k.Lock()
	defer k.Unlock(cs)
	return k.IsArmedI(cs, id)
}

// setTimer links the timer into the delta list. Entries with equal deadlines
// keep their insertion order.
func (k *Kernel) setTimer(id TimerID, delay Interval, fn TimerFunc, arg any) {
	k.resetTimer(id)
	if delay == 0 {
		delay = 1
	}
	vt := &k.timers[id]
	vt.fn = fn
	vt.arg = arg

	it := k.vtlist.head
	for it != nilRef && k.timers[it.index()].delta <= delay {
		delay -= k.timers[it.index()].delta
		it = k.vlinks[it.index()].next
	}
	k.vtlist.insertBefore(k.vlinks, it, refOf(int(id)))
	vt.delta = delay
	vt.armed = true
	if it != nilRef {
		k.timers[it.index()].delta -= delay
	}
}

func (k *Kernel) resetTimer(id TimerID) {
	vt := &k.timers[id]
	if !vt.armed {
		return
	}
	if next := k.vlinks[id].next; next != nilRef {
		k.timers[next.index()].delta += vt.delta
	}
	k.vtlist.remove(k.vlinks, refOf(int(id)))
	vt.armed = false
	vt.fn = nil
	vt.arg = nil
}

// TimerHandlerI advances the system time by one tick and runs the callbacks
// of the expired timers in deadline order.
func (k *Kernel) TimerHandlerI(cs Section) {
	k.checkClassI(cs)
	k.systime.Add(1)
	if k.vtlist.empty() {
		return
	}
	head := &k.timers[k.vtlist.head.index()]
	if checks && head.delta == 0 {
		k.Halt("virtual timer list head already expired")
	}
	head.delta--
	for !k.vtlist.empty() {
		r := k.vtlist.head
		vt := &k.timers[r.index()]
		if vt.delta != 0 {
			break
		}
		k.vtlist.remove(k.vlinks, r)
		vt.armed = false
		fn, arg := vt.fn, vt.arg
		vt.fn, vt.arg = nil, nil
		fn(cs, arg)
	}
}
