package kernel

// SignalEventsI adds mask to the pending events of a thread, readying it if
// it waits for any of them.
func (k *Kernel) SignalEventsI(cs Section, id ThreadID, mask EventMask) {
	k.checkClassI(cs)
	k.checkThread(id)
	t := &k.threads[id]
	t.epending |= mask
	if t.state == StateWaitingEvents && t.epending&t.ewmask != 0 {
		k.readyI(cs, id, MsgOK)
	}
}

// SignalEvents is SignalEventsI from thread context.
func (k *Kernel) SignalEvents(id ThreadID, mask EventMask) {
	cs := k.Lock()
	k.SignalEventsI(cs, id, mask)
	k.RescheduleS(cs)
	k.Unlock(cs)
}

// WaitAnyEventsTimeout waits for any of the events in mask for at most
// timeout ticks. It returns and clears the pending events in mask; 0 means
// the wait timed out.
func (k *Kernel) WaitAnyEventsTimeout(mask EventMask, timeout Interval) EventMask {
	cs := k.Lock()
	defer k.Unlock(cs)
	t := &k.threads[k.current]
	m := t.epending & mask
	if m == 0 {
		t.ewmask = mask
		if k.goSleepTimeoutS(cs, StateWaitingEvents, timeout) != MsgOK {
			return 0
		}
		m = t.epending & mask
	}
	t.epending &^= m
	return m
}

// WaitAnyEvents waits without timeout for any of the events in mask.
func (k *Kernel) WaitAnyEvents(mask EventMask) EventMask {
	return k.WaitAnyEventsTimeout(mask, Infinite)
}
