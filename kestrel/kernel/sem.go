package kernel

// Semaphore is a counting semaphore. A negative count is the number of
// waiting threads.
//
// The zero value has count 0 and can be used with the S- and I-class
// methods; the unlocked methods need a semaphore bound to a kernel by
// NewSemaphore or InitSemaphore.
type Semaphore struct {
	k       *Kernel
	cnt     int32
	waiters list
}

// NewSemaphore returns a semaphore with count n.
func (k *Kernel) NewSemaphore(n int32) *Semaphore {
	s := &Semaphore{}
	k.InitSemaphore(s, n)
	return s
}

// InitSemaphore binds s to the kernel with count n.
func (k *Kernel) InitSemaphore(s *Semaphore, n int32) {
	if checks && n < 0 {
		k.Halt("semaphore initialised with a negative count")
	}
	*s = Semaphore{k: k, cnt: n}
}

func (s *Semaphore) bound() *Kernel {
	if s.k == nil {
		panic("kernel: semaphore not bound to a kernel")
	}
	return s.k
}

func (s *Semaphore) cancelWait(_ *Kernel, _ ThreadID) {
	s.cnt++
}

// WaitS waits on the semaphore without timeout.
func (s *Semaphore) WaitS(cs Section) Msg {
	return s.WaitTimeoutS(cs, Infinite)
}

// WaitTimeoutS decrements the count, blocking the caller for at most timeout
// ticks if it goes negative. It returns MsgOK when signalled, MsgTimeout on
// timeout (at once with Immediate) and MsgReset if the semaphore was reset.
func (s *Semaphore) WaitTimeoutS(cs Section, timeout Interval) Msg {
	k := cs.kernel()
	k.checkClassS(cs)
	s.cnt--
	if s.cnt >= 0 {
		return MsgOK
	}
	if timeout == Immediate {
		s.cnt++
		return MsgTimeout
	}
	k.enqueueWait(&s.waiters, s)
	return k.goSleepTimeoutS(cs, StateWaitingSemaphore, timeout)
}

// FastWaitI decrements the count if it is positive and reports whether it
// did. It never blocks.
func (s *Semaphore) FastWaitI(cs Section) bool {
	cs.kernel().checkClassI(cs)
	if s.cnt <= 0 {
		return false
	}
	s.cnt--
	return true
}

// SignalI increments the count and readies the oldest waiter, if any.
func (s *Semaphore) SignalI(cs Section) {
	k := cs.kernel()
	k.checkClassI(cs)
	s.cnt++
	if s.cnt <= 0 {
		if checks && s.waiters.empty() {
			k.Halt("semaphore count and waiters disagree")
		}
		k.readyI(cs, k.dequeueWait(&s.waiters), MsgOK)
	}
}

// BroadcastI readies every waiter with msg, in arrival order. A negative
// count goes back to zero; pending signals are kept.
func (s *Semaphore) BroadcastI(cs Section, msg Msg) {
	k := cs.kernel()
	k.checkClassI(cs)
	s.wakeAll(k, cs, msg)
	if s.cnt < 0 {
		s.cnt = 0
	}
}

// ResetI sets the count to n and readies every waiter with MsgReset.
func (s *Semaphore) ResetI(cs Section, n int32) {
	k := cs.kernel()
	k.checkClassI(cs)
	if checks && n < 0 {
		k.Halt("semaphore reset to a negative count")
	}
	s.wakeAll(k, cs, MsgReset)
	s.cnt = n
}

func (s *Semaphore) wakeAll(k *Kernel, cs Section, msg Msg) {
	for !s.waiters.empty() {
		k.readyI(cs, k.dequeueWait(&s.waiters), msg)
	}
}

// CountI returns the count.
func (s *Semaphore) CountI(cs Section) int32 {
	cs.kernel().checkClassI(cs)
	return s.cnt
}

// Wait waits on the semaphore without timeout.
func (s *Semaphore) Wait() Msg {
	return s.WaitTimeout(Infinite)
}

// WaitTimeout is WaitTimeoutS inside its own critical section.
func (s *Semaphore) WaitTimeout(timeout Interval) Msg {
	k := s.bound()
	cs := k.Lock()
	msg := s.WaitTimeoutS(cs, timeout)
	k.Unlock(cs)
	return msg
}

// Signal signals the semaphore from thread context.
func (s *Semaphore) Signal() {
	k := s.bound()
	cs := k.Lock()
	s.SignalI(cs)
	k.RescheduleS(cs)
	k.Unlock(cs)
}

// SignalFromISR signals the semaphore from an interrupt service routine.
func (s *Semaphore) SignalFromISR() {
	k := s.bound()
	cs := k.LockFromISR()
	s.SignalI(cs)
	k.UnlockFromISR(cs)
}

// Broadcast is BroadcastI from thread context.
func (s *Semaphore) Broadcast(msg Msg) {
	k := s.bound()
	cs := k.Lock()
	s.BroadcastI(cs, msg)
	k.RescheduleS(cs)
	k.Unlock(cs)
}

// Reset is ResetI from thread context.
func (s *Semaphore) Reset(n int32) {
	k := s.bound()
	cs := k.Lock()
	s.ResetI(cs, n)
	k.RescheduleS(cs)
	k.Unlock(cs)
}

// Count returns the count.
func (s *Semaphore) Count() int32 {
	k := s.bound()
	cs := k.Lock()
	n := s.cnt
	k.Unlock(cs)
	return n
}
