package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntry is returned when a thread is created without an entry function.
	ErrNoEntry = errors.New("kernel: thread has no entry function")
	// ErrPriority is returned for a priority reserved to the idle thread.
	ErrPriority = errors.New("kernel: priority reserved to the idle thread")
)

// ThreadFunc is the body of a thread. Returning from it exits the thread
// with the returned message.
type ThreadFunc func(k *Kernel, arg any) Msg

// ThreadConfig describes a thread to create.
type ThreadConfig struct {
	Name     string
	Priority Priority
	// StackSize is used when Stack is nil; 0 selects Config.StackSize.
	StackSize int
	Stack     []byte
	Entry     ThreadFunc
	Arg       any
}

// CreateThread creates a thread and makes it ready. If it has a higher
// priority than the caller it runs before CreateThread returns.
func (k *Kernel) CreateThread(tc ThreadConfig) (ThreadID, error) {
	cs := k.Lock()
	id, err := k.CreateThreadI(cs, tc)
	if err == nil {
		k.RescheduleS(cs)
	}
	k.Unlock(cs)
	return id, err
}

// CreateThreadI creates a thread and makes it ready without rescheduling.
// The stack is allocated from the core allocator unless provided; running
// out of core memory halts the kernel.
func (k *Kernel) CreateThreadI(cs Section, tc ThreadConfig) (ThreadID, error) {
	k.checkClassI(cs)
	if tc.Entry == nil {
		return NoThread, ErrNoEntry
	}
	if tc.Priority == 0 {
		tc.Priority = NormalPriority
	}
	if tc.Priority == IdlePriority {
		return NoThread, ErrPriority
	}
	id := k.freeSlot()
	if id == NoThread {
		return NoThread, ErrNoSlot
	}
	if tc.Name == "" {
		tc.Name = fmt.Sprintf("thread%d", id)
	}

	t := &k.threads[id]
	stack := tc.Stack
	if stack == nil {
		size := tc.StackSize
		if size <= 0 {
			size = k.cfg.StackSize
		}
		if cap(t.stack) >= size {
			stack = t.stack[:size]
		} else {
			stack = k.allocStack(size, tc.Name)
		}
	}
	*t = tcb{
		state: StateSuspended,
		prio:  tc.Priority,
		name:  tc.Name,
		stack: stack,
		entry: tc.Entry,
		arg:   tc.Arg,
	}
	t.ctx = k.port.Setup(stack, k.trampoline(id))
	k.readyI(cs, id, MsgOK)
	k.logf("kernel: created %s id=%d prio=%d stack=%d", t.name, id, t.prio, len(stack))
	return id, nil
}

func (k *Kernel) freeSlot() ThreadID {
	for i := range k.threads {
		id := ThreadID(i)
		if id == k.main || id == k.idle {
			continue
		}
		if k.threads[i].state == StateFree {
			return id
		}
	}
	return NoThread
}

func (k *Kernel) allocStack(size int, name string) []byte {
	stack, err := k.core.Alloc(size, stackAlign)
	if err != nil {
		k.Halt(fmt.Sprintf("stack allocation for %s failed: %v", name, err))
	}
	return stack
}

// trampoline returns the first code a new thread runs. It is entered with
// the kernel locked by the thread that switched to it.
func (k *Kernel) trampoline(id ThreadID) func() {
	return func() {
		t := &k.threads[id]
		entry, arg := t.entry, t.arg
		k.Unlock(Section{k: k, kind: sectionThread})
		k.Exit(entry(k, arg))
	}
}

// Exit terminates the calling thread with msg. It does not return.
func (k *Kernel) Exit(msg Msg) {
	cs := k.Lock()
	k.ExitS(cs, msg)
	k.Unlock(cs)
}

// ExitS terminates the calling thread with msg, waking a thread blocked in
// Join. A detached thread's slot is freed at once unless a joiner is
// queued, which then frees it.
func (k *Kernel) ExitS(cs Section, msg Msg) {
	k.checkClassS(cs)
	id := k.current
	if id == k.idle {
		k.Halt("idle thread exit")
	}
	t := &k.threads[id]
	t.msg = msg
	t.state = StateFinal
	for !t.joiner.empty() {
		k.readyI(cs, k.dequeueWait(&t.joiner), msg)
	}
	k.logf("kernel: %s exited with %v", t.name, msg)
	if t.detached && !t.joined {
		k.freeThread(id)
	}
	k.switchTo(id, k.pickNext(), true)
}

// Join waits for a thread to exit and returns its exit message. The slot of
// the thread is reused only after it has been joined or released.
func (k *Kernel) Join(id ThreadID) Msg {
	cs := k.Lock()
	defer k.Unlock(cs)
	k.checkThread(id)
	t := &k.threads[id]
	if checks {
		if id == k.current {
			k.Halt("thread joining itself")
		}
		if t.detached || t.joined {
			k.Halt("join of a released or already joined thread")
		}
	}
	t.joined = true
	if t.state != StateFinal {
		k.enqueueWait(&t.joiner, nil)
		k.goSleepS(cs, StateWaitingExit)
	}
	msg := t.msg
	k.freeThread(id)
	return msg
}

// Release detaches a thread: nothing will join it and its slot is freed when
// it exits. Releasing a thread that is already being joined leaves the slot
// to the joiner.
func (k *Kernel) Release(id ThreadID) {
	cs := k.Lock()
	defer k.Unlock(cs)
	k.checkThread(id)
	t := &k.threads[id]
	if t.joined {
		return
	}
	if t.state == StateFinal {
		k.freeThread(id)
		return
	}
	t.detached = true
}

func (k *Kernel) freeThread(id ThreadID) {
	t := &k.threads[id]
	*t = tcb{stack: t.stack}
}

func (k *Kernel) checkThread(id ThreadID) {
	if int(id) < 0 || int(id) >= len(k.threads) || k.threads[id].state == StateFree {
		k.Halt(fmt.Sprintf("invalid thread %d", id))
	}
}

// SleepS suspends the caller for d ticks. Immediate returns at once and
// Infinite parks the caller in StateSuspended for good.
func (k *Kernel) SleepS(cs Section, d Interval) {
	k.checkClassS(cs)
	switch d {
	case Immediate:
		return
	case Infinite:
		k.goSleepS(cs, StateSuspended)
		return
	}
	k.goSleepTimeoutS(cs, StateSleeping, d)
}

// Sleep suspends the caller for d ticks.
func (k *Kernel) Sleep(d Interval) {
	cs := k.Lock()
	k.SleepS(cs, d)
	k.Unlock(cs)
}

// SleepUntil suspends the caller until the system time reaches t. A time in
// the past returns at once.
func (k *Kernel) SleepUntil(t Systime) {
	cs := k.Lock()
	if d := int32(t - k.Now()); d > 0 {
		k.SleepS(cs, Interval(d))
	}
	k.Unlock(cs)
}

// Priority returns the priority of a thread.
func (k *Kernel) Priority(id ThreadID) Priority {
	cs := k.Lock()
	defer k.Unlock(cs)
	k.checkThread(id)
	return k.threads[id].prio
}

// SetPriority changes the priority of the caller and returns the old one.
func (k *Kernel) SetPriority(p Priority) Priority {
	cs := k.Lock()
	defer k.Unlock(cs)
	if checks && p <= IdlePriority {
		k.Halt("SetPriority: priority reserved to the idle thread")
	}
	t := &k.threads[k.current]
	old := t.prio
	t.prio = p
	k.RescheduleS(cs)
	return old
}

// ThreadRef holds at most one thread suspended on it. The zero value is
// empty.
type ThreadRef struct {
	t ref
}

func (r *ThreadRef) cancelWait(*Kernel, ThreadID) {
	r.t = nilRef
}

// SuspendTimeoutS suspends the caller on r for at most timeout ticks. It
// returns the message passed to ResumeI, or MsgTimeout.
func (k *Kernel) SuspendTimeoutS(cs Section, r *ThreadRef, timeout Interval) Msg {
	k.checkClassS(cs)
	if checks && r.t != nilRef {
		k.Halt("thread reference already in use")
	}
	if timeout == Immediate {
		return MsgTimeout
	}
	r.t = refOf(int(k.current))
	k.threads[k.current].wobj = r
	return k.goSleepTimeoutS(cs, StateSuspended, timeout)
}

// ResumeI readies the thread suspended on r with msg. It is a no-op when r
// is empty.
func (k *Kernel) ResumeI(cs Section, r *ThreadRef, msg Msg) {
	k.checkClassI(cs)
	if r.t == nilRef {
		return
	}
	id := ThreadID(r.t.index())
	r.t = nilRef
	k.readyI(cs, id, msg)
}

// Suspend is SuspendTimeoutS inside its own critical section.
func (k *Kernel) Suspend(r *ThreadRef, timeout Interval) Msg {
	cs := k.Lock()
	msg := k.SuspendTimeoutS(cs, r, timeout)
	k.Unlock(cs)
	return msg
}

// Resume is ResumeI from thread context.
func (k *Kernel) Resume(r *ThreadRef, msg Msg) {
	cs := k.Lock()
	k.ResumeI(cs, r, msg)
	k.RescheduleS(cs)
	k.Unlock(cs)
}
