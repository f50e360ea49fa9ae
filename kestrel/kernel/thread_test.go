package kernel

import (
	"math/rand"
	"strings"
	"testing"
)

func TestReadyListPriorityOrder(t *testing.T) {
	k, _ := newTestKernel(t, Config{MaxThreads: 10, MainPriority: HighPriority})
	prios := []Priority{5, 9, 5, 2, 9, 7}
	ids := make([]ThreadID, len(prios))
	for i, p := range prios {
		ids[i] = spawn(t, k, "t", p)
	}
	want := []ThreadID{ids[1], ids[4], ids[5], ids[0], ids[2], ids[3], k.Idle()}
	got := readyOrder(k)
	if len(got) != len(want) {
		t.Fatalf("ready order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ready order = %v, want %v", got, want)
		}
	}
}

func TestPreemptedThreadGoesAheadOfEquals(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	b := spawn(t, k, "b", 10)
	spawn(t, k, "hi", 20) // preempts main
	if got := readyOrder(k); got[0] != 0 || got[1] != b {
		t.Fatalf("ready order = %v, want main ahead of b", got)
	}
}

func TestYieldGoesBehindEquals(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	b := spawn(t, k, "b", 10)
	k.Yield()
	if k.Self() != b {
		t.Fatalf("Self() = %d, want b", k.Self())
	}
	if got := readyOrder(k); got[0] != 0 {
		t.Fatalf("ready order = %v, want main first", got)
	}

	lo, _ := newTestKernel(t, Config{MainPriority: 10})
	spawn(t, lo, "lo", 5)
	lo.Yield()
	if lo.Self() != 0 {
		t.Fatalf("Yield() switched to a lower priority thread")
	}
}

func TestSetPriority(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	b := spawn(t, k, "b", 8)
	if old := k.SetPriority(5); old != 10 {
		t.Fatalf("SetPriority() = %d, want 10", old)
	}
	if k.Self() != b {
		t.Fatalf("Self() = %d, want b after lowering main", k.Self())
	}
	if got := k.Priority(0); got != 5 {
		t.Fatalf("Priority(main) = %d, want 5", got)
	}
}

func TestExitAndJoin(t *testing.T) {
	k, p := newTestKernel(t, Config{})
	x := spawn(t, k, "x", HighPriority)
	k.Exit(Msg(7)) // as x
	if p.discards != 1 {
		t.Fatalf("discards = %d, want 1", p.discards)
	}
	if state(k, x) != StateFinal {
		t.Fatalf("state = %v, want final", state(k, x))
	}
	if k.Self() != 0 {
		t.Fatalf("Self() = %d, want main", k.Self())
	}
	if msg := k.Join(x); msg != Msg(7) {
		t.Fatalf("Join() = %v, want 7", msg)
	}
	if state(k, x) != StateFree {
		t.Fatalf("state after join = %v, want free", state(k, x))
	}
	if y := spawn(t, k, "y", LowPriority); y != x {
		t.Fatalf("slot %d not reused, got %d", x, y)
	}
	checkIntegrity(t, k)
}

func TestJoinWaitsForExit(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	x := spawn(t, k, "x", 5)

	cs := k.Lock()
	k.enqueueWait(&k.threads[x].joiner, nil)
	k.goSleepS(cs, StateWaitingExit)
	k.Unlock(cs)
	if k.Self() != x || state(k, 0) != StateWaitingExit {
		t.Fatalf("Self() = %d main = %v, want x running and main wtexit", k.Self(), state(k, 0))
	}
	checkIntegrity(t, k)

	k.Exit(Msg(3)) // as x
	if k.Self() != 0 {
		t.Fatalf("Self() = %d, want main", k.Self())
	}
	if got := k.threads[0].msg; got != Msg(3) {
		t.Fatalf("main wakeup = %v, want 3", got)
	}
}

func TestReleaseFreesAtExit(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	x := spawn(t, k, "x", LowPriority)
	k.Release(x)
	k.Sleep(Infinite)
	if k.Self() != x {
		t.Fatalf("Self() = %d, want x", k.Self())
	}
	k.Exit(MsgOK)
	if state(k, x) != StateFree {
		t.Fatalf("state = %v, want free", state(k, x))
	}

	y := spawn(t, k, "y", HighPriority)
	k.Exit(MsgOK) // as y
	k.Release(y)
	if state(k, y) != StateFree {
		t.Fatalf("released final thread state = %v, want free", state(k, y))
	}
}

func TestInfiniteSleepParksSuspended(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	x := spawn(t, k, "x", HighPriority)
	k.Sleep(Infinite) // as x
	if state(k, x) != StateSuspended || k.timers[threadTimer(x)].armed {
		t.Fatalf("state = %v, want suspended without timer", state(k, x))
	}
	checkIntegrity(t, k)

	k.Sleep(5) // as main
	if state(k, 0) != StateSleeping {
		t.Fatalf("main state = %v, want sleeping", state(k, 0))
	}
	checkIntegrity(t, k)
}

func TestIntegrityRejectsSleepingWithoutTimer(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	x := spawn(t, k, "x", LowPriority)
	cs := k.Lock()
	k.unlinkThread(x)
	k.threads[x].state = StateSleeping
	k.Unlock(cs)
	if err := k.integrity(); err == nil {
		t.Fatalf("integrity() = nil, want error for sleeping thread without timer")
	}
}

func TestReadyRejectsNonWaitingThread(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	x := spawn(t, k, "x", HighPriority)
	k.Exit(Msg(1)) // as x
	herr := expectHalt(t, func() {
		cs := k.Lock()
		k.readyI(cs, x, MsgOK)
		k.Unlock(cs)
	})
	if !strings.Contains(herr.Reason, "in state") {
		t.Fatalf("halt reason = %q, want state violation", herr.Reason)
	}
}

func TestIdleExitHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	k.Sleep(Infinite)
	if k.Self() != k.Idle() {
		t.Fatalf("Self() = %d, want idle", k.Self())
	}
	expectHalt(t, func() { k.Exit(MsgOK) })
}

func TestSuspendResume(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	var r ThreadRef
	x := spawn(t, k, "x", HighPriority)
	k.Suspend(&r, Infinite) // as x
	if state(k, x) != StateSuspended {
		t.Fatalf("state = %v, want suspended", state(k, x))
	}
	k.Resume(&r, Msg(9))
	if k.Self() != x || k.threads[x].msg != Msg(9) {
		t.Fatalf("Self() = %d msg = %v, want x with 9", k.Self(), k.threads[x].msg)
	}
	k.Resume(&r, Msg(1)) // empty reference
}

func TestSuspendTimeoutClearsReference(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	var r ThreadRef
	x := spawn(t, k, "x", HighPriority)
	k.Suspend(&r, 1)
	k.Tick()
	if k.threads[x].msg != MsgTimeout || r.t != nilRef {
		t.Fatalf("msg = %v ref = %d, want timeout and empty ref", k.threads[x].msg, r.t)
	}
}

func TestThreadQueue(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	var q ThreadQueue
	enqueue := func(timeout Interval) {
		cs := k.Lock()
		q.EnqueueTimeoutS(cs, timeout)
		k.Unlock(cs)
	}
	a := spawn(t, k, "a", 20)
	enqueue(Infinite)
	b := spawn(t, k, "b", 20)
	enqueue(5)

	cs := k.Lock()
	if q.EmptyI(cs) {
		t.Fatalf("EmptyI() = true, want false")
	}
	if msg := q.EnqueueTimeoutS(cs, Immediate); msg != MsgTimeout {
		t.Fatalf("EnqueueTimeoutS(Immediate) = %v, want timeout", msg)
	}
	q.DequeueNextI(cs, Msg(1))
	if state(k, a) != StateReady || state(k, b) != StateWaitingQueue {
		t.Fatalf("a=%v b=%v, want ready/wtqueue", state(k, a), state(k, b))
	}
	q.DequeueAllI(cs, Msg(2))
	if !q.EmptyI(cs) {
		t.Fatalf("EmptyI() = false, want true")
	}
	if k.IsArmedI(cs, threadTimer(b)) {
		t.Fatalf("b timer still armed after dequeue")
	}
	k.Unlock(cs)
	if k.threads[a].msg != Msg(1) || k.threads[b].msg != Msg(2) {
		t.Fatalf("messages = %v/%v, want 1/2", k.threads[a].msg, k.threads[b].msg)
	}
}

func TestEvents(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	x := spawn(t, k, "x", HighPriority)
	k.WaitAnyEvents(0x6) // as x
	if state(k, x) != StateWaitingEvents {
		t.Fatalf("state = %v, want wtevt", state(k, x))
	}
	k.SignalEvents(x, 0x1)
	if state(k, x) != StateWaitingEvents {
		t.Fatalf("unrelated event woke the thread")
	}
	k.SignalEvents(x, 0x4)
	if k.Self() != x {
		t.Fatalf("Self() = %d, want x", k.Self())
	}
	if got := k.WaitAnyEventsTimeout(AllEvents, Immediate); got != 0x5 {
		t.Fatalf("WaitAnyEventsTimeout() = %#x, want 0x5", got)
	}
	if got := k.WaitAnyEventsTimeout(AllEvents, Immediate); got != 0 {
		t.Fatalf("WaitAnyEventsTimeout() = %#x, want 0", got)
	}
}

// Every thread is in exactly the container its state names after any
// sequence of kernel operations.
func TestRandomOperationsKeepIntegrity(t *testing.T) {
	k, _ := newTestKernel(t, Config{MaxThreads: 10, Timers: 4})
	rng := rand.New(rand.NewSource(42))
	sems := []*Semaphore{k.NewSemaphore(0), k.NewSemaphore(1)}
	var q ThreadQueue
	var r ThreadRef
	timeout := func() Interval {
		if rng.Intn(3) == 0 {
			return Infinite
		}
		return Interval(1 + rng.Intn(6))
	}

	for i := 0; i < 2000; i++ {
		self := k.Self()
		running := self != k.Idle()
		switch op := rng.Intn(12); {
		case op == 0:
			if id := k.freeSlot(); id != NoThread {
				id := spawn(t, k, "r", Priority(2+rng.Intn(60)))
				k.Release(id)
			}
		case op == 1 && running:
			sems[rng.Intn(2)].WaitTimeout(timeout())
		case op == 2 && running:
			sems[rng.Intn(2)].Signal()
		case op == 3:
			s := sems[rng.Intn(2)]
			k.ISR(func(cs Section) { s.SignalI(cs) })
		case op == 4 || op == 5:
			k.Tick()
		case op == 6 && running:
			k.Sleep(Interval(rng.Intn(5)))
		case op == 7 && running:
			k.Yield()
		case op == 8 && running:
			cs := k.Lock()
			q.EnqueueTimeoutS(cs, timeout())
			k.Unlock(cs)
		case op == 9:
			k.ISR(func(cs Section) { q.DequeueAllI(cs, MsgOK) })
		case op == 10 && running && self != 0:
			k.Exit(MsgOK)
		case op == 11 && running:
			if r.t == nilRef {
				k.Suspend(&r, timeout())
			} else {
				k.Resume(&r, MsgOK)
			}
		default:
			k.Reschedule()
		}

		cs := k.Lock()
		if err := k.integrity(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		for j, s := range sems {
			n := s.waiters.len(k.tlinks)
			if (s.cnt >= 0 && n != 0) || (s.cnt < 0 && n != int(-s.cnt)) {
				t.Fatalf("step %d: semaphore %d count %d with %d waiters", i, j, s.cnt, n)
			}
		}
		k.Unlock(cs)
	}
}
