package kernel

import "testing"

// The main thread runs at priority 10 so that A (5) and B (3) only run once
// it blocks.
func scenarioKernel(t *testing.T) (*Kernel, ThreadID, ThreadID) {
	t.Helper()
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	a := spawn(t, k, "A", 5)
	b := spawn(t, k, "B", 3)
	return k, a, b
}

func TestScenarioPickHighestPriority(t *testing.T) {
	k, a, b := scenarioKernel(t)
	if state(k, a) != StateReady || state(k, b) != StateReady {
		t.Fatalf("states = %v/%v, want ready/ready", state(k, a), state(k, b))
	}
	cs := k.Lock()
	next := k.pickNext()
	k.enqueueReady(next)
	k.Unlock(cs)
	if next != a {
		t.Fatalf("pickNext() = %d, want A (%d)", next, a)
	}
}

func TestScenarioWaitSignalFromISRReschedule(t *testing.T) {
	k, a, b := scenarioKernel(t)
	sem := k.NewSemaphore(0)

	var ref ThreadRef
	k.Suspend(&ref, Infinite) // main leaves the CPU
	if k.Self() != a {
		t.Fatalf("Self() = %d, want A", k.Self())
	}

	sem.Wait() // as A
	if state(k, a) != StateWaitingSemaphore {
		t.Fatalf("A state = %v, want wtsem", state(k, a))
	}
	if k.Self() != b {
		t.Fatalf("Self() = %d, want B", k.Self())
	}

	k.ISR(func(cs Section) { sem.SignalI(cs) })
	if state(k, a) != StateReady {
		t.Fatalf("A state = %v, want ready", state(k, a))
	}
	if k.Self() != b {
		t.Fatalf("ISR switched synchronously")
	}

	k.Reschedule()
	if k.Self() != a {
		t.Fatalf("Self() after Reschedule = %d, want A", k.Self())
	}
	if got := k.threads[a].msg; got != MsgOK {
		t.Fatalf("A wakeup = %v, want ok", got)
	}
	if state(k, b) != StateReady {
		t.Fatalf("B state = %v, want ready", state(k, b))
	}
	if got := sem.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
	checkIntegrity(t, k)
}

func TestScenarioSleepWakesOnTenthTick(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	x := spawn(t, k, "x", HighPriority)
	k.Sleep(10) // as x
	if state(k, x) != StateSleeping {
		t.Fatalf("state = %v, want sleeping", state(k, x))
	}
	for i := 1; i <= 9; i++ {
		k.Tick()
		if state(k, x) != StateSleeping {
			t.Fatalf("state after %d ticks = %v, want sleeping", i, state(k, x))
		}
	}
	k.Tick()
	if state(k, x) != StateReady {
		t.Fatalf("state after 10 ticks = %v, want ready", state(k, x))
	}
	if got := k.threads[x].msg; got != MsgTimeout {
		t.Fatalf("wakeup = %v, want timeout", got)
	}
	k.Reschedule()
	if k.Self() != x {
		t.Fatalf("Self() = %d, want x", k.Self())
	}
}

func TestScenarioSemaphoreFIFORegardlessOfPriority(t *testing.T) {
	k, _ := newTestKernel(t, Config{MainPriority: 10})
	sem := k.NewSemaphore(0)

	c := spawn(t, k, "C", 20) // runs at once
	sem.Wait()                // as C
	d := spawn(t, k, "D", 30) // main creates D, which runs
	sem.Wait()                // as D
	if k.Self() != 0 {
		t.Fatalf("Self() = %d, want main", k.Self())
	}
	if got := sem.Count(); got != -2 {
		t.Fatalf("Count() = %d, want -2", got)
	}

	sem.Signal()
	if state(k, c) != StateRunning || state(k, d) != StateWaitingSemaphore {
		t.Fatalf("after first signal C=%v D=%v, want running/wtsem", state(k, c), state(k, d))
	}
	sem.Signal() // as C
	if state(k, d) != StateRunning || state(k, c) != StateReady {
		t.Fatalf("after second signal C=%v D=%v, want ready/running", state(k, c), state(k, d))
	}
	if got := sem.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
	checkIntegrity(t, k)
}

func TestScenarioTimeoutRacesSignal(t *testing.T) {
	for _, signalFirst := range []bool{false, true} {
		k, _ := newTestKernel(t, Config{})
		sem := k.NewSemaphore(0)
		w := spawn(t, k, "w", HighPriority)
		sem.WaitTimeout(1) // as w

		k.ISR(func(cs Section) {
			if signalFirst {
				sem.SignalI(cs)
				k.TimerHandlerI(cs)
				return
			}
			k.TimerHandlerI(cs)
			sem.SignalI(cs)
		})

		msg := k.threads[w].msg
		cnt := sem.Count()
		switch {
		case msg == MsgOK && cnt == 0:
		case msg == MsgTimeout && cnt == 1:
		default:
			t.Fatalf("signalFirst=%v: msg=%v count=%d", signalFirst, msg, cnt)
		}
		if want := map[bool]Msg{true: MsgOK, false: MsgTimeout}[signalFirst]; msg != want {
			t.Fatalf("signalFirst=%v: msg=%v, want %v", signalFirst, msg, want)
		}
		if state(k, w) != StateRunning {
			t.Fatalf("w state = %v, want running", state(k, w))
		}
		checkIntegrity(t, k)
	}
}
