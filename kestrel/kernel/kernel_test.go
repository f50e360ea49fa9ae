package kernel

import (
	"errors"
	"testing"

	"kestrel/kestrel/memcore"
)

// recordingPort never runs threads: a switch only moves the kernel's notion
// of the running thread, and the test goroutine then acts as that thread.
type recordingPort struct {
	switches   int
	discards   int
	interrupts int
	counter    uint64
}

type recordingCtx struct {
	stack []byte
}

func (p *recordingPort) Lock()          {}
func (p *recordingPort) Unlock()        {}
func (p *recordingPort) Bootstrap() any { return &recordingCtx{} }

func (p *recordingPort) Setup(stack []byte, _ func()) any {
	return &recordingCtx{stack: stack}
}

func (p *recordingPort) Switch(from, _ any) {
	p.switches++
	if from == nil {
		p.discards++
	}
}

func (p *recordingPort) WaitForInterrupt() {}
func (p *recordingPort) Interrupt()        { p.interrupts++ }

func (p *recordingPort) Counter() uint64 {
	p.counter++
	return p.counter
}

func newTestKernel(t *testing.T, cfg Config) (*Kernel, *recordingPort) {
	t.Helper()
	p := &recordingPort{}
	k := New(cfg, p)
	k.Init()
	return k, p
}

func noop(_ *Kernel, _ any) Msg { return MsgOK }

func spawn(t *testing.T, k *Kernel, name string, prio Priority) ThreadID {
	t.Helper()
	id, err := k.CreateThread(ThreadConfig{Name: name, Priority: prio, StackSize: 64, Entry: noop})
	if err != nil {
		t.Fatalf("CreateThread(%s) error = %v", name, err)
	}
	return id
}

func expectHalt(t *testing.T, fn func()) *HaltError {
	t.Helper()
	var herr *HaltError
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok || !errors.As(err, &herr) {
				panic(r)
			}
		}()
		fn()
	}()
	if herr == nil {
		t.Fatalf("expected kernel halt")
	}
	return herr
}

func readyOrder(k *Kernel) []ThreadID {
	var ids []ThreadID
	for it := k.ready.head; it != nilRef; it = k.tlinks[it.index()].next {
		ids = append(ids, ThreadID(it.index()))
	}
	return ids
}

func checkIntegrity(t *testing.T, k *Kernel) {
	t.Helper()
	cs := k.Lock()
	err := k.integrity()
	k.Unlock(cs)
	if err != nil {
		t.Fatalf("integrity() = %v", err)
	}
}

func state(k *Kernel, id ThreadID) State { return k.threads[id].state }

func TestInitMainAndIdle(t *testing.T) {
	k, _ := newTestKernel(t, Config{MaxThreads: 4})

	if got := k.Self(); got != 0 {
		t.Fatalf("Self() = %d, want 0", got)
	}
	threads := k.Threads()
	if len(threads) != 2 {
		t.Fatalf("Threads() len = %d, want 2", len(threads))
	}
	if threads[0].Name != "main" || threads[0].State != StateRunning || threads[0].Priority != NormalPriority {
		t.Fatalf("main = %+v", threads[0])
	}
	if threads[1].ID != k.Idle() || threads[1].State != StateReady || threads[1].Priority != IdlePriority {
		t.Fatalf("idle = %+v", threads[1])
	}
	checkIntegrity(t, k)
}

func TestInitTwiceHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	herr := expectHalt(t, k.Init)
	if herr.Reason != "kernel initialized twice" {
		t.Fatalf("Reason = %q", herr.Reason)
	}
}

func TestKernelsAreIndependent(t *testing.T) {
	a, _ := newTestKernel(t, Config{MaxThreads: 4})
	b, _ := newTestKernel(t, Config{MaxThreads: 4})
	spawn(t, a, "x", LowPriority)
	a.Tick()
	a.Tick()
	if got := len(b.Threads()); got != 2 {
		t.Fatalf("b.Threads() len = %d, want 2", got)
	}
	if got := b.Now(); got != 0 {
		t.Fatalf("b.Now() = %d, want 0", got)
	}
	if got := a.Now(); got != 2 {
		t.Fatalf("a.Now() = %d, want 2", got)
	}
}

func TestNestedLockHalts(t *testing.T) {
	var hooked []HaltInfo
	k, _ := newTestKernel(t, Config{OnHalt: func(h HaltInfo) { hooked = append(hooked, h) }})
	k.Lock()
	herr := expectHalt(t, func() { k.Lock() })
	if herr.Reason != "nested lock" {
		t.Fatalf("Reason = %q, want nested lock", herr.Reason)
	}
	if !k.Halted() {
		t.Fatalf("Halted() = false, want true")
	}
	expectHalt(t, func() { k.Halt("again") })
	if len(hooked) != 1 || hooked[0].Reason != "nested lock" || hooked[0].Name != "main" {
		t.Fatalf("OnHalt calls = %+v, want one for nested lock", hooked)
	}
}

func TestWrongUnlockHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	cs := k.Lock()
	expectHalt(t, func() { k.UnlockFromISR(cs) })
}

func TestLockFromISROutsideInterruptHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	expectHalt(t, func() { k.LockFromISR() })
}

func TestIClassOutsideSectionHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	s := k.NewSemaphore(0)
	expectHalt(t, func() { s.SignalI(Section{k: k, kind: sectionThread}) })
}

func TestSClassFromISRHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	s := k.NewSemaphore(0)
	expectHalt(t, func() {
		k.ISR(func(cs Section) { s.WaitTimeoutS(cs, Infinite) })
	})
}

func TestUnconditionalLock(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	k.UnconditionalLock()
	k.UnconditionalLock()
	if got := sectionKind(k.cs.Load()); got != sectionThread {
		t.Fatalf("section = %d, want thread", got)
	}
	k.UnconditionalUnlock()
	k.UnconditionalUnlock()
	if got := sectionKind(k.cs.Load()); got != sectionNone {
		t.Fatalf("section = %d, want none", got)
	}
}

func TestStackAllocationFailureHalts(t *testing.T) {
	k, _ := newTestKernel(t, Config{Core: memcore.New(512), IdleStackSize: 256})
	herr := expectHalt(t, func() {
		k.CreateThread(ThreadConfig{Name: "big", StackSize: 4096, Entry: noop})
	})
	if herr.Error() == "" {
		t.Fatalf("Error() empty")
	}
}

func TestRegistryFull(t *testing.T) {
	k, _ := newTestKernel(t, Config{MaxThreads: 4})
	spawn(t, k, "a", LowPriority)
	spawn(t, k, "b", LowPriority)
	if _, err := k.CreateThread(ThreadConfig{Entry: noop, Priority: LowPriority}); !errors.Is(err, ErrNoSlot) {
		t.Fatalf("CreateThread() error = %v, want ErrNoSlot", err)
	}
}

func TestCreateThreadErrors(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	if _, err := k.CreateThread(ThreadConfig{}); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("CreateThread() error = %v, want ErrNoEntry", err)
	}
	if _, err := k.CreateThread(ThreadConfig{Entry: noop, Priority: IdlePriority}); !errors.Is(err, ErrPriority) {
		t.Fatalf("CreateThread() error = %v, want ErrPriority", err)
	}
}

func TestCreateThreadUsesProvidedStack(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	stack := make([]byte, 100)
	id, err := k.CreateThread(ThreadConfig{Entry: noop, Stack: stack, Priority: LowPriority})
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if got := &k.threads[id].stack[0]; got != &stack[0] {
		t.Fatalf("stack not used")
	}
}

func TestStatsCounters(t *testing.T) {
	k, _ := newTestKernel(t, Config{Stats: true})
	k.Tick()
	k.Tick()
	spawn(t, k, "hi", HighPriority)

	st := k.Stats()
	if st.IRQ != 2 {
		t.Fatalf("IRQ = %d, want 2", st.IRQ)
	}
	if st.ContextSwitches != 1 {
		t.Fatalf("ContextSwitches = %d, want 1", st.ContextSwitches)
	}
	if st.CritISR.N != 2 || st.CritThread.N == 0 {
		t.Fatalf("crit measurements = %+v / %+v", st.CritThread, st.CritISR)
	}
	if st.CritISR.Best > st.CritISR.Worst || st.CritISR.Average() == 0 {
		t.Fatalf("CritISR = %+v", st.CritISR)
	}
}

func TestStatsDisabled(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	k.Tick()
	spawn(t, k, "hi", HighPriority)
	if st := k.Stats(); st != (Stats{}) {
		t.Fatalf("Stats() = %+v, want zero", st)
	}
}

func TestTraceRing(t *testing.T) {
	k, _ := newTestKernel(t, Config{TraceSize: 3})
	a := spawn(t, k, "a", HighPriority)

	tr := k.Trace()
	if len(tr) != 3 {
		t.Fatalf("Trace() len = %d, want 3", len(tr))
	}
	last := tr[len(tr)-1]
	if last.Kind != TraceSwitch || last.From != 0 || last.To != a {
		t.Fatalf("last event = %+v, want switch main -> a", last)
	}
	if tr[1].Kind != TraceReady || tr[1].To != a {
		t.Fatalf("event = %+v, want ready a", tr[1])
	}
}

func TestPerThreadAccounting(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	a := spawn(t, k, "a", HighPriority)
	k.Sleep(5)
	for _, ti := range k.Threads() {
		if ti.ID == a && ti.Switches != 1 {
			t.Fatalf("a switches = %d, want 1", ti.Switches)
		}
		if ti.ID == 0 && ti.RunTime == 0 {
			t.Fatalf("main run time = 0")
		}
	}
}
