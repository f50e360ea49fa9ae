package kernel

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"kestrel/kestrel/memcore"
)

const (
	defaultMaxThreads  = 16
	defaultTimers      = 8
	defaultStackSize   = 1024
	defaultIdleStack   = 256
	defaultCoreSize    = 32 * 1024
	stackAlign         = 8
	minRegistryEntries = 2
)

var (
	// ErrNoSlot is returned when the thread registry is full.
	ErrNoSlot = errors.New("kernel: no free thread slot")
	// ErrNoTimer is returned when every virtual timer slot is in use.
	ErrNoTimer = errors.New("kernel: no free virtual timer")
)

// Config selects the kernel build. Zero fields take defaults.
type Config struct {
	// MaxThreads is the registry size, main and idle threads included.
	MaxThreads int
	// Timers is the number of virtual timers available through NewTimer.
	Timers int
	// MainPriority is the priority of the thread calling Init.
	MainPriority Priority
	// MainName names the thread calling Init.
	MainName string
	// StackSize is the stack size of threads created without one.
	StackSize int
	// IdleStackSize is the stack size of the idle thread.
	IdleStackSize int
	// Core supplies thread stacks. If nil a memcore arena of CoreSize bytes
	// is used.
	Core     Allocator
	CoreSize int
	// Stats enables the statistics counters and critical zone measurements.
	Stats bool
	// TraceSize is the number of entries in the scheduler trace ring; 0
	// disables tracing.
	TraceSize int
	// Logger receives halt reasons and, when Verbose, thread lifecycle lines.
	Logger  Logger
	Verbose bool
	// OnHalt runs once, on the first halt.
	OnHalt func(HaltInfo)
}

func (c *Config) setDefaults() {
	if c.MaxThreads <= 0 {
		c.MaxThreads = defaultMaxThreads
	}
	if c.MaxThreads < minRegistryEntries {
		c.MaxThreads = minRegistryEntries
	}
	if c.Timers < 0 {
		c.Timers = 0
	} else if c.Timers == 0 {
		c.Timers = defaultTimers
	}
	if c.MainPriority == 0 {
		c.MainPriority = NormalPriority
	}
	if c.MainName == "" {
		c.MainName = "main"
	}
	if c.StackSize <= 0 {
		c.StackSize = defaultStackSize
	}
	if c.IdleStackSize <= 0 {
		c.IdleStackSize = defaultIdleStack
	}
	if c.CoreSize <= 0 {
		c.CoreSize = defaultCoreSize
	}
}

// tcb is a thread control block.
type tcb struct {
	state State
	prio  Priority
	name  string
	ctx   any
	stack []byte

	entry func(*Kernel, any) Msg
	arg   any
	msg   Msg

	// owner is the thread list holding this thread, wobj the wait object that
	// must be fixed up if the wait times out.
	owner *list
	wobj  waitObject

	joiner   list
	detached bool
	joined   bool

	epending EventMask
	ewmask   EventMask

	switches uint64
	runTime  uint64
}

// Kernel is the state of one RT kernel instance: thread registry, ready
// list, virtual timer list, statistics.
type Kernel struct {
	cfg  Config
	port Port
	core Allocator
	log  Logger

	threads []tcb
	tlinks  []link
	ready   list
	current ThreadID
	main    ThreadID
	idle    ThreadID

	timers    []vtimer
	vlinks    []link
	vtlist    list
	nextTimer int
	onTimeout TimerFunc
	systime   atomic.Uint32

	cs       atomic.Uint32
	isrDepth atomic.Int32
	pending  atomic.Bool
	started  bool

	stats     kstats
	critStart [2]uint64
	runStart  uint64

	trace     []TraceEvent
	traceNext int
	traceFull bool

	haltOnce sync.Once
	halted   atomic.Bool
}

// New creates a kernel instance on top of port. The caller becomes the main
// thread when it calls Init.
func New(cfg Config, port Port) *Kernel {
	cfg.setDefaults()
	k := &Kernel{
		cfg:       cfg,
		port:      port,
		core:      cfg.Core,
		log:       cfg.Logger,
		threads:   make([]tcb, cfg.MaxThreads),
		tlinks:    make([]link, cfg.MaxThreads),
		timers:    make([]vtimer, cfg.MaxThreads+cfg.Timers),
		vlinks:    make([]link, cfg.MaxThreads+cfg.Timers),
		current:   NoThread,
		main:      0,
		idle:      ThreadID(cfg.MaxThreads - 1),
		nextTimer: cfg.MaxThreads,
	}
	k.onTimeout = k.threadTimeout
	if k.core == nil {
		k.core = memcore.New(cfg.CoreSize)
	}
	if cfg.TraceSize > 0 {
		k.trace = make([]TraceEvent, cfg.TraceSize)
	}
	k.stats.reset()
	return k
}

// Init turns the caller into the main thread, creates the idle thread and
// starts scheduling.
func (k *Kernel) Init() {
	cs := k.Lock()
	if k.started {
		k.Halt("kernel initialized twice")
	}

	m := &k.threads[k.main]
	m.state = StateRunning
	m.prio = k.cfg.MainPriority
	m.name = k.cfg.MainName
	m.ctx = k.port.Bootstrap()
	k.current = k.main

	idle := &k.threads[k.idle]
	stack := k.allocStack(k.cfg.IdleStackSize, "idle")
	idle.prio = IdlePriority
	idle.name = "idle"
	idle.stack = stack
	idle.entry = k.idleLoop
	idle.state = StateSuspended
	idle.ctx = k.port.Setup(stack, k.trampoline(k.idle))
	k.readyI(cs, k.idle, MsgOK)

	k.runStart = k.port.Counter()
	k.started = true
	k.Unlock(cs)
}

// idleLoop runs when no other thread is ready. Entering the kernel is enough
// to honour a preemption requested by an interrupt.
func (k *Kernel) idleLoop(_ *Kernel, _ any) Msg {
	for {
		k.port.WaitForInterrupt()
		cs := k.Lock()
		k.Unlock(cs)
	}
}

// Now returns the system time in ticks.
func (k *Kernel) Now() Systime {
	return Systime(k.systime.Load())
}

// Self returns the running thread.
func (k *Kernel) Self() ThreadID {
	return k.current
}

// Idle returns the idle thread.
func (k *Kernel) Idle() ThreadID {
	return k.idle
}

func (k *Kernel) logf(format string, args ...any) {
	if k.log == nil || !k.cfg.Verbose {
		return
	}
	k.log.WriteLineString(fmt.Sprintf(format, args...))
}
