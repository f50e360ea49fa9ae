package app

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"kestrel/hal"
	"kestrel/internal/buildinfo"
	"kestrel/kestrel/kernel"
	"kestrel/kestrel/mbox"
	"kestrel/kestrel/memcore"
	"kestrel/kestrel/monitor"
	"kestrel/kestrel/port"
)

// ErrHalted is returned by the step function once the kernel has halted.
var ErrHalted = errors.New("app: kernel halted")

const evtTelemetry kernel.EventMask = 1 << 0

// Command opcodes, the first payload byte of a KindCommand message. The
// operand is a little-endian uint32.
const (
	// CmdTrim sets a signed offset added to every sensor sample.
	CmdTrim byte = iota + 1
	// CmdHeartbeat sets the LED half period in ticks.
	CmdHeartbeat
)

// coreArena backs thread stacks on the board, where Run boots once.
var coreArena [16 << 10]byte

// Config selects the demo workload. Zero fields take defaults.
type Config struct {
	Kernel kernel.Config
	// SampleEvery is the sensor sampling period in ticks.
	SampleEvery kernel.Interval
	// Heartbeat is the LED half period in ticks.
	Heartbeat kernel.Interval
	// MonitorEvery is the status screen refresh period in ticks.
	MonitorEvery kernel.Interval
	// TelemetryEvery is the number of control iterations between telemetry
	// events.
	TelemetryEvery uint32
	// Mailbox is the depth of the sample mailbox.
	Mailbox int
}

func (c *Config) setDefaults() {
	if c.SampleEvery == 0 {
		c.SampleEvery = 2
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = 500
	}
	if c.MonitorEvery == 0 {
		c.MonitorEvery = 250
	}
	if c.TelemetryEvery == 0 {
		c.TelemetryEvery = 100
	}
	if c.Mailbox <= 0 {
		c.Mailbox = 4
	}
	if c.Kernel.MainName == "" {
		c.Kernel.MainName = "monitor"
	}
	if c.Kernel.MainPriority == 0 {
		c.Kernel.MainPriority = kernel.LowPriority
	}
	if c.Kernel.TraceSize == 0 {
		c.Kernel.TraceSize = 256
	}
	c.Kernel.Stats = true
}

// Counters are the demo workload counters.
type Counters struct {
	Samples   uint64
	Overruns  uint64
	Loops     uint64
	Misses    uint64
	Telemetry uint64
	Commands  uint64
	Output    int32
}

// System is a booted kernel running the demo flight workload: a sensor
// timer posting samples, a control loop consuming them, a telemetry thread
// and the status monitor on the main thread.
type System struct {
	h   hal.HAL
	cfg Config
	k   *kernel.Kernel

	screen   *monitor.Screen
	samples  *mbox.Mailbox
	commands *mbox.Mailbox

	control   kernel.ThreadID
	telemetry kernel.ThreadID

	sensorTimer kernel.TimerID
	heartTimer  kernel.TimerID
	sampleFn    kernel.TimerFunc
	heartFn     kernel.TimerFunc

	// Owned by timer callbacks.
	seq       uint32
	ledOn     bool
	trim      int32
	heartbeat kernel.Interval

	nSamples   atomic.Uint64
	nOverruns  atomic.Uint64
	nLoops     atomic.Uint64
	nMisses    atomic.Uint64
	nTelemetry atomic.Uint64
	nCommands  atomic.Uint64
	output     atomic.Int32

	last  atomic.Pointer[monitor.Snapshot]
	trace atomic.Pointer[[]kernel.TraceEvent]
	halt  atomic.Pointer[kernel.HaltInfo]
}

// New boots the kernel on its own goroutine and returns once the demo
// threads and timers are running.
func New(h hal.HAL, cfg Config) (*System, error) {
	cfg.setDefaults()
	s := &System{h: h, cfg: cfg, heartbeat: cfg.Heartbeat}
	s.sampleFn = s.sampleI
	s.heartFn = s.heartbeatI

	kcfg := cfg.Kernel
	if l := h.Logger(); l != nil && kcfg.Logger == nil {
		kcfg.Logger = l
	}
	kcfg.OnHalt = s.onHalt
	s.k = kernel.New(kcfg, port.New())

	if d := h.Display(); d != nil {
		if fb := d.Framebuffer(); fb != nil {
			s.screen = monitor.NewScreen(fb, "Kestrel "+buildinfo.Short())
		}
	}

	booted := make(chan error, 1)
	go s.mainThread(booted)
	if err := <-booted; err != nil {
		return nil, err
	}

	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for range ch {
					if s.k.Halted() {
						return
					}
					s.k.Tick()
				}
			}()
		}
	}
	return s, nil
}

// Run boots the system with its stacks in a static arena and blocks forever
// (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	var cfg Config
	cfg.Kernel.Core = memcore.NewFromBuffer(coreArena[:])
	if _, err := New(h, cfg); err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("kestrel: boot: " + err.Error())
		}
	}
	select {}
}

// Kernel returns the running kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Step is the host runner hook. It fails once the kernel has halted.
func (s *System) Step() error {
	if info := s.halt.Load(); info != nil {
		return fmt.Errorf("%w: %s", ErrHalted, info.Reason)
	}
	return nil
}

// Counters returns the demo workload counters.
func (s *System) Counters() Counters {
	return Counters{
		Samples:   s.nSamples.Load(),
		Overruns:  s.nOverruns.Load(),
		Loops:     s.nLoops.Load(),
		Misses:    s.nMisses.Load(),
		Telemetry: s.nTelemetry.Load(),
		Commands:  s.nCommands.Load(),
		Output:    s.output.Load(),
	}
}

// Snapshot returns the kernel state and scheduler trace. After a halt the
// kernel may be left locked, so the last state seen by the monitor is
// returned instead.
func (s *System) Snapshot() (monitor.Snapshot, []kernel.TraceEvent) {
	if s.k.Halted() {
		var snap monitor.Snapshot
		var trace []kernel.TraceEvent
		if p := s.last.Load(); p != nil {
			snap = *p
		}
		if p := s.trace.Load(); p != nil {
			trace = *p
		}
		snap.Halted = true
		return snap, trace
	}
	return monitor.Capture(s.k), s.k.Trace()
}

func (s *System) mainThread(booted chan<- error) {
	k := s.k
	k.Init()

	s.samples = mbox.New(k, s.cfg.Mailbox)
	s.commands = mbox.New(k, 4)

	var err error
	if s.sensorTimer, err = k.NewTimer(); err != nil {
		booted <- err
		return
	}
	if s.heartTimer, err = k.NewTimer(); err != nil {
		booted <- err
		return
	}
	if s.telemetry, err = k.CreateThread(kernel.ThreadConfig{
		Name:     "telemetry",
		Priority: 64,
		Entry:    s.telemetryLoop,
	}); err != nil {
		booted <- err
		return
	}
	if s.control, err = k.CreateThread(kernel.ThreadConfig{
		Name:     "control",
		Priority: 200,
		Entry:    s.controlLoop,
	}); err != nil {
		booted <- err
		return
	}

	k.SetTimer(s.sensorTimer, s.cfg.SampleEvery, s.sampleFn, nil)
	k.SetTimer(s.heartTimer, s.cfg.Heartbeat, s.heartFn, nil)

	if l := s.h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf("kestrel %s: %d threads, sample every %d ticks", buildinfo.Long(), len(k.Threads()), s.cfg.SampleEvery))
	}
	booted <- nil

	s.monitorLoop()
}

// monitorLoop runs on the main thread at the lowest application priority.
func (s *System) monitorLoop() {
	for {
		s.k.Sleep(s.cfg.MonitorEvery)

		snap := monitor.Capture(s.k)
		trace := s.k.Trace()
		s.last.Store(&snap)
		s.trace.Store(&trace)

		if s.screen != nil {
			_ = s.screen.Draw(snap)
		}
	}
}

// Command posts a command the way a console receive interrupt would. It
// reports whether the command mailbox had room. Commands take effect at the
// next sensor sample.
func (s *System) Command(op byte, v uint32) bool {
	var m mbox.Message
	m.Kind = mbox.KindCommand
	m.From = kernel.NoThread
	var b [5]byte
	b[0] = op
	binary.LittleEndian.PutUint32(b[1:], v)
	m.SetPayload(b[:])

	s.k.EnterISR()
	ok := s.commands.PostFromISR(m)
	s.k.LeaveISR()
	return ok
}

func (s *System) commandsI(cs kernel.Section) {
	for {
		m, ok := s.commands.FetchI(cs)
		if !ok {
			return
		}
		p := m.Payload()
		if m.Kind != mbox.KindCommand || len(p) < 5 {
			continue
		}
		v := binary.LittleEndian.Uint32(p[1:])
		switch p[0] {
		case CmdTrim:
			s.trim = int32(v)
		case CmdHeartbeat:
			if v > 0 {
				s.heartbeat = kernel.Interval(v)
			}
		default:
			continue
		}
		s.nCommands.Add(1)
	}
}

// sampleI runs from the tick interrupt and feeds the control loop with a
// synthetic rate gyro reading.
func (s *System) sampleI(cs kernel.Section, _ any) {
	s.commandsI(cs)
	s.seq++
	var m mbox.Message
	m.Kind = mbox.KindSample
	m.From = kernel.NoThread
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:], s.seq)
	binary.LittleEndian.PutUint32(b[4:], uint32(triangle(s.seq)+s.trim))
	m.SetPayload(b[:])
	if s.samples.PostI(cs, m) == kernel.MsgOK {
		s.nSamples.Add(1)
	} else {
		s.nOverruns.Add(1)
	}
	s.k.SetTimerI(cs, s.sensorTimer, s.cfg.SampleEvery, s.sampleFn, nil)
}

func (s *System) heartbeatI(cs kernel.Section, _ any) {
	if led := s.h.LED(); led != nil {
		if s.ledOn {
			led.Low()
		} else {
			led.High()
		}
	}
	s.ledOn = !s.ledOn
	s.k.SetTimerI(cs, s.heartTimer, s.heartbeat, s.heartFn, nil)
}

// triangle is a +-1000 triangle wave with a period of 400 samples.
func triangle(n uint32) int32 {
	p := int32(n % 400)
	if p < 200 {
		return p*10 - 1000
	}
	return 1000 - (p-200)*10
}

// controlLoop is a PI rate controller driving the reading to zero. A missed
// sample is counted and the loop carries on.
func (s *System) controlLoop(k *kernel.Kernel, _ any) kernel.Msg {
	const kp, ki = 4, 1
	var integ int32
	for {
		m, rdy := s.samples.Fetch(s.cfg.SampleEvery * 4)
		if rdy != kernel.MsgOK {
			s.nMisses.Add(1)
			continue
		}
		p := m.Payload()
		if len(p) < 8 {
			continue
		}
		rate := int32(binary.LittleEndian.Uint32(p[4:]))
		integ += rate / 16
		integ = clamp(integ, -4000, 4000)
		s.output.Store(clamp(-(kp*rate+ki*integ)/4, -1000, 1000))

		if n := s.nLoops.Add(1); n%uint64(s.cfg.TelemetryEvery) == 0 {
			k.SignalEvents(s.telemetry, evtTelemetry)
		}
	}
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *System) telemetryLoop(k *kernel.Kernel, _ any) kernel.Msg {
	for {
		if k.WaitAnyEventsTimeout(evtTelemetry, 1000) == 0 {
			if l := s.h.Logger(); l != nil {
				l.WriteLineString("telemetry: control loop stalled")
			}
			continue
		}
		n := s.nTelemetry.Add(1)
		if n%10 != 0 {
			continue
		}
		if l := s.h.Logger(); l != nil {
			c := s.Counters()
			l.WriteLineString(fmt.Sprintf("telemetry: t=%d loops=%d misses=%d overruns=%d out=%d",
				k.Now(), c.Loops, c.Misses, c.Overruns, c.Output))
		}
	}
}
