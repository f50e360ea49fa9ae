package kernel

import "strconv"

// ThreadID is the stable handle of a thread: its slot in the thread registry.
type ThreadID int

// NoThread is returned where no thread applies.
const NoThread ThreadID = -1

// Priority orders runnable threads; higher values run first.
type Priority uint8

const (
	// IdlePriority is reserved for the idle thread.
	IdlePriority Priority = 1
	// LowPriority is the lowest priority usable by application threads.
	LowPriority Priority = 2
	// NormalPriority is the default priority of the main thread.
	NormalPriority Priority = 128
	// HighPriority is the highest priority.
	HighPriority Priority = 255
)

// Interval is a duration in system ticks.
type Interval uint32

const (
	// Immediate makes bounded waits return MsgTimeout instead of blocking.
	Immediate Interval = 0
	// Infinite disables the timeout of a bounded wait.
	Infinite Interval = ^Interval(0)
)

// Systime is the system tick counter. It wraps.
type Systime uint32

// Msg is the wakeup message delivered to a thread leaving a wait state, and
// the exit message of a terminated thread.
type Msg int32

const (
	// MsgOK reports a normal wakeup (signal, resume, event).
	MsgOK Msg = 0
	// MsgTimeout reports that the wait timed out.
	MsgTimeout Msg = -1
	// MsgReset reports that the wait object was reset while waiting.
	MsgReset Msg = -2
)

func (m Msg) String() string {
	switch m {
	case MsgOK:
		return "ok"
	case MsgTimeout:
		return "timeout"
	case MsgReset:
		return "reset"
	default:
		return "msg(" + strconv.Itoa(int(m)) + ")"
	}
}

// State is the scheduling state of a thread.
type State uint8

const (
	StateFree State = iota
	StateReady
	StateRunning
	StateSuspended
	StateWaitingSemaphore
	StateWaitingQueue
	StateWaitingEvents
	StateWaitingExit
	StateSleeping
	StateFinal
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateWaitingSemaphore:
		return "wtsem"
	case StateWaitingQueue:
		return "wtqueue"
	case StateWaitingEvents:
		return "wtevt"
	case StateWaitingExit:
		return "wtexit"
	case StateSleeping:
		return "sleeping"
	case StateFinal:
		return "final"
	default:
		return "unknown"
	}
}

// waiting reports whether s is one of the blocked states a wakeup can end.
func (s State) waiting() bool {
	switch s {
	case StateSuspended, StateWaitingSemaphore, StateWaitingQueue,
		StateWaitingEvents, StateWaitingExit, StateSleeping:
		return true
	}
	return false
}

// EventMask is a set of event flags.
type EventMask uint32

// AllEvents matches every event flag.
const AllEvents EventMask = ^EventMask(0)
