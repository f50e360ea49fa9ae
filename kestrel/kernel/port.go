package kernel

// Port is the architecture boundary of the kernel.
//
// Contexts are opaque to the kernel: it only stores the values returned by
// Bootstrap and Setup and hands them back to Switch.
type Port interface {
	// Lock masks interrupts up to kernel priority.
	Lock()
	// Unlock restores the interrupt mask.
	Unlock()
	// Bootstrap returns the context of the caller, which becomes the main thread.
	Bootstrap() any
	// Setup establishes the initial context of a new thread. entry runs the
	// first time the context is switched in, with the kernel locked.
	Setup(stack []byte, entry func()) any
	// Switch saves the running context into from and resumes to. The kernel
	// stays locked across the switch. A nil from discards the caller, which
	// never runs again.
	Switch(from, to any)
	// WaitForInterrupt parks the idle thread until Interrupt is called.
	WaitForInterrupt()
	// Interrupt wakes an idle thread parked in WaitForInterrupt.
	Interrupt()
	// Counter returns a free running counter used for measurements.
	Counter() uint64
}

// Allocator is the core allocator used for thread stacks.
type Allocator interface {
	Alloc(size, align int) ([]byte, error)
}

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}
