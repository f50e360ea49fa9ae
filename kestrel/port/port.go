// Package port implements the kernel architecture boundary with goroutines.
//
// Every kernel thread is a goroutine. Exactly one of them holds the execution
// baton at a time: Switch hands it over through a per-thread wake channel and
// parks the caller until the baton comes back. The kernel lock is a mutex,
// and it is legal for a thread to release the lock acquired by the thread
// that switched to it.
package port

import (
	"runtime"
	"sync"
	"time"
)

type context struct {
	wake chan struct{}
}

func newContext() *context {
	return &context{wake: make(chan struct{}, 1)}
}

// Goroutine is a kernel.Port backed by goroutines.
type Goroutine struct {
	mu    sync.Mutex
	irq   chan struct{}
	epoch time.Time
}

// New returns a goroutine port.
func New() *Goroutine {
	return &Goroutine{
		irq:   make(chan struct{}, 1),
		epoch: time.Now(),
	}
}

func (p *Goroutine) Lock()   { p.mu.Lock() }
func (p *Goroutine) Unlock() { p.mu.Unlock() }

// Bootstrap returns the context of the calling goroutine.
func (p *Goroutine) Bootstrap() any {
	return newContext()
}

// Setup starts a parked goroutine that runs entry once switched in. The
// stack is not used: the goroutine runs on its own Go stack.
func (p *Goroutine) Setup(_ []byte, entry func()) any {
	c := newContext()
	go func() {
		<-c.wake
		entry()
	}()
	return c
}

// Switch resumes to and parks the caller until it is switched back in. A nil
// from ends the calling goroutine.
func (p *Goroutine) Switch(from, to any) {
	to.(*context).wake <- struct{}{}
	if from == nil {
		runtime.Goexit()
	}
	<-from.(*context).wake
}

// WaitForInterrupt parks until Interrupt is called.
func (p *Goroutine) WaitForInterrupt() {
	<-p.irq
}

// Interrupt wakes WaitForInterrupt. Interrupts raised while nobody waits
// coalesce into one.
func (p *Goroutine) Interrupt() {
	select {
	case p.irq <- struct{}{}:
	default:
	}
}

// Counter returns nanoseconds since the port was created.
func (p *Goroutine) Counter() uint64 {
	return uint64(time.Since(p.epoch))
}
