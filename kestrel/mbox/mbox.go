// Package mbox provides fixed-size message mailboxes on top of kernel
// semaphores.
package mbox

import "kestrel/kestrel/kernel"

// MaxMessageBytes is the maximum payload size of a message.
const MaxMessageBytes = 32

// Kind classifies a message.
type Kind uint8

const (
	KindSample Kind = iota + 1
	KindCommand
)

// Message is a fixed-size message envelope.
type Message struct {
	From kernel.ThreadID
	Kind Kind
	Len  uint16
	Data [MaxMessageBytes]byte
}

// Payload returns the used part of Data.
func (m *Message) Payload() []byte {
	return m.Data[:m.Len]
}

// SetPayload copies p into Data, truncating it to MaxMessageBytes.
func (m *Message) SetPayload(p []byte) {
	if len(p) > MaxMessageBytes {
		p = p[:MaxMessageBytes]
	}
	m.Len = uint16(copy(m.Data[:], p))
}

// Mailbox is a bounded FIFO of messages. Senders block while it is full and
// receivers while it is empty.
type Mailbox struct {
	_     [0]func() // prevent accidental copying.
	k     *kernel.Kernel
	free  kernel.Semaphore
	full  kernel.Semaphore
	slots []Message
	wr    int
	rd    int
}

// New returns a mailbox with room for n messages.
func New(k *kernel.Kernel, n int) *Mailbox {
	if n <= 0 {
		n = 1
	}
	mb := &Mailbox{k: k, slots: make([]Message, n)}
	k.InitSemaphore(&mb.free, int32(n))
	k.InitSemaphore(&mb.full, 0)
	return mb
}

// Cap returns the number of slots.
func (mb *Mailbox) Cap() int { return len(mb.slots) }

// PostTimeoutS enqueues msg, waiting at most timeout ticks for a free slot.
func (mb *Mailbox) PostTimeoutS(cs kernel.Section, msg Message, timeout kernel.Interval) kernel.Msg {
	if rdy := mb.free.WaitTimeoutS(cs, timeout); rdy != kernel.MsgOK {
		return rdy
	}
	mb.put(cs, msg)
	mb.k.RescheduleS(cs)
	return kernel.MsgOK
}

// PostI enqueues msg if a slot is free; it returns MsgTimeout otherwise.
func (mb *Mailbox) PostI(cs kernel.Section, msg Message) kernel.Msg {
	if !mb.free.FastWaitI(cs) {
		return kernel.MsgTimeout
	}
	mb.put(cs, msg)
	return kernel.MsgOK
}

func (mb *Mailbox) put(cs kernel.Section, msg Message) {
	mb.slots[mb.wr] = msg
	mb.wr = (mb.wr + 1) % len(mb.slots)
	mb.full.SignalI(cs)
}

// FetchTimeoutS dequeues the oldest message, waiting at most timeout ticks
// for one.
func (mb *Mailbox) FetchTimeoutS(cs kernel.Section, timeout kernel.Interval) (Message, kernel.Msg) {
	if rdy := mb.full.WaitTimeoutS(cs, timeout); rdy != kernel.MsgOK {
		return Message{}, rdy
	}
	msg := mb.get(cs)
	mb.k.RescheduleS(cs)
	return msg, kernel.MsgOK
}

// FetchI dequeues the oldest message if there is one.
func (mb *Mailbox) FetchI(cs kernel.Section) (Message, bool) {
	if !mb.full.FastWaitI(cs) {
		return Message{}, false
	}
	return mb.get(cs), true
}

func (mb *Mailbox) get(cs kernel.Section) Message {
	msg := mb.slots[mb.rd]
	mb.rd = (mb.rd + 1) % len(mb.slots)
	mb.free.SignalI(cs)
	return msg
}

// Post enqueues msg, waiting at most timeout ticks for a free slot.
func (mb *Mailbox) Post(msg Message, timeout kernel.Interval) kernel.Msg {
	cs := mb.k.Lock()
	rdy := mb.PostTimeoutS(cs, msg, timeout)
	mb.k.Unlock(cs)
	return rdy
}

// PostFromISR enqueues msg from an interrupt service routine without
// blocking. It reports whether there was room.
func (mb *Mailbox) PostFromISR(msg Message) bool {
	cs := mb.k.LockFromISR()
	rdy := mb.PostI(cs, msg)
	mb.k.UnlockFromISR(cs)
	return rdy == kernel.MsgOK
}

// Fetch dequeues the oldest message, waiting at most timeout ticks.
func (mb *Mailbox) Fetch(timeout kernel.Interval) (Message, kernel.Msg) {
	cs := mb.k.Lock()
	msg, rdy := mb.FetchTimeoutS(cs, timeout)
	mb.k.Unlock(cs)
	return msg, rdy
}

// Reset discards the queued messages and wakes every blocked sender and
// receiver with MsgReset.
func (mb *Mailbox) Reset() {
	cs := mb.k.Lock()
	mb.free.ResetI(cs, int32(len(mb.slots)))
	mb.full.ResetI(cs, 0)
	mb.wr, mb.rd = 0, 0
	mb.k.RescheduleS(cs)
	mb.k.Unlock(cs)
}

// Len returns the number of queued messages.
func (mb *Mailbox) Len() int {
	n := mb.full.Count()
	if n < 0 {
		return 0
	}
	return int(n)
}
