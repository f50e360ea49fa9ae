package kernel

// ThreadQueue is a FIFO of threads waiting for a condition that the owner of
// the queue signals. The zero value is an empty queue.
type ThreadQueue struct {
	waiters list
}

func (q *ThreadQueue) cancelWait(*Kernel, ThreadID) {}

// EnqueueTimeoutS suspends the caller on the queue for at most timeout ticks
// and returns the message it is dequeued with, or MsgTimeout.
func (q *ThreadQueue) EnqueueTimeoutS(cs Section, timeout Interval) Msg {
	k := cs.kernel()
	k.checkClassS(cs)
	if timeout == Immediate {
		return MsgTimeout
	}
	k.enqueueWait(&q.waiters, q)
	return k.goSleepTimeoutS(cs, StateWaitingQueue, timeout)
}

// DequeueNextI readies the oldest waiting thread with msg. It is a no-op on
// an empty queue.
func (q *ThreadQueue) DequeueNextI(cs Section, msg Msg) {
	k := cs.kernel()
	k.checkClassI(cs)
	if !q.waiters.empty() {
		k.readyI(cs, k.dequeueWait(&q.waiters), msg)
	}
}

// DequeueAllI readies every waiting thread with msg, in arrival order.
func (q *ThreadQueue) DequeueAllI(cs Section, msg Msg) {
	k := cs.kernel()
	k.checkClassI(cs)
	for !q.waiters.empty() {
		k.readyI(cs, k.dequeueWait(&q.waiters), msg)
	}
}

// EmptyI reports whether no thread is waiting.
func (q *ThreadQueue) EmptyI(cs Section) bool {
	cs.kernel().checkClassI(cs)
	return q.waiters.empty()
}
