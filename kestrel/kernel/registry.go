package kernel

import "fmt"

// ThreadInfo describes a thread of the registry.
type ThreadInfo struct {
	ID        ThreadID
	Name      string
	Priority  Priority
	State     State
	StackSize int
	// Switches counts the times the thread was switched in; RunTime is its
	// accumulated run time in port counter units.
	Switches uint64
	RunTime  uint64
	// Msg is the last wakeup message, or the exit message of a final thread.
	Msg Msg
}

// Threads walks the registry. It takes the port lock directly and must not be
// called from inside a critical section.
func (k *Kernel) Threads() []ThreadInfo {
	k.port.Lock()
	defer k.port.Unlock()
	now := k.port.Counter()
	var out []ThreadInfo
	for i := range k.threads {
		t := &k.threads[i]
		if t.state == StateFree {
			continue
		}
		info := ThreadInfo{
			ID:        ThreadID(i),
			Name:      t.name,
			Priority:  t.prio,
			State:     t.state,
			StackSize: len(t.stack),
			Switches:  t.switches,
			RunTime:   t.runTime,
			Msg:       t.msg,
		}
		if ThreadID(i) == k.current && k.started {
			info.RunTime += now - k.runStart
		}
		out = append(out, info)
	}
	return out
}

// CheckIntegrity verifies that every thread is in the list its state says
// and that the ready and timer lists are consistent. It halts on the first
// violation. It must be called with the kernel locked.
func (k *Kernel) CheckIntegrity(cs Section) {
	k.checkClassI(cs)
	if err := k.integrity(); err != nil {
		k.Halt("integrity: " + err.Error())
	}
}

func (k *Kernel) integrity() error {
	n := 0
	prev := HighPriority
	for it := k.ready.head; it != nilRef; it = k.tlinks[it.index()].next {
		t := &k.threads[it.index()]
		if t.state != StateReady || t.owner != &k.ready {
			return fmt.Errorf("%s in ready list in state %v", t.name, t.state)
		}
		if t.prio > prev {
			return fmt.Errorf("ready list out of order at %s", t.name)
		}
		prev = t.prio
		if n++; n > len(k.threads) {
			return fmt.Errorf("ready list loops")
		}
	}

	for i := range k.threads {
		t := &k.threads[i]
		id := ThreadID(i)
		r := refOf(i)
		armed := k.timers[threadTimer(id)].armed
		switch t.state {
		case StateFree, StateFinal:
			if t.owner != nil || armed {
				return fmt.Errorf("%s %v but linked", t.name, t.state)
			}
		case StateRunning:
			if id != k.current || t.owner != nil || armed {
				return fmt.Errorf("%s running but not current or linked", t.name)
			}
		case StateReady:
			if !k.ready.contains(k.tlinks, r) || armed {
				return fmt.Errorf("%s ready but not in the ready list", t.name)
			}
		case StateSleeping:
			if t.owner != nil || !armed {
				return fmt.Errorf("%s sleeping but linked", t.name)
			}
		case StateSuspended:
			if t.owner != nil {
				return fmt.Errorf("%s suspended but linked", t.name)
			}
		case StateWaitingSemaphore, StateWaitingQueue, StateWaitingExit:
			if t.owner == nil || !t.owner.contains(k.tlinks, r) {
				return fmt.Errorf("%s %v but not in a wait list", t.name, t.state)
			}
		case StateWaitingEvents:
			if t.owner != nil {
				return fmt.Errorf("%s waiting events but linked", t.name)
			}
		}
		if id == k.current && t.state != StateRunning && k.started {
			return fmt.Errorf("current thread %s in state %v", t.name, t.state)
		}
	}

	n = 0
	for it := k.vtlist.head; it != nilRef; it = k.vlinks[it.index()].next {
		vt := &k.timers[it.index()]
		if !vt.armed {
			return fmt.Errorf("disarmed timer %d in timer list", it.index())
		}
		if it == k.vtlist.head && vt.delta == 0 {
			return fmt.Errorf("expired timer %d at the head", it.index())
		}
		if n++; n > len(k.timers) {
			return fmt.Errorf("timer list loops")
		}
	}
	armed := 0
	for i := range k.timers {
		if k.timers[i].armed {
			armed++
		}
	}
	if armed != n {
		return fmt.Errorf("%d timers armed, %d linked", armed, n)
	}
	return nil
}
