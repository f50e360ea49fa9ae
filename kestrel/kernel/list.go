package kernel

// ref is a 1-based arena index so that the zero value of list is empty.
type ref int32

const nilRef ref = 0

func refOf(i int) ref { return ref(i + 1) }

func (r ref) index() int { return int(r) - 1 }

type link struct {
	prev, next ref
}

// list is a doubly linked list threaded through an arena of links by index.
// An element carries a single link pair, so it is a member of at most one
// list at a time.
type list struct {
	head, tail ref
}

func (l *list) empty() bool { return l.head == nilRef }

func (l *list) pushBack(ls []link, r ref) {
	l.insertBefore(ls, nilRef, r)
}

// insertBefore links r in front of at; a nil at appends.
func (l *list) insertBefore(ls []link, at, r ref) {
	e := &ls[r.index()]
	if at == nilRef {
		e.prev = l.tail
		e.next = nilRef
		if l.tail != nilRef {
			ls[l.tail.index()].next = r
		} else {
			l.head = r
		}
		l.tail = r
		return
	}
	a := &ls[at.index()]
	e.next = at
	e.prev = a.prev
	if a.prev != nilRef {
		ls[a.prev.index()].next = r
	} else {
		l.head = r
	}
	a.prev = r
}

func (l *list) remove(ls []link, r ref) {
	e := &ls[r.index()]
	if e.prev != nilRef {
		ls[e.prev.index()].next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nilRef {
		ls[e.next.index()].prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nilRef, nilRef
}

func (l *list) popFront(ls []link) ref {
	r := l.head
	if r != nilRef {
		l.remove(ls, r)
	}
	return r
}

func (l *list) contains(ls []link, r ref) bool {
	for it := l.head; it != nilRef; it = ls[it.index()].next {
		if it == r {
			return true
		}
	}
	return false
}

func (l *list) len(ls []link) int {
	n := 0
	for it := l.head; it != nilRef; it = ls[it.index()].next {
		n++
	}
	return n
}
