// Package memcore is the core allocator: a bump allocator that carves aligned
// blocks out of a fixed arena. Blocks are never freed.
package memcore

import (
	"errors"
	"sync"
	"unsafe"
)

// DefaultAlign is the alignment used when Alloc is called with align 0.
const DefaultAlign = 8

var (
	// ErrNoMemory is returned when the arena cannot satisfy a request.
	ErrNoMemory = errors.New("memcore: out of memory")
	// ErrBadAlign is returned for alignments that are not a power of two.
	ErrBadAlign = errors.New("memcore: alignment is not a power of two")
)

// Core hands out blocks from a fixed arena.
type Core struct {
	_     [0]func() // prevent accidental copying.
	mu    sync.Mutex
	arena []byte
	next  int
}

// New returns a core allocator owning an arena of size bytes.
func New(size int) *Core {
	return &Core{arena: make([]byte, size)}
}

// NewFromBuffer returns a core allocator carving blocks out of buf.
func NewFromBuffer(buf []byte) *Core {
	return &Core{arena: buf}
}

// Alloc returns size bytes whose first byte is aligned to align.
//
// The returned slice has capacity size, so appending to it can never spill
// into a neighbouring block.
func (c *Core) Alloc(size, align int) ([]byte, error) {
	if align == 0 {
		align = DefaultAlign
	}
	if align < 0 || align&(align-1) != 0 {
		return nil, ErrBadAlign
	}
	if size < 0 {
		return nil, ErrNoMemory
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.arena) == 0 {
		return nil, ErrNoMemory
	}
	base := uintptr(unsafe.Pointer(&c.arena[0]))
	start := alignUp(base+uintptr(c.next), uintptr(align)) - base
	end := start + uintptr(size)
	if end > uintptr(len(c.arena)) {
		return nil, ErrNoMemory
	}
	c.next = int(end)
	return c.arena[start:end:end], nil
}

// Status returns the number of bytes still available, ignoring alignment
// padding a future request may need.
func (c *Core) Status() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.arena) - c.next
}

// Size returns the arena size.
func (c *Core) Size() int { return len(c.arena) }

func alignUp(p, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}
