package hal

import (
	"errors"
	"time"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// TickPeriod is the duration of one system tick.
const TickPeriod = time.Millisecond

// Time provides the system tick stream that drives the kernel tick
// interrupt. One tick is one millisecond.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the kernel and the board.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Time() Time
}

// SetPixelRGB565 writes one pixel of a little-endian RGB565 framebuffer.
// Out of range coordinates are ignored.
func SetPixelRGB565(fb Framebuffer, x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= fb.Width() || y >= fb.Height() {
		return
	}
	buf := fb.Buffer()
	off := y*fb.StrideBytes() + x*2
	if off+1 >= len(buf) {
		return
	}
	p := rgb565(r, g, b)
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}
