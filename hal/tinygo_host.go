//go:build tinygo && !baremetal

package hal

import "runtime"

type tinyGoHostHAL struct {
	logger tinyGoHostLogger
	led    *tinyGoHostLED
	fb     *tinyGoHostFramebuffer
	t      *tickSource
}

// New returns the HAL for `tinygo run` on an OS target, where there is no
// pin mapping: the log goes to stdout and the LED is logged.
func New() HAL {
	return &tinyGoHostHAL{
		led: &tinyGoHostLED{},
		fb:  newTinyGoHostFramebuffer(320, 240),
		t:   newTickSource(),
	}
}

func (h *tinyGoHostHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHostHAL) LED() LED         { return h.led }
func (h *tinyGoHostHAL) Display() Display { return tinyGoHostDisplay{fb: h.fb} }
func (h *tinyGoHostHAL) Time() Time       { return h.t }

type tinyGoHostDisplay struct {
	fb Framebuffer
}

func (d tinyGoHostDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoHostLogger struct{}

func (tinyGoHostLogger) WriteLineString(s string) { println(s) }
func (tinyGoHostLogger) WriteLineBytes(b []byte)  { println(string(b)) }

// tinyGoHostLED logs the first edges only, like the host LED.
type tinyGoHostLED struct {
	on    bool
	edges uint32
}

func (l *tinyGoHostLED) High() { l.set(true) }
func (l *tinyGoHostLED) Low()  { l.set(false) }

func (l *tinyGoHostLED) set(on bool) {
	if l.on == on {
		return
	}
	l.on = on
	l.edges++
	if l.edges > 4 {
		return
	}
	state := "LOW"
	if on {
		state = "HIGH"
	}
	println("led: " + state + " (tinygo/" + runtime.GOOS + ")")
}
