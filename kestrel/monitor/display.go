// Package monitor renders kernel state: a framebuffer status screen and halt
// screen, plus (on the host) a textual report, a pprof profile and a
// scheduling timeline image.
package monitor

import (
	"image/color"
	"unicode/utf8"

	"kestrel/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// fbDisplay adapts an RGB565 framebuffer to drivers.Displayer so tinyfont can
// draw into it.
type fbDisplay struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = fbDisplay{}

func (d fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 || d.fb.Buffer() == nil {
		return
	}
	hal.SetPixelRGB565(d.fb, int(x), int(y), c.R, c.G, c.B)
}

func (d fbDisplay) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d fbDisplay) fillRect(x, y, w, h int16, c color.RGBA) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			d.SetPixel(i, j, c)
		}
	}
}

// textMetrics is the cell size of a monospace font.
type textMetrics struct {
	width, height, baseline int16
}

func metricsOf(font tinyfont.Fonter) textMetrics {
	_, w := tinyfont.LineWidth(font, "0")
	m := textMetrics{width: int16(w), height: 10, baseline: 8}
	if m.width <= 0 {
		m.width = 6
	}
	return m
}

func drawText(d drivers.Displayer, font tinyfont.Fonter, m textMetrics, x, y int16, s string, fg color.RGBA) {
	for _, r := range s {
		tinyfont.DrawChar(d, font, x, y+m.baseline, r, fg)
		x += m.width
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
