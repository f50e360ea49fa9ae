package monitor

import (
	"fmt"
	"image/color"
	"strings"

	"kestrel/hal"
	"kestrel/kestrel/kernel"

	"tinygo.org/x/tinyfont/proggy"
)

// HaltLines formats a halt for the log and the halt screen.
func HaltLines(info kernel.HaltInfo) []string {
	lines := []string{
		"Kestrel halt:",
		fmt.Sprintf("thread: %d %s", info.Thread, info.Name),
		fmt.Sprintf("reason: %s", info.Reason),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// DrawHalt paints the halt screen on fb: the halt lines on white, wrapped to
// the screen width and cut at the bottom.
func DrawHalt(fb hal.Framebuffer, info kernel.HaltInfo) error {
	if fb == nil {
		return hal.ErrNotImplemented
	}
	fb.ClearRGB(255, 255, 255)

	font := &proggy.TinySZ8pt7b
	m := metricsOf(font)
	d := fbDisplay{fb: fb}
	fg := color.RGBA{R: 160, G: 0, B: 0, A: 255}

	cols := int16(fb.Width()) / m.width
	if cols <= 0 {
		cols = 1
	}
	maxH := int16(fb.Height())
	y := int16(0)
	for _, line := range HaltLines(info) {
		for len(line) > 0 {
			if y+m.height > maxH {
				return d.Display()
			}
			chunk, rest := takeRunes(line, cols)
			drawText(d, font, m, 0, y, chunk, fg)
			y += m.height
			line = strings.TrimLeft(rest, " ")
		}
		fg = color.RGBA{A: 255}
	}
	return d.Display()
}
