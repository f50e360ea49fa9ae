package monitor

import (
	"fmt"
	"image/color"

	"kestrel/hal"
	"kestrel/kestrel/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	colorBackground = color.RGBA{R: 16, G: 20, B: 28, A: 255}
	colorText       = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	colorTitle      = color.RGBA{R: 255, G: 200, B: 64, A: 255}
	colorBarTrack   = color.RGBA{R: 48, G: 52, B: 64, A: 255}
)

// stateColor returns the bar colour of a thread state.
func stateColor(s kernel.State) color.RGBA {
	switch s {
	case kernel.StateRunning:
		return color.RGBA{R: 64, G: 220, B: 96, A: 255}
	case kernel.StateReady:
		return color.RGBA{R: 64, G: 160, B: 255, A: 255}
	case kernel.StateSleeping, kernel.StateSuspended:
		return color.RGBA{R: 140, G: 140, B: 160, A: 255}
	case kernel.StateFinal:
		return color.RGBA{R: 90, G: 90, B: 90, A: 255}
	default:
		return color.RGBA{R: 255, G: 140, B: 64, A: 255}
	}
}

// Screen draws the kernel status on a framebuffer.
type Screen struct {
	d     fbDisplay
	font  tinyfont.Fonter
	m     textMetrics
	title string
}

// NewScreen returns a status screen drawing on fb. title heads every frame.
func NewScreen(fb hal.Framebuffer, title string) *Screen {
	font := &proggy.TinySZ8pt7b
	return &Screen{d: fbDisplay{fb: fb}, font: font, m: metricsOf(font), title: title}
}

// Lines formats a snapshot as the text lines of the status screen.
func Lines(s Snapshot) []string {
	lines := []string{
		fmt.Sprintf("t=%d irq=%d csw=%d", s.Now, s.Stats.IRQ, s.Stats.ContextSwitches),
		fmt.Sprintf("crit thd worst=%d isr worst=%d", s.Stats.CritThread.Worst, s.Stats.CritISR.Worst),
		"",
		fmt.Sprintf("%-2s %-10s %3s %-8s %6s %5s", "id", "name", "pri", "state", "csw", "load"),
	}
	for _, t := range s.Threads {
		l := s.Load(t)
		lines = append(lines, fmt.Sprintf("%-2d %-10.10s %3d %-8s %6d %3d.%d",
			t.ID, t.Name, t.Priority, t.State, t.Switches, l/10, l%10))
	}
	if s.Halted {
		lines = append(lines, "", "HALTED")
	}
	return lines
}

// Draw renders a snapshot and presents the frame.
func (sc *Screen) Draw(s Snapshot) error {
	fb := sc.d.fb
	if fb == nil {
		return hal.ErrNotImplemented
	}
	fb.ClearRGB(colorBackground.R, colorBackground.G, colorBackground.B)

	w, h := sc.d.Size()
	y := int16(2)
	drawText(sc.d, sc.font, sc.m, 2, y, sc.title, colorTitle)
	y += sc.m.height + 2

	lines := Lines(s)
	header := 4
	for i, line := range lines {
		if y+sc.m.height > h {
			break
		}
		drawText(sc.d, sc.font, sc.m, 2, y, line, colorText)
		if i >= header && i-header < len(s.Threads) {
			sc.drawLoadBar(w, y, s, s.Threads[i-header])
		}
		y += sc.m.height
	}
	return sc.d.Display()
}

// drawLoadBar draws the run time share of a thread at the right edge of its
// row, coloured by state.
func (sc *Screen) drawLoadBar(w, y int16, s Snapshot, t kernel.ThreadInfo) {
	const barW = 48
	x := w - barW - 4
	if x <= 0 {
		return
	}
	sc.d.fillRect(x, y+2, barW, sc.m.height-4, colorBarTrack)
	fill := int16(s.Load(t) * barW / 1000)
	if t.State == kernel.StateRunning && fill == 0 {
		fill = 1
	}
	sc.d.fillRect(x, y+2, fill, sc.m.height-4, stateColor(t.State))
}
