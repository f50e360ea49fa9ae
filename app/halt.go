package app

import (
	"kestrel/kestrel/kernel"
	"kestrel/kestrel/monitor"
)

// onHalt logs the halt, paints the halt screen and parks the halting thread
// forever, which leaves the kernel locked.
func (s *System) onHalt(info kernel.HaltInfo) {
	if l := s.h.Logger(); l != nil {
		for _, line := range monitor.HaltLines(info) {
			l.WriteLineString(line)
		}
	}
	s.halt.Store(&info)

	disp := s.h.Display()
	if disp == nil {
		select {}
	}
	fb := disp.Framebuffer()
	if fb == nil {
		select {}
	}
	_ = monitor.DrawHalt(fb, info)
	select {}
}
