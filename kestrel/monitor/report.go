//go:build !tinygo

package monitor

import (
	"io"

	"kestrel/kestrel/kernel"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteReport writes a textual statistics report with digits grouped for
// the given language.
func WriteReport(w io.Writer, s Snapshot, tag language.Tag) error {
	p := message.NewPrinter(tag)
	if _, err := p.Fprintf(w, "system time     %d ticks\n", s.Now); err != nil {
		return err
	}
	p.Fprintf(w, "interrupts      %d\n", s.Stats.IRQ)
	p.Fprintf(w, "context switch  %d\n", s.Stats.ContextSwitches)
	writeMeasurement(p, w, "crit thread", s.Stats.CritThread)
	writeMeasurement(p, w, "crit isr", s.Stats.CritISR)
	p.Fprintf(w, "\n%-4s %-12s %4s %-9s %10s %16s %6s\n", "id", "name", "prio", "state", "switches", "runtime", "load")
	for _, t := range s.Threads {
		l := s.Load(t)
		p.Fprintf(w, "%-4d %-12s %4d %-9s %10d %16d %4d.%d%%\n",
			int(t.ID), t.Name, int(t.Priority), t.State.String(), t.Switches, t.RunTime, l/10, l%10)
	}
	if s.Halted {
		_, err := p.Fprintf(w, "\nkernel halted\n")
		return err
	}
	return nil
}

func writeMeasurement(p *message.Printer, w io.Writer, name string, m kernel.Measurement) {
	if m.N == 0 {
		p.Fprintf(w, "%-15s no samples\n", name)
		return
	}
	p.Fprintf(w, "%-15s n=%d best=%d worst=%d avg=%d last=%d\n",
		name, m.N, m.Best, m.Worst, m.Average(), m.Last)
}
