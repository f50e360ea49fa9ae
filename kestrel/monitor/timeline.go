//go:build !tinygo

package monitor

import (
	"image"
	"sort"

	"kestrel/kestrel/kernel"

	"github.com/fogleman/gg"
)

const (
	timelineRow    = 18
	timelineMargin = 90
)

// Segment is an interval during which a thread held the CPU, in port counter
// units.
type Segment struct {
	Thread     kernel.ThreadID
	Start, End uint64
}

// Segments rebuilds run intervals from the switch events of a trace. The
// last running thread is extended to end.
func Segments(events []kernel.TraceEvent, end uint64) []Segment {
	var segs []Segment
	running := kernel.NoThread
	var since uint64
	for _, ev := range events {
		if ev.Kind != kernel.TraceSwitch {
			continue
		}
		if running != kernel.NoThread && ev.Counter >= since {
			segs = append(segs, Segment{Thread: running, Start: since, End: ev.Counter})
		}
		running = ev.To
		since = ev.Counter
	}
	if running != kernel.NoThread && end > since {
		segs = append(segs, Segment{Thread: running, Start: since, End: end})
	}
	return segs
}

// Timeline draws one row per thread with a bar for every interval it ran.
func Timeline(threads []kernel.ThreadInfo, segs []Segment, width int) image.Image {
	if width <= timelineMargin {
		width = timelineMargin + 100
	}
	sorted := append([]kernel.ThreadInfo(nil), threads...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	row := make(map[kernel.ThreadID]int, len(sorted))
	for i, t := range sorted {
		row[t.ID] = i
	}

	height := (len(sorted) + 1) * timelineRow
	dc := gg.NewContext(width, height)
	dc.SetRGB255(int(colorBackground.R), int(colorBackground.G), int(colorBackground.B))
	dc.Clear()

	for i, t := range sorted {
		y := float64(i*timelineRow) + timelineRow/2
		dc.SetRGB255(int(colorText.R), int(colorText.G), int(colorText.B))
		dc.DrawStringAnchored(t.Name, 4, y, 0, 0.5)
		dc.SetRGB255(int(colorBarTrack.R), int(colorBarTrack.G), int(colorBarTrack.B))
		dc.DrawLine(timelineMargin, y, float64(width), y)
		dc.Stroke()
	}

	if len(segs) == 0 {
		return dc.Image()
	}
	t0, t1 := segs[0].Start, segs[len(segs)-1].End
	span := float64(t1 - t0)
	if span <= 0 {
		span = 1
	}
	scale := float64(width-timelineMargin) / span
	run := stateColor(kernel.StateRunning)
	dc.SetRGB255(int(run.R), int(run.G), int(run.B))
	for _, s := range segs {
		r, ok := row[s.Thread]
		if !ok {
			continue
		}
		x := timelineMargin + float64(s.Start-t0)*scale
		w := float64(s.End-s.Start) * scale
		if w < 1 {
			w = 1
		}
		dc.DrawRectangle(x, float64(r*timelineRow)+3, w, timelineRow-6)
		dc.Fill()
	}
	return dc.Image()
}

// SaveTimelinePNG draws the timeline of a trace and writes it to path.
func SaveTimelinePNG(path string, threads []kernel.ThreadInfo, events []kernel.TraceEvent, end uint64, width int) error {
	return gg.SavePNG(path, Timeline(threads, Segments(events, end), width))
}
