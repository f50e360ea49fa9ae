//go:build !tinygo

package monitor

import (
	"io"

	"github.com/google/pprof/profile"
)

// Profile converts the per-thread accounting of a snapshot into a pprof
// profile with one sample per thread: the number of times it was switched
// in and its run time in nanoseconds.
func Profile(s Snapshot) *profile.Profile {
	fnKernel := &profile.Function{ID: 1, Name: "kernel", SystemName: "kernel"}
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "switches", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		DefaultSampleType: "cpu",
		Function:          []*profile.Function{fnKernel},
		DurationNanos:     int64(s.TotalRunTime()),
		PeriodType:        &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:            1,
	}
	root := &profile.Location{ID: 1, Line: []profile.Line{{Function: fnKernel}}}
	p.Location = append(p.Location, root)

	for i, t := range s.Threads {
		id := uint64(i + 2)
		fn := &profile.Function{ID: id, Name: t.Name, SystemName: t.Name}
		loc := &profile.Location{ID: id, Line: []profile.Line{{Function: fn}}}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc, root},
			Value:    []int64{int64(t.Switches), int64(t.RunTime)},
			Label: map[string][]string{
				"state": {t.State.String()},
			},
			NumLabel: map[string][]int64{
				"priority": {int64(t.Priority)},
				"thread":   {int64(t.ID)},
			},
		})
	}
	return p
}

// WriteProfile writes the profile of a snapshot in gzipped pprof format.
func WriteProfile(w io.Writer, s Snapshot) error {
	p := Profile(s)
	if err := p.CheckValid(); err != nil {
		return err
	}
	return p.Write(w)
}
