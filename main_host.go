//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"kestrel/app"
	"kestrel/hal"
	"kestrel/kestrel/monitor"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

type outputs struct {
	report      bool
	reportEvery time.Duration
	lang        string
	profile     string
	timeline    string
	width       int
}

func main() {
	var cfg hal.HeadlessConfig
	var headless, verbose bool
	var out outputs
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Runner step rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N system ticks in headless mode (0 = run forever).")
	flag.BoolVar(&verbose, "v", false, "Log thread lifecycle events.")
	flag.BoolVar(&out.report, "report", false, "Print a statistics report on exit.")
	flag.DurationVar(&out.reportEvery, "report-every", 0, "Also print the report periodically (0 = off).")
	flag.StringVar(&out.lang, "lang", "en", "Report language tag, selects digit grouping.")
	flag.StringVar(&out.profile, "profile", "", "Write a pprof profile of thread run times to this file on exit.")
	flag.StringVar(&out.timeline, "timeline", "", "Write a PNG scheduling timeline to this file on exit.")
	flag.IntVar(&out.width, "timeline-width", 1024, "Timeline image width in pixels.")
	flag.Parse()

	tag, err := language.Parse(out.lang)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := make(chan *app.System, 1)
	newApp := func(h hal.HAL) func() error {
		var acfg app.Config
		acfg.Kernel.Verbose = verbose
		sys, err := app.New(h, acfg)
		if err != nil {
			return func() error { return err }
		}
		started <- sys
		return sys.Step
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	var sys *app.System
	g.Go(func() error {
		select {
		case sys = <-started:
		case <-runCtx.Done():
			return nil
		}
		if !out.report || out.reportEvery <= 0 {
			return nil
		}
		t := time.NewTicker(out.reportEvery)
		defer t.Stop()
		for {
			select {
			case <-runCtx.Done():
				return nil
			case <-t.C:
				snap, _ := sys.Snapshot()
				if err := monitor.WriteReport(os.Stdout, snap, tag); err != nil {
					return err
				}
			}
		}
	})

	var runErr error
	if !headless {
		// ebiten must own the main goroutine.
		runErr = hal.RunWindow(newApp)
		if errors.Is(runErr, hal.ErrNotImplemented) {
			fmt.Fprintln(os.Stderr, runErr, "- running headless")
			headless, runErr = true, nil
		} else {
			cancelRun()
			if err := g.Wait(); runErr == nil {
				runErr = err
			}
		}
	}
	if headless {
		g.Go(func() error {
			defer cancelRun()
			return hal.RunHeadless(runCtx, newApp, cfg)
		})
		runErr = g.Wait()
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if sys != nil {
		if err := writeOutputs(sys, tag, out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func writeOutputs(sys *app.System, tag language.Tag, out outputs) error {
	snap, trace := sys.Snapshot()
	if out.report {
		if err := monitor.WriteReport(os.Stdout, snap, tag); err != nil {
			return err
		}
	}
	if out.profile != "" {
		f, err := os.Create(out.profile)
		if err != nil {
			return err
		}
		if err := monitor.WriteProfile(f, snap); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if out.timeline != "" {
		end := uint64(0)
		if n := len(trace); n > 0 {
			end = trace[n-1].Counter
		}
		if err := monitor.SaveTimelinePNG(out.timeline, snap.Threads, trace, end, out.width); err != nil {
			return err
		}
	}
	return nil
}
