// This file is part of gba-core.
//
// gba-core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// gba-core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with gba-core.  If not, see <https://www.gnu.org/licenses/>.

// Command gbacore is a minimal headless runner demonstrating the host/core
// wiring: it loads a ROM, starts a Machine on its own goroutine, and runs
// until either a frame budget is reached or it is interrupted. It has no
// video or audio output of its own; --stats serves the Go runtime's stats
// charts over HTTP for a developer who wants to watch it run (the
// diag.Counters values it records are not published there).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/vblankline/gba-core/emulation"
	"github.com/vblankline/gba-core/hardware/apu"
	"github.com/vblankline/gba-core/hardware/clocks"
	"github.com/vblankline/gba-core/hardware/cpu"
	"github.com/vblankline/gba-core/hardware/io"
	"github.com/vblankline/gba-core/hardware/memory/bus"
	"github.com/vblankline/gba-core/hardware/memory/gpio"
	"github.com/vblankline/gba-core/hardware/memory/prefetch"
	"github.com/vblankline/gba-core/hardware/ppu"
	"github.com/vblankline/gba-core/hardware/preferences"
	"github.com/vblankline/gba-core/hardware/scheduler"
	"github.com/vblankline/gba-core/internal/diag"
	"github.com/vblankline/gba-core/logger"
	"github.com/vblankline/gba-core/quicksave"
)

func main() {
	var (
		frames    int
		statsAddr string
	)
	flag.IntVar(&frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	flag.StringVar(&statsAddr, "stats", "", "if set, address to serve diagnostics stats on (e.g. :18066)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: gbacore [-frames N] [-stats addr] rom-file")
		os.Exit(2)
	}

	rom, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "gbacore: %v\n", err)
		os.Exit(1)
	}

	target := newTarget(rom)

	var stats *diag.StatsServer
	if statsAddr != "" {
		stats = diag.NewStatsServer(statsAddr)
		stats.Launch()
	}

	m := emulation.NewMachine(target, nil)

	ctx, cancel := context.WithCancel(context.Background())
	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)
	go func() {
		<-intChan
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	m.Push(emulation.Command{Kind: emulation.CmdRun})

	if frames > 0 {
	waitForFrames:
		for m.FrameCount() < uint64(frames) {
			select {
			case <-done:
				break waitForFrames
			default:
				time.Sleep(time.Millisecond)
			}
			if stats != nil {
				stats.Counters.SchedulerCycles.Store(m.FrameCount() * uint64(clocks.CyclesPerFrame))
			}
		}
		m.Push(emulation.Command{Kind: emulation.CmdExit})
	}
	<-done

	logger.Tail(os.Stdout, 20)
	fmt.Printf("ran %d frames\n", m.FrameCount())
}

// newTarget wires a fresh quicksave.Target around rom with default
// preferences applied; it is the same collaborator wiring emulation.Machine
// expects.
func newTarget(rom []byte) *quicksave.Target {
	cpuState := &cpu.State{}
	ppuState := ppu.New()
	gpioState := gpio.New()
	apuState := apu.New()
	ioDispatcher := io.New()
	pf := prefetch.New()

	busArb := bus.New(rom, cpuState, ioDispatcher, ppuState, gpioState, apuState, pf)

	prefs := preferences.Default()
	prefs.ApplyTo(busArb, pf)

	return &quicksave.Target{
		CPU:   cpuState,
		Bus:   busArb,
		PPU:   ppuState,
		GPIO:  gpioState,
		APU:   apuState,
		Sched: scheduler.New(),
	}
}
