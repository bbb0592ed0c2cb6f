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

package emulation

import (
	"context"
	"sync/atomic"

	"github.com/vblankline/gba-core/assert"
	"github.com/vblankline/gba-core/hardware/clocks"
	"github.com/vblankline/gba-core/hardware/cpu"
	"github.com/vblankline/gba-core/hardware/ppu"
	"github.com/vblankline/gba-core/hardware/scheduler"
	"github.com/vblankline/gba-core/logger"
	"github.com/vblankline/gba-core/quicksave"
)

// keyinputOffset is the byte offset of the KEYINPUT register within the I/O
// block; the register is active-low, so an unpressed pad reads back as
// 0x03ff.
const keyinputOffset = 0x130

// VideoSink receives one completed scanline's worth of pixel data. It is
// called from the core goroutine with no locks held and must not block;
// pixel rendering itself is out of scope here, so the row passed is a
// placeholder the length of one scanline, not a rendered image.
type VideoSink func(scanline int, pixels []byte)

// Machine is the host/core boundary: it owns the scheduler, bus arbitrator
// and collaborators, and runs them on whatever goroutine calls Run. The
// host only ever touches a Machine through Push and the accessor methods on
// its shared data; the only host code the core goroutine ever invokes is
// the VideoSink callback.
type Machine struct {
	target *quicksave.Target
	shared sharedData

	commands chan Command
	state    atomic.Value // State

	sink VideoSink

	// owner records which goroutine's Run call is currently driving target,
	// so apply can panic on a caller that reaches into the core from the
	// host goroutine instead of going through Push.
	owner atomic.Uint64
}

// NewMachine wires a Machine around target and arms the scheduler's
// hdraw/hblank handlers that drive scanline and frame cadence. sink may be
// nil.
func NewMachine(target *quicksave.Target, sink VideoSink) *Machine {
	m := &Machine{
		target:   target,
		commands: make(chan Command, 64),
		sink:     sink,
	}
	m.state.Store(Initialising)
	m.wireScheduler()
	return m
}

// State reports the Machine's current run state. Safe to call from any
// goroutine.
func (m *Machine) State() State {
	return m.state.Load().(State)
}

// Framebuffer and BackupDirty/Backup are re-exported from the shared
// field so callers see one API surface on Machine.
func (m *Machine) Framebuffer(dst []byte) uint32 { return m.shared.Framebuffer(dst) }
func (m *Machine) FramebufferVersion() uint32    { return m.shared.FramebufferVersion() }
func (m *Machine) FrameCount() uint64            { return m.shared.FrameCount() }
func (m *Machine) BackupDirty() bool             { return m.shared.BackupDirty() }
func (m *Machine) Backup() []byte                { return m.shared.Backup() }

func (m *Machine) wireScheduler() {
	s := m.target.Sched
	s.Add(scheduler.HDraw, uint64(clocks.CyclesPerHDraw), uint64(clocks.CyclesPerScanline), true, scheduler.Arg{})
	s.Add(scheduler.HBlank, uint64(clocks.CyclesPerScanline), uint64(clocks.CyclesPerScanline), true, scheduler.Arg{})
	s.SetHandler(scheduler.HDraw, m.onHDrawEnd)
	s.SetHandler(scheduler.HBlank, m.onHBlankEnd)
}

// onHDrawEnd fires at the end of a scanline's visible window: the PPU
// collaborator flips to HBlank phase and, if a sink is installed, the
// scanline is handed off.
func (m *Machine) onHDrawEnd(s *scheduler.Scheduler, index int, arg scheduler.Arg) {
	m.target.PPU.EnterHBlank()

	if m.sink != nil && m.target.PPU.Scanline < clocks.VisibleScanlines {
		row := make([]byte, FramebufferWidth*bytesPerPixel)
		m.shared.writeScanline(m.target.PPU.Scanline, row)
		m.sink(m.target.PPU.Scanline, row)
	}
}

// onHBlankEnd fires at the end of a scanline's blanking window: the PPU
// advances to the next scanline, and a wrap back to scanline 0 marks a
// completed frame.
func (m *Machine) onHBlankEnd(s *scheduler.Scheduler, index int, arg scheduler.Arg) {
	m.target.PPU.AdvanceScanline(clocks.ScanlinesPerFrame, clocks.VisibleScanlines)
	if m.target.PPU.Scanline == 0 {
		m.shared.completeFrame()
	}

	if chip := m.target.Bus.BackupChip(); chip != nil && chip.Dirty() {
		m.shared.markBackupDirty(chip.Raw())
		chip.ClearDirty()
	}
}

// Run drains inbound commands and advances the scheduler one event at a
// time until ctx is cancelled or a CmdExit command is processed. It is
// meant to be the entire body of the core goroutine: nothing else should
// touch target concurrently with a running Run.
func (m *Machine) Run(ctx context.Context) {
	m.owner.Store(assert.GetGoRoutineID())
	m.state.Store(Running)
	for {
		select {
		case <-ctx.Done():
			m.state.Store(Ending)
			return
		case cmd := <-m.commands:
			if m.apply(cmd) {
				return
			}
			continue
		default:
		}

		if m.State() != Running {
			select {
			case <-ctx.Done():
				m.state.Store(Ending)
				return
			case cmd := <-m.commands:
				if m.apply(cmd) {
					return
				}
			}
			continue
		}

		if !m.target.Sched.StepOne() {
			return
		}
	}
}

// apply processes one command at a safe point (the loop in Run never calls
// it mid-event) and reports whether the core should stop.
func (m *Machine) apply(cmd Command) (exit bool) {
	if got := assert.GetGoRoutineID(); got != m.owner.Load() {
		panic("emulation: apply called from outside the owning Run goroutine")
	}

	switch cmd.Kind {
	case CmdReset:
		m.reset()
	case CmdRun:
		m.state.Store(Running)
	case CmdPause:
		m.state.Store(Paused)
	case CmdKey:
		m.applyKey(cmd.Key)
	case CmdExit:
		m.state.Store(Ending)
		return true
	}
	return false
}

func (m *Machine) applyKey(mask uint16) {
	d := m.target.Bus.IO()
	d.WriteByte(keyinputOffset, byte(mask))
	d.WriteByte(keyinputOffset+1, byte(mask>>8))
}

// reset re-arms the scheduler's frame-cadence events and zeroes the CPU's
// bus-visible fields; instruction decode state beyond that is the
// out-of-scope CPU collaborator's own responsibility.
func (m *Machine) reset() {
	m.target.Sched.Reset()
	*m.target.CPU = cpu.State{}
	*m.target.PPU = ppu.State{}
	m.wireScheduler()
}

func logDropped(cmd Command) {
	logger.Logf(logger.Level(0), "emulation", "dropped command %s: queue full", cmd.Kind)
}

// SaveState and LoadState drive the quicksave codec over this Machine's
// target, invoked synchronously between scheduler events per the
// concurrency model's requirement that quicksave only observe a quiescent
// state.
func (m *Machine) SaveState() []byte {
	return quicksave.Save(m.target)
}

// LoadState restores target from a quicksave and, on success, propagates the
// restored backup chunk (or its absence) into the host-visible shared data
// directly: the normal dirty-chip poll in onHBlankEnd only notices writes
// the running game makes on its own, and a load's restored chip is never
// dirty by that measure even though its contents just changed wholesale.
func (m *Machine) LoadState(data []byte) error {
	if err := quicksave.Load(m.target, data); err != nil {
		return err
	}

	if chip := m.target.Bus.BackupChip(); chip != nil {
		m.shared.markBackupDirty(chip.Raw())
		chip.ClearDirty()
	} else {
		m.shared.clearBackup()
	}
	return nil
}
