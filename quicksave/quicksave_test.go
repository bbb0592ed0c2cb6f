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

package quicksave_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	coreerrors "github.com/vblankline/gba-core/errors"
	"github.com/vblankline/gba-core/hardware/apu"
	"github.com/vblankline/gba-core/hardware/cpu"
	"github.com/vblankline/gba-core/hardware/io"
	"github.com/vblankline/gba-core/hardware/memory/backup"
	"github.com/vblankline/gba-core/hardware/memory/bus"
	"github.com/vblankline/gba-core/hardware/memory/gpio"
	"github.com/vblankline/gba-core/hardware/memory/prefetch"
	"github.com/vblankline/gba-core/hardware/ppu"
	"github.com/vblankline/gba-core/hardware/scheduler"
	"github.com/vblankline/gba-core/quicksave"
)

// newTestTarget builds a fully wired Target over a fresh ROM of the given
// size. ROMs of at least 0xB0 bytes carry the 4-byte code "ABCD" at the
// cartridge header offset GBATek specifies.
func newTestTarget(romSize int) *quicksave.Target {
	rom := make([]byte, romSize)
	if romSize >= 0xB0 {
		copy(rom[0xAC:0xB0], "ABCD")
	}

	cpuState := &cpu.State{}
	ioDisp := io.New()
	ppuState := ppu.New()
	gpioState := gpio.New()
	apuState := apu.New()
	prefetchBuf := prefetch.New()
	busArb := bus.New(rom, cpuState, ioDisp, ppuState, gpioState, apuState, prefetchBuf)

	return &quicksave.Target{
		CPU:   cpuState,
		Bus:   busArb,
		PPU:   ppuState,
		GPIO:  gpioState,
		APU:   apuState,
		Sched: scheduler.New(),
	}
}

// TestSaveHeaderLayout is testable scenario S1's header check: the first
// sixteen bytes are magic, version, ROM size and ROM code, in that order.
func TestSaveHeaderLayout(t *testing.T) {
	target := newTestTarget(0xC0)
	data := quicksave.Save(target)

	want := []byte{'H', 'S', 'Q', 'S', 2, 0, 0, 0, 0xC0, 0, 0, 0, 'A', 'B', 'C', 'D'}
	if !bytes.Equal(data[:16], want) {
		t.Fatalf("header = % x, want % x", data[:16], want)
	}
}

// TestRoundTripIdleState is testable property 8 for the zero-state case: an
// emulator that has done nothing saves and loads back to the same CPU, PPU,
// GPIO, APU and scheduler-cycle state.
func TestRoundTripIdleState(t *testing.T) {
	src := newTestTarget(0x1000)
	data := quicksave.Save(src)

	dst := newTestTarget(0x1000)
	if err := quicksave.Load(dst, data); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if *dst.CPU != *src.CPU {
		t.Errorf("CPU mismatch: got %+v, want %+v", *dst.CPU, *src.CPU)
	}
	if dst.PPU.Snapshot() != src.PPU.Snapshot() {
		t.Errorf("PPU mismatch")
	}
	if dst.GPIO.Snapshot() != src.GPIO.Snapshot() {
		t.Errorf("GPIO mismatch")
	}
	if dst.APU.Snapshot() != src.APU.Snapshot() {
		t.Errorf("APU mismatch")
	}
	if dst.Sched.Cycles() != src.Sched.Cycles() {
		t.Errorf("scheduler cycles mismatch")
	}
}

// TestRoundTripPopulatedState is testable property 8 with non-trivial state
// across every collaborator: CPU registers, RAM contents, wait-state
// control, a populated backup chip, GPIO, APU FIFOs and a pending repeating
// scheduler event all survive a save/load cycle intact.
func TestRoundTripPopulatedState(t *testing.T) {
	src := newTestTarget(0x100000)

	src.CPU.PC = 0x08000100
	src.CPU.LastFetched = 0xE1A00000
	src.CPU.Mode = cpu.Thumb

	src.Bus.Write32(0x02001000, 0xCAFEBABE, false)
	src.Bus.Write16(0x06000010, 0x7FFF, false)
	src.Bus.SetWaitControl(0x4317)
	src.Bus.SetBackup(backup.SRAM, backup.NewSRAM())
	src.Bus.Write8(0x0E000000, 0x5A, false)

	src.PPU.Restore(ppu.State{DisplayMode: 4, Phase: ppu.VBlank, Scanline: 162})
	src.GPIO.Restore(gpio.State{Data: 0x1, Direction: 0x1, Control: 0x1})

	src.APU.Restore(apu.State{SampleRate: 32768})
	src.APU.PushA(0x11)
	src.APU.PushA(0x22)

	src.Sched.SetHandler(scheduler.HBlank, func(*scheduler.Scheduler, int, scheduler.Arg) {})
	src.Sched.Add(scheduler.HBlank, 100, 228, true, scheduler.Arg{Arg0: 7})
	src.Sched.RunUntil(50)

	data := quicksave.Save(src)

	dst := newTestTarget(0x100000)
	if err := quicksave.Load(dst, data); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if *dst.CPU != *src.CPU {
		t.Errorf("CPU mismatch: got %+v, want %+v", *dst.CPU, *src.CPU)
	}
	if dst.PPU.Snapshot() != src.PPU.Snapshot() {
		t.Errorf("PPU mismatch")
	}
	if dst.GPIO.Snapshot() != src.GPIO.Snapshot() {
		t.Errorf("GPIO mismatch")
	}
	if dst.APU.Snapshot() != src.APU.Snapshot() {
		t.Errorf("APU mismatch")
	}
	if dst.Sched.Cycles() != src.Sched.Cycles() {
		t.Errorf("scheduler cycles = %d, want %d", dst.Sched.Cycles(), src.Sched.Cycles())
	}
	if got := dst.Bus.Snapshot().WAITCNT; got != 0x4317 {
		t.Errorf("WAITCNT = %#x, want 0x4317", got)
	}

	srcPending, dstPending := src.Sched.Pending(), dst.Sched.Pending()
	if len(srcPending) != len(dstPending) {
		t.Fatalf("pending event count = %d, want %d", len(dstPending), len(srcPending))
	}
	for i := range srcPending {
		if srcPending[i] != dstPending[i] {
			t.Errorf("pending event %d = %+v, want %+v", i, dstPending[i], srcPending[i])
		}
	}

	if !bytes.Equal(dst.Bus.EWRAMRaw(), src.Bus.EWRAMRaw()) {
		t.Errorf("EWRAM mismatch")
	}
	if !bytes.Equal(dst.Bus.VRAMRaw(), src.Bus.VRAMRaw()) {
		t.Errorf("VRAM mismatch")
	}

	if dst.Bus.BackupKind() != backup.SRAM {
		t.Errorf("backup kind = %v, want SRAM", dst.Bus.BackupKind())
	}
	if !bytes.Equal(dst.Bus.BackupChip().Raw(), src.Bus.BackupChip().Raw()) {
		t.Errorf("backup contents mismatch")
	}
}

// TestCrossROMRejection is testable property 9 and scenario S3: a quicksave
// whose ROM size differs from the currently loaded ROM is rejected, and the
// target's state is left completely unmodified.
func TestCrossROMRejection(t *testing.T) {
	src := newTestTarget(0x1000)
	src.CPU.PC = 0x12345678
	data := quicksave.Save(src)

	dst := newTestTarget(0x2000)
	dst.CPU.PC = 0xCAFEBABE

	err := quicksave.Load(dst, data)
	if err == nil {
		t.Fatal("Load of a mismatched-ROM quicksave succeeded, want load-mismatch error")
	}
	if coreerrors.KindOf(err) != coreerrors.LoadMismatch {
		t.Errorf("error kind = %v, want LoadMismatch", coreerrors.KindOf(err))
	}
	if dst.CPU.PC != 0xCAFEBABE {
		t.Errorf("CPU register file mutated by a rejected load: PC = %#x", dst.CPU.PC)
	}
}

// TestUnknownChunkForwardCompat is testable property 11: an unrecognised
// chunk kind spliced between two legitimate chunks is skipped and does not
// affect the loaded state.
func TestUnknownChunkForwardCompat(t *testing.T) {
	src := newTestTarget(0x1000)
	src.CPU.PC = 0xABCD0000
	data := quicksave.Save(src)

	var injectedHeader [8]byte
	binary.LittleEndian.PutUint32(injectedHeader[0:4], 0xDEADBEEF)
	binary.LittleEndian.PutUint32(injectedHeader[4:8], 4)

	spliced := make([]byte, 0, len(data)+len(injectedHeader)+4)
	spliced = append(spliced, data[:16]...) // header
	spliced = append(spliced, injectedHeader[:]...)
	spliced = append(spliced, []byte{0xAA, 0xBB, 0xCC, 0xDD}...) // injected payload
	spliced = append(spliced, data[16:]...) // the real chunks, unmodified

	dst := newTestTarget(0x1000)
	if err := quicksave.Load(dst, spliced); err != nil {
		t.Fatalf("Load with an injected unknown chunk: %v", err)
	}
	if dst.CPU.PC != src.CPU.PC {
		t.Errorf("CPU PC = %#x, want %#x: unknown chunk was not skipped cleanly", dst.CPU.PC, src.CPU.PC)
	}
}

// TestTruncatedChunkIsCorrupt exercises the load-corrupt path for a stream
// whose final chunk's declared size runs past the end of the buffer.
func TestTruncatedChunkIsCorrupt(t *testing.T) {
	src := newTestTarget(0x1000)
	data := quicksave.Save(src)

	truncated := data[:len(data)-1]
	dst := newTestTarget(0x1000)
	err := quicksave.Load(dst, truncated)
	if err == nil {
		t.Fatal("Load of a truncated stream succeeded, want an error")
	}
	if coreerrors.KindOf(err) != coreerrors.LoadCorrupt {
		t.Errorf("error kind = %v, want LoadCorrupt", coreerrors.KindOf(err))
	}
}

// TestLegacyV1RoundTrip exercises the flat, pre-chunked fallback format: no
// magic, a fixed concatenation of scalar records followed by a count-
// prefixed array of scheduler events.
func TestLegacyV1RoundTrip(t *testing.T) {
	cpuState := cpu.State{PC: 0x08000200, LastFetched: 0x46C0, Mode: cpu.Thumb}
	meta := bus.MemoryMeta{WAITCNT: 0x4317, BackupKind: backup.None}
	var ioRaw [io.Size]byte
	ioRaw[4] = 0x80
	ppuState := ppu.State{DisplayMode: 1, Phase: ppu.HBlank, Scanline: 40}
	gpioState := gpio.State{Data: 0, Direction: 0, Control: 0}
	apuState := apu.State{SampleRate: 16384}

	var stream bytes.Buffer
	writeLE32 := func(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); stream.Write(b[:]) }
	writeLE64 := func(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); stream.Write(b[:]) }
	writeLE16 := func(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); stream.Write(b[:]) }
	writeBool32 := func(v bool) {
		if v {
			writeLE32(1)
		} else {
			writeLE32(0)
		}
	}

	writeLE32(cpuState.PC)
	writeLE32(cpuState.LastFetched)
	writeLE32(uint32(cpuState.Mode))

	writeLE32(uint32(meta.WAITCNT))
	writeLE32(uint32(meta.BackupKind))
	writeLE32(meta.PrefetchState.InsnLen)
	writeLE32(uint32(meta.PrefetchState.Capacity))
	writeLE32(uint32(meta.PrefetchState.Size))
	writeLE32(meta.PrefetchState.Head)
	writeLE32(meta.PrefetchState.Tail)
	writeLE32(meta.PrefetchState.Countdown)
	writeLE32(meta.PrefetchState.Reload)
	writeBool32(meta.PrefetchState.Enabled)
	writeBool32(meta.PrefetchState.Configured)
	writeLE32(meta.BIOSLatch)
	writeLE32(meta.DMALatch)
	writeBool32(meta.LastAccessWasDMA)
	writeBool32(meta.GamepakBusInUse)

	stream.Write(ioRaw[:])

	writeLE32(uint32(ppuState.DisplayMode))
	writeLE32(uint32(ppuState.Phase))
	writeLE32(uint32(ppuState.Scanline))

	writeLE16(gpioState.Data)
	writeLE16(gpioState.Direction)
	writeLE16(gpioState.Control)

	stream.Write(apuState.FIFOA[:])
	writeLE32(uint32(apuState.FIFOALevel))
	stream.Write(apuState.FIFOB[:])
	writeLE32(uint32(apuState.FIFOBLevel))
	writeLE32(apuState.SampleRate)

	writeLE64(12345) // scheduler cycle counter
	writeLE32(0)      // events_size: no pending events

	dst := newTestTarget(0x1000)
	if err := quicksave.Load(dst, stream.Bytes()); err != nil {
		t.Fatalf("Load of legacy v1 stream: %v", err)
	}

	if *dst.CPU != cpuState {
		t.Errorf("CPU mismatch: got %+v, want %+v", *dst.CPU, cpuState)
	}
	if dst.PPU.Snapshot() != ppuState {
		t.Errorf("PPU mismatch")
	}
	if dst.GPIO.Snapshot() != gpioState {
		t.Errorf("GPIO mismatch")
	}
	if dst.APU.Snapshot() != apuState {
		t.Errorf("APU mismatch")
	}
	if dst.Sched.Cycles() != 12345 {
		t.Errorf("scheduler cycles = %d, want 12345", dst.Sched.Cycles())
	}
	if len(dst.Sched.Pending()) != 0 {
		t.Errorf("expected no pending events from legacy stream")
	}
}
