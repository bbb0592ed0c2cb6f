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

// Package quicksave implements the versioned, chunked binary snapshot
// codec: Save walks every collaborator's bus-visible state into a flat
// byte stream with per-region run-length encoding; Load reverses the
// process, validating the stream belongs to the currently loaded ROM
// before touching any live state.
//
// The on-disk format never depends on the in-memory representation beyond
// what each collaborator already exposes through its own Snapshot/Restore
// or Raw/LoadRaw pair, so a region backed by lazily-allocated pages and one
// backed by a single contiguous slice serialise identically.
package quicksave

import (
	"bytes"
	"encoding/binary"

	"github.com/vblankline/gba-core/hardware/apu"
	"github.com/vblankline/gba-core/hardware/cpu"
	"github.com/vblankline/gba-core/hardware/memory/bus"
	"github.com/vblankline/gba-core/hardware/memory/gpio"
	"github.com/vblankline/gba-core/hardware/ppu"
	"github.com/vblankline/gba-core/hardware/scheduler"
)

const (
	magic          = "HSQS"
	currentVersion = 2
)

// Chunk kind identifiers, fixed by the on-disk format. Values must never be
// renumbered: a stream written by an older build must still decode.
const (
	kindCPU             = 1
	kindIO              = 2
	kindPPU             = 3
	kindGPIO            = 4
	kindAPU             = 5
	kindScheduler       = 6
	kindSchedulerEvents = 7
	kindMemoryMeta      = 8
	kindEWRAM           = 9
	kindIWRAM           = 10
	kindVRAM            = 11
	kindPALRAM          = 12
	kindOAM             = 13
	kindBackupStorage   = 14
)

// eventRecordSize is the fixed size of one scheduler-events record: kind
// (u32), at (u64), period (u64), repeat (u32), arg0/arg1 (i32 each).
const eventRecordSize = 4 + 8 + 8 + 4 + 4 + 4

// memoryMetaSize is the fixed size of the memory-meta chunk payload: 15
// u32-sized fields (WAITCNT and the four bool flags are widened to u32 so
// the whole chunk is a flat run of fixed-width values).
const memoryMetaSize = 15 * 4

// Target bundles every collaborator a save or load operation touches. All
// fields must be non-nil.
type Target struct {
	CPU   *cpu.State
	Bus   *bus.Arbitrator
	PPU   *ppu.State
	GPIO  *gpio.State
	APU   *apu.State
	Sched *scheduler.Scheduler
}

// Save serialises t into a quicksave byte stream. Save never fails: every
// collaborator's state is always representable.
func Save(t *Target) []byte {
	var out bytes.Buffer

	out.WriteString(magic)
	writeU32(&out, currentVersion)
	writeU32(&out, t.Bus.ROMSize())
	writeU32(&out, t.Bus.ROMCode())

	writeChunk(&out, kindCPU, encodeCPU(t.CPU))
	writeChunk(&out, kindIO, t.Bus.IO().Raw()[:])
	writeChunk(&out, kindPPU, encodePPU(t.PPU.Snapshot()))
	writeChunk(&out, kindGPIO, encodeGPIO(t.GPIO.Snapshot()))
	writeChunk(&out, kindAPU, encodeAPU(t.APU.Snapshot()))

	var schedPayload bytes.Buffer
	writeU64(&schedPayload, t.Sched.Cycles())
	writeChunk(&out, kindScheduler, schedPayload.Bytes())

	if pending := t.Sched.Pending(); len(pending) > 0 {
		var eventsPayload bytes.Buffer
		for _, e := range pending {
			writeEventRecord(&eventsPayload, e)
		}
		writeChunk(&out, kindSchedulerEvents, eventsPayload.Bytes())
	}

	writeChunk(&out, kindMemoryMeta, encodeMemoryMeta(t.Bus.Snapshot()))

	writeChunk(&out, kindEWRAM, encodeRegion(t.Bus.EWRAMRaw()))
	writeChunk(&out, kindIWRAM, encodeRegion(t.Bus.IWRAMRaw()))
	writeChunk(&out, kindVRAM, encodeRegion(t.Bus.VRAMRaw()))
	writeChunk(&out, kindPALRAM, encodeRegion(t.Bus.PALRAMRaw()))
	writeChunk(&out, kindOAM, encodeRegion(t.Bus.OAMRaw()))

	if chip := t.Bus.BackupChip(); chip != nil && chip.Size() > 0 {
		writeChunk(&out, kindBackupStorage, encodeRegion(chip.Raw()))
	}

	return out.Bytes()
}

func writeChunk(out *bytes.Buffer, kind uint32, payload []byte) {
	writeU32(out, kind)
	writeU32(out, uint32(len(payload)))
	out.Write(payload)
}

func writeU16(out *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	out.Write(b[:])
}

func writeU32(out *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	out.Write(b[:])
}

func writeU64(out *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	out.Write(b[:])
}

func writeI32(out *bytes.Buffer, v int32) { writeU32(out, uint32(v)) }

func writeBool(out *bytes.Buffer, v bool) {
	if v {
		writeU32(out, 1)
	} else {
		writeU32(out, 0)
	}
}

func encodeCPU(s *cpu.State) []byte {
	var p bytes.Buffer
	writeU32(&p, s.PC)
	writeU32(&p, s.LastFetched)
	writeU32(&p, uint32(s.Mode))
	return p.Bytes()
}

func encodePPU(s ppu.State) []byte {
	var p bytes.Buffer
	writeU32(&p, uint32(s.DisplayMode))
	writeU32(&p, uint32(s.Phase))
	writeU32(&p, uint32(s.Scanline))
	return p.Bytes()
}

func encodeGPIO(s gpio.State) []byte {
	var p bytes.Buffer
	writeU16(&p, s.Data)
	writeU16(&p, s.Direction)
	writeU16(&p, s.Control)
	return p.Bytes()
}

func encodeAPU(s apu.State) []byte {
	var p bytes.Buffer
	p.Write(s.FIFOA[:])
	writeU32(&p, uint32(s.FIFOALevel))
	p.Write(s.FIFOB[:])
	writeU32(&p, uint32(s.FIFOBLevel))
	writeU32(&p, s.SampleRate)
	return p.Bytes()
}

func encodeMemoryMeta(m bus.MemoryMeta) []byte {
	var p bytes.Buffer
	writeU32(&p, uint32(m.WAITCNT))
	writeU32(&p, uint32(m.BackupKind))
	ps := m.PrefetchState
	writeU32(&p, ps.InsnLen)
	writeI32(&p, ps.Capacity)
	writeI32(&p, ps.Size)
	writeU32(&p, ps.Head)
	writeU32(&p, ps.Tail)
	writeU32(&p, ps.Countdown)
	writeU32(&p, ps.Reload)
	writeBool(&p, ps.Enabled)
	writeBool(&p, ps.Configured)
	writeU32(&p, m.BIOSLatch)
	writeU32(&p, m.DMALatch)
	writeBool(&p, m.LastAccessWasDMA)
	writeBool(&p, m.GamepakBusInUse)
	return p.Bytes()
}

func writeEventRecord(out *bytes.Buffer, e scheduler.PendingEvent) {
	writeU32(out, uint32(e.Kind))
	writeU64(out, e.At)
	writeU64(out, e.Period)
	writeBool(out, e.Repeat)
	writeI32(out, e.Arg.Arg0)
	writeI32(out, e.Arg.Arg1)
}

// encodeRegion applies the size-minimising raw-vs-RLE rule: RLE is used
// only when it is strictly smaller than the raw encoding.
func encodeRegion(data []byte) []byte {
	rle := rleEncode(data)

	var p bytes.Buffer
	writeU32(&p, uint32(len(data)))
	if len(rle) < len(data) {
		p.WriteByte(1)
		p.Write([]byte{0, 0, 0})
		p.Write(rle)
	} else {
		p.WriteByte(0)
		p.Write([]byte{0, 0, 0})
		p.Write(data)
	}
	return p.Bytes()
}

// rleEncode produces a stream of (u16 run-length, u8 value) pairs. Runs
// longer than 0xFFFF bytes are split across multiple pairs.
func rleEncode(data []byte) []byte {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		v := data[i]
		run := 1
		for i+run < len(data) && data[i+run] == v && run < 0xFFFF {
			run++
		}
		var pair [3]byte
		binary.LittleEndian.PutUint16(pair[0:2], uint16(run))
		pair[2] = v
		out.Write(pair[:])
		i += run
	}
	return out.Bytes()
}
