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

package quicksave

import (
	"encoding/binary"

	coreerrors "github.com/vblankline/gba-core/errors"
	"github.com/vblankline/gba-core/hardware/apu"
	"github.com/vblankline/gba-core/hardware/cpu"
	"github.com/vblankline/gba-core/hardware/io"
	"github.com/vblankline/gba-core/hardware/memory/backup"
	"github.com/vblankline/gba-core/hardware/memory/bus"
	"github.com/vblankline/gba-core/hardware/memory/gpio"
	"github.com/vblankline/gba-core/hardware/memory/memorymap"
	"github.com/vblankline/gba-core/hardware/ppu"
	"github.com/vblankline/gba-core/hardware/scheduler"
	"github.com/vblankline/gba-core/logger"
)

// reader walks a byte slice with an internal cursor, used for the
// fixed-width scalar chunk payloads.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader { return &reader{data: data} }

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

func (r *reader) i32() int32     { return int32(r.u32()) }
func (r *reader) boolean() bool  { return r.u32() != 0 }
func (r *reader) bytes(n int) []byte {
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func sizeErr(name string, got, want int) error {
	return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: %s chunk size %d, want %d", name, got, want)
}

func decodeCPU(payload []byte) cpu.State {
	r := newReader(payload)
	return cpu.State{PC: r.u32(), LastFetched: r.u32(), Mode: cpu.Mode(r.u32())}
}

func decodePPU(payload []byte) ppu.State {
	r := newReader(payload)
	return ppu.State{DisplayMode: int(r.u32()), Phase: ppu.Phase(r.u32()), Scanline: int(r.u32())}
}

func decodeGPIO(payload []byte) gpio.State {
	r := newReader(payload)
	return gpio.State{Data: r.u16(), Direction: r.u16(), Control: r.u16()}
}

func decodeAPU(payload []byte) apu.State {
	r := newReader(payload)
	var s apu.State
	copy(s.FIFOA[:], r.bytes(apu.FIFOCapacity))
	s.FIFOALevel = int(r.u32())
	copy(s.FIFOB[:], r.bytes(apu.FIFOCapacity))
	s.FIFOBLevel = int(r.u32())
	s.SampleRate = r.u32()
	return s
}

func decodeMemoryMeta(payload []byte) bus.MemoryMeta {
	r := newReader(payload)
	var m bus.MemoryMeta
	m.WAITCNT = uint16(r.u32())
	m.BackupKind = backup.Kind(r.u32())
	m.PrefetchState.InsnLen = r.u32()
	m.PrefetchState.Capacity = r.i32()
	m.PrefetchState.Size = r.i32()
	m.PrefetchState.Head = r.u32()
	m.PrefetchState.Tail = r.u32()
	m.PrefetchState.Countdown = r.u32()
	m.PrefetchState.Reload = r.u32()
	m.PrefetchState.Enabled = r.boolean()
	m.PrefetchState.Configured = r.boolean()
	m.BIOSLatch = r.u32()
	m.DMALatch = r.u32()
	m.LastAccessWasDMA = r.boolean()
	m.GamepakBusInUse = r.boolean()
	return m
}

func decodeEventRecord(rec []byte) scheduler.PendingEvent {
	r := newReader(rec)
	return scheduler.PendingEvent{
		Kind:   scheduler.Kind(r.u32()),
		At:     r.u64(),
		Period: r.u64(),
		Repeat: r.boolean(),
		Arg:    scheduler.Arg{Arg0: r.i32(), Arg1: r.i32()},
	}
}

// rleDecode reverses rleEncode, rejecting any run that would overflow the
// declared decoded size (testable against an injected malformed stream).
func rleDecode(data []byte, decodedSize uint32) ([]byte, error) {
	out := make([]byte, 0, decodedSize)
	for i := 0; i+3 <= len(data); i += 3 {
		run := binary.LittleEndian.Uint16(data[i : i+2])
		v := data[i+2]
		if uint32(len(out))+uint32(run) > decodedSize {
			return nil, coreerrors.KindErrorf(coreerrors.LoadCorrupt,
				"quicksave: RLE run overflows region (have %d, run %d, want %d)", len(out), run, decodedSize)
		}
		for j := 0; j < int(run); j++ {
			out = append(out, v)
		}
	}
	if uint32(len(out)) != decodedSize {
		return nil, coreerrors.KindErrorf(coreerrors.LoadCorrupt,
			"quicksave: RLE decode size mismatch (got %d, want %d)", len(out), decodedSize)
	}
	return out, nil
}

// decodeRegion reverses encodeRegion, validating the declared decoded size
// against expectedSize before touching live state.
func decodeRegion(payload []byte, expectedSize int) ([]byte, error) {
	if len(payload) < 8 {
		return nil, coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: truncated region header")
	}
	decodedSize := binary.LittleEndian.Uint32(payload[0:4])
	encoding := payload[4]
	data := payload[8:]

	if int(decodedSize) != expectedSize {
		return nil, coreerrors.KindErrorf(coreerrors.LoadCorrupt,
			"quicksave: region size mismatch (got %d, want %d)", decodedSize, expectedSize)
	}

	switch encoding {
	case 0:
		if len(data) != int(decodedSize) {
			return nil, coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: raw region payload size mismatch")
		}
		return append([]byte(nil), data...), nil
	case 1:
		return rleDecode(data, decodedSize)
	default:
		return nil, coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: unknown region encoding %d", encoding)
	}
}

// loaded accumulates every chunk's decoded value before anything is
// committed to the live Target, so a validation failure partway through
// never leaves state half-written.
type loaded struct {
	cpu      cpu.State
	ioRaw    [io.Size]byte
	ppu      ppu.State
	gpio     gpio.State
	apu      apu.State
	meta     bus.MemoryMeta
	schedCyc uint64
	events   []scheduler.PendingEvent

	ewram, iwram, vram, palram, oam []byte
	backupData                     []byte
	haveBackup                     bool

	seenCPU, seenIO, seenPPU, seenGPIO, seenAPU bool
	seenSched, seenMeta                         bool
	seenEWRAM, seenIWRAM, seenVRAM              bool
	seenPALRAM, seenOAM                         bool
}

func (l *loaded) mandatorySeen() bool {
	return l.seenCPU && l.seenIO && l.seenPPU && l.seenGPIO && l.seenAPU &&
		l.seenSched && l.seenMeta &&
		l.seenEWRAM && l.seenIWRAM && l.seenVRAM && l.seenPALRAM && l.seenOAM
}

// Load restores t from data, produced by an earlier call to Save (or by an
// older, pre-chunked build of this codec). The ROM's size and header code
// are validated before any chunk is dispatched; on any error t is left
// completely unmodified.
func Load(t *Target, data []byte) error {
	if len(data) < 4 || string(data[0:4]) != magic {
		return loadLegacyV1(t, data)
	}
	if len(data) < 16 {
		return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: truncated header")
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != currentVersion {
		return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: unknown version %d", version)
	}

	romSize := binary.LittleEndian.Uint32(data[8:12])
	romCode := binary.LittleEndian.Uint32(data[12:16])
	if romSize != t.Bus.ROMSize() || romCode != t.Bus.ROMCode() {
		return coreerrors.KindErrorf(coreerrors.LoadMismatch,
			"quicksave: ROM mismatch (size %d want %d, code %#08x want %#08x)",
			romSize, t.Bus.ROMSize(), romCode, t.Bus.ROMCode())
	}

	var l loaded
	cursor := 16
	for cursor < len(data) {
		if cursor+8 > len(data) {
			return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: truncated chunk header")
		}
		kind := binary.LittleEndian.Uint32(data[cursor : cursor+4])
		size := binary.LittleEndian.Uint32(data[cursor+4 : cursor+8])
		payloadStart := cursor + 8
		payloadEnd := payloadStart + int(size)
		if payloadEnd < payloadStart || payloadEnd > len(data) {
			return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: chunk kind %d extends past buffer", kind)
		}
		payload := data[payloadStart:payloadEnd]

		if err := dispatchChunk(&l, kind, payload); err != nil {
			return err
		}

		cursor = payloadEnd
	}

	if !l.mandatorySeen() {
		return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: missing mandatory chunk")
	}

	commit(t, &l)
	return nil
}

func dispatchChunk(l *loaded, kind uint32, payload []byte) error {
	switch kind {
	case kindCPU:
		if len(payload) != 12 {
			return sizeErr("core-CPU", len(payload), 12)
		}
		l.cpu = decodeCPU(payload)
		l.seenCPU = true
	case kindIO:
		if len(payload) != io.Size {
			return sizeErr("io", len(payload), io.Size)
		}
		copy(l.ioRaw[:], payload)
		l.seenIO = true
	case kindPPU:
		if len(payload) != 12 {
			return sizeErr("ppu", len(payload), 12)
		}
		l.ppu = decodePPU(payload)
		l.seenPPU = true
	case kindGPIO:
		if len(payload) != 6 {
			return sizeErr("gpio", len(payload), 6)
		}
		l.gpio = decodeGPIO(payload)
		l.seenGPIO = true
	case kindAPU:
		const apuSize = apu.FIFOCapacity + 4 + apu.FIFOCapacity + 4 + 4
		if len(payload) != apuSize {
			return sizeErr("apu", len(payload), apuSize)
		}
		l.apu = decodeAPU(payload)
		l.seenAPU = true
	case kindScheduler:
		if len(payload) != 8 {
			return sizeErr("scheduler", len(payload), 8)
		}
		l.schedCyc = binary.LittleEndian.Uint64(payload)
		l.seenSched = true
	case kindSchedulerEvents:
		if len(payload)%eventRecordSize != 0 {
			return coreerrors.KindErrorf(coreerrors.LoadCorrupt,
				"quicksave: scheduler-events size %d not a multiple of %d", len(payload), eventRecordSize)
		}
		for off := 0; off < len(payload); off += eventRecordSize {
			l.events = append(l.events, decodeEventRecord(payload[off:off+eventRecordSize]))
		}
	case kindMemoryMeta:
		if len(payload) != memoryMetaSize {
			return sizeErr("memory-meta", len(payload), memoryMetaSize)
		}
		l.meta = decodeMemoryMeta(payload)
		l.seenMeta = true
	case kindEWRAM:
		d, err := decodeRegion(payload, memorymap.EWRAMSize)
		if err != nil {
			return err
		}
		l.ewram, l.seenEWRAM = d, true
	case kindIWRAM:
		d, err := decodeRegion(payload, memorymap.IWRAMSize)
		if err != nil {
			return err
		}
		l.iwram, l.seenIWRAM = d, true
	case kindVRAM:
		d, err := decodeRegion(payload, memorymap.VRAMSize)
		if err != nil {
			return err
		}
		l.vram, l.seenVRAM = d, true
	case kindPALRAM:
		d, err := decodeRegion(payload, memorymap.PALRAMSize)
		if err != nil {
			return err
		}
		l.palram, l.seenPALRAM = d, true
	case kindOAM:
		d, err := decodeRegion(payload, memorymap.OAMSize)
		if err != nil {
			return err
		}
		l.oam, l.seenOAM = d, true
	case kindBackupStorage:
		if !l.seenMeta {
			return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: backup-storage chunk before memory-meta")
		}
		expected := 0
		if l.meta.BackupKind != backup.None {
			if probe := backup.New(l.meta.BackupKind); probe != nil {
				expected = probe.Size()
			}
		}
		d, err := decodeRegion(payload, expected)
		if err != nil {
			return err
		}
		l.backupData, l.haveBackup = d, true
	default:
		// Unknown chunk kind: forward-compat requires skipping it, which
		// the caller already does by advancing past the declared size.
		logger.Logf(logger.Allow, "quicksave", "unknown chunk kind %d skipped", kind)
	}
	return nil
}

// commit applies a fully-validated loaded snapshot to t. Called only after
// every chunk has passed validation, so a failed load never reaches here.
func commit(t *Target, l *loaded) {
	*t.CPU = l.cpu
	t.Bus.IO().LoadRaw(l.ioRaw[:])
	t.PPU.Restore(l.ppu)
	t.GPIO.Restore(l.gpio)
	t.APU.Restore(l.apu)
	t.Bus.Restore(l.meta)
	t.Bus.LoadEWRAM(l.ewram)
	t.Bus.LoadIWRAM(l.iwram)
	t.Bus.LoadVRAM(l.vram)
	t.Bus.LoadPALRAM(l.palram)
	t.Bus.LoadOAM(l.oam)

	if l.haveBackup {
		chip := backup.New(l.meta.BackupKind)
		if chip != nil {
			chip.LoadRaw(l.backupData)
			chip.ClearDirty()
		}
		t.Bus.SetBackup(l.meta.BackupKind, chip)
	} else {
		t.Bus.SetBackup(backup.None, nil)
	}

	t.Sched.Reset()
	t.Sched.Restore(l.schedCyc, l.events)
}

// loadLegacyV1 handles the pre-chunked format: a flat concatenation of
// fixed-size records (CPU, memory meta, IO, PPU, GPIO, APU, scheduler
// cycles, then an event count and that many event records) with no magic,
// no chunk framing, and no ROM validation. It predates per-region RLE, so
// RAM contents and backup storage are not part of the stream and are left
// untouched; callers restoring a v1 snapshot should expect a cold-RAM
// resume.
func loadLegacyV1(t *Target, data []byte) error {
	logger.Logf(logger.Allow, "quicksave", "no magic: loading as legacy v1 stream")

	const (
		cpuSize         = 12
		ppuSize         = 12
		gpioSize        = 6
		apuPayloadSize  = apu.FIFOCapacity + 4 + apu.FIFOCapacity + 4 + 4
		schedHeaderSize = 8
	)

	cursor := 0
	need := func(n int) error {
		if cursor+n > len(data) {
			return coreerrors.KindErrorf(coreerrors.LoadCorrupt, "quicksave: legacy v1 stream truncated")
		}
		return nil
	}

	if err := need(cpuSize); err != nil {
		return err
	}
	cpuState := decodeCPU(data[cursor : cursor+cpuSize])
	cursor += cpuSize

	if err := need(memoryMetaSize); err != nil {
		return err
	}
	meta := decodeMemoryMeta(data[cursor : cursor+memoryMetaSize])
	cursor += memoryMetaSize

	if err := need(io.Size); err != nil {
		return err
	}
	var ioRaw [io.Size]byte
	copy(ioRaw[:], data[cursor:cursor+io.Size])
	cursor += io.Size

	if err := need(ppuSize); err != nil {
		return err
	}
	ppuState := decodePPU(data[cursor : cursor+ppuSize])
	cursor += ppuSize

	if err := need(gpioSize); err != nil {
		return err
	}
	gpioState := decodeGPIO(data[cursor : cursor+gpioSize])
	cursor += gpioSize

	if err := need(apuPayloadSize); err != nil {
		return err
	}
	apuState := decodeAPU(data[cursor : cursor+apuPayloadSize])
	cursor += apuPayloadSize

	if err := need(schedHeaderSize); err != nil {
		return err
	}
	schedCycles := binary.LittleEndian.Uint64(data[cursor : cursor+8])
	cursor += schedHeaderSize

	if err := need(4); err != nil {
		return err
	}
	eventsSize := binary.LittleEndian.Uint32(data[cursor : cursor+4])
	cursor += 4

	pending := make([]scheduler.PendingEvent, 0, eventsSize)
	for i := uint32(0); i < eventsSize; i++ {
		if err := need(eventRecordSize); err != nil {
			return err
		}
		pending = append(pending, decodeEventRecord(data[cursor:cursor+eventRecordSize]))
		cursor += eventRecordSize
	}

	*t.CPU = cpuState
	t.Bus.IO().LoadRaw(ioRaw[:])
	t.PPU.Restore(ppuState)
	t.GPIO.Restore(gpioState)
	t.APU.Restore(apuState)
	t.Bus.Restore(meta)
	t.Sched.Reset()
	t.Sched.Restore(schedCycles, pending)
	return nil
}
