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

// Package io is the byte-level I/O register dispatcher the bus arbitrator
// delegates to for accesses in the 0x04000000 region.
// 16/32-bit accesses are synthesised from 2 or 4 byte accesses in
// little-endian order by the caller; this package only ever sees bytes.
//
// The individual register semantics (timers, DMA control, PPU/APU mirrors)
// belong to those components, which are out of scope here; this dispatcher
// is the flat byte-addressable surface the rest of the system writes
// through, grounded on a ChipBus-style dispatch interface
// for its own chip registers.
package io

// Size is the addressable span of the I/O register area. The real GBA only
// decodes a sparse subset of this, but unimplemented offsets simply behave
// as ordinary memory from the dispatcher's point of view; higher layers
// (not in scope here) apply side effects.
const Size = 0x400

// Dispatcher is the flat I/O register byte array plus any side-effect
// hooks registered by higher layers.
type Dispatcher struct {
	mem [Size]byte

	// onWrite, if set, is invoked after every byte write, letting a higher
	// layer react to register writes (e.g. recomputing wait-state tables).
	onWrite func(offset uint32, value byte)
}

// New returns a zeroed I/O register dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// SetWriteHook installs a callback invoked after every successful byte
// write, with the register offset (0-based, not a full CPU address) and
// the value written.
func (d *Dispatcher) SetWriteHook(h func(offset uint32, value byte)) {
	d.onWrite = h
}

// ReadByte returns the current value of a register byte. Offsets beyond
// Size return zero (open bus is handled by the caller, not here).
func (d *Dispatcher) ReadByte(offset uint32) byte {
	if offset >= Size {
		return 0
	}
	return d.mem[offset]
}

// WriteByte stores a register byte and invokes the write hook, if any.
func (d *Dispatcher) WriteByte(offset uint32, value byte) {
	if offset >= Size {
		return
	}
	d.mem[offset] = value
	if d.onWrite != nil {
		d.onWrite(offset, value)
	}
}

// Raw exposes the full register block, primarily for the quicksave codec's
// io chunk, which copies it verbatim.
func (d *Dispatcher) Raw() *[Size]byte { return &d.mem }

// LoadRaw replaces the register block wholesale from a quicksave chunk.
// len(data) is expected to equal Size; a shorter slice leaves the
// remaining bytes untouched.
func (d *Dispatcher) LoadRaw(data []byte) {
	copy(d.mem[:], data)
}
