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

// Package prefetch implements the speculative instruction-fetch state
// machine that sits on the cartridge bus. It amortises sequential fetch
// cost by reading ahead during CPU idle cycles, and is consulted (not
// bypassed) by the bus arbitrator for every cart-bus access while it is
// enabled and DMA is not in progress.
package prefetch

// Mode selects the CPU execution mode, which determines instruction length
// and buffer capacity.
type Mode int

const (
	Thumb Mode = iota
	ARM
)

const (
	thumbInsnLen  = 2
	thumbCapacity = 8
	armInsnLen    = 4
	armCapacity   = 4
)

// Buffer is the cartridge-bus prefetch state machine. The zero value is a
// disabled buffer; call SetEnabled(true) to turn it on.
type Buffer struct {
	insnLen   uint32
	capacity  int
	size      int
	head      uint32
	tail      uint32
	countdown uint32
	reload    uint32
	enabled   bool

	// configured becomes true the first time Access reconfigures the
	// buffer; guards against a zero-value Buffer spuriously treating
	// address 0 as a sequential hit before any miss has ever occurred.
	configured bool
}

// New returns a disabled buffer configured for ARM mode, matching reset
// state (the wait-state control register is zero until the host sets it).
func New() *Buffer {
	return &Buffer{insnLen: armInsnLen, capacity: armCapacity}
}

// Enabled reports whether the buffer is currently participating in cart-bus
// accesses. When false the bus arbitrator bypasses it entirely.
func (b *Buffer) Enabled() bool { return b.enabled }

// SetEnabled toggles participation. Disabling does not clear buffer state:
// re-enabling resumes from wherever it was left, matching real hardware
// behaviour around DMA.
func (b *Buffer) SetEnabled(v bool) { b.enabled = v }

// Size and Capacity expose the buffer invariant 0 <= Size() <= Capacity()
// (testable property 3).
func (b *Buffer) Size() int     { return b.size }
func (b *Buffer) Capacity() int { return b.capacity }

// Access models a CPU access at address addr. cost is the tabulated
// non-sequential cost for addr, used only on a miss. reload is the
// per-sequential-fetch cycle cost
// for the wait-state page addr lies on (seq16[page] in Thumb mode,
// seq32[page] in ARM mode); it only takes effect on a miss, since that is
// the only time the buffer is reconfigured.
//
// Returns the number of cycles the caller must charge to the scheduler.
func (b *Buffer) Access(addr uint32, mode Mode, cost uint32, reload uint32) uint32 {
	if b.tail == addr && b.configured {
		if b.size > 0 {
			b.tail += b.insnLen
			b.size--
			return 1
		}
		// A fetch is already in flight for this exact address: wait for it.
		charge := b.countdown
		b.tail += b.insnLen
		return charge
	}

	// Miss: reconfigure for the current mode and restart the pipeline.
	switch mode {
	case Thumb:
		b.insnLen = thumbInsnLen
		b.capacity = thumbCapacity
	case ARM:
		b.insnLen = armInsnLen
		b.capacity = armCapacity
	}
	b.reload = reload
	b.countdown = reload
	b.tail = addr + b.insnLen
	b.head = b.tail
	b.size = 0
	b.configured = true
	return cost
}

// Advance consumes n cycles of CPU idle time: while there is time left
// and room in the buffer, complete in-flight
// fetches and start new ones.
func (b *Buffer) Advance(n uint32) {
	for n >= b.countdown && b.size < b.capacity {
		n -= b.countdown
		b.head += b.insnLen
		b.size++
		b.countdown = b.reload
	}
	if b.size < b.capacity {
		if n > b.countdown {
			// countdown cannot go negative; a short final slice simply
			// leaves the fetch in flight.
			b.countdown = 0
		} else {
			b.countdown -= n
		}
	}
}

// Reset clears the buffer to its power-on state (disabled, ARM mode, empty).
func (b *Buffer) Reset() {
	*b = Buffer{insnLen: armInsnLen, capacity: armCapacity}
}

// State is a flat snapshot of the buffer for the quicksave codec's
// memory-meta chunk. It captures every field in Buffer, field by field
// rather than a raw struct memcpy, since the on-disk layout is named
// fields, not Buffer's in-memory layout.
type State struct {
	InsnLen    uint32
	Capacity   int32
	Size       int32
	Head       uint32
	Tail       uint32
	Countdown  uint32
	Reload     uint32
	Enabled    bool
	Configured bool
}

// Snapshot returns the buffer's current state.
func (b *Buffer) Snapshot() State {
	return State{
		InsnLen: b.insnLen, Capacity: int32(b.capacity), Size: int32(b.size),
		Head: b.head, Tail: b.tail, Countdown: b.countdown, Reload: b.reload,
		Enabled: b.enabled, Configured: b.configured,
	}
}

// Restore overwrites the buffer's state from a snapshot.
func (b *Buffer) Restore(s State) {
	b.insnLen = s.InsnLen
	b.capacity = int(s.Capacity)
	b.size = int(s.Size)
	b.head = s.Head
	b.tail = s.Tail
	b.countdown = s.Countdown
	b.reload = s.Reload
	b.enabled = s.Enabled
	b.configured = s.Configured
}
