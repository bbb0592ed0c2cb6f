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

// Package apu holds only the state the scheduler and bus arbitrator need
// from the audio unit: the two DMA sound FIFO fill levels that the
// AudioFIFORefill event drains and DMA1/2 refill, and the sample-rate
// divider the APUSample event is rescheduled against. Actual synthesis is
// out of scope; this is the "core-APU" external
// collaborator, reduced to its bus-visible surface.
package apu

// FIFOCapacity is the depth of each DMA sound FIFO in bytes (GBATek: 32).
const FIFOCapacity = 32

// State is the bus-visible slice of APU state, and exactly what the
// quicksave codec's apu chunk serialises: a flat struct copy, field by
// field.
type State struct {
	FIFOA      [FIFOCapacity]byte
	FIFOALevel int
	FIFOB      [FIFOCapacity]byte
	FIFOBLevel int
	SampleRate uint32
}

// New returns an APU collaborator in its power-on state: empty FIFOs.
func New() *State {
	return &State{}
}

// PushA appends a byte to FIFO A, as happens when the CPU or a DMA channel
// writes to FIFO_A. Overflow silently drops the oldest byte, matching
// GBATek's description of FIFO_A/B as fixed 32-byte ring buffers.
func (s *State) PushA(b byte) { s.FIFOALevel = push(&s.FIFOA, s.FIFOALevel, b) }

// PushB appends a byte to FIFO B.
func (s *State) PushB(b byte) { s.FIFOBLevel = push(&s.FIFOB, s.FIFOBLevel, b) }

func push(fifo *[FIFOCapacity]byte, level int, b byte) int {
	if level >= FIFOCapacity {
		copy(fifo[:], fifo[1:])
		fifo[FIFOCapacity-1] = b
		return FIFOCapacity
	}
	fifo[level] = b
	return level + 1
}

// DrainA removes and returns the oldest byte in FIFO A, called by the
// AudioFIFORefill event handler. The second return value is false if the
// FIFO is empty.
func (s *State) DrainA() (byte, bool) {
	b, level, ok := drain(&s.FIFOA, s.FIFOALevel)
	s.FIFOALevel = level
	return b, ok
}

// DrainB removes and returns the oldest byte in FIFO B.
func (s *State) DrainB() (byte, bool) {
	b, level, ok := drain(&s.FIFOB, s.FIFOBLevel)
	s.FIFOBLevel = level
	return b, ok
}

func drain(fifo *[FIFOCapacity]byte, level int) (byte, int, bool) {
	if level == 0 {
		return 0, 0, false
	}
	b := fifo[0]
	copy(fifo[:], fifo[1:])
	return b, level - 1, true
}

// Snapshot and Restore round-trip the APU's bus-visible state for the
// quicksave codec.
func (s *State) Snapshot() State { return *s }
func (s *State) Restore(v State) { *s = v }
