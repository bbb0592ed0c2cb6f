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

// Package cpu holds only the ARM7TDMI state the bus arbitrator needs to
// synthesise open-bus reads and to guard BIOS-region reads. Full
// instruction decode and execution are out of scope; this is the
// "core-CPU" external collaborator, reduced to its bus-visible surface.
package cpu

// Mode is the current instruction set the CPU is executing in.
type Mode int

const (
	ARM Mode = iota
	Thumb
)

// State is the bus-visible slice of CPU state. It is also exactly what the
// quicksave codec's core-CPU chunk serialises: a flat struct copy, field
// by field.
type State struct {
	PC uint32
	// LastFetched is the last instruction word the CPU actually fetched
	// (widened to 32 bits), used by the bus arbitrator to synthesise
	// open-bus reads per GBATek's "unpredictable things" rules.
	LastFetched uint32
	Mode        Mode
}

// ProgramCounter returns the current PC, used by the bus arbitrator to
// decide whether a BIOS-region read is legal.
func (s *State) ProgramCounter() uint32 { return s.PC }

// CurrentMode returns the active instruction mode.
func (s *State) CurrentMode() Mode { return s.Mode }

// LastFetchedWord returns the last word fetched by the CPU, used for
// open-bus synthesis.
func (s *State) LastFetchedWord() uint32 { return s.LastFetched }

// Collaborator is the minimal surface the bus arbitrator requires from the
// CPU. *State implements it directly; tests may supply a stub.
type Collaborator interface {
	ProgramCounter() uint32
	CurrentMode() Mode
	LastFetchedWord() uint32
}
