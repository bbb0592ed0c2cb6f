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

// Package gpio models the three cartridge GPIO registers mapped at
// 0x080000C4-0x080000CA (GBATek), used by a small number of cartridges for
// real-time-clock or rumble peripherals. The peripherals themselves are out
// of scope (GPIO chips are external collaborators); this
// package is only the register file the bus arbitrator reads and writes,
// and the chunk the quicksave codec snapshots.
package gpio

// Register selects one of the three GPIO registers, addressed by their
// offset from 0x080000C4.
type Register int

const (
	Data Register = iota
	Direction
	Control
)

// State is the bus-visible GPIO register file, and exactly what the
// quicksave codec's gpio chunk serialises: a flat struct copy, field by
// field.
type State struct {
	Data      uint16
	Direction uint16
	// Control holds the read-enable bit (bit 0): when clear, ReadRegister
	// refuses Data and Direction and the bus arbitrator serves the
	// cartridge ROM bytes at those addresses instead of the latched values,
	// per GBATek's description of the GPIO port "readable" flag.
	Control uint16
}

// New returns a GPIO register file in its power-on state: all registers
// zero, port not readable.
func New() *State {
	return &State{}
}

// Readable reports whether the CPU is currently allowed to read back the
// Data and Direction registers (Control bit 0).
func (s *State) Readable() bool { return s.Control&1 != 0 }

// ReadRegister returns the current value of reg, honouring Readable(): an
// unreadable port returns zero and false for Data and Direction, and the
// bus arbitrator then falls through to its ordinary cartridge read for
// that address.
func (s *State) ReadRegister(reg Register) (value uint16, ok bool) {
	if !s.Readable() && reg != Control {
		return 0, false
	}
	switch reg {
	case Data:
		return s.Data, true
	case Direction:
		return s.Direction, true
	case Control:
		return s.Control, true
	}
	return 0, false
}

// WriteRegister stores value into reg. Writes to Data are masked by
// Direction, since pins configured as inputs cannot be driven by the CPU
// (GBATek).
func (s *State) WriteRegister(reg Register, value uint16) {
	switch reg {
	case Data:
		s.Data = (s.Data &^ s.Direction) | (value & s.Direction)
	case Direction:
		s.Direction = value
	case Control:
		s.Control = value
	}
}

// Snapshot and Restore round-trip the GPIO register file for the quicksave
// codec.
func (s *State) Snapshot() State { return *s }
func (s *State) Restore(v State) { *s = v }
