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

// Package ppu holds only the state the bus arbitrator and scheduler need
// from the picture processing unit: its display-control mode, which
// decides where in VRAM the OBJ tile boundary falls,
// and the HDraw/HBlank phase the scheduler drives. Pixel rendering itself
// is out of scope; this is the "core-PPU" external
// collaborator, reduced to its bus-visible surface.
package ppu

// BitmapModeBoundary and TileModeBoundary are the two possible byte offsets
// within VRAM at which the OBJ character base begins, depending on
// DISPCNT's mode field (GBATek's bitmap modes 3-5 reserve more space for
// backgrounds than the tile modes 0-2 do).
const (
	TileModeBoundary   = 0x10000
	BitmapModeBoundary = 0x14000
)

// Phase is the current position within the scanline/frame cycle. It is not
// mirrored into DISPSTAT, and the bus arbitrator does not consult it for
// VRAM/OAM access contention.
type Phase int

const (
	HDraw Phase = iota
	HBlank
	VBlank
)

// State is the bus-visible slice of PPU state, and exactly what the
// quicksave codec's ppu chunk serialises: a flat struct copy, field by
// field.
type State struct {
	DisplayMode int
	Phase       Phase
	Scanline    int
}

// New returns a PPU collaborator in its power-on state: mode 0, HDraw,
// scanline 0.
func New() *State {
	return &State{}
}

// ObjBoundary returns the VRAM offset at which OBJ tile data begins, which
// depends on whether DISPCNT selects a bitmap mode (3-5) or a tile mode
// (0-2).
func (s *State) ObjBoundary() uint32 {
	if s.DisplayMode >= 3 {
		return BitmapModeBoundary
	}
	return TileModeBoundary
}

// CurrentPhase reports whether the current cycle lies in HDraw, HBlank or
// VBlank.
func (s *State) CurrentPhase() Phase { return s.Phase }

// AdvanceScanline moves to the next scanline, setting the phase to VBlank
// on scanlines at or past visibleScanlines and back to HDraw otherwise;
// called by the scheduler's HBlank handler.
func (s *State) AdvanceScanline(totalScanlines, visibleScanlines int) {
	s.Scanline++
	if s.Scanline >= totalScanlines {
		s.Scanline = 0
	}
	switch {
	case s.Scanline >= visibleScanlines:
		s.Phase = VBlank
	default:
		s.Phase = HDraw
	}
}

// EnterHBlank is called by the scheduler's HDraw handler at the end of the
// visible window of a scanline.
func (s *State) EnterHBlank() { s.Phase = HBlank }

// Snapshot and Restore round-trip the PPU's bus-visible state for the
// quicksave codec.
func (s *State) Snapshot() State { return *s }
func (s *State) Restore(v State) { *s = v }
