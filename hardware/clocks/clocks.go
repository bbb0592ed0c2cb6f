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

// Package clocks defines the constant values that describe the speed of the
// ARM7TDMI master clock and the frame timing derived from it. All cycle
// counts elsewhere in the core are expressed in units of this clock.
package clocks

// MasterClockHz is the ARM7TDMI master clock frequency on real hardware.
const MasterClockHz = 16777216 // 2^24, ~16.78MHz

const (
	CyclesPerScanline  = 1232
	ScanlinesPerFrame  = 228
	VisibleScanlines   = 160
	VBlankScanlines    = ScanlinesPerFrame - VisibleScanlines
	CyclesPerHDraw     = 960
	CyclesPerHBlank    = CyclesPerScanline - CyclesPerHDraw
	CyclesPerFrame     = CyclesPerScanline * ScanlinesPerFrame
)

// FrameHz is the approximate refresh rate implied by the constants above.
func FrameHz() float64 {
	return float64(MasterClockHz) / float64(CyclesPerFrame)
}
