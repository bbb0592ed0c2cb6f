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

// Package emulation implements the host/core boundary: a Machine runs the
// scheduler-driven core loop on a single dedicated goroutine and exposes
// only two lock-mediated channels to the host, a command queue and a
// shared-data struct holding the framebuffer and backup-dirty flag.
package emulation

// State reports what the Machine's core goroutine is currently doing. The
// host reads it via Machine.State, which loads an atomic.Value, so it is
// safe to poll from any goroutine without locking.
type State int

const (
	Initialising State = iota
	Running
	Paused
	Ending
)

func (s State) String() string {
	switch s {
	case Initialising:
		return "initialising"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Ending:
		return "ending"
	default:
		return "unknown"
	}
}
