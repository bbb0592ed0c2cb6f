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

// Package preferences holds the small set of host-supplied start-of-day
// knobs: whether to skip the BIOS boot animation, the
// initial WAITCNT value to seed the bus arbitrator with, whether the
// prefetch buffer starts enabled, and the logger's verbosity.
//
// There is no disk-backed persistence here: the core's environment boundary
// permits no filesystem access, so a host that wants preferences to survive
// a restart owns that responsibility itself and fills in a Preferences
// value before calling ApplyTo.
package preferences

import (
	"fmt"

	"github.com/vblankline/gba-core/hardware/memory/bus"
	"github.com/vblankline/gba-core/hardware/memory/prefetch"
	"github.com/vblankline/gba-core/logger"
)

// Bool is a validated boolean preference value, accepting either a native
// bool or a "true"/"false" string so a host that stores preferences as text
// can feed them through uniformly.
type Bool struct {
	v bool
}

func (b *Bool) Get() bool { return b.v }

// Set accepts a bool or a "true"/"false" string.
func (b *Bool) Set(v interface{}) error {
	switch t := v.(type) {
	case bool:
		b.v = t
	case string:
		switch t {
		case "true":
			b.v = true
		case "false":
			b.v = false
		default:
			return fmt.Errorf("preferences: invalid bool value %q", t)
		}
	default:
		return fmt.Errorf("preferences: invalid bool value %v", v)
	}
	return nil
}

func (b *Bool) String() string {
	if b.v {
		return "true"
	}
	return "false"
}

// Preferences bundles every host-configurable knob the core consults
// before or during a run. All fields are safe to read from the core
// goroutine only; a host changes them before calling ApplyTo, not
// afterward.
type Preferences struct {
	// SkipBIOS records whether the host wants the BIOS boot animation
	// bypassed. It is stored only: ApplyTo does not read it, and nothing
	// else in the core acts on it.
	SkipBIOS Bool

	// InitialWaitControl seeds the bus arbitrator's WAITCNT-derived latency
	// tables before the cartridge's own register writes take effect.
	InitialWaitControl uint16

	// PrefetchEnabled is the prefetch buffer's power-on state.
	PrefetchEnabled Bool

	// LogVerbosity is an opaque level passed through to the logger package;
	// 0 means "anomalies only".
	LogVerbosity int
}

// Default returns the preferences a freshly-created Machine uses absent any
// host override: BIOS not skipped, WAITCNT zero, prefetch enabled.
func Default() Preferences {
	p := Preferences{InitialWaitControl: 0, LogVerbosity: 0}
	p.SkipBIOS.Set(false)
	p.PrefetchEnabled.Set(true)
	return p
}

// ApplyTo seeds a freshly-constructed bus arbitrator and prefetch buffer
// with this preference set, and sets the logger's verbosity threshold from
// LogVerbosity. Called once, before the first scheduler event fires.
func (p Preferences) ApplyTo(b *bus.Arbitrator, pf *prefetch.Buffer) {
	b.SetWaitControl(p.InitialWaitControl)
	pf.SetEnabled(p.PrefetchEnabled.Get())
	logger.SetVerbosity(p.LogVerbosity)
}
