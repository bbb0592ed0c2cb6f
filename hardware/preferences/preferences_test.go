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

package preferences_test

import (
	"bytes"
	"testing"

	"github.com/vblankline/gba-core/hardware/apu"
	"github.com/vblankline/gba-core/hardware/cpu"
	"github.com/vblankline/gba-core/hardware/io"
	"github.com/vblankline/gba-core/hardware/memory/bus"
	"github.com/vblankline/gba-core/hardware/memory/gpio"
	"github.com/vblankline/gba-core/hardware/memory/prefetch"
	"github.com/vblankline/gba-core/hardware/ppu"
	"github.com/vblankline/gba-core/hardware/preferences"
	"github.com/vblankline/gba-core/logger"
)

func TestBoolAcceptsNativeAndStringForms(t *testing.T) {
	var b preferences.Bool

	if err := b.Set(true); err != nil {
		t.Fatalf("Set(true): %v", err)
	}
	if !b.Get() {
		t.Error("Get() = false after Set(true)")
	}

	if err := b.Set("false"); err != nil {
		t.Fatalf(`Set("false"): %v`, err)
	}
	if b.Get() {
		t.Error("Get() = true after Set(\"false\")")
	}

	if err := b.Set("maybe"); err == nil {
		t.Error("Set(\"maybe\") should have failed")
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := preferences.Default()
	if p.SkipBIOS.Get() {
		t.Error("SkipBIOS default should be false")
	}
	if !p.PrefetchEnabled.Get() {
		t.Error("PrefetchEnabled default should be true")
	}
	if p.InitialWaitControl != 0 {
		t.Errorf("InitialWaitControl default = %#x, want 0", p.InitialWaitControl)
	}
}

func TestApplyToSeedsArbitratorAndPrefetch(t *testing.T) {
	rom := make([]byte, 0x100)
	cpuState := &cpu.State{}
	pf := prefetch.New()
	busArb := bus.New(rom, cpuState, io.New(), ppu.New(), gpio.New(), apu.New(), pf)

	p := preferences.Default()
	p.PrefetchEnabled.Set(false)
	p.InitialWaitControl = 0x4317
	p.LogVerbosity = 1

	p.ApplyTo(busArb, pf)

	if pf.Enabled() {
		t.Error("prefetch buffer should be disabled after ApplyTo")
	}
	if busArb.Snapshot().WAITCNT != 0x4317 {
		t.Errorf("WAITCNT after ApplyTo = %#x, want 0x4317", busArb.Snapshot().WAITCNT)
	}

	defer logger.SetVerbosity(0)
	logger.Clear()
	defer logger.Clear()
	var buf bytes.Buffer
	logger.Log(logger.Level(1), "tag", "only visible once verbosity is raised")
	logger.Write(&buf)
	if buf.String() == "" {
		t.Error("ApplyTo should have raised verbosity enough to allow a Level(1) log")
	}
}
