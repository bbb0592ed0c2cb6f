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

package diag_test

import (
	"bytes"
	"testing"

	"github.com/vblankline/gba-core/hardware/scheduler"
	"github.com/vblankline/gba-core/internal/diag"
)

func TestDumpSchedulerGraphProducesNonEmptyOutput(t *testing.T) {
	s := scheduler.New()
	s.Add(scheduler.HDraw, 960, 1232, true, scheduler.Arg{})

	var buf bytes.Buffer
	diag.DumpSchedulerGraph(&buf, s)

	if buf.Len() == 0 {
		t.Fatal("DumpSchedulerGraph wrote no output")
	}
}

func TestStatsServerLaunchDoesNotPanic(t *testing.T) {
	ss := diag.NewStatsServer(":0")
	ss.Counters.SchedulerCycles.Add(1232)
	ss.Counters.BusAccesses.Add(3)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Launch panicked: %v", r)
		}
	}()
	ss.Launch()
}
