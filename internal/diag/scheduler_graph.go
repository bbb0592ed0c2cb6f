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

// Package diag holds developer-facing observability tooling that is never
// exercised by the core itself: a Graphviz dump of the scheduler's live
// event store, and an optional HTTP stats server. Neither is on any hot
// path; both exist purely for a developer staring at a scheduling bug.
package diag

import (
	"io"

	"github.com/bradleyjkemp/memviz"

	"github.com/vblankline/gba-core/hardware/scheduler"
)

// DumpSchedulerGraph renders s's pending events, and everything they
// reference, as a Graphviz dot graph written to w. It works from a
// read-only snapshot taken via s.Pending(); Pending itself reads the event
// store without synchronisation, so the dump must not run while another
// goroutine is stepping the scheduler.
func DumpSchedulerGraph(w io.Writer, s *scheduler.Scheduler) {
	pending := s.Pending()
	memviz.Map(w, &pending)
}
