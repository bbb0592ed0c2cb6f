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

package diag

import (
	"sync/atomic"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Counters is the small set of throughput numbers a host can record on a
// StatsServer. Every field is an atomic, so a host may update them from any
// goroutine. The HTTP server does not publish them: it serves only the Go
// runtime charts statsview provides.
type Counters struct {
	SchedulerCycles atomic.Uint64
	BusAccesses     atomic.Uint64
}

// StatsServer optionally serves statsview's Go runtime charts over HTTP
// for a developer profiling the core, and holds Counters alongside. It is
// off by default: nothing in the core ever calls Launch for itself.
type StatsServer struct {
	Counters Counters

	viewer *statsview.Viewer
}

// NewStatsServer constructs a StatsServer listening on addr (e.g.
// ":18066") once Launch is called.
func NewStatsServer(addr string) *StatsServer {
	return &StatsServer{
		viewer: statsview.New(viewer.WithAddr(addr)),
	}
}

// Launch starts the stats HTTP server in its own goroutine and returns
// immediately; it never blocks the caller and is safe to call from a host
// main function after the core goroutine has started.
func (s *StatsServer) Launch() {
	go s.viewer.Start()
}
