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

// Package scheduler implements the discrete-event scheduler that drives all
// emulator timing: an ordered store of future work items keyed by absolute
// cycle count, plus the monotonic cycle counter itself. Every other
// component (the bus arbitrator, the prefetch buffer, timers, DMA) either
// charges cycles to the scheduler or schedules future work through it.
//
// Handlers are registered per event Kind, not per event instance, so that an
// event's storage is a flat, fixed-size record with no heap indirection on
// the hot path.
package scheduler

import (
	"math"

	coreerrors "github.com/vblankline/gba-core/errors"
)

// Kind identifies what an event does when it fires.
type Kind uint8

const (
	HDraw Kind = iota
	HBlank
	Timer0Overflow
	Timer1Overflow
	Timer2Overflow
	Timer3Overflow
	DMAFire
	APUSample
	AudioFIFORefill
	IRQLine
	Quit
	numKinds
)

func (k Kind) String() string {
	switch k {
	case HDraw:
		return "hdraw"
	case HBlank:
		return "hblank"
	case Timer0Overflow:
		return "timer0-overflow"
	case Timer1Overflow:
		return "timer1-overflow"
	case Timer2Overflow:
		return "timer2-overflow"
	case Timer3Overflow:
		return "timer3-overflow"
	case DMAFire:
		return "dma-fire"
	case APUSample:
		return "apu-sample"
	case AudioFIFORefill:
		return "audio-fifo-refill"
	case IRQLine:
		return "irq-line"
	case Quit:
		return "quit-sentinel"
	default:
		return "unknown"
	}
}

// Arg is the inline argument payload carried by an event. It is sized to
// hold the largest handler argument in use (a timer index or DMA channel
// index) so that events never require heap indirection.
type Arg struct {
	Arg0 int32
	Arg1 int32
}

// Handler is invoked when an event of the Kind it is registered for fires.
// index is the event's stable slot index, useful for a handler that wants
// to Reschedule or Cancel itself.
type Handler func(s *Scheduler, index int, arg Arg)

type event struct {
	kind   Kind
	active bool
	repeat bool
	at     uint64
	period uint64
	arg    Arg
	seq    uint64 // insertion sequence, used only to break At ties
}

// Scheduler owns the cycle counter and the event store. Not safe for
// concurrent use: the emulation thread is the only caller.
type Scheduler struct {
	cycles    uint64
	events    []event
	nextEvent uint64
	insertSeq uint64
	handlers  [numKinds]Handler
}

// New creates an empty scheduler with the cycle counter at zero.
func New() *Scheduler {
	return &Scheduler{nextEvent: math.MaxUint64}
}

// Cycles returns the current cycle counter.
func (s *Scheduler) Cycles() uint64 { return s.cycles }

// SetHandler registers the function invoked whenever an event of the given
// kind fires. Re-registering replaces the previous handler.
func (s *Scheduler) SetHandler(kind Kind, h Handler) {
	s.handlers[kind] = h
}

// Add inserts a new event and returns its stable slot index. The caller
// must not pass an at value less than the current cycle count.
func (s *Scheduler) Add(kind Kind, at uint64, period uint64, repeat bool, arg Arg) int {
	if at < s.cycles {
		panic(coreerrors.KindErrorf(coreerrors.Internal, "scheduler: event scheduled in the past (at=%d, cycles=%d)", at, s.cycles))
	}

	e := event{kind: kind, active: true, repeat: repeat, at: at, period: period, arg: arg, seq: s.insertSeq}
	s.insertSeq++

	for i := range s.events {
		if !s.events[i].active {
			s.events[i] = e
			s.touchNextEvent(at)
			return i
		}
	}

	s.events = append(s.events, e)
	s.touchNextEvent(at)
	return len(s.events) - 1
}

// Cancel marks the event at index inactive. The slot may be reused by a
// future Add.
func (s *Scheduler) Cancel(index int) {
	s.events[index].active = false
}

// Reschedule updates the absolute fire time of an active event.
func (s *Scheduler) Reschedule(index int, at uint64) {
	if at < s.cycles {
		panic(coreerrors.KindErrorf(coreerrors.Internal, "scheduler: reschedule into the past (at=%d, cycles=%d)", at, s.cycles))
	}
	s.events[index].at = at
	s.touchNextEvent(at)
}

// Active reports whether the event at index is still active.
func (s *Scheduler) Active(index int) bool {
	return index >= 0 && index < len(s.events) && s.events[index].active
}

func (s *Scheduler) touchNextEvent(at uint64) {
	if at < s.nextEvent {
		s.nextEvent = at
	}
}

// earliest finds the active event with the smallest At, breaking ties by
// insertion order. Returns ok=false if no event is active.
func (s *Scheduler) earliest() (index int, at uint64, ok bool) {
	best := -1
	var bestAt, bestSeq uint64
	for i := range s.events {
		e := &s.events[i]
		if !e.active {
			continue
		}
		if best < 0 || e.at < bestAt || (e.at == bestAt && e.seq < bestSeq) {
			best = i
			bestAt = e.at
			bestSeq = e.seq
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestAt, true
}

// RunUntil advances the scheduler by up to budgetCycles, firing every event
// whose At falls within the budget in cycle order (ties broken by insertion
// order). If the budget is exhausted with no event left to fire within it,
// the cycle counter advances by the remainder and RunUntil returns.
func (s *Scheduler) RunUntil(budgetCycles uint64) {
	deadline := s.cycles + budgetCycles

	for {
		idx, at, ok := s.earliest()
		if !ok || at > deadline {
			s.cycles = deadline
			return
		}

		s.cycles = at
		e := &s.events[idx]
		arg := e.arg
		kind := e.kind

		if e.repeat {
			e.at += e.period
			if e.at < s.nextEvent {
				s.nextEvent = e.at
			}
		} else {
			e.active = false
		}

		if h := s.handlers[kind]; h != nil {
			h(s, idx, arg)
		}
	}
}

// StepOne fires exactly the next active event, regardless of budget, and
// reports whether there was one. Used by callers that want single-event
// granularity (the headless runner, tests) rather than a cycle budget.
func (s *Scheduler) StepOne() bool {
	idx, at, ok := s.earliest()
	if !ok {
		return false
	}

	s.cycles = at
	e := &s.events[idx]
	arg := e.arg
	kind := e.kind

	if e.repeat {
		e.at += e.period
	} else {
		e.active = false
	}

	if h := s.handlers[kind]; h != nil {
		h(s, idx, arg)
	}
	return true
}

// IdleFor charges n cycles to the CPU without guaranteeing any particular
// event fires, implemented as a bounded RunUntil.
func (s *Scheduler) IdleFor(n uint64) {
	s.RunUntil(n)
}

// PendingEvent is a read-only snapshot of one active event, used by the
// quicksave codec and diagnostics; it carries no reference back into the
// scheduler's internal storage.
type PendingEvent struct {
	Kind   Kind
	At     uint64
	Period uint64
	Repeat bool
	Arg    Arg
}

// Pending returns a snapshot of every active event, in slot order.
func (s *Scheduler) Pending() []PendingEvent {
	out := make([]PendingEvent, 0, len(s.events))
	for i := range s.events {
		if !s.events[i].active {
			continue
		}
		e := &s.events[i]
		out = append(out, PendingEvent{Kind: e.kind, At: e.at, Period: e.period, Repeat: e.repeat, Arg: e.arg})
	}
	return out
}

// Reset discards every event (active or not) and resets the cycle counter
// to zero. Used by the quicksave loader, which must free the event store
// before repopulating it from a chunked or legacy snapshot.
func (s *Scheduler) Reset() {
	s.events = s.events[:0]
	s.cycles = 0
	s.nextEvent = math.MaxUint64
	s.insertSeq = 0
}

// Restore replaces the event store wholesale with the given pending events
// and sets the cycle counter. Used only by the quicksave loader, after every
// chunk has been validated, so that a failed load never leaves the store
// partially populated.
func (s *Scheduler) Restore(cycles uint64, pending []PendingEvent) {
	s.events = s.events[:0]
	s.insertSeq = 0
	s.nextEvent = math.MaxUint64
	for _, p := range pending {
		e := event{kind: p.Kind, active: true, repeat: p.Repeat, at: p.At, period: p.Period, arg: p.Arg, seq: s.insertSeq}
		s.insertSeq++
		s.events = append(s.events, e)
		s.touchNextEvent(p.At)
	}
	s.cycles = cycles
}
