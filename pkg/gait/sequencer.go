// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gait

import "github.com/Thermoquad/quadstat/pkg/quadproto"

// Sequencer replays a gait table on local timers.
//
// While active it emits the current step's snapshot, advances the cursor
// (wrapping at the end of the table) and schedules the next tick after that
// step's delay. At most one task is pending at any time. A Sequencer is not safe
// for concurrent use; all methods and scheduled ticks must run on one goroutine.
type Sequencer struct {
	sched Scheduler
	emit  func(quadproto.Snapshot)

	table   *Table
	cursor  int
	pending Task
	active  bool
	ticks   uint64
}

// NewSequencer creates an idle sequencer. emit receives every replayed snapshot.
func NewSequencer(sched Scheduler, emit func(quadproto.Snapshot)) *Sequencer {
	return &Sequencer{sched: sched, emit: emit}
}

// Start replays table from its first step. Any replay already running is
// cancelled first, so a direction change never resumes mid-stride.
func (s *Sequencer) Start(table *Table) {
	s.cancelPending()
	if table == nil || table.Len() == 0 {
		s.active = false
		return
	}

	s.table = table
	s.cursor = 0
	s.active = true
	s.tick()
}

// Stop cancels the pending tick. The cursor keeps its position.
func (s *Sequencer) Stop() {
	s.cancelPending()
	s.active = false
}

// Active reports whether a replay is running
func (s *Sequencer) Active() bool {
	return s.active
}

// Cursor returns the index of the next step to emit
func (s *Sequencer) Cursor() int {
	return s.cursor
}

// Table returns the table being replayed (or last replayed)
func (s *Sequencer) Table() *Table {
	return s.table
}

// Ticks returns the number of snapshots emitted since creation
func (s *Sequencer) Ticks() uint64 {
	return s.ticks
}

// Pending reports whether a tick is scheduled
func (s *Sequencer) Pending() bool {
	return s.pending != nil
}

func (s *Sequencer) tick() {
	s.pending = nil
	if !s.active {
		return
	}

	step := s.table.Steps[s.cursor]
	s.cursor++
	if s.cursor == s.table.Len() {
		s.cursor = 0
	}
	s.ticks++

	if s.emit != nil {
		s.emit(step.Pos)
	}

	// emit may have stopped or restarted the replay
	if !s.active || s.pending != nil {
		return
	}
	s.pending = s.sched.Schedule(step.Delay(), s.tick)
}

func (s *Sequencer) cancelPending() {
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}
