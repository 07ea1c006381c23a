// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gait

import "time"

// Task is a scheduled callback that can be cancelled
type Task interface {
	Cancel()
}

// Scheduler runs a callback once after a delay
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// LoopScheduler schedules callbacks onto a single event loop.
//
// Timers fire on runtime goroutines; the callback itself is handed to post, which
// must run it on the loop. Cancel must be called from the loop as well: a task
// cancelled after its timer fired but before the loop ran it is still dropped.
type LoopScheduler struct {
	post func(func())
}

// NewLoopScheduler creates a scheduler that delivers callbacks through post
func NewLoopScheduler(post func(func())) *LoopScheduler {
	return &LoopScheduler{post: post}
}

type loopTask struct {
	timer     *time.Timer
	cancelled bool // loop-owned
}

// Schedule arms a timer for fn
func (s *LoopScheduler) Schedule(d time.Duration, fn func()) Task {
	t := &loopTask{}
	t.timer = time.AfterFunc(d, func() {
		s.post(func() {
			if t.cancelled {
				return
			}
			t.cancelled = true
			fn()
		})
	})
	return t
}

func (t *loopTask) Cancel() {
	t.cancelled = true
	t.timer.Stop()
}
