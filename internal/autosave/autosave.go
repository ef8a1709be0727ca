/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package autosave debounces scene mutations into save calls. Only one save
// task is outstanding at a time; every new mutation restarts the delay.
package autosave

import (
	"log/slog"
	"sync"
	"time"

	"activitycanvas/internal/engine"
	applog "activitycanvas/internal/log"
)

// DefaultDelay is the quiet period before a save fires.
const DefaultDelay = 1500 * time.Millisecond

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. The default wraps time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type Options struct {
	Delay     time.Duration
	AfterFunc AfterFunc
	// Locked starts the scheduler disabled.
	Locked bool
}

// Scheduler is safe for concurrent use; save runs on the timer goroutine.
type Scheduler struct {
	save  func()
	delay time.Duration
	after AfterFunc
	log   *slog.Logger

	mu     sync.Mutex
	timer  Timer
	gen    uint64
	locked bool
	closed bool
	subs   engine.Subscriptions
}

// New returns a scheduler calling save after each quiet period. A nil save
// disables it entirely.
func New(save func(), opts Options) *Scheduler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = stdAfterFunc
	}
	return &Scheduler{
		save:   save,
		delay:  opts.Delay,
		after:  opts.AfterFunc,
		locked: opts.Locked,
		log:    applog.WithComponent("autosave"),
	}
}

// Attach triggers the scheduler on every structural or content change of eng.
func (s *Scheduler) Attach(eng engine.Engine) {
	for _, ev := range []engine.Event{engine.ObjectAdded, engine.ObjectRemoved, engine.ObjectModified, engine.PathCreated} {
		s.subs.Add(eng.On(ev, func(engine.EventData) { s.Trigger() }))
	}
}

// Trigger (re)starts the delay. It is a no-op when locked, closed or when no
// save callback is configured.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.save == nil || s.locked || s.closed {
		return
	}
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.timer = s.after(s.delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil || s.locked || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.log.Debug("autosave")
	s.save()
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a save is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Cancel drops a scheduled save without closing the scheduler.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// SetLocked disables the scheduler while on; locking cancels a pending save.
func (s *Scheduler) SetLocked(on bool) {
	s.mu.Lock()
	s.locked = on
	if on {
		s.stopLocked()
	}
	s.mu.Unlock()
}

// Close cancels any pending save and detaches from the engine. Further
// triggers are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()
	s.subs.ReleaseAll()
}
