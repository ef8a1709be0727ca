/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package clipboard implements a single-slot copy/paste buffer. The slot holds
// detached clones; each paste cascades by Offset from the previous one.
package clipboard

import (
	"fmt"
	"log/slog"
	"sync"

	"activitycanvas/internal/engine"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
)

// DefaultOffset is the per-paste displacement in scene units.
const DefaultOffset = 10.0

// Clipboard is safe for concurrent use.
type Clipboard struct {
	mu     sync.Mutex
	slot   []scene.Object
	offset float64
}

// Default is the process-wide clipboard shared by all sessions.
var Default = New(DefaultOffset)

// New returns an empty clipboard. A non-positive offset uses DefaultOffset.
func New(offset float64) *Clipboard {
	if offset <= 0 {
		offset = DefaultOffset
	}
	return &Clipboard{offset: offset}
}

// Copy replaces the slot with clones of the current selection. It reports
// whether anything was copied; locked sessions and empty selections copy
// nothing and leave the slot intact.
func (c *Clipboard) Copy(eng engine.Engine, locked bool) (bool, error) {
	if locked {
		return false, nil
	}
	objs := eng.ActiveObjects()
	if len(objs) == 0 {
		return false, nil
	}
	clones, err := scene.CloneAll(objs)
	if err != nil {
		return false, fmt.Errorf("copy: %w", err)
	}
	c.mu.Lock()
	c.slot = clones
	c.mu.Unlock()
	applog.WithComponent("clipboard").Debug("copied", slog.Int("objects", len(clones)))
	return true, nil
}

// Paste adds fresh clones of the slot, shifted by the offset, and selects
// them. The slot itself moves by the same offset so the k-th paste lands at
// the original position plus k times the offset.
func (c *Clipboard) Paste(eng engine.Engine, locked bool) ([]scene.Object, error) {
	if locked {
		return nil, nil
	}
	c.mu.Lock()
	if len(c.slot) == 0 {
		c.mu.Unlock()
		return nil, nil
	}
	pasted, err := scene.CloneAll(c.slot)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("paste: %w", err)
	}
	// The slot advances with each paste so copies cascade.
	for i, o := range c.slot {
		b := o.Base()
		b.Left += c.offset
		b.Top += c.offset
		pb := pasted[i].Base()
		pb.Left, pb.Top = b.Left, b.Top
		pb.SetInteractive(true)
	}
	c.mu.Unlock()
	eng.DiscardActive()
	eng.Add(pasted...)
	eng.SetActiveObjects(pasted...)
	eng.RequestRender()
	return pasted, nil
}

// Empty reports whether the slot holds nothing.
func (c *Clipboard) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slot) == 0
}

// Clear drops the slot.
func (c *Clipboard) Clear() {
	c.mu.Lock()
	c.slot = nil
	c.mu.Unlock()
}
