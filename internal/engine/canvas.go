/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"
	"log/slog"
	"sync"

	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

type listener struct {
	id uint64
	h  Handler
}

// Canvas is the built-in Engine backed by a scene.Scene and vector hit-testing.
// State is guarded by a mutex; handlers always run without the lock held.
type Canvas struct {
	mu        sync.Mutex
	surface   Surface
	sc        *scene.Scene
	active    []scene.Object
	editing   *scene.Text
	drawing   bool
	brush     Brush
	listeners map[Event][]listener
	nextID    uint64
	renders   int
	disposed  bool
	log       *slog.Logger
}

// New binds a Canvas to surface. Size and background fall back to the scene
// defaults when invalid.
func New(surface Surface, opts Options) (*Canvas, error) {
	if surface == nil {
		return nil, ErrNoSurface
	}
	sc := scene.New(opts.Width, opts.Height, opts.Background)
	c := &Canvas{
		surface:   surface,
		sc:        sc,
		brush:     Brush{Color: "#000000", Width: 2},
		listeners: make(map[Event][]listener),
		log:       applog.WithComponent("engine"),
	}
	surface.Resize(sc.Width, sc.Height)
	return c, nil
}

func (c *Canvas) Add(objs ...scene.Object) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	var added []scene.Object
	for _, o := range objs {
		if o == nil || c.sc.IndexOf(o) >= 0 {
			continue
		}
		c.sc.Objects = append(c.sc.Objects, o)
		added = append(added, o)
	}
	c.mu.Unlock()
	for _, o := range added {
		c.Fire(ObjectAdded, EventData{Target: o})
	}
}

func (c *Canvas) Remove(objs ...scene.Object) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	var removed []scene.Object
	for _, o := range objs {
		i := c.sc.IndexOf(o)
		if i < 0 {
			continue
		}
		c.sc.Objects = append(c.sc.Objects[:i], c.sc.Objects[i+1:]...)
		removed = append(removed, o)
		if t, ok := o.(*scene.Text); ok && c.editing == t {
			c.editing = nil
		}
	}
	prev := c.active
	c.active = without(c.active, removed)
	next := c.active
	c.mu.Unlock()

	for _, o := range removed {
		c.Fire(ObjectRemoved, EventData{Target: o})
	}
	if len(prev) != len(next) {
		c.fireSelection(prev, next)
	}
}

func without(list, drop []scene.Object) []scene.Object {
	if len(drop) == 0 {
		return list
	}
	out := list[:0:0]
	for _, o := range list {
		keep := true
		for _, d := range drop {
			if o == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, o)
		}
	}
	return out
}

func (c *Canvas) Objects() []scene.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]scene.Object(nil), c.sc.Objects...)
}

// Clear removes every object without firing per-object events. Used when a
// snapshot replaces the scene.
func (c *Canvas) Clear() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.sc.Objects = nil
	prev := c.active
	c.active = nil
	c.editing = nil
	c.mu.Unlock()
	if len(prev) > 0 {
		c.fireSelection(prev, nil)
	}
}

func (c *Canvas) SetBackground(color string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if !c.sc.SetBackground(color) {
		return fmt.Errorf("set background %q: %w", color, vector.ErrInvalidColor)
	}
	return nil
}

func (c *Canvas) Background() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sc.Background
}

func (c *Canvas) SetDimensions(width, height float64) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.sc.SetSize(width, height)
	w, h := c.sc.Width, c.sc.Height
	c.mu.Unlock()
	c.surface.Resize(w, h)
}

func (c *Canvas) Dimensions() vector.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return vector.Size{W: c.sc.Width, H: c.sc.Height}
}

// FindTarget returns the top-most evented object under p.
func (c *Canvas) FindTarget(p vector.Pt) scene.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sc.Objects) - 1; i >= 0; i-- {
		o := c.sc.Objects[i]
		if !o.Base().Evented {
			continue
		}
		if n := scene.Node(o); n != nil && n.Hit(p) {
			return o
		}
	}
	return nil
}

// BoundingRect reports the scene-space bounds of o; false when o is not in the scene.
func (c *Canvas) BoundingRect(o scene.Object) (vector.Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o == nil || c.sc.IndexOf(o) < 0 {
		return vector.Rect{}, false
	}
	return scene.Bounds(o), true
}

func (c *Canvas) ActiveObjects() []scene.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]scene.Object(nil), c.active...)
}

// ActiveObject returns the single selected object, or nil for none or many.
func (c *Canvas) ActiveObject() scene.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.active) != 1 {
		return nil
	}
	return c.active[0]
}

// SetActiveObjects replaces the selection. Objects that are not in the scene or
// not selectable are skipped.
func (c *Canvas) SetActiveObjects(objs ...scene.Object) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	var next []scene.Object
	for _, o := range objs {
		if o != nil && o.Base().Selectable && c.sc.IndexOf(o) >= 0 {
			next = append(next, o)
		}
	}
	prev := c.active
	c.active = next
	c.mu.Unlock()
	c.fireSelection(prev, next)
}

func (c *Canvas) DiscardActive() {
	c.mu.Lock()
	prev := c.active
	c.active = nil
	c.mu.Unlock()
	c.fireSelection(prev, nil)
}

func (c *Canvas) fireSelection(prev, next []scene.Object) {
	switch {
	case len(prev) == 0 && len(next) == 0:
		return
	case len(next) == 0:
		c.Fire(SelectionCleared, EventData{Deselected: prev})
	case len(prev) == 0:
		c.Fire(SelectionCreated, EventData{Selected: next, Target: next[0]})
	default:
		if sameObjects(prev, next) {
			return
		}
		c.Fire(SelectionUpdated, EventData{Selected: without(next, prev), Deselected: without(prev, next), Target: next[0]})
	}
}

func sameObjects(a, b []scene.Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Canvas) MoveObject(o scene.Object, dx, dy float64) {
	c.mu.Lock()
	if c.disposed || c.sc.IndexOf(o) < 0 {
		c.mu.Unlock()
		return
	}
	b := o.Base()
	if b.LockMovementX {
		dx = 0
	}
	if b.LockMovementY {
		dy = 0
	}
	b.Left += dx
	b.Top += dy
	c.mu.Unlock()
	if dx != 0 || dy != 0 {
		c.Fire(ObjectMoving, EventData{Target: o})
	}
}

func (c *Canvas) ScaleObject(o scene.Object, scaleX, scaleY float64) {
	c.mu.Lock()
	if c.disposed || c.sc.IndexOf(o) < 0 || scaleX == 0 || scaleY == 0 {
		c.mu.Unlock()
		return
	}
	b := o.Base()
	changed := false
	if !b.LockScalingX && b.ScaleX != scaleX {
		b.ScaleX = scaleX
		changed = true
	}
	if !b.LockScalingY && b.ScaleY != scaleY {
		b.ScaleY = scaleY
		changed = true
	}
	c.mu.Unlock()
	if changed {
		c.Fire(ObjectScaling, EventData{Target: o})
	}
}

func (c *Canvas) RotateObject(o scene.Object, angle float64) {
	c.mu.Lock()
	if c.disposed || c.sc.IndexOf(o) < 0 || o.Base().LockRotation {
		c.mu.Unlock()
		return
	}
	o.Base().Angle = angle
	c.mu.Unlock()
	c.Fire(ObjectRotating, EventData{Target: o})
}

// EndGesture marks the end of a move/scale/rotate interaction.
func (c *Canvas) EndGesture(o scene.Object) {
	c.mu.Lock()
	ok := !c.disposed && c.sc.IndexOf(o) >= 0
	c.mu.Unlock()
	if ok {
		c.Fire(ObjectModified, EventData{Target: o})
	}
}

func (c *Canvas) EditingText() scene.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == nil {
		return nil
	}
	return c.editing
}

func (c *Canvas) EnterTextEditing(t *scene.Text) {
	c.mu.Lock()
	if c.disposed || t == nil || c.sc.IndexOf(t) < 0 || !t.Evented {
		c.mu.Unlock()
		return
	}
	prev := c.editing
	c.editing = t
	c.mu.Unlock()
	if prev != nil && prev != t {
		c.Fire(TextEditingExited, EventData{Target: prev})
	}
	if prev != t {
		c.Fire(TextEditingEntered, EventData{Target: t})
	}
}

func (c *Canvas) ExitTextEditing() {
	c.mu.Lock()
	prev := c.editing
	c.editing = nil
	c.mu.Unlock()
	if prev != nil {
		c.Fire(TextEditingExited, EventData{Target: prev})
		c.Fire(ObjectModified, EventData{Target: prev})
	}
}

func (c *Canvas) DrawingMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

func (c *Canvas) SetDrawingMode(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.drawing = on
}

func (c *Canvas) Brush() Brush {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brush
}

func (c *Canvas) SetBrush(b Brush) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.Color != "" && vector.ValidColor(b.Color) {
		c.brush.Color = b.Color
	}
	if b.Width > 0 {
		c.brush.Width = b.Width
	}
}

// Fire dispatches ev to its handlers in subscription order.
func (c *Canvas) Fire(ev Event, data EventData) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	ls := append([]listener(nil), c.listeners[ev]...)
	c.mu.Unlock()
	data.Event = ev
	for _, l := range ls {
		l.h(data)
	}
}

// On subscribes h to ev. On a disposed engine the returned handle is inert.
func (c *Canvas) On(ev Event, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || h == nil {
		return &Subscription{}
	}
	c.nextID++
	id := c.nextID
	c.listeners[ev] = append(c.listeners[ev], listener{id: id, h: h})
	return &Subscription{release: func() { c.off(ev, id) }}
}

func (c *Canvas) off(ev Event, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ls := c.listeners[ev]
	for i, l := range ls {
		if l.id == id {
			c.listeners[ev] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Listeners reports how many handlers are attached to ev.
func (c *Canvas) Listeners(ev Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[ev])
}

// RequestRender invalidates the surface and fires after:render.
func (c *Canvas) RequestRender() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.renders++
	c.mu.Unlock()
	c.surface.Invalidate()
	c.Fire(AfterRender, EventData{})
}

// Renders counts render requests.
func (c *Canvas) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

// Dispose releases listeners and the scene. Repeated calls are no-ops.
func (c *Canvas) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.listeners = make(map[Event][]listener)
	c.active = nil
	c.editing = nil
	c.sc.Objects = nil
	c.log.Debug("engine disposed")
}

func (c *Canvas) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

var _ Engine = (*Canvas)(nil)
