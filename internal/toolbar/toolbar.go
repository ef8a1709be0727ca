/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package toolbar computes the floating toolbar that follows the selection.
package toolbar

import (
	"math"
	"strings"
	"sync"

	"activitycanvas/internal/engine"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

const (
	// Lift is the distance between the toolbar anchor and the top of the selection.
	Lift = 56.0
	// Margin keeps the anchor inside the visible area.
	Margin = 8.0
)

// Anchor returns the toolbar position for a selection box: horizontally at
// the box center, Lift above its top edge, clamped to at least Margin. When
// viewport has a positive extent the anchor is also kept Margin away from its
// right and bottom edges. It reports false for a box that cannot be placed.
func Anchor(box vector.Rect, viewport vector.Size) (vector.Pt, bool) {
	for _, v := range []float64{box.X, box.Y, box.W, box.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return vector.Pt{}, false
		}
	}
	if box.W < 0 || box.H < 0 {
		return vector.Pt{}, false
	}
	p := vector.Pt{X: box.X + box.W/2, Y: box.Y - Lift}
	p.X = clamp(p.X, viewport.W)
	p.Y = clamp(p.Y, viewport.H)
	return p, true
}

func clamp(v, extent float64) float64 {
	if extent > 2*Margin && v > extent-Margin {
		v = extent - Margin
	}
	return math.Max(v, Margin)
}

// Controls is the closed set of per-type control groups.
type Controls interface {
	controls()
}

type TextControls struct {
	FontFamily  string
	FontSize    float64
	Color       string
	Bold        bool
	Italic      bool
	Underline   bool
	Linethrough bool
	Align       string
	Bullets     bool
}

type ShapeControls struct {
	Stroke      string
	StrokeWidth float64
	// Fill is empty for lines and paths.
	Fill    string
	HasFill bool
	// CornerRadius is offered for rectangles only.
	CornerRadius bool
	Radius       float64
}

type ImageControls struct {
	Src          string
	CornerRadius float64
}

func (TextControls) controls()  {}
func (ShapeControls) controls() {}
func (ImageControls) controls() {}

// ControlsFor returns the control group for o, or nil.
func ControlsFor(o scene.Object) Controls {
	switch v := o.(type) {
	case *scene.Text:
		return TextControls{
			FontFamily: v.FontFamily, FontSize: v.FontSize, Color: v.Fill,
			Bold: v.Bold, Italic: v.Italic, Underline: v.Underline, Linethrough: v.Linethrough,
			Align: v.TextAlign, Bullets: strings.HasPrefix(v.Text, scene.Bullet),
		}
	case *scene.Rect:
		return ShapeControls{Stroke: v.Stroke, StrokeWidth: v.StrokeWidth, Fill: v.Fill, HasFill: true, CornerRadius: true, Radius: v.RX}
	case *scene.Circle:
		return ShapeControls{Stroke: v.Stroke, StrokeWidth: v.StrokeWidth, Fill: v.Fill, HasFill: true}
	case *scene.Line:
		return ShapeControls{Stroke: v.Stroke, StrokeWidth: v.StrokeWidth}
	case *scene.Path:
		return ShapeControls{Stroke: v.Stroke, StrokeWidth: v.StrokeWidth}
	case *scene.Image:
		return ImageControls{Src: v.Src, CornerRadius: v.CornerRadius()}
	}
	return nil
}

// View is what the host draws. Delete is offered for every visible view.
type View struct {
	Visible  bool
	Position vector.Pt
	Targets  []scene.Object
	// Controls is nil for multi-selections.
	Controls Controls
	Delete   bool
}

// Toolbar tracks the engine selection and keeps View current.
type Toolbar struct {
	eng      engine.Engine
	locked   func() bool
	onChange func(View)

	mu   sync.Mutex
	view View
	subs engine.Subscriptions
}

var trackedEvents = []engine.Event{
	engine.SelectionCreated, engine.SelectionUpdated, engine.SelectionCleared,
	engine.ObjectMoving, engine.ObjectScaling, engine.ObjectRotating,
	engine.ObjectModified, engine.ObjectRemoved,
}

// New subscribes to eng. locked may be nil; onChange, when set, receives each
// recomputed view.
func New(eng engine.Engine, locked func() bool, onChange func(View)) *Toolbar {
	t := &Toolbar{eng: eng, locked: locked, onChange: onChange}
	for _, ev := range trackedEvents {
		t.subs.Add(eng.On(ev, func(engine.EventData) { t.Recompute() }))
	}
	t.Recompute()
	return t
}

// Recompute refreshes the view; hosts call it on scroll and resize too.
func (t *Toolbar) Recompute() View {
	v := t.compute()
	t.mu.Lock()
	t.view = v
	cb := t.onChange
	t.mu.Unlock()
	if cb != nil {
		cb(v)
	}
	return v
}

func (t *Toolbar) compute() View {
	if t.eng.Disposed() || (t.locked != nil && t.locked()) {
		return View{}
	}
	active := t.eng.ActiveObjects()
	if len(active) == 0 {
		return View{}
	}
	var box vector.Rect
	for i, o := range active {
		r, ok := t.eng.BoundingRect(o)
		if !ok {
			return View{}
		}
		if i == 0 {
			box = r
		} else {
			box = box.Union(r)
		}
	}
	pos, ok := Anchor(box, t.eng.Dimensions())
	if !ok {
		return View{}
	}
	v := View{Visible: true, Position: pos, Targets: active, Delete: true}
	if len(active) == 1 {
		v.Controls = ControlsFor(active[0])
	}
	return v
}

// View returns the last computed view.
func (t *Toolbar) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// Close detaches from the engine.
func (t *Toolbar) Close() {
	t.subs.ReleaseAll()
	t.mu.Lock()
	t.view = View{}
	t.mu.Unlock()
}
