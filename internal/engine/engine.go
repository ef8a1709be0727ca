/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine is the graphics engine adapter: it owns the live scene bound
// to a drawing surface and exposes add/remove, hit-testing, selection, events
// and drawing-mode primitives behind the Engine interface.
package engine

import (
	"context"
	"errors"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

var (
	// ErrDisposed is returned by operations on a disposed engine.
	ErrDisposed = errors.New("engine disposed")
	// ErrNoSurface is returned when construction has no drawing surface.
	ErrNoSurface = errors.New("no drawing surface")
)

// Event names. Values follow the editor event vocabulary.
type Event string

const (
	ObjectAdded        Event = "object:added"
	ObjectRemoved      Event = "object:removed"
	ObjectModified     Event = "object:modified"
	ObjectMoving       Event = "object:moving"
	ObjectScaling      Event = "object:scaling"
	ObjectRotating     Event = "object:rotating"
	PathCreated        Event = "path:created"
	SelectionCreated   Event = "selection:created"
	SelectionUpdated   Event = "selection:updated"
	SelectionCleared   Event = "selection:cleared"
	TextEditingEntered Event = "text:editing:entered"
	TextEditingExited  Event = "text:editing:exited"
	AfterRender        Event = "after:render"
)

// EventData is passed to handlers. Target is the object the event is about,
// if any; Selected/Deselected are set on selection events.
type EventData struct {
	Event      Event
	Target     scene.Object
	Selected   []scene.Object
	Deselected []scene.Object
}

type Handler func(EventData)

// Brush configures freehand drawing.
type Brush struct {
	Color string
	Width float64
}

// Surface is the drawing surface the engine renders into.
type Surface interface {
	Resize(width, height float64)
	Invalidate()
}

// Options configure a new engine instance.
type Options struct {
	Width      float64
	Height     float64
	Background string
}

// Engine is the adapter surface the rest of the editor depends on.
type Engine interface {
	Add(objs ...scene.Object)
	Remove(objs ...scene.Object)
	Objects() []scene.Object
	Clear()

	SetBackground(color string) error
	Background() string
	SetDimensions(width, height float64)
	Dimensions() vector.Size

	FindTarget(p vector.Pt) scene.Object
	BoundingRect(o scene.Object) (vector.Rect, bool)

	ActiveObjects() []scene.Object
	ActiveObject() scene.Object
	SetActiveObjects(objs ...scene.Object)
	DiscardActive()

	MoveObject(o scene.Object, dx, dy float64)
	ScaleObject(o scene.Object, scaleX, scaleY float64)
	RotateObject(o scene.Object, angle float64)
	EndGesture(o scene.Object)

	EditingText() scene.Object
	EnterTextEditing(t *scene.Text)
	ExitTextEditing()

	DrawingMode() bool
	SetDrawingMode(on bool)
	Brush() Brush
	SetBrush(b Brush)

	Fire(ev Event, data EventData)
	On(ev Event, h Handler) *Subscription
	RequestRender()

	Dispose()
	Disposed() bool
}

// Loader constructs an engine for a surface. A loader error means no engine is
// available yet; callers treat that as a transient state.
type Loader func(ctx context.Context, surface Surface, opts Options) (Engine, error)

// DefaultLoader builds the built-in Canvas engine.
func DefaultLoader(ctx context.Context, surface Surface, opts Options) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := New(surface, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}
