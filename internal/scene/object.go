/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"github.com/google/uuid"

	"activitycanvas/internal/textlayout"
	"activitycanvas/internal/vector"
)

// Kind names an object variant. The values double as the snapshot type tags.
type Kind string

const (
	KindText   Kind = "textbox"
	KindLine   Kind = "line"
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindImage  Kind = "image"
	KindPath   Kind = "path"
)

// Text alignment values.
const (
	AlignLeft    = "left"
	AlignCenter  = "center"
	AlignRight   = "right"
	AlignJustify = "justify"
)

// Fonts measures text boxes. Hosts with real fonts may swap in a
// textlayout.OTProvider at startup.
var Fonts textlayout.Provider = textlayout.BasicProvider{}

// Object is the closed set of scene variants: *Text, *Line, *Rect, *Circle,
// *Image and *Path.
type Object interface {
	Base() *Common
	Kind() Kind
	// LocalBounds is the untransformed box with the origin at the object's top-left.
	LocalBounds() vector.Rect
	object()
}

// Common holds the attributes every variant shares.
type Common struct {
	ID         string
	Left       float64
	Top        float64
	ScaleX     float64
	ScaleY     float64
	Angle      float64 // degrees, clockwise, around (Left, Top)
	Opacity    float64
	Selectable bool
	Evented    bool

	LockMovementX bool
	LockMovementY bool
	LockScalingX  bool
	LockScalingY  bool
	LockRotation  bool
	HasControls   bool
}

// NewCommon returns an interactive, unscaled Common at (left, top) with a fresh ID.
func NewCommon(left, top float64) Common {
	return Common{
		ID:          uuid.NewString(),
		Left:        left,
		Top:         top,
		ScaleX:      1,
		ScaleY:      1,
		Opacity:     1,
		Selectable:  true,
		Evented:     true,
		HasControls: true,
	}
}

func (c *Common) Base() *Common { return c }

// Transform maps object-local coordinates to scene coordinates.
func (c *Common) Transform() vector.Affine2D {
	return vector.ObjectTransform(c.Left, c.Top, c.Angle, c.ScaleX, c.ScaleY)
}

// SetInteractive toggles selection, events and every movement/scale/rotation lock.
func (c *Common) SetInteractive(on bool) {
	c.Selectable = on
	c.Evented = on
	c.HasControls = on
	c.LockMovementX = !on
	c.LockMovementY = !on
	c.LockScalingX = !on
	c.LockScalingY = !on
	c.LockRotation = !on
}

// Interactive reports whether nothing is locked.
func (c *Common) Interactive() bool {
	return c.Selectable && c.Evented && !c.LockMovementX && !c.LockMovementY &&
		!c.LockScalingX && !c.LockScalingY && !c.LockRotation
}

// Bullet prefixes the lines of a bulleted text box.
const Bullet = "• "

type Text struct {
	Common
	Text        string
	FontFamily  string
	FontSize    float64
	Fill        string
	Bold        bool
	Italic      bool
	Underline   bool
	Linethrough bool
	TextAlign   string
	Width       float64 // wrap width
}

func (*Text) Kind() Kind { return KindText }
func (*Text) object()    {}

// Layout wraps the text into its box.
func (t *Text) Layout() textlayout.Box {
	return textlayout.Layout(Fonts, t.Text, t.FontSpec(), t.Width)
}

func (t *Text) FontSpec() textlayout.FontSpec {
	return textlayout.FontSpec{Family: t.FontFamily, Size: t.FontSize, Bold: t.Bold, Italic: t.Italic}
}

func (t *Text) LocalBounds() vector.Rect {
	return vector.R(0, 0, t.Width, t.Layout().Height)
}

// Line endpoints are local to (Left, Top).
type Line struct {
	Common
	X1, Y1, X2, Y2 float64
	Stroke         string
	StrokeWidth    float64
}

func (*Line) Kind() Kind { return KindLine }
func (*Line) object()    {}

func (l *Line) LocalBounds() vector.Rect {
	return vector.NewLine(vector.Pt{X: l.X1, Y: l.Y1}, vector.Pt{X: l.X2, Y: l.Y2}, vector.Stroke{}).Bounds()
}

type Rect struct {
	Common
	Width       float64
	Height      float64
	Stroke      string
	StrokeWidth float64
	Fill        string
	RX, RY      float64
}

func (*Rect) Kind() Kind                 { return KindRect }
func (*Rect) object()                    {}
func (r *Rect) LocalBounds() vector.Rect { return vector.R(0, 0, r.Width, r.Height) }

type Circle struct {
	Common
	Radius      float64
	Stroke      string
	StrokeWidth float64
	Fill        string
}

func (*Circle) Kind() Kind                 { return KindCircle }
func (*Circle) object()                    {}
func (c *Circle) LocalBounds() vector.Rect { return vector.R(0, 0, 2*c.Radius, 2*c.Radius) }

// ClipRect is a rounded rectangle mask. When AbsolutePositioned is false its
// position is local to the owning object and it follows the object's transform.
type ClipRect struct {
	Left               float64
	Top                float64
	Width              float64
	Height             float64
	RX                 float64
	RY                 float64
	AbsolutePositioned bool
}

type Image struct {
	Common
	Src         string
	Width       float64 // natural width
	Height      float64 // natural height
	CrossOrigin string
	Clip        *ClipRect
}

func (*Image) Kind() Kind                 { return KindImage }
func (*Image) object()                    {}
func (i *Image) LocalBounds() vector.Rect { return vector.R(0, 0, i.Width, i.Height) }

// CornerRadius returns the clip radius or 0 when unclipped.
func (i *Image) CornerRadius() float64 {
	if i.Clip == nil {
		return 0
	}
	return i.Clip.RX
}

// Path is a freehand stroke. Points are local to (Left, Top).
type Path struct {
	Common
	Points      []vector.Pt
	Stroke      string
	StrokeWidth float64
}

func (*Path) Kind() Kind { return KindPath }
func (*Path) object()    {}

func (p *Path) LocalBounds() vector.Rect {
	pp := vector.Polyline(p.Points)
	return pp.Bounds()
}

// Bounds returns the scene-space axis-aligned bounding box of o.
func Bounds(o Object) vector.Rect {
	return o.Base().Transform().ApplyRect(o.LocalBounds())
}

// Node builds a hit-testable vector node for o in scene coordinates.
func Node(o Object) vector.Node {
	var n vector.Node
	switch v := o.(type) {
	case *Text:
		n = vector.NewRect(v.LocalBounds(), vector.FillFrom(v.Fill), vector.Stroke{})
	case *Line:
		s := vector.StrokeFrom(v.Stroke, v.StrokeWidth)
		n = vector.NewLine(vector.Pt{X: v.X1, Y: v.Y1}, vector.Pt{X: v.X2, Y: v.Y2}, s)
	case *Rect:
		// transparent fill still hits inside the box, like the editor selection
		n = vector.NewRoundedRect(v.LocalBounds(), v.RX, vector.FillFrom(v.Fill), vector.StrokeFrom(v.Stroke, v.StrokeWidth))
	case *Circle:
		n = vector.NewEllipse(v.LocalBounds(), vector.FillFrom(v.Fill), vector.StrokeFrom(v.Stroke, v.StrokeWidth))
	case *Image:
		n = vector.NewRoundedRect(v.LocalBounds(), v.CornerRadius(), vector.Fill{}, vector.Stroke{})
	case *Path:
		n = vector.NewPath(vector.Polyline(v.Points), vector.Fill{}, vector.StrokeFrom(v.Stroke, v.StrokeWidth))
	default:
		return nil
	}
	n.SetTransform(o.Base().Transform())
	return n
}
