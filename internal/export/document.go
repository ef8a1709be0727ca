/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a scene into a vector markup intermediate and wraps
// it as an SVG or PDF document for download or print.
package export

import (
	"bytes"
	"errors"
	"fmt"

	"activitycanvas/internal/engine"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/vector"
)

// ErrNoMarkup is returned when there is nothing renderable. No file is written.
var ErrNoMarkup = errors.New("no renderable markup")

// Element is one drawable in page coordinates. Geometry is local to the
// element origin; the origin is placed with Left/Top, Angle and Scale.
type Element struct {
	ID     string
	Kind   scene.Kind
	Left   float64
	Top    float64
	Angle  float64
	ScaleX float64
	ScaleY float64

	Opacity float64
	Fill    vector.Fill
	Stroke  vector.Stroke

	Box    vector.Rect // rect, circle, text and image box
	RX, RY float64
	Points []vector.Pt // line endpoints or path points

	Text  *TextRun
	Image *ImageRef
}

// TextRun holds wrapped text ready for drawing.
type TextRun struct {
	Lines       []string
	Family      string
	Size        float64
	Bold        bool
	Italic      bool
	Underline   bool
	Linethrough bool
	Align       string
	Width       float64
}

// ImageRef is an image placement. Clip is local to the element origin.
type ImageRef struct {
	Src         string
	CrossOrigin string
	Clip        *scene.ClipRect
}

// Transform maps element-local coordinates to page coordinates.
func (e Element) Transform() vector.Affine2D {
	return vector.ObjectTransform(e.Left, e.Top, e.Angle, e.ScaleX, e.ScaleY)
}

// Document is the vector markup intermediate. Markup is the SVG text; the
// PDF writer draws the same elements.
type Document struct {
	Width      float64
	Height     float64
	Background vector.Color
	Elements   []Element
	Markup     []byte
}

// Orientation returns "L" when width >= height, else "P".
func (d *Document) Orientation() string {
	if d.Width >= d.Height {
		return "L"
	}
	return "P"
}

// Render builds the intermediate for sc.
func Render(sc *scene.Scene) (*Document, error) {
	if sc == nil || sc.Width <= 0 || sc.Height <= 0 {
		return nil, ErrNoMarkup
	}
	bg, err := vector.ParseColor(sc.Background)
	if err != nil {
		bg = vector.White
	}
	doc := &Document{Width: sc.Width, Height: sc.Height, Background: bg}
	for _, o := range sc.Objects {
		el, err := element(o)
		if err != nil {
			return nil, err
		}
		doc.Elements = append(doc.Elements, el)
	}
	var buf bytes.Buffer
	if err := writeMarkup(&buf, doc); err != nil {
		return nil, fmt.Errorf("render markup: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrNoMarkup
	}
	doc.Markup = buf.Bytes()
	return doc, nil
}

// RenderEngine renders the live engine state. A missing or disposed engine
// has no markup.
func RenderEngine(eng engine.Engine) (*Document, error) {
	if eng == nil || eng.Disposed() {
		return nil, ErrNoMarkup
	}
	return Render(snapshot.Capture(eng))
}

func element(o scene.Object) (Element, error) {
	b := o.Base()
	el := Element{
		ID: b.ID, Kind: o.Kind(),
		Left: b.Left, Top: b.Top, Angle: b.Angle, ScaleX: b.ScaleX, ScaleY: b.ScaleY,
		Opacity: b.Opacity,
		Box:     o.LocalBounds(),
	}
	switch v := o.(type) {
	case *scene.Text:
		box := v.Layout()
		el.Fill = vector.FillFrom(v.Fill)
		el.Text = &TextRun{
			Lines: box.Lines, Family: v.FontFamily, Size: v.FontSize,
			Bold: v.Bold, Italic: v.Italic, Underline: v.Underline, Linethrough: v.Linethrough,
			Align: v.TextAlign, Width: v.Width,
		}
	case *scene.Line:
		el.Stroke = vector.StrokeFrom(v.Stroke, v.StrokeWidth)
		el.Points = []vector.Pt{{X: v.X1, Y: v.Y1}, {X: v.X2, Y: v.Y2}}
	case *scene.Rect:
		el.Fill = vector.FillFrom(v.Fill)
		el.Stroke = vector.StrokeFrom(v.Stroke, v.StrokeWidth)
		el.RX, el.RY = v.RX, v.RY
	case *scene.Circle:
		el.Fill = vector.FillFrom(v.Fill)
		el.Stroke = vector.StrokeFrom(v.Stroke, v.StrokeWidth)
	case *scene.Image:
		ref := &ImageRef{Src: v.Src, CrossOrigin: v.CrossOrigin}
		if v.Clip != nil {
			c := *v.Clip
			ref.Clip = &c
		}
		el.Image = ref
	case *scene.Path:
		el.Stroke = vector.StrokeFrom(v.Stroke, v.StrokeWidth)
		el.Points = append([]vector.Pt(nil), v.Points...)
	default:
		return el, fmt.Errorf("render: unsupported object %T", o)
	}
	return el, nil
}
