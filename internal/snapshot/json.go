/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"fmt"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

// FormatVersion is written into every snapshot.
const FormatVersion = "1"

type document struct {
	Version    string       `json:"version"`
	Background string       `json:"background"`
	Width      float64      `json:"width,omitempty"`
	Height     float64      `json:"height,omitempty"`
	Objects    []objectJSON `json:"objects"`
}

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type clipJSON struct {
	Type               string  `json:"type"`
	Left               float64 `json:"left"`
	Top                float64 `json:"top"`
	Width              float64 `json:"width"`
	Height             float64 `json:"height"`
	RX                 float64 `json:"rx"`
	RY                 float64 `json:"ry"`
	AbsolutePositioned bool    `json:"absolutePositioned"`
}

// objectJSON is the flat wire form of every variant. Optional fields are
// pointers so missing values fall back to defaults on load.
type objectJSON struct {
	Type       string   `json:"type"`
	ID         string   `json:"id,omitempty"`
	Left       float64  `json:"left"`
	Top        float64  `json:"top"`
	ScaleX     *float64 `json:"scaleX,omitempty"`
	ScaleY     *float64 `json:"scaleY,omitempty"`
	Angle      float64  `json:"angle"`
	Opacity    *float64 `json:"opacity,omitempty"`
	Selectable *bool    `json:"selectable,omitempty"`
	Evented    *bool    `json:"evented,omitempty"`

	LockMovementX bool `json:"lockMovementX,omitempty"`
	LockMovementY bool `json:"lockMovementY,omitempty"`
	LockScalingX  bool `json:"lockScalingX,omitempty"`
	LockScalingY  bool `json:"lockScalingY,omitempty"`
	LockRotation  bool `json:"lockRotation,omitempty"`

	Text        string  `json:"text,omitempty"`
	FontFamily  string  `json:"fontFamily,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	FontWeight  any     `json:"fontWeight,omitempty"`
	FontStyle   string  `json:"fontStyle,omitempty"`
	Underline   bool    `json:"underline,omitempty"`
	Linethrough bool    `json:"linethrough,omitempty"`
	TextAlign   string  `json:"textAlign,omitempty"`

	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Fill        *string `json:"fill,omitempty"`
	Stroke      *string `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`

	X1 float64 `json:"x1,omitempty"`
	Y1 float64 `json:"y1,omitempty"`
	X2 float64 `json:"x2,omitempty"`
	Y2 float64 `json:"y2,omitempty"`

	RX     float64 `json:"rx,omitempty"`
	RY     float64 `json:"ry,omitempty"`
	Radius float64 `json:"radius,omitempty"`

	Src         string      `json:"src,omitempty"`
	CrossOrigin *string     `json:"crossOrigin,omitempty"`
	ClipPath    *clipJSON   `json:"clipPath,omitempty"`
	Points      []pointJSON `json:"points,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func encodeObject(o scene.Object) (objectJSON, error) {
	b := o.Base()
	j := objectJSON{
		Type:          string(o.Kind()),
		ID:            b.ID,
		Left:          b.Left,
		Top:           b.Top,
		ScaleX:        ptr(b.ScaleX),
		ScaleY:        ptr(b.ScaleY),
		Angle:         b.Angle,
		Opacity:       ptr(b.Opacity),
		Selectable:    ptr(b.Selectable),
		Evented:       ptr(b.Evented),
		LockMovementX: b.LockMovementX,
		LockMovementY: b.LockMovementY,
		LockScalingX:  b.LockScalingX,
		LockScalingY:  b.LockScalingY,
		LockRotation:  b.LockRotation,
	}
	switch v := o.(type) {
	case *scene.Text:
		j.Text = v.Text
		j.FontFamily = v.FontFamily
		j.FontSize = v.FontSize
		j.FontWeight = "normal"
		if v.Bold {
			j.FontWeight = "bold"
		}
		j.FontStyle = "normal"
		if v.Italic {
			j.FontStyle = "italic"
		}
		j.Underline = v.Underline
		j.Linethrough = v.Linethrough
		j.TextAlign = v.TextAlign
		j.Width = v.Width
		j.Height = v.LocalBounds().H
		j.Fill = ptr(v.Fill)
	case *scene.Line:
		j.X1, j.Y1, j.X2, j.Y2 = v.X1, v.Y1, v.X2, v.Y2
		j.Stroke = ptr(v.Stroke)
		j.StrokeWidth = v.StrokeWidth
	case *scene.Rect:
		j.Width, j.Height = v.Width, v.Height
		j.Stroke = ptr(v.Stroke)
		j.StrokeWidth = v.StrokeWidth
		j.Fill = ptr(v.Fill)
		j.RX, j.RY = v.RX, v.RY
	case *scene.Circle:
		j.Radius = v.Radius
		j.Width, j.Height = 2*v.Radius, 2*v.Radius
		j.Stroke = ptr(v.Stroke)
		j.StrokeWidth = v.StrokeWidth
		j.Fill = ptr(v.Fill)
	case *scene.Image:
		j.Src = v.Src
		j.Width, j.Height = v.Width, v.Height
		j.CrossOrigin = ptr(v.CrossOrigin)
		if v.Clip != nil {
			j.ClipPath = &clipJSON{
				Type: "rect", Left: v.Clip.Left, Top: v.Clip.Top,
				Width: v.Clip.Width, Height: v.Clip.Height,
				RX: v.Clip.RX, RY: v.Clip.RY,
				AbsolutePositioned: v.Clip.AbsolutePositioned,
			}
		}
	case *scene.Path:
		j.Stroke = ptr(v.Stroke)
		j.StrokeWidth = v.StrokeWidth
		j.Fill = ptr("transparent")
		for _, p := range v.Points {
			j.Points = append(j.Points, pointJSON{X: p.X, Y: p.Y})
		}
	default:
		return j, fmt.Errorf("encode: unsupported object %T", o)
	}
	return j, nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func decodeObject(j objectJSON) (scene.Object, error) {
	c := scene.NewCommon(j.Left, j.Top)
	if j.ID != "" {
		c.ID = j.ID
	}
	c.ScaleX = deref(j.ScaleX, 1)
	c.ScaleY = deref(j.ScaleY, 1)
	c.Angle = j.Angle
	c.Opacity = deref(j.Opacity, 1)
	c.Selectable = deref(j.Selectable, true)
	c.Evented = deref(j.Evented, true)
	c.LockMovementX = j.LockMovementX
	c.LockMovementY = j.LockMovementY
	c.LockScalingX = j.LockScalingX
	c.LockScalingY = j.LockScalingY
	c.LockRotation = j.LockRotation
	c.HasControls = c.Selectable

	switch scene.Kind(j.Type) {
	case scene.KindText, "text", "i-text":
		t := &scene.Text{
			Common:      c,
			Text:        j.Text,
			FontFamily:  j.FontFamily,
			FontSize:    j.FontSize,
			Fill:        deref(j.Fill, "#000000"),
			Bold:        isBold(j.FontWeight),
			Italic:      j.FontStyle == "italic" || j.FontStyle == "oblique",
			Underline:   j.Underline,
			Linethrough: j.Linethrough,
			TextAlign:   j.TextAlign,
			Width:       j.Width,
		}
		if t.TextAlign == "" {
			t.TextAlign = scene.AlignLeft
		}
		return t, nil
	case scene.KindLine:
		return &scene.Line{Common: c, X1: j.X1, Y1: j.Y1, X2: j.X2, Y2: j.Y2,
			Stroke: deref(j.Stroke, "#000000"), StrokeWidth: j.StrokeWidth}, nil
	case scene.KindRect:
		return &scene.Rect{Common: c, Width: j.Width, Height: j.Height,
			Stroke: deref(j.Stroke, ""), StrokeWidth: j.StrokeWidth,
			Fill: deref(j.Fill, "transparent"), RX: j.RX, RY: j.RY}, nil
	case scene.KindCircle:
		return &scene.Circle{Common: c, Radius: j.Radius,
			Stroke: deref(j.Stroke, ""), StrokeWidth: j.StrokeWidth,
			Fill: deref(j.Fill, "transparent")}, nil
	case scene.KindImage:
		img := &scene.Image{Common: c, Src: j.Src, Width: j.Width, Height: j.Height,
			CrossOrigin: deref(j.CrossOrigin, "")}
		if cp := j.ClipPath; cp != nil {
			img.Clip = &scene.ClipRect{Left: cp.Left, Top: cp.Top, Width: cp.Width, Height: cp.Height,
				RX: cp.RX, RY: cp.RY, AbsolutePositioned: cp.AbsolutePositioned}
		}
		return img, nil
	case scene.KindPath:
		p := &scene.Path{Common: c, Stroke: deref(j.Stroke, "#000000"), StrokeWidth: j.StrokeWidth}
		for _, pt := range j.Points {
			p.Points = append(p.Points, vector.Pt{X: pt.X, Y: pt.Y})
		}
		return p, nil
	}
	return nil, fmt.Errorf("decode: unknown object type %q", j.Type)
}

func isBold(w any) bool {
	switch v := w.(type) {
	case string:
		return v == "bold" || v == "bolder" || v == "700" || v == "800" || v == "900"
	case float64:
		return v >= 600
	}
	return false
}
