/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package commands holds the mutating operations on the live scene. Every
// command goes through the engine adapter and ends with a render request.
package commands

import (
	"fmt"
	"strings"

	"activitycanvas/internal/vector"
)

// Placement is the scene position of a new object's top-left corner.
type Placement struct {
	Left float64
	Top  float64
}

// At is shorthand for a Placement.
func At(left, top float64) Placement { return Placement{Left: left, Top: top} }

// ShapeKind names the palette items that can be dropped onto the surface.
type ShapeKind string

const (
	ShapeText   ShapeKind = "text"
	ShapeLine   ShapeKind = "line"
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
	ShapeImage  ShapeKind = "image"
)

// ParseShapeKind validates a palette key.
func ParseShapeKind(s string) (ShapeKind, error) {
	switch k := ShapeKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ShapeText, ShapeLine, ShapeRect, ShapeCircle, ShapeImage:
		return k, nil
	}
	return "", fmt.Errorf("unknown shape kind %q", s)
}

// Style carries the defaults applied to new objects.
type Style struct {
	TextWidth    float64
	FontFamily   string
	FontSize     float64
	TextColor    string
	StrokeColor  string
	StrokeWidth  float64
	Fill         string
	RectWidth    float64
	RectHeight   float64
	CircleRadius float64
	LineLength   float64
	// ImageMaxSize bounds the initial on-screen size of a new image.
	ImageMaxSize float64
}

// DefaultStyle returns the editor defaults.
func DefaultStyle() Style {
	return Style{
		TextWidth:    200,
		FontFamily:   "Arial",
		FontSize:     24,
		TextColor:    "#000000",
		StrokeColor:  "#1f2937",
		StrokeWidth:  2,
		Fill:         "transparent",
		RectWidth:    120,
		RectHeight:   80,
		CircleRadius: 50,
		LineLength:   150,
		ImageMaxSize: 300,
	}
}

// withDefaults fills zero fields from DefaultStyle.
func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.TextWidth <= 0 {
		s.TextWidth = d.TextWidth
	}
	if s.FontFamily == "" {
		s.FontFamily = d.FontFamily
	}
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	if !vector.ValidColor(s.TextColor) {
		s.TextColor = d.TextColor
	}
	if !vector.ValidColor(s.StrokeColor) {
		s.StrokeColor = d.StrokeColor
	}
	if s.StrokeWidth <= 0 {
		s.StrokeWidth = d.StrokeWidth
	}
	if !vector.ValidColor(s.Fill) {
		s.Fill = d.Fill
	}
	if s.RectWidth <= 0 {
		s.RectWidth = d.RectWidth
	}
	if s.RectHeight <= 0 {
		s.RectHeight = d.RectHeight
	}
	if s.CircleRadius <= 0 {
		s.CircleRadius = d.CircleRadius
	}
	if s.LineLength <= 0 {
		s.LineLength = d.LineLength
	}
	if s.ImageMaxSize <= 0 {
		s.ImageMaxSize = d.ImageMaxSize
	}
	return s
}
