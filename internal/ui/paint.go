/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"
	"math"
	"strings"

	"activitycanvas/internal/toolbar"
	"activitycanvas/internal/vector"
)

// nrgba converts a scene paint string. Unparseable or empty paint yields
// fallback so a bad value never blanks the surface.
func nrgba(s string, fallback color.Color) color.Color {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	c, err := vector.ParseColor(s)
	if err != nil {
		return fallback
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// barOrigin returns the top-left corner of a floating bar of width w centred
// on the toolbar anchor, kept inside the surface margin.
func barOrigin(anchor vector.Pt, w, surfaceW float64) vector.Pt {
	x := anchor.X - w/2
	if surfaceW > 0 && x+w > surfaceW-toolbar.Margin {
		x = surfaceW - toolbar.Margin - w
	}
	return vector.Pt{X: math.Max(toolbar.Margin, x), Y: anchor.Y}
}

// keyFor maps driver key names onto the editor's key vocabulary.
func keyFor(name string) string {
	switch name {
	case "BackSpace":
		return "Backspace"
	case "Delete":
		return "Delete"
	}
	if len(name) == 1 {
		return strings.ToLower(name)
	}
	return name
}

// strokeOf returns the points of a polyline in surface coordinates.
func strokeOf(xf vector.Affine2D, pts []vector.Pt) []vector.Pt {
	out := make([]vector.Pt, len(pts))
	for i, p := range pts {
		out[i] = xf.Apply(p)
	}
	return out
}
