/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps text boxes so the engine can report
// their height and bounds. Measurement goes through font.Face so a real
// OpenType provider can replace the deterministic basic face.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// LineHeight is the line advance as a multiple of the font size.
const LineHeight = 1.16

// AscentRatio places the first baseline below the box top, as a fraction of
// the font size.
const AscentRatio = 0.8

// Baseline returns the baseline y of line i relative to the box top.
func Baseline(i int, size float64) float64 {
	return float64(i)*size*LineHeight + size*AscentRatio
}

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool
}

// Provider maps FontSpec to a concrete face. Scale converts the face's
// advances to the requested size (1 when the face is already sized).
type Provider interface {
	Resolve(FontSpec) (face font.Face, scale float64)
}

// BasicProvider uses x/image/basicfont Face7x13 scaled to the requested size.
// Deterministic, used by tests and as the fallback.
type BasicProvider struct{}

func (BasicProvider) Resolve(spec FontSpec) (font.Face, float64) {
	size := spec.Size
	if size <= 0 {
		size = 13
	}
	return basicfont.Face7x13, size / float64(basicfont.Face7x13.Height)
}

// Box is the result of laying out text into a wrap width.
type Box struct {
	Lines  []string
	Width  float64 // widest line
	Height float64
}

// Layout breaks text on newlines and then greedily on spaces so that no line
// exceeds maxWidth (unless a single word is wider). maxWidth <= 0 disables wrapping.
func Layout(p Provider, text string, spec FontSpec, maxWidth float64) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, scale := p.Resolve(spec)
	measure := func(s string) float64 {
		return float64(font.MeasureString(face, s)) / 64 * scale
	}
	var box Box
	add := func(line string) {
		box.Lines = append(box.Lines, line)
		if w := measure(line); w > box.Width {
			box.Width = w
		}
	}
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			add("")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			cand := cur + " " + w
			if maxWidth > 0 && measure(cand) > maxWidth {
				add(cur)
				cur = w
				continue
			}
			cur = cand
		}
		add(cur)
	}
	size := spec.Size
	if size <= 0 {
		size = 13
	}
	box.Height = float64(len(box.Lines)) * size * LineHeight
	return box
}

// Measure returns the unwrapped width of a single line.
func Measure(p Provider, text string, spec FontSpec) float64 {
	return Layout(p, strings.ReplaceAll(text, "\n", " "), spec, 0).Width
}
