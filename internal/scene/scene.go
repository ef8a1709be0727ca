/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the editable document model: a background, a nominal
// size and an ordered list of objects. Slice order is z-order.
package scene

import (
	"activitycanvas/internal/vector"
)

const (
	DefaultWidth      = 800.0
	DefaultHeight     = 600.0
	DefaultBackground = "#ffffff"
)

// Scene is the complete editable canvas document.
type Scene struct {
	Background string
	Width      float64
	Height     float64
	Objects    []Object
}

// New returns an empty scene. Non-positive sizes and invalid colors fall back
// to the defaults so a Scene always has a positive size and a valid background.
func New(width, height float64, background string) *Scene {
	s := &Scene{}
	s.SetSize(width, height)
	s.SetBackground(background)
	return s
}

// SetSize updates the nominal size. Non-positive values keep the current value
// (or the default when unset).
func (s *Scene) SetSize(width, height float64) {
	if width > 0 {
		s.Width = width
	} else if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if height > 0 {
		s.Height = height
	} else if s.Height <= 0 {
		s.Height = DefaultHeight
	}
}

// SetBackground sets the background if the value parses as a color.
// It reports whether the value was accepted.
func (s *Scene) SetBackground(c string) bool {
	if !vector.ValidColor(c) {
		if s.Background == "" {
			s.Background = DefaultBackground
		}
		return false
	}
	s.Background = c
	return true
}

// IndexOf returns the z-index of o or -1.
func (s *Scene) IndexOf(o Object) int {
	for i, x := range s.Objects {
		if x == o {
			return i
		}
	}
	return -1
}

// ByID looks up an object by its ID.
func (s *Scene) ByID(id string) Object {
	for _, o := range s.Objects {
		if o.Base().ID == id {
			return o
		}
	}
	return nil
}
