/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func TestRectNode_HitAndBounds(t *testing.T) {
	n := NewRect(R(0, 0, 100, 50), Fill{Enabled: true, Color: White}, Stroke{Enabled: true, Width: 1})
	n.SetTransform(Translate(10, 20))
	if !n.Hit(Pt{50 + 10, 25 + 20}) {
		t.Fatalf("expected hit after translation")
	}
	b := n.Bounds()
	if b.X != 10 || b.Y != 20 || b.W != 100 || b.H != 50 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestEllipseNode_Hit(t *testing.T) {
	n := NewEllipse(R(0, 0, 100, 100), Fill{Enabled: true}, Stroke{})
	if !n.Hit(Pt{50, 50}) {
		t.Fatalf("center should hit")
	}
	if n.Hit(Pt{2, 2}) {
		t.Fatalf("bbox corner outside the ellipse should not hit")
	}
	n.SetTransform(Translate(5, -3))
	tb := n.Bounds()
	if tb.X != 5 || tb.Y != -3 || tb.W != 100 || tb.H != 100 {
		t.Fatalf("unexpected transformed bounds: %+v", tb)
	}
}

func TestRoundedRectNode_Hit(t *testing.T) {
	n := NewRoundedRect(R(0, 0, 100, 100), 20, Fill{Enabled: true}, Stroke{})
	if !n.Hit(Pt{10, 10}) { // inside top-left corner curve
		t.Fatalf("expected hit near corner")
	}
	if n.Hit(Pt{1, 1}) {
		t.Fatalf("expected miss in the cut-off corner")
	}
	if n.Hit(Pt{-5, -5}) {
		t.Fatalf("expected miss outside")
	}
	b := n.Bounds()
	if b.W != 100 || b.H != 100 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestLineNode_HitTolerance(t *testing.T) {
	n := NewLine(Pt{0, 0}, Pt{100, 0}, Stroke{Enabled: true, Width: 2})
	if !n.Hit(Pt{50, 3}) {
		t.Fatalf("expected hit within tolerance")
	}
	if n.Hit(Pt{50, 10}) {
		t.Fatalf("expected miss beyond tolerance")
	}
	if n.Hit(Pt{110, 0}) {
		t.Fatalf("expected miss past the end point")
	}
}

func TestGroup_BoundsAndHit(t *testing.T) {
	r1 := NewRect(R(0, 0, 10, 10), Fill{}, Stroke{})
	r2 := NewRect(R(20, 0, 10, 10), Fill{}, Stroke{})
	g := NewGroup(r1, r2)

	b := g.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 30 || b.H != 10 {
		t.Fatalf("unexpected group bounds: %+v", b)
	}
	if !g.Hit(Pt{5, 5}) || !g.Hit(Pt{25, 5}) {
		t.Fatalf("expected hits on both children")
	}
	if g.Hit(Pt{15, 5}) {
		t.Fatalf("did not expect hit between children")
	}

	g.SetTransform(Rotate(math.Pi / 2))
	if !g.Hit(Pt{-5, 5}) { // former (5,5) rotated lands at (-5,5)
		t.Fatalf("expected hit after rotation")
	}
}
