/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPathNode_BoundsAndHit(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.LineTo(0, 10)
	p.Close()

	n := NewPath(p, Fill{Enabled: true, Color: White}, Stroke{Enabled: true, Width: 1})
	b := n.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 10 || b.H != 10 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	if !n.Hit(Pt{1, 1}) {
		t.Fatalf("expected hit inside bbox")
	}
	n.SetTransform(Translate(5, 5))
	if !n.Hit(Pt{6, 6}) {
		t.Fatalf("expected hit after translation")
	}
	if n.Hit(Pt{20, 20}) {
		t.Fatalf("did not expect hit far away")
	}
}

func TestPath_QuadAndCubic_Bounds(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.QuadTo(10, 10, 20, 0)
	p.CubicTo(30, -10, 40, 10, 50, 0)
	p.Close()

	b := p.Bounds()
	if b.X != 0 || b.Y != -10 || b.W != 50 || b.H != 20 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestParseSVGData_AbsoluteAndRelative(t *testing.T) {
	p, err := ParseSVGData("M10,10 l20 0 v20 H10 z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pts := p.Points()
	want := []Pt{{10, 10}, {30, 10}, {30, 30}, {10, 30}}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d: %+v", len(pts), len(want), pts)
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Fatalf("point %d = %+v, want %+v", i, pts[i], want[i])
		}
	}
	if p.Cmds[len(p.Cmds)-1].Op != Close {
		t.Fatalf("expected trailing close")
	}
}

func TestParseSVGData_RejectsArcs(t *testing.T) {
	if _, err := ParseSVGData("M0 0 A 5 5 0 0 1 10 10"); err == nil {
		t.Fatalf("expected error for arc command")
	}
}

func TestPolyline_SVGData(t *testing.T) {
	p := Polyline([]Pt{{0, 0}, {1.5, 2}, {3, -1}})
	if got := p.SVGData(); got != "M 0 0 L 1.5 2 L 3 -1" {
		t.Fatalf("SVGData() = %q", got)
	}
	back, err := ParseSVGData(p.SVGData())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(back.Points()) != 3 {
		t.Fatalf("expected 3 points after reparse")
	}
}
