/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"strings"
	"testing"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

const legacySVG = `<?xml version="1.0" encoding="UTF-8" standalone="no" ?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" version="1.1" width="640" height="480" viewBox="0 0 640 480">
<desc>Created with Fabric.js</desc>
<rect x="0" y="0" width="100%" height="100%" fill="#eeeeee"></rect>
<g transform="matrix(1 0 0 1 100 50)">
  <rect style="stroke: rgb(31,41,55); stroke-width: 2; fill: none;" x="-60" y="-40" rx="0" ry="0" width="120" height="80"/>
</g>
<circle cx="200" cy="200" r="25" fill="#ff0000" stroke="none"/>
<line x1="0" y1="0" x2="150" y2="0" stroke="#000000" stroke-width="3" transform="translate(10 300)"/>
<g transform="translate(20 20) rotate(90)">
  <text font-family="Arial" font-size="20" font-weight="bold" text-decoration="underline" fill="#112233"><tspan x="0" y="16">Hello</tspan><tspan x="0" y="39.2">World</tspan></text>
</g>
<defs><clipPath id="c1"><rect x="0" y="0" width="64" height="48" rx="6" ry="6"/></clipPath></defs>
<image xlink:href="data:image/png;base64,AAAA" x="300" y="10" width="64" height="48" clip-path="url(#c1)"/>
<polyline points="0,0 10,10 20,0" stroke="#000" stroke-width="2" fill="none"/>
<foreignObject><p>ignored</p></foreignObject>
</svg>`

func TestParseSVG_Legacy(t *testing.T) {
	sc, err := ParseSVG(strings.NewReader(legacySVG))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Width != 640 || sc.Height != 480 || sc.Background != "#eeeeee" {
		t.Fatalf("scene attrs: %vx%v %s", sc.Width, sc.Height, sc.Background)
	}
	if len(sc.Objects) != 6 {
		t.Fatalf("expected 6 objects, got %d", len(sc.Objects))
	}
	r := sc.Objects[0].(*scene.Rect)
	if r.Left != 40 || r.Top != 10 || r.Width != 120 || r.Fill != "transparent" || r.StrokeWidth != 2 {
		t.Fatalf("rect: %+v", r)
	}
	c := sc.Objects[1].(*scene.Circle)
	if c.Left != 175 || c.Top != 175 || c.Radius != 25 || c.Stroke != "transparent" {
		t.Fatalf("circle: %+v", c)
	}
	l := sc.Objects[2].(*scene.Line)
	if l.Left != 10 || l.Top != 300 || l.X2 != 150 || l.StrokeWidth != 3 {
		t.Fatalf("line: %+v", l)
	}
	txt := sc.Objects[3].(*scene.Text)
	if txt.Text != "Hello\nWorld" || !txt.Bold || !txt.Underline || txt.Angle != 90 || txt.FontSize != 20 {
		t.Fatalf("text: %+v", txt)
	}
	img := sc.Objects[4].(*scene.Image)
	if img.Src != "data:image/png;base64,AAAA" || img.Clip == nil || img.Clip.RX != 6 || img.Left != 300 {
		t.Fatalf("image: %+v", img)
	}
	p := sc.Objects[5].(*scene.Path)
	if len(p.Points) != 3 || p.Points[1] != (vector.Pt{X: 10, Y: 10}) {
		t.Fatalf("polyline: %+v", p)
	}
}

func TestUnmarshal_SVGDispatch(t *testing.T) {
	sc, err := Unmarshal([]byte(legacySVG))
	if err != nil || len(sc.Objects) == 0 {
		t.Fatalf("svg snapshot not accepted: %v", err)
	}
	if _, err := Unmarshal([]byte("<html></html>")); err == nil {
		t.Fatalf("expected error for markup without svg root")
	}
}

func TestParseTransform(t *testing.T) {
	m, err := ParseTransform("translate(10, 20) scale(2)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := m.Apply(vector.Pt{X: 1, Y: 1}); got != (vector.Pt{X: 12, Y: 22}) {
		t.Fatalf("unexpected point %+v", got)
	}
	m, err = ParseTransform("rotate(90 10 10)")
	if err != nil {
		t.Fatalf("parse rotate: %v", err)
	}
	got := m.Apply(vector.Pt{X: 20, Y: 10})
	if !vector.NearlyEqual(got.X, 10, 1e-9) || !vector.NearlyEqual(got.Y, 20, 1e-9) {
		t.Fatalf("rotate about center wrong: %+v", got)
	}
	if _, err := ParseTransform("wobble(3)"); err == nil {
		t.Fatalf("expected error for unknown transform")
	}
}
