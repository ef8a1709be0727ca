/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/textlayout"
	"activitycanvas/internal/vector"
)

// ErrNoSVG is returned when the markup has no <svg> root.
var ErrNoSVG = errors.New("no svg root element")

type svgParser struct {
	sc      *scene.Scene
	stack   []vector.Affine2D
	clips   map[string]*scene.ClipRect
	clipID  string // non-empty while inside <clipPath>
	text    *scene.Text
	textXY  vector.Pt
	textSet bool
	lines   []string
	sawRoot bool
}

// ParseSVG reads legacy SVG markup into a scene. Supported elements: rect,
// circle, ellipse, line, text (with tspans), image, path and polyline, nested
// in groups with transforms. Anything else is skipped.
func ParseSVG(r io.Reader) (*scene.Scene, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	p := &svgParser{sc: scene.New(0, 0, ""), stack: []vector.Affine2D{vector.Identity}, clips: map[string]*scene.ClipRect{}}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.start(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			p.end(t)
		case xml.CharData:
			if p.text != nil {
				if s := strings.TrimSpace(string(t)); s != "" {
					if len(p.lines) == 0 {
						p.lines = append(p.lines, s)
					} else {
						p.lines[len(p.lines)-1] += s
					}
				}
			}
		}
	}
	if !p.sawRoot {
		return nil, ErrNoSVG
	}
	return p.sc, nil
}

func (p *svgParser) top() vector.Affine2D { return p.stack[len(p.stack)-1] }

func attrs(se xml.StartElement) map[string]string {
	m := make(map[string]string, len(se.Attr))
	for _, a := range se.Attr {
		m[a.Name.Local] = a.Value
	}
	// inline style wins over presentation attributes
	if style, ok := m["style"]; ok {
		for _, decl := range strings.Split(style, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if ok {
				m[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}
	return m
}

func num(m map[string]string, key string) float64 {
	v := strings.TrimSpace(m[key])
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func paint(m map[string]string, key, def string) string {
	v, ok := m[key]
	if !ok {
		return def
	}
	if v == "none" {
		return "transparent"
	}
	if !vector.ValidColor(v) {
		return def
	}
	return v
}

func (p *svgParser) start(se xml.StartElement) error {
	m := attrs(se)
	xf := p.top()
	if tr, ok := m["transform"]; ok {
		t, err := ParseTransform(tr)
		if err != nil {
			return err
		}
		xf = xf.Mul(t)
	}
	name := se.Name.Local
	switch name {
	case "svg":
		p.sawRoot = true
		w, h := num(m, "width"), num(m, "height")
		if vb := strings.Fields(strings.ReplaceAll(m["viewBox"], ",", " ")); len(vb) == 4 && (w <= 0 || h <= 0) {
			w, _ = strconv.ParseFloat(vb[2], 64)
			h, _ = strconv.ParseFloat(vb[3], 64)
		}
		p.sc.SetSize(w, h)
	case "clipPath":
		p.clipID = m["id"]
	case "text":
		p.text = &scene.Text{
			Common:      scene.NewCommon(0, 0),
			FontFamily:  strings.Trim(m["font-family"], "'\""),
			FontSize:    num(m, "font-size"),
			Fill:        paint(m, "fill", "#000000"),
			Bold:        isBold(m["font-weight"]),
			Italic:      m["font-style"] == "italic",
			Underline:   strings.Contains(m["text-decoration"], "underline"),
			Linethrough: strings.Contains(m["text-decoration"], "line-through"),
			TextAlign:   anchorToAlign(m["text-anchor"]),
		}
		if p.text.FontSize <= 0 {
			p.text.FontSize = 16
		}
		if _, ok := m["y"]; ok {
			p.textXY = vector.Pt{X: num(m, "x"), Y: num(m, "y")}
			p.textSet = true
		}
		p.lines = nil
		if w := num(m, "data-width"); w > 0 {
			p.text.Width = w
		}
		p.place(&p.text.Common, xf, vector.Pt{})
	case "tspan":
		if p.text != nil {
			if !p.textSet {
				p.textXY = vector.Pt{X: num(m, "x"), Y: num(m, "y")}
				p.textSet = true
			}
			p.lines = append(p.lines, "")
		}
	default:
		if p.clipID != "" && name == "rect" {
			p.clips[p.clipID] = &scene.ClipRect{
				Left: num(m, "x"), Top: num(m, "y"), Width: num(m, "width"), Height: num(m, "height"),
				RX: num(m, "rx"), RY: num(m, "ry"),
			}
		} else if p.clipID == "" {
			p.shape(name, m, xf)
		}
	}
	p.stack = append(p.stack, xf)
	return nil
}

func (p *svgParser) end(ee xml.EndElement) {
	if len(p.stack) > 1 {
		p.stack = p.stack[:len(p.stack)-1]
	}
	switch ee.Name.Local {
	case "clipPath":
		p.clipID = ""
	case "text":
		if p.text != nil {
			t := p.text
			t.Text = strings.Join(p.lines, "\n")
			if t.Width <= 0 {
				t.Width = math.Ceil(textlayout.Layout(scene.Fonts, t.Text, t.FontSpec(), 0).Width)
			}
			if t.Width <= 0 {
				t.Width = 1
			}
			// tspan coordinates are the anchor on the first baseline
			x := p.textXY.X
			switch t.TextAlign {
			case scene.AlignCenter:
				x -= t.Width / 2
			case scene.AlignRight:
				x -= t.Width
			}
			origin := t.Transform().Apply(vector.Pt{X: x, Y: p.textXY.Y - textlayout.Baseline(0, t.FontSize)})
			t.Left, t.Top = origin.X, origin.Y
			p.sc.Objects = append(p.sc.Objects, t)
		}
		p.text, p.textSet, p.lines = nil, false, nil
	}
}

func anchorToAlign(a string) string {
	switch a {
	case "middle":
		return scene.AlignCenter
	case "end":
		return scene.AlignRight
	}
	return scene.AlignLeft
}

// place decomposes xf into the object's position, rotation and scale with the
// local point at the object origin.
func (p *svgParser) place(c *scene.Common, xf vector.Affine2D, local vector.Pt) {
	o := xf.Apply(local)
	c.Left, c.Top = o.X, o.Y
	sx := math.Hypot(xf.A, xf.B)
	c.Angle = vector.FloatRound(math.Atan2(xf.B, xf.A)*180/math.Pi, 6)
	c.ScaleX = vector.FloatRound(sx, 9)
	if sx != 0 {
		c.ScaleY = vector.FloatRound((xf.A*xf.D-xf.B*xf.C)/sx, 9)
	}
}

func (p *svgParser) shape(name string, m map[string]string, xf vector.Affine2D) {
	stroke := paint(m, "stroke", "")
	sw := num(m, "stroke-width")
	if _, ok := m["stroke-width"]; !ok && stroke != "" {
		sw = 1
	}
	var o scene.Object
	switch name {
	case "rect":
		if m["width"] == "100%" && m["height"] == "100%" {
			p.sc.SetBackground(paint(m, "fill", scene.DefaultBackground))
			return
		}
		r := &scene.Rect{Common: scene.NewCommon(0, 0), Width: num(m, "width"), Height: num(m, "height"),
			Stroke: stroke, StrokeWidth: sw, Fill: paint(m, "fill", "#000000"), RX: num(m, "rx"), RY: num(m, "ry")}
		if r.RY == 0 {
			r.RY = r.RX
		}
		p.place(&r.Common, xf, vector.Pt{X: num(m, "x"), Y: num(m, "y")})
		o = r
	case "circle", "ellipse":
		rx, ry := num(m, "r"), num(m, "r")
		if name == "ellipse" {
			rx, ry = num(m, "rx"), num(m, "ry")
		}
		if rx <= 0 {
			return
		}
		c := &scene.Circle{Common: scene.NewCommon(0, 0), Radius: rx, Stroke: stroke, StrokeWidth: sw, Fill: paint(m, "fill", "#000000")}
		p.place(&c.Common, xf.Mul(vector.Translate(num(m, "cx")-rx, num(m, "cy")-ry)).Mul(vector.Scale(1, ry/rx)), vector.Pt{})
		o = c
	case "line":
		l := &scene.Line{Common: scene.NewCommon(0, 0), X1: num(m, "x1"), Y1: num(m, "y1"), X2: num(m, "x2"), Y2: num(m, "y2"),
			Stroke: paint(m, "stroke", "#000000"), StrokeWidth: sw}
		if l.StrokeWidth == 0 {
			l.StrokeWidth = 1
		}
		p.place(&l.Common, xf, vector.Pt{})
		o = l
	case "image":
		img := &scene.Image{Common: scene.NewCommon(0, 0), Src: m["href"], Width: num(m, "width"), Height: num(m, "height"), CrossOrigin: m["crossorigin"]}
		if img.Src == "" {
			return
		}
		if ref := m["clip-path"]; strings.HasPrefix(ref, "url(#") {
			if cr, ok := p.clips[strings.TrimSuffix(strings.TrimPrefix(ref, "url(#"), ")")]; ok {
				c := *cr
				img.Clip = &c
			}
		}
		p.place(&img.Common, xf, vector.Pt{X: num(m, "x"), Y: num(m, "y")})
		o = img
	case "path", "polyline", "polygon":
		var pts []vector.Pt
		if name == "path" {
			pd, err := vector.ParseSVGData(m["d"])
			if err != nil {
				return
			}
			pts = pd.Points()
		} else {
			f := strings.Fields(strings.ReplaceAll(m["points"], ",", " "))
			for i := 0; i+1 < len(f); i += 2 {
				x, _ := strconv.ParseFloat(f[i], 64)
				y, _ := strconv.ParseFloat(f[i+1], 64)
				pts = append(pts, vector.Pt{X: x, Y: y})
			}
		}
		if len(pts) == 0 {
			return
		}
		path := &scene.Path{Common: scene.NewCommon(0, 0), Points: pts, Stroke: paint(m, "stroke", "#000000"), StrokeWidth: sw}
		if path.StrokeWidth == 0 {
			path.StrokeWidth = 1
		}
		p.place(&path.Common, xf, vector.Pt{})
		o = path
	default:
		return
	}
	if op, ok := m["opacity"]; ok {
		if f, err := strconv.ParseFloat(op, 64); err == nil {
			o.Base().Opacity = f
		}
	}
	p.sc.Objects = append(p.sc.Objects, o)
}

// ParseTransform parses an SVG transform list (matrix, translate, scale,
// rotate, skewX, skewY) into a single matrix.
func ParseTransform(s string) (vector.Affine2D, error) {
	m := vector.Identity
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closeIdx := strings.IndexByte(rest, ')')
		if open < 0 || closeIdx < open {
			return vector.Identity, fmt.Errorf("bad transform %q", s)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", "))
		var args []float64
		for _, f := range strings.Fields(strings.ReplaceAll(rest[open+1:closeIdx], ",", " ")) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return vector.Identity, fmt.Errorf("bad transform %q: %w", s, err)
			}
			args = append(args, v)
		}
		rest = strings.TrimSpace(rest[closeIdx+1:])
		arg := func(i int, def float64) float64 {
			if i < len(args) {
				return args[i]
			}
			return def
		}
		var t vector.Affine2D
		switch name {
		case "matrix":
			if len(args) != 6 {
				return vector.Identity, fmt.Errorf("bad matrix %q", s)
			}
			t = vector.Affine2D{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}
		case "translate":
			t = vector.Translate(arg(0, 0), arg(1, 0))
		case "scale":
			sx := arg(0, 1)
			t = vector.Scale(sx, arg(1, sx))
		case "rotate":
			cx, cy := arg(1, 0), arg(2, 0)
			t = vector.Translate(cx, cy).Mul(vector.Rotate(vector.Radians(arg(0, 0)))).Mul(vector.Translate(-cx, -cy))
		case "skewX":
			t = vector.Affine2D{A: 1, C: math.Tan(vector.Radians(arg(0, 0))), D: 1}
		case "skewY":
			t = vector.Affine2D{A: 1, B: math.Tan(vector.Radians(arg(0, 0))), D: 1}
		default:
			return vector.Identity, fmt.Errorf("unsupported transform %q", name)
		}
		m = m.Mul(t)
	}
	return m, nil
}
