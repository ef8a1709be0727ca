/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Path commands, used for freehand strokes and SVG path data.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Polyline builds an open path through pts.
func Polyline(pts []Pt) Path {
	var p Path
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	return p
}

// Bounds returns an axis-aligned bounding box of the path using control
// points. Good enough for selection rectangles.
func (p *Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			grow(c.Data[0], c.Data[1])
		case QuadTo:
			grow(c.Data[0], c.Data[1])
			grow(c.Data[2], c.Data[3])
		case CubicTo:
			grow(c.Data[0], c.Data[1])
			grow(c.Data[2], c.Data[3])
			grow(c.Data[4], c.Data[5])
		case Close:
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Points returns the on-curve end points of every segment, flattening curves
// to their end points.
func (p *Path) Points() []Pt {
	var out []Pt
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			out = append(out, Pt{c.Data[0], c.Data[1]})
		case QuadTo:
			out = append(out, Pt{c.Data[2], c.Data[3]})
		case CubicTo:
			out = append(out, Pt{c.Data[4], c.Data[5]})
		case Close:
		}
	}
	return out
}

// SVGData renders the path as SVG path data with absolute commands.
func (p *Path) SVGData() string {
	var b strings.Builder
	num := func(v float64) string { return strconv.FormatFloat(FloatRound(v, 3), 'f', -1, 64) }
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			fmt.Fprintf(&b, "M %s %s", num(c.Data[0]), num(c.Data[1]))
		case LineTo:
			fmt.Fprintf(&b, "L %s %s", num(c.Data[0]), num(c.Data[1]))
		case QuadTo:
			fmt.Fprintf(&b, "Q %s %s %s %s", num(c.Data[0]), num(c.Data[1]), num(c.Data[2]), num(c.Data[3]))
		case CubicTo:
			fmt.Fprintf(&b, "C %s %s %s %s %s %s", num(c.Data[0]), num(c.Data[1]), num(c.Data[2]), num(c.Data[3]), num(c.Data[4]), num(c.Data[5]))
		case Close:
			b.WriteString("Z")
		}
	}
	return b.String()
}

// ParseSVGData parses the M, L, H, V, Q, C and Z commands of SVG path data
// (absolute and relative). Arcs and smooth curves are rejected.
func ParseSVGData(d string) (Path, error) {
	toks := tokenizePathData(d)
	var p Path
	var cur, start Pt
	var cmd byte
	i := 0
	next := func() (float64, error) {
		if i >= len(toks) {
			return 0, fmt.Errorf("path data: missing number")
		}
		v, err := strconv.ParseFloat(toks[i], 64)
		if err != nil {
			return 0, fmt.Errorf("path data: %w", err)
		}
		i++
		return v, nil
	}
	nums := func(n int) ([]float64, error) {
		out := make([]float64, n)
		for k := range out {
			v, err := next()
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	for i < len(toks) {
		t := toks[i]
		if len(t) == 1 && unicode.IsLetter(rune(t[0])) {
			cmd = t[0]
			i++
		} else if cmd == 0 {
			return Path{}, fmt.Errorf("path data: expected command, got %q", t)
		}
		rel := cmd >= 'a' && cmd <= 'z'
		off := Pt{}
		if rel {
			off = cur
		}
		switch unicode.ToUpper(rune(cmd)) {
		case 'M':
			v, err := nums(2)
			if err != nil {
				return Path{}, err
			}
			cur = Pt{v[0] + off.X, v[1] + off.Y}
			start = cur
			p.MoveTo(cur.X, cur.Y)
			// subsequent pairs are implicit line-tos
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			v, err := nums(2)
			if err != nil {
				return Path{}, err
			}
			cur = Pt{v[0] + off.X, v[1] + off.Y}
			p.LineTo(cur.X, cur.Y)
		case 'H':
			v, err := nums(1)
			if err != nil {
				return Path{}, err
			}
			cur = Pt{v[0] + off.X, cur.Y}
			p.LineTo(cur.X, cur.Y)
		case 'V':
			v, err := nums(1)
			if err != nil {
				return Path{}, err
			}
			cur = Pt{cur.X, v[0] + off.Y}
			p.LineTo(cur.X, cur.Y)
		case 'Q':
			v, err := nums(4)
			if err != nil {
				return Path{}, err
			}
			p.QuadTo(v[0]+off.X, v[1]+off.Y, v[2]+off.X, v[3]+off.Y)
			cur = Pt{v[2] + off.X, v[3] + off.Y}
		case 'C':
			v, err := nums(6)
			if err != nil {
				return Path{}, err
			}
			p.CubicTo(v[0]+off.X, v[1]+off.Y, v[2]+off.X, v[3]+off.Y, v[4]+off.X, v[5]+off.Y)
			cur = Pt{v[4] + off.X, v[5] + off.Y}
		case 'Z':
			p.Close()
			cur = start
			cmd = 0
		default:
			return Path{}, fmt.Errorf("path data: unsupported command %q", string(cmd))
		}
	}
	return p, nil
}

func tokenizePathData(d string) []string {
	var toks []string
	var num strings.Builder
	flush := func() {
		if num.Len() > 0 {
			toks = append(toks, num.String())
			num.Reset()
		}
	}
	for i := 0; i < len(d); i++ {
		ch := d[i]
		switch {
		case ch == ',' || ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		case ch == '-' && num.Len() > 0 && !strings.HasSuffix(num.String(), "e"):
			flush()
			num.WriteByte(ch)
		case (ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z') && ch != 'e' && ch != 'E':
			flush()
			toks = append(toks, string(ch))
		default:
			num.WriteByte(ch)
		}
	}
	flush()
	return toks
}
