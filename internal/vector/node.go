/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Node is a hit-testable scene-graph item. The engine builds one per scene
// object to answer bounds and pointer queries.
type Node interface {
	Bounds() Rect
	Transform() Affine2D
	SetTransform(Affine2D)
	Fill() Fill
	Stroke() Stroke
	Hit(p Pt) bool
}

type baseNode struct {
	xf     Affine2D
	fill   Fill
	stroke Stroke
}

func (b *baseNode) Transform() Affine2D     { return b.xf }
func (b *baseNode) SetTransform(m Affine2D) { b.xf = m }
func (b *baseNode) Fill() Fill              { return b.fill }
func (b *baseNode) Stroke() Stroke          { return b.stroke }

// local maps a surface point into the node's untransformed space.
func (b *baseNode) local(p Pt) Pt { return b.xf.Invert().Apply(p) }

// RectNode draws an axis-aligned rectangle before transform.
type RectNode struct {
	baseNode
	rect Rect
}

func NewRect(r Rect, f Fill, s Stroke) *RectNode {
	return &RectNode{baseNode: baseNode{xf: Identity, fill: f, stroke: s}, rect: r}
}

func (n *RectNode) Bounds() Rect  { return n.xf.ApplyRect(n.rect) }
func (n *RectNode) Hit(p Pt) bool { return n.rect.Contains(n.local(p)) }

// EllipseNode represents an ellipse inside rect.
type EllipseNode struct {
	baseNode
	rect Rect
}

func NewEllipse(r Rect, f Fill, s Stroke) *EllipseNode {
	return &EllipseNode{baseNode: baseNode{xf: Identity, fill: f, stroke: s}, rect: r}
}

func (n *EllipseNode) Bounds() Rect { return n.xf.ApplyRect(n.rect) }

func (n *EllipseNode) Hit(p Pt) bool {
	q := n.local(p)
	// ((x-cx)/rx)^2 + ((y-cy)/ry)^2 <= 1
	c := n.rect.Center()
	rx := n.rect.W / 2
	ry := n.rect.H / 2
	if rx == 0 || ry == 0 {
		return false
	}
	dx := (q.X - c.X) / rx
	dy := (q.Y - c.Y) / ry
	return dx*dx+dy*dy <= 1
}

// RoundedRectNode uses uniform radii.
type RoundedRectNode struct {
	baseNode
	rect Rect
	r    float64
}

func NewRoundedRect(r Rect, radius float64, f Fill, s Stroke) *RoundedRectNode {
	return &RoundedRectNode{baseNode: baseNode{xf: Identity, fill: f, stroke: s}, rect: r, r: radius}
}

func (n *RoundedRectNode) Bounds() Rect { return n.xf.ApplyRect(n.rect) }

func (n *RoundedRectNode) Hit(p Pt) bool {
	q := n.local(p)
	if !n.rect.Contains(q) {
		return false
	}
	r := math.Min(n.r, math.Min(n.rect.W, n.rect.H)/2)
	if r <= 0 {
		return true
	}
	// Inside one of the two cross-shaped cores is always a hit.
	if n.rect.Inset(r, 0).Contains(q) || n.rect.Inset(0, r).Contains(q) {
		return true
	}
	cx := []float64{n.rect.X + r, n.rect.X + n.rect.W - r}
	cy := []float64{n.rect.Y + r, n.rect.Y + n.rect.H - r}
	for _, x := range cx {
		for _, y := range cy {
			dx := q.X - x
			dy := q.Y - y
			if dx*dx+dy*dy <= r*r {
				return true
			}
		}
	}
	return false
}

// LineNode is a stroked segment. Hits are accepted within half the stroke
// width, never less than MinLineHitTolerance.
type LineNode struct {
	baseNode
	a, b Pt
}

// MinLineHitTolerance keeps thin lines grabbable.
const MinLineHitTolerance = 4.0

func NewLine(a, b Pt, s Stroke) *LineNode {
	return &LineNode{baseNode: baseNode{xf: Identity, stroke: s}, a: a, b: b}
}

func (n *LineNode) Bounds() Rect {
	minX, minY := math.Min(n.a.X, n.b.X), math.Min(n.a.Y, n.b.Y)
	r := Rect{X: minX, Y: minY, W: math.Abs(n.b.X - n.a.X), H: math.Abs(n.b.Y - n.a.Y)}
	return n.xf.ApplyRect(r)
}

func (n *LineNode) Hit(p Pt) bool {
	q := n.local(p)
	tol := math.Max(n.stroke.Width/2, MinLineHitTolerance)
	return segmentDistance(q, n.a, n.b) <= tol
}

func segmentDistance(p, a, b Pt) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// PathNode references a path geometry.
type PathNode struct {
	baseNode
	path Path
	bbox Rect // cached approx bounds
}

func NewPath(p Path, f Fill, s Stroke) *PathNode {
	return &PathNode{baseNode: baseNode{xf: Identity, fill: f, stroke: s}, path: p, bbox: p.Bounds()}
}

func (n *PathNode) Bounds() Rect { return n.xf.ApplyRect(n.bbox) }

// Hit uses the bounding box; freehand strokes are too thin to target precisely.
func (n *PathNode) Hit(p Pt) bool { return n.bbox.Contains(n.local(p)) }

// Group is a container for child nodes with its own transform. The engine
// uses it to answer bounds queries for a multi-object selection.
type Group struct {
	baseNode
	Children []Node
}

func NewGroup(children ...Node) *Group {
	g := &Group{baseNode: baseNode{xf: Identity}}
	g.Children = append(g.Children, children...)
	return g
}

func (g *Group) Bounds() Rect {
	var b Rect
	for i, c := range g.Children {
		if i == 0 {
			b = c.Bounds()
			continue
		}
		b = b.Union(c.Bounds())
	}
	return g.xf.ApplyRect(b)
}

func (g *Group) Hit(p Pt) bool {
	q := g.local(p)
	for i := len(g.Children) - 1; i >= 0; i-- { // top-most first
		if g.Children[i].Hit(q) {
			return true
		}
	}
	return false
}
