/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"activitycanvas/internal/engine"
	"activitycanvas/internal/imageload"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

var (
	// ErrLocked is returned by commands refused in preview mode.
	ErrLocked = errors.New("editor is locked")
	// ErrUnsupported is returned when a setter does not apply to the object type.
	ErrUnsupported = errors.New("not supported for this object")
)

// ImageLoader resolves an image source to its bytes and natural size.
type ImageLoader interface {
	Load(ctx context.Context, src string) (imageload.Result, error)
}

func logger(op string) *slog.Logger {
	return applog.WithOperation(applog.WithComponent("commands"), op)
}

func modified(eng engine.Engine, o scene.Object) {
	eng.Fire(engine.ObjectModified, engine.EventData{Target: o})
	eng.RequestRender()
}

// AddText inserts an editable text box of the default wrap width.
func AddText(eng engine.Engine, content string, at Placement, style Style) *scene.Text {
	s := style.withDefaults()
	t := &scene.Text{
		Common:     scene.NewCommon(at.Left, at.Top),
		Text:       content,
		FontFamily: s.FontFamily,
		FontSize:   s.FontSize,
		Fill:       s.TextColor,
		TextAlign:  scene.AlignLeft,
		Width:      s.TextWidth,
	}
	eng.Add(t)
	eng.RequestRender()
	return t
}

// NewShape builds a rect, circle or line with the stroke defaults.
func NewShape(kind ShapeKind, at Placement, style Style) (scene.Object, error) {
	s := style.withDefaults()
	c := scene.NewCommon(at.Left, at.Top)
	switch kind {
	case ShapeRect:
		return &scene.Rect{Common: c, Width: s.RectWidth, Height: s.RectHeight, Stroke: s.StrokeColor, StrokeWidth: s.StrokeWidth, Fill: s.Fill}, nil
	case ShapeCircle:
		return &scene.Circle{Common: c, Radius: s.CircleRadius, Stroke: s.StrokeColor, StrokeWidth: s.StrokeWidth, Fill: s.Fill}, nil
	case ShapeLine:
		return &scene.Line{Common: c, X2: s.LineLength, Stroke: s.StrokeColor, StrokeWidth: s.StrokeWidth}, nil
	}
	return nil, fmt.Errorf("add shape: %w: %q", ErrUnsupported, kind)
}

// AddShape inserts a rect, circle or line.
func AddShape(eng engine.Engine, kind ShapeKind, at Placement, style Style) (scene.Object, error) {
	o, err := NewShape(kind, at, style)
	if err != nil {
		return nil, err
	}
	eng.Add(o)
	eng.RequestRender()
	return o, nil
}

// AddImage loads src and inserts it at its natural size, scaled down to fit
// the style's ImageMaxSize. Cross-origin URLs are marked anonymous. A load
// failure adds nothing.
func AddImage(ctx context.Context, eng engine.Engine, loader ImageLoader, src string, at Placement, style Style) (*scene.Image, error) {
	l := logger("add_image")
	res, err := loader.Load(ctx, src)
	if err != nil {
		l.Warn("image load failed", slog.Any("err", err))
		return nil, fmt.Errorf("add image: %w", err)
	}
	s := style.withDefaults()
	img := &scene.Image{
		Common:      scene.NewCommon(at.Left, at.Top),
		Src:         src,
		Width:       float64(res.Width),
		Height:      float64(res.Height),
		CrossOrigin: res.CrossOrigin,
	}
	if m := math.Max(img.Width, img.Height); m > s.ImageMaxSize {
		k := s.ImageMaxSize / m
		img.ScaleX, img.ScaleY = k, k
	}
	eng.Add(img)
	eng.RequestRender()
	return img, nil
}

// ReplaceImageSource swaps the content of img, keeping its on-screen size and
// any rounded clip. On failure img is left unchanged.
func ReplaceImageSource(ctx context.Context, eng engine.Engine, loader ImageLoader, img *scene.Image, src string) error {
	l := logger("replace_image")
	res, err := loader.Load(ctx, src)
	if err != nil {
		l.Warn("image load failed", slog.Any("err", err))
		return fmt.Errorf("replace image: %w", err)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("replace image: empty image")
	}
	shownW := img.Width * img.ScaleX
	shownH := img.Height * img.ScaleY
	img.Src = src
	img.CrossOrigin = res.CrossOrigin
	img.Width, img.Height = float64(res.Width), float64(res.Height)
	img.ScaleX = shownW / img.Width
	img.ScaleY = shownH / img.Height
	if r := img.CornerRadius(); r > 0 {
		applyClip(img, r)
	}
	modified(eng, img)
	return nil
}

// SetCornerRadius clips img to a rounded rectangle of its natural size.
// r <= 0 removes the clip.
func SetCornerRadius(eng engine.Engine, img *scene.Image, r float64) {
	if r <= 0 {
		img.Clip = nil
	} else {
		applyClip(img, r)
	}
	modified(eng, img)
}

func applyClip(img *scene.Image, r float64) {
	img.Clip = &scene.ClipRect{
		Left: 0, Top: 0,
		Width: img.Width, Height: img.Height,
		RX: r, RY: r,
		AbsolutePositioned: false,
	}
}

// SetBackground changes the scene background.
func SetBackground(eng engine.Engine, color string) error {
	if err := eng.SetBackground(color); err != nil {
		return err
	}
	eng.RequestRender()
	return nil
}

// ToggleFreehandDrawing switches drawing mode and applies the brush when on.
func ToggleFreehandDrawing(eng engine.Engine, active bool, color string, width float64) {
	if active {
		eng.DiscardActive()
		eng.SetBrush(engine.Brush{Color: color, Width: width})
	}
	eng.SetDrawingMode(active)
	eng.RequestRender()
}

// SetBrush updates the freehand brush.
func SetBrush(eng engine.Engine, color string, width float64) {
	eng.SetBrush(engine.Brush{Color: color, Width: width})
}

// FinishFreehandPath turns a completed stroke (scene coordinates) into a Path
// using the current brush and fires path:created. Strokes with fewer than two
// points are dropped.
func FinishFreehandPath(eng engine.Engine, points []vector.Pt) *scene.Path {
	if len(points) < 2 || !eng.DrawingMode() {
		return nil
	}
	b := eng.Brush()
	minX, minY := math.Inf(1), math.Inf(1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
	}
	local := make([]vector.Pt, len(points))
	for i, p := range points {
		local[i] = vector.Pt{X: p.X - minX, Y: p.Y - minY}
	}
	path := &scene.Path{Common: scene.NewCommon(minX, minY), Points: local, Stroke: b.Color, StrokeWidth: b.Width}
	eng.Add(path)
	eng.Fire(engine.PathCreated, engine.EventData{Target: path})
	eng.RequestRender()
	return path
}

// DeleteSelection removes every selected object in one batch. It returns the
// number removed; locked sessions and empty selections remove nothing.
func DeleteSelection(eng engine.Engine, locked bool) int {
	if locked {
		return 0
	}
	objs := eng.ActiveObjects()
	if len(objs) == 0 {
		return 0
	}
	eng.DiscardActive()
	eng.Remove(objs...)
	eng.RequestRender()
	return len(objs)
}

// SetStrokeColor applies to lines, rects, circles and paths.
func SetStrokeColor(eng engine.Engine, o scene.Object, color string) error {
	if !vector.ValidColor(color) {
		return fmt.Errorf("stroke: %w: %q", vector.ErrInvalidColor, color)
	}
	switch v := o.(type) {
	case *scene.Line:
		v.Stroke = color
	case *scene.Rect:
		v.Stroke = color
	case *scene.Circle:
		v.Stroke = color
	case *scene.Path:
		v.Stroke = color
	default:
		return fmt.Errorf("stroke: %w", ErrUnsupported)
	}
	modified(eng, o)
	return nil
}

// SetStrokeWidth applies to lines, rects, circles and paths.
func SetStrokeWidth(eng engine.Engine, o scene.Object, width float64) error {
	if width < 0 {
		return fmt.Errorf("stroke width must not be negative")
	}
	switch v := o.(type) {
	case *scene.Line:
		v.StrokeWidth = width
	case *scene.Rect:
		v.StrokeWidth = width
	case *scene.Circle:
		v.StrokeWidth = width
	case *scene.Path:
		v.StrokeWidth = width
	default:
		return fmt.Errorf("stroke width: %w", ErrUnsupported)
	}
	modified(eng, o)
	return nil
}

// SetFill applies to rects and circles; "transparent" clears the fill.
func SetFill(eng engine.Engine, o scene.Object, color string) error {
	if !vector.ValidColor(color) {
		return fmt.Errorf("fill: %w: %q", vector.ErrInvalidColor, color)
	}
	switch v := o.(type) {
	case *scene.Rect:
		v.Fill = color
	case *scene.Circle:
		v.Fill = color
	default:
		return fmt.Errorf("fill: %w", ErrUnsupported)
	}
	modified(eng, o)
	return nil
}

// SetRectRadius rounds a rectangle's corners.
func SetRectRadius(eng engine.Engine, r *scene.Rect, radius float64) {
	radius = math.Max(0, radius)
	r.RX, r.RY = radius, radius
	modified(eng, r)
}

// SetText replaces the content of a text box. Editing mode ends first so the
// engine does not keep a stale caret.
func SetText(eng engine.Engine, t *scene.Text, content string) {
	if eng.EditingText() == t {
		eng.ExitTextEditing()
	}
	if t.Text == content {
		return
	}
	t.Text = content
	modified(eng, t)
}

func SetFontFamily(eng engine.Engine, t *scene.Text, family string) {
	if family = strings.TrimSpace(family); family == "" {
		return
	}
	t.FontFamily = family
	modified(eng, t)
}

func SetFontSize(eng engine.Engine, t *scene.Text, size float64) error {
	if size <= 0 {
		return fmt.Errorf("font size must be positive")
	}
	t.FontSize = size
	modified(eng, t)
	return nil
}

func SetTextColor(eng engine.Engine, t *scene.Text, color string) error {
	if !vector.ValidColor(color) {
		return fmt.Errorf("text color: %w: %q", vector.ErrInvalidColor, color)
	}
	t.Fill = color
	modified(eng, t)
	return nil
}

func ToggleBold(eng engine.Engine, t *scene.Text) { t.Bold = !t.Bold; modified(eng, t) }

func ToggleItalic(eng engine.Engine, t *scene.Text) { t.Italic = !t.Italic; modified(eng, t) }

func ToggleUnderline(eng engine.Engine, t *scene.Text) { t.Underline = !t.Underline; modified(eng, t) }

func ToggleLinethrough(eng engine.Engine, t *scene.Text) {
	t.Linethrough = !t.Linethrough
	modified(eng, t)
}

// SetTextAlign accepts left, center, right and justify.
func SetTextAlign(eng engine.Engine, t *scene.Text, align string) error {
	switch align {
	case scene.AlignLeft, scene.AlignCenter, scene.AlignRight, scene.AlignJustify:
	default:
		return fmt.Errorf("unknown text alignment %q", align)
	}
	t.TextAlign = align
	modified(eng, t)
	return nil
}

// ToggleBulletList prefixes every non-empty line with a bullet, or strips the
// bullets when all lines already have one.
func ToggleBulletList(eng engine.Engine, t *scene.Text) {
	lines := strings.Split(t.Text, "\n")
	all := true
	for _, ln := range lines {
		if ln != "" && !strings.HasPrefix(ln, scene.Bullet) {
			all = false
			break
		}
	}
	for i, ln := range lines {
		switch {
		case ln == "":
		case all:
			lines[i] = strings.TrimPrefix(ln, scene.Bullet)
		case !strings.HasPrefix(ln, scene.Bullet):
			lines[i] = scene.Bullet + ln
		}
	}
	t.Text = strings.Join(lines, "\n")
	modified(eng, t)
}

// NormalizeTextScale folds a horizontal scale gesture into the wrap width so
// glyphs keep their size. Both scale factors end at 1. It reports whether
// anything changed.
func NormalizeTextScale(eng engine.Engine, t *scene.Text) bool {
	if t.ScaleX == 1 && t.ScaleY == 1 {
		return false
	}
	w := t.Width * t.ScaleX
	if w < 1 {
		w = 1
	}
	t.Width = w
	t.ScaleX, t.ScaleY = 1, 1
	eng.RequestRender()
	return true
}
