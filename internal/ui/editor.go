//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"image/color"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"activitycanvas/internal/engine"
	"activitycanvas/internal/export"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/session"
	"activitycanvas/internal/textlayout"
	"activitycanvas/internal/vector"
)

var (
	selectionColor = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
	placeholder    = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
	transparent    = color.NRGBA{}
)

// Editor is the drawing surface widget. The session renders into it through
// Surface, and it forwards pointer and key input to the session.
// Scene units map one to one onto widget pixels.
type Editor struct {
	widget.BaseWidget

	sess   *session.Session
	images export.ImageSource
	ctx    context.Context
	log    *slog.Logger

	mu            sync.Mutex
	width, height float64
	cache         map[string]*canvas.Image
	pending       map[string]bool

	// palette item placed by the next tap
	armed, armedSrc string
	drag            scene.Object
	stroke          []vector.Pt

	// OnEditText runs after a double tap entered editing on a text box.
	OnEditText func(t *scene.Text)
	// OnError receives input failures such as an image that did not load.
	OnError func(error)
}

// NewEditor returns an editor. Bind must be called before the session is
// initialized.
func NewEditor(images export.ImageSource) *Editor {
	e := &Editor{
		images:  images,
		ctx:     context.Background(),
		log:     applog.WithComponent("ui"),
		cache:   make(map[string]*canvas.Image),
		pending: make(map[string]bool),
	}
	e.ExtendBaseWidget(e)
	return e
}

// Bind attaches the session whose engine draws into this editor.
func (e *Editor) Bind(sess *session.Session) {
	e.sess = sess
	e.ctx = applog.WithSession(context.Background(), sess.ID())
}

func (e *Editor) engine() engine.Engine {
	if e.sess == nil {
		return nil
	}
	return e.sess.Engine()
}

// Surface returns the engine.Surface backed by this editor.
func (e *Editor) Surface() engine.Surface { return surface{e} }

type surface struct{ e *Editor }

func (s surface) Resize(width, height float64) {
	s.e.mu.Lock()
	s.e.width, s.e.height = width, height
	s.e.mu.Unlock()
	s.Invalidate()
}

// Invalidate queues the refresh on the UI goroutine since autosave and image
// loads may request renders from elsewhere.
func (s surface) Invalidate() { fyne.Do(s.e.Refresh) }

// MinFillWidth is the narrowest an editor that follows its container gets.
const MinFillWidth = 240

// minSize is the surface size, except that a container-filling editor only
// claims MinFillWidth so its container can also shrink it.
func (e *Editor) minSize() fyne.Size {
	sz := e.surfaceSize()
	if e.sess != nil && e.sess.FillsWidth() {
		sz.Width = MinFillWidth
	}
	return sz
}

// Resize lays the widget out and, for a session that fills its container,
// resizes the drawing surface to the new width. The floating toolbar is
// re-anchored either way.
func (e *Editor) Resize(size fyne.Size) {
	e.BaseWidget.Resize(size)
	if e.sess == nil {
		return
	}
	if e.sess.ObserveWidth(float64(size.Width)) {
		return
	}
	if tb := e.sess.Toolbar(); tb != nil {
		tb.Recompute()
	}
}

func (e *Editor) surfaceSize() fyne.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fyne.NewSize(float32(e.width), float32(e.height))
}

// Arm makes the next tap drop a palette item of kind; src is used for images.
// An empty kind disarms.
func (e *Editor) Arm(kind, src string) {
	e.armed, e.armedSrc = kind, src
}

// Armed reports the pending palette item.
func (e *Editor) Armed() string { return e.armed }

func pt(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func (e *Editor) fail(err error) {
	e.log.WarnContext(e.ctx, "editor input failed", slog.Any("err", err))
	if e.OnError != nil {
		e.OnError(err)
	}
}

func (e *Editor) focus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(e); c != nil {
		c.Focus(e)
	}
}

// Drop places a palette item at p, as a drag-and-drop would.
func (e *Editor) Drop(p vector.Pt, kind, src string) scene.Object {
	if e.sess == nil {
		return nil
	}
	data := map[string]string{session.DropKeyShape: kind}
	if src != "" {
		data[session.DropKeySrc] = src
	}
	o, err := e.sess.HandleDrop(e.ctx, session.DropEvent{Data: data, X: p.X, Y: p.Y})
	if err != nil {
		e.fail(err)
		return nil
	}
	e.Refresh()
	return o
}

func (e *Editor) Tapped(ev *fyne.PointEvent) {
	e.focus()
	p := pt(ev.Position)
	if e.armed != "" {
		kind, src := e.armed, e.armedSrc
		e.Arm("", "")
		e.Drop(p, kind, src)
		return
	}
	eng := e.engine()
	if eng == nil || e.sess.Locked() {
		return
	}
	if o := eng.FindTarget(p); o != nil {
		eng.SetActiveObjects(o)
	} else {
		eng.DiscardActive()
	}
	e.Refresh()
}

func (e *Editor) DoubleTapped(ev *fyne.PointEvent) {
	eng := e.engine()
	if eng == nil || e.sess.Locked() {
		return
	}
	t, ok := eng.FindTarget(pt(ev.Position)).(*scene.Text)
	if !ok {
		return
	}
	eng.SetActiveObjects(t)
	eng.EnterTextEditing(t)
	if e.OnEditText != nil {
		e.OnEditText(t)
	}
}

func (e *Editor) Dragged(ev *fyne.DragEvent) {
	eng := e.engine()
	if eng == nil || e.sess.Locked() {
		return
	}
	p := pt(ev.Position)
	dx, dy := float64(ev.Dragged.DX), float64(ev.Dragged.DY)
	if eng.DrawingMode() {
		if len(e.stroke) == 0 {
			e.stroke = append(e.stroke, vector.Pt{X: p.X - dx, Y: p.Y - dy})
		}
		e.stroke = append(e.stroke, p)
		e.Refresh()
		return
	}
	if e.drag == nil {
		o := eng.FindTarget(vector.Pt{X: p.X - dx, Y: p.Y - dy})
		if o == nil || !o.Base().Selectable {
			return
		}
		e.drag = o
		if eng.ActiveObject() != o {
			eng.SetActiveObjects(o)
		}
	}
	eng.MoveObject(e.drag, dx, dy)
	e.Refresh()
}

func (e *Editor) DragEnd() {
	if len(e.stroke) > 0 {
		e.sess.FinishStroke(e.stroke)
		e.stroke = nil
	}
	if e.drag != nil {
		if eng := e.engine(); eng != nil {
			eng.EndGesture(e.drag)
		}
		e.drag = nil
	}
	e.Refresh()
}

func (e *Editor) FocusGained()   {}
func (e *Editor) FocusLost()     {}
func (e *Editor) TypedRune(rune) {}

func (e *Editor) TypedKey(ev *fyne.KeyEvent) {
	if e.sess != nil && e.sess.HandleKey(session.KeyEvent{Key: keyFor(string(ev.Name))}) {
		e.Refresh()
	}
}

func (e *Editor) TypedShortcut(s fyne.Shortcut) {
	if e.sess == nil {
		return
	}
	var key string
	switch s.(type) {
	case *fyne.ShortcutCopy:
		key = "c"
	case *fyne.ShortcutPaste:
		key = "v"
	default:
		return
	}
	if e.sess.HandleKey(session.KeyEvent{Key: key, Ctrl: true}) {
		e.Refresh()
	}
}

// image returns the rendered bitmap for img, starting a background fetch on
// first use. Nil means not loaded (yet).
func (e *Editor) image(img *scene.Image) *canvas.Image {
	key := img.ID + "|" + img.Src
	e.mu.Lock()
	defer e.mu.Unlock()
	if ci, ok := e.cache[key]; ok {
		return ci
	}
	if e.images == nil || e.pending[key] {
		return nil
	}
	e.pending[key] = true
	src, cors := img.Src, img.CrossOrigin
	go func() {
		data, err := e.images.Fetch(e.ctx, src, cors)
		if err != nil {
			e.log.WarnContext(e.ctx, "image fetch failed", slog.String("src", src), slog.Any("err", err))
			return
		}
		ci := canvas.NewImageFromReader(bytes.NewReader(data), key)
		ci.FillMode = canvas.ImageFillStretch
		e.mu.Lock()
		e.cache[key] = ci
		delete(e.pending, key)
		e.mu.Unlock()
		fyne.Do(e.Refresh)
	}()
	return nil
}

func (e *Editor) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.White)
	return &editorRenderer{e: e, bg: bg, objects: []fyne.CanvasObject{bg}}
}

type editorRenderer struct {
	e       *Editor
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *editorRenderer) Destroy()                     {}
func (r *editorRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *editorRenderer) MinSize() fyne.Size           { return r.e.minSize() }
func (r *editorRenderer) Layout(fyne.Size)             { r.rebuild() }
func (r *editorRenderer) Refresh()                     { r.rebuild(); canvas.Refresh(r.e) }

func place(o fyne.CanvasObject, b vector.Rect) {
	o.Move(fyne.NewPos(float32(b.X), float32(b.Y)))
	o.Resize(fyne.NewSize(float32(b.W), float32(b.H)))
}

func segments(pts []vector.Pt, c color.Color, width float64) []fyne.CanvasObject {
	var out []fyne.CanvasObject
	for i := 1; i < len(pts); i++ {
		ln := canvas.NewLine(c)
		ln.StrokeWidth = float32(width)
		ln.Position1 = fyne.NewPos(float32(pts[i-1].X), float32(pts[i-1].Y))
		ln.Position2 = fyne.NewPos(float32(pts[i].X), float32(pts[i].Y))
		out = append(out, ln)
	}
	return out
}

func (r *editorRenderer) rebuild() {
	objs := []fyne.CanvasObject{r.bg}
	eng := r.e.engine()
	if eng == nil {
		r.objects = objs
		return
	}
	dims := eng.Dimensions()
	r.bg.FillColor = nrgba(eng.Background(), color.White)
	place(r.bg, vector.R(0, 0, dims.W, dims.H))
	for _, o := range eng.Objects() {
		objs = append(objs, r.visuals(eng, o)...)
	}
	for _, o := range eng.ActiveObjects() {
		b, ok := eng.BoundingRect(o)
		if !ok {
			continue
		}
		frame := canvas.NewRectangle(transparent)
		frame.StrokeColor = selectionColor
		frame.StrokeWidth = 1
		place(frame, b)
		objs = append(objs, frame)
	}
	if len(r.e.stroke) > 1 {
		brush := eng.Brush()
		objs = append(objs, segments(r.e.stroke, nrgba(brush.Color, color.Black), brush.Width)...)
	}
	r.objects = objs
}

func (r *editorRenderer) visuals(eng engine.Engine, o scene.Object) []fyne.CanvasObject {
	b, ok := eng.BoundingRect(o)
	if !ok {
		return nil
	}
	switch v := o.(type) {
	case *scene.Rect:
		rc := canvas.NewRectangle(nrgba(v.Fill, transparent))
		rc.StrokeColor = nrgba(v.Stroke, color.Black)
		rc.StrokeWidth = float32(v.StrokeWidth)
		rc.CornerRadius = float32(v.RX * v.ScaleX)
		place(rc, b)
		return []fyne.CanvasObject{rc}
	case *scene.Circle:
		c := canvas.NewCircle(nrgba(v.Fill, transparent))
		c.StrokeColor = nrgba(v.Stroke, color.Black)
		c.StrokeWidth = float32(v.StrokeWidth)
		place(c, b)
		return []fyne.CanvasObject{c}
	case *scene.Line:
		pts := strokeOf(v.Transform(), []vector.Pt{{X: v.X1, Y: v.Y1}, {X: v.X2, Y: v.Y2}})
		return segments(pts, nrgba(v.Stroke, color.Black), v.StrokeWidth)
	case *scene.Path:
		return segments(strokeOf(v.Transform(), v.Points), nrgba(v.Stroke, color.Black), v.StrokeWidth)
	case *scene.Text:
		return textVisuals(v)
	case *scene.Image:
		if ci := r.e.image(v); ci != nil {
			place(ci, b)
			return []fyne.CanvasObject{ci}
		}
		ph := canvas.NewRectangle(placeholder)
		ph.CornerRadius = float32(v.CornerRadius())
		place(ph, b)
		return []fyne.CanvasObject{ph}
	}
	return nil
}

var textAligns = map[string]fyne.TextAlign{
	scene.AlignLeft:    fyne.TextAlignLeading,
	scene.AlignCenter:  fyne.TextAlignCenter,
	scene.AlignRight:   fyne.TextAlignTrailing,
	scene.AlignJustify: fyne.TextAlignLeading,
}

// textVisuals draws one canvas.Text per wrapped line. Rotation is not
// representable with fyne text, so lines are laid out upright at the
// transformed line origin.
func textVisuals(t *scene.Text) []fyne.CanvasObject {
	xf := t.Transform()
	size := t.FontSize * t.ScaleY
	width := float32(t.Width * t.ScaleX)
	var out []fyne.CanvasObject
	for i, line := range t.Layout().Lines {
		at := xf.Apply(vector.Pt{Y: float64(i) * t.FontSize * textlayout.LineHeight})
		ct := canvas.NewText(line, nrgba(t.Fill, color.Black))
		ct.TextSize = float32(size)
		ct.TextStyle = fyne.TextStyle{Bold: t.Bold, Italic: t.Italic}
		ct.Alignment = textAligns[t.TextAlign]
		ct.Move(fyne.NewPos(float32(at.X), float32(at.Y)))
		ct.Resize(fyne.NewSize(width, ct.MinSize().Height))
		out = append(out, ct)
	}
	return out
}
