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
	"context"
	"fmt"
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"activitycanvas/internal/commands"
	"activitycanvas/internal/engine"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/session"
	"activitycanvas/internal/toolbar"
)

var (
	fontFamilies = []string{"Arial", "Helvetica", "Times New Roman", "Courier New", "Georgia", "Verdana"}
	fontSizes    = []string{"12", "14", "16", "18", "24", "32", "48", "64"}
	strokeWidths = []string{"1", "2", "3", "4", "6", "8"}
	alignments   = []string{scene.AlignLeft, scene.AlignCenter, scene.AlignRight, scene.AlignJustify}
	barColor     = color.NRGBA{R: 250, G: 250, B: 250, A: 240}
)

// FloatBar is the contextual toolbar drawn over the editor. It rebuilds its
// controls from each toolbar.View it is shown.
type FloatBar struct {
	sess   *session.Session
	images commands.ImageLoader
	ctx    context.Context

	overlay *fyne.Container
	panel   *fyne.Container
	row     *fyne.Container

	// OnError receives failed edits.
	OnError func(error)
}

func NewFloatBar(images commands.ImageLoader) *FloatBar {
	row := container.NewHBox()
	panel := container.NewStack(canvas.NewRectangle(barColor), container.NewPadded(row))
	panel.Hide()
	return &FloatBar{
		images:  images,
		ctx:     context.Background(),
		row:     row,
		panel:   panel,
		overlay: container.NewWithoutLayout(panel),
	}
}

func (f *FloatBar) Bind(sess *session.Session) { f.sess = sess }

// Overlay is stacked above the editor.
func (f *FloatBar) Overlay() fyne.CanvasObject { return f.overlay }

// Visible reports whether the bar is showing.
func (f *FloatBar) Visible() bool { return f.panel.Visible() }

// Position is the bar's top-left corner in editor coordinates.
func (f *FloatBar) Position() fyne.Position { return f.panel.Position() }

func (f *FloatBar) fail(err error) {
	if err != nil && f.OnError != nil {
		f.OnError(err)
	}
}

// Show places the bar for v, or hides it.
func (f *FloatBar) Show(v toolbar.View) {
	if !v.Visible || f.sess == nil {
		f.panel.Hide()
		return
	}
	eng := f.sess.Engine()
	if eng == nil {
		f.panel.Hide()
		return
	}
	f.row.Objects = f.controls(eng, v)
	f.row.Refresh()
	size := f.panel.MinSize()
	at := barOrigin(v.Position, float64(size.Width), eng.Dimensions().W)
	f.panel.Resize(size)
	f.panel.Move(fyne.NewPos(float32(at.X), float32(at.Y)))
	f.panel.Show()
	f.overlay.Refresh()
}

func (f *FloatBar) controls(eng engine.Engine, v toolbar.View) []fyne.CanvasObject {
	var objs []fyne.CanvasObject
	if len(v.Targets) == 1 {
		switch c := v.Controls.(type) {
		case toolbar.TextControls:
			if t, ok := v.Targets[0].(*scene.Text); ok {
				objs = f.textControls(eng, t, c)
			}
		case toolbar.ShapeControls:
			objs = f.shapeControls(eng, v.Targets[0], c)
		case toolbar.ImageControls:
			if img, ok := v.Targets[0].(*scene.Image); ok {
				objs = f.imageControls(eng, img, c)
			}
		}
	}
	if v.Delete {
		objs = append(objs, widget.NewButton("Delete", func() { f.sess.Delete() }))
	}
	return objs
}

// selectFor builds a select whose callback only fires on user changes.
func selectFor(options []string, current string, changed func(string)) *widget.Select {
	s := widget.NewSelect(options, nil)
	s.Selected = current
	s.OnChanged = changed
	return s
}

// colorEntry applies the typed color on submit.
func colorEntry(current string, apply func(string) error, fail func(error)) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(current)
	e.OnSubmitted = func(s string) { fail(apply(s)) }
	return e
}

func number(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func (f *FloatBar) textControls(eng engine.Engine, t *scene.Text, c toolbar.TextControls) []fyne.CanvasObject {
	family := selectFor(fontFamilies, c.FontFamily, func(s string) { commands.SetFontFamily(eng, t, s) })
	size := selectFor(fontSizes, strconv.FormatFloat(c.FontSize, 'f', -1, 64), func(s string) {
		v, err := number(s)
		if err == nil {
			err = commands.SetFontSize(eng, t, v)
		}
		f.fail(err)
	})
	fill := colorEntry(c.Color, func(s string) error { return commands.SetTextColor(eng, t, s) }, f.fail)
	align := selectFor(alignments, c.Align, func(s string) { f.fail(commands.SetTextAlign(eng, t, s)) })
	toggle := func(label string, on bool, fn func(engine.Engine, *scene.Text)) *widget.Button {
		b := widget.NewButton(label, func() { fn(eng, t) })
		if on {
			b.Importance = widget.HighImportance
		}
		return b
	}
	return []fyne.CanvasObject{
		family, size, fill,
		toggle("B", c.Bold, commands.ToggleBold),
		toggle("I", c.Italic, commands.ToggleItalic),
		toggle("U", c.Underline, commands.ToggleUnderline),
		toggle("S", c.Linethrough, commands.ToggleLinethrough),
		align,
		toggle("•", c.Bullets, commands.ToggleBulletList),
	}
}

func (f *FloatBar) shapeControls(eng engine.Engine, o scene.Object, c toolbar.ShapeControls) []fyne.CanvasObject {
	stroke := colorEntry(c.Stroke, func(s string) error { return commands.SetStrokeColor(eng, o, s) }, f.fail)
	width := selectFor(strokeWidths, strconv.FormatFloat(c.StrokeWidth, 'f', -1, 64), func(s string) {
		v, err := number(s)
		if err == nil {
			err = commands.SetStrokeWidth(eng, o, v)
		}
		f.fail(err)
	})
	objs := []fyne.CanvasObject{widget.NewLabel("Stroke"), stroke, width}
	if c.HasFill {
		fill := colorEntry(c.Fill, func(s string) error { return commands.SetFill(eng, o, s) }, f.fail)
		objs = append(objs, widget.NewLabel("Fill"), fill)
	}
	if r, ok := o.(*scene.Rect); ok && c.CornerRadius {
		objs = append(objs, radiusSlider(c.Radius, func(v float64) { commands.SetRectRadius(eng, r, v) }))
	}
	return objs
}

func (f *FloatBar) imageControls(eng engine.Engine, img *scene.Image, c toolbar.ImageControls) []fyne.CanvasObject {
	src := widget.NewEntry()
	src.SetText(c.Src)
	replace := func(s string) {
		if f.images == nil {
			f.fail(fmt.Errorf("replace image: no image loader"))
			return
		}
		f.fail(commands.ReplaceImageSource(f.ctx, eng, f.images, img, s))
	}
	src.OnSubmitted = replace
	return []fyne.CanvasObject{
		src,
		widget.NewButton("Replace", func() { replace(src.Text) }),
		radiusSlider(c.CornerRadius, func(v float64) { commands.SetCornerRadius(eng, img, v) }),
	}
}

func radiusSlider(current float64, apply func(float64)) fyne.CanvasObject {
	s := widget.NewSlider(0, 100)
	s.Value = current
	s.OnChangeEnded = apply
	return container.NewGridWrap(fyne.NewSize(120, s.MinSize().Height), s)
}
