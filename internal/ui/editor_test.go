//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests drive the editor widgets through the fyne test driver. They are
// gated behind the "fyne" build tag so headless CI does not need fyne:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"context"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"activitycanvas/internal/clipboard"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/session"
	"activitycanvas/internal/toolbar"
)

func newEditor(t *testing.T) (*Editor, *FloatBar, *session.Session) {
	t.Helper()
	return newEditorWidth(t, 400)
}

func newEditorWidth(t *testing.T, width float64) (*Editor, *FloatBar, *session.Session) {
	t.Helper()
	test.NewTempApp(t)
	ed := NewEditor(nil)
	bar := NewFloatBar(nil)
	sess := session.New(session.Options{
		Surface:   ed.Surface(),
		Width:     width,
		Height:    300,
		Clipboard: clipboard.New(clipboard.DefaultOffset),
		OnToolbar: bar.Show,
	})
	ed.Bind(sess)
	bar.Bind(sess)
	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(sess.Dispose)
	return ed, bar, sess
}

func tap(ed *Editor, x, y float32) {
	ed.Tapped(&fyne.PointEvent{Position: fyne.NewPos(x, y)})
}

func drag(ed *Editor, x, y, dx, dy float32) {
	ed.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Dragged: fyne.NewDelta(dx, dy)})
}

func TestEditor_SizeFollowsEngine(t *testing.T) {
	ed, _, _ := newEditor(t)
	if sz := ed.MinSize(); sz.Width != 400 || sz.Height != 300 {
		t.Fatalf("unexpected MinSize %v", sz)
	}
}

func TestEditor_ResizeFollowsContainer(t *testing.T) {
	ed, _, sess := newEditorWidth(t, 0)
	if w := ed.MinSize().Width; w != MinFillWidth {
		t.Fatalf("fill editor MinSize width %v", w)
	}
	ed.Resize(fyne.NewSize(640, 300))
	if d := sess.Engine().Dimensions(); d.W != 640 {
		t.Fatalf("surface width %v after resize", d.W)
	}
	ed.Resize(fyne.NewSize(640.25, 300))
	if d := sess.Engine().Dimensions(); d.W != 640 {
		t.Fatalf("sub-pixel change must be ignored, got %v", d.W)
	}
	ed.Resize(fyne.NewSize(320, 300))
	if d := sess.Engine().Dimensions(); d.W != 320 {
		t.Fatalf("surface width %v after shrink", d.W)
	}
}

func TestEditor_FixedWidthIgnoresResize(t *testing.T) {
	ed, _, sess := newEditor(t)
	ed.Resize(fyne.NewSize(900, 300))
	if d := sess.Engine().Dimensions(); d.W != 400 {
		t.Fatalf("fixed width changed to %v", d.W)
	}
}

func TestEditor_ArmedTapDropsShape(t *testing.T) {
	ed, _, sess := newEditor(t)
	ed.Arm("circle", "")
	tap(ed, 20, 30)
	objs := sess.Engine().Objects()
	if len(objs) != 1 {
		t.Fatalf("expected one object, got %d", len(objs))
	}
	c, ok := objs[0].(*scene.Circle)
	if !ok || c.Left != 20 || c.Top != 30 {
		t.Fatalf("unexpected drop %#v", objs[0])
	}
	if ed.Armed() != "" {
		t.Fatalf("palette must disarm after a drop")
	}
}

func TestEditor_TapSelectsAndClears(t *testing.T) {
	ed, _, sess := newEditor(t)
	rect := ed.Drop(pt(fyne.NewPos(50, 50)), "rect", "")
	tap(ed, 60, 60)
	if sess.ActiveObject() != rect {
		t.Fatalf("tap should select the rect")
	}
	tap(ed, 390, 290)
	if sess.HasSelection() {
		t.Fatalf("tap on empty surface should clear the selection")
	}
}

func TestEditor_DragMovesTarget(t *testing.T) {
	ed, _, _ := newEditor(t)
	rect := ed.Drop(pt(fyne.NewPos(50, 50)), "rect", "").(*scene.Rect)
	drag(ed, 70, 70, 10, 10)
	drag(ed, 75, 72, 5, 2)
	ed.DragEnd()
	if rect.Left != 65 || rect.Top != 62 {
		t.Fatalf("rect at (%v,%v), want (65,62)", rect.Left, rect.Top)
	}
}

func TestEditor_LockedIgnoresInput(t *testing.T) {
	ed, _, sess := newEditor(t)
	rect := ed.Drop(pt(fyne.NewPos(50, 50)), "rect", "").(*scene.Rect)
	sess.SetLocked(true)
	tap(ed, 60, 60)
	drag(ed, 70, 70, 10, 10)
	ed.DragEnd()
	if sess.HasSelection() || rect.Left != 50 {
		t.Fatalf("locked editor must not select or move")
	}
	ed.Arm("rect", "")
	tap(ed, 10, 10)
	if n := len(sess.Engine().Objects()); n != 1 {
		t.Fatalf("locked editor must not accept drops, got %d objects", n)
	}
}

func TestEditor_FreehandStroke(t *testing.T) {
	ed, _, sess := newEditor(t)
	if !sess.SetDrawing(true, "#ff0000", 3) {
		t.Fatal("drawing mode refused")
	}
	drag(ed, 20, 20, 10, 10)
	drag(ed, 40, 25, 20, 5)
	ed.DragEnd()
	objs := sess.Engine().Objects()
	if len(objs) != 1 {
		t.Fatalf("expected one path, got %d objects", len(objs))
	}
	if _, ok := objs[0].(*scene.Path); !ok {
		t.Fatalf("expected *scene.Path, got %T", objs[0])
	}
}

func TestEditor_Keys(t *testing.T) {
	ed, _, sess := newEditor(t)
	ed.Drop(pt(fyne.NewPos(50, 50)), "rect", "")
	tap(ed, 60, 60)
	ed.TypedShortcut(&fyne.ShortcutCopy{})
	ed.TypedShortcut(&fyne.ShortcutPaste{})
	if n := len(sess.Engine().Objects()); n != 2 {
		t.Fatalf("copy/paste should add a second object, got %d", n)
	}
	ed.TypedKey(&fyne.KeyEvent{Name: fyne.KeyDelete})
	if n := len(sess.Engine().Objects()); n != 1 {
		t.Fatalf("delete should remove the pasted object, got %d", n)
	}
}

func TestEditor_RendererDrawsScene(t *testing.T) {
	ed, _, sess := newEditor(t)
	r := test.WidgetRenderer(ed)
	before := len(r.Objects())
	ed.Drop(pt(fyne.NewPos(50, 50)), "rect", "")
	ed.Drop(pt(fyne.NewPos(10, 10)), "text", "")
	r.Refresh()
	if got := len(r.Objects()); got <= before+1 {
		t.Fatalf("expected visuals for both objects, got %d (was %d)", got, before)
	}
	sess.Engine().DiscardActive()
}

func TestFloatBar_FollowsSelection(t *testing.T) {
	ed, bar, sess := newEditor(t)
	rect := ed.Drop(pt(fyne.NewPos(100, 200)), "rect", "")
	if bar.Visible() {
		t.Fatal("bar must start hidden")
	}
	sess.Engine().SetActiveObjects(rect)
	if !bar.Visible() {
		t.Fatal("bar should show for a selection")
	}
	if y := bar.Position().Y; y != 200-toolbar.Lift {
		t.Fatalf("bar y=%v want %v", y, 200-toolbar.Lift)
	}
	sess.Engine().DiscardActive()
	if bar.Visible() {
		t.Fatal("bar should hide when the selection clears")
	}
	sess.Engine().SetActiveObjects(rect)
	sess.SetLocked(true)
	if bar.Visible() {
		t.Fatal("bar must hide while locked")
	}
}
