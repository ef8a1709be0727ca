//go:build fyne && cgo

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
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"activitycanvas/internal/clipboard"
	"activitycanvas/internal/commands"
	"activitycanvas/internal/config"
	"activitycanvas/internal/crash"
	"activitycanvas/internal/export"
	"activitycanvas/internal/imageload"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/session"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/telemetry"
	"activitycanvas/internal/vector"
)

// Run opens the editor window on the snapshot at path. A missing file starts
// a blank activity that is written there on the first autosave; an empty path
// edits without saving. A file that does not parse is refused before any
// window opens, since autosave would overwrite it.
func Run(cfg config.AppConfig, path string) error {
	log := applog.WithComponent("ui")
	var initial snapshot.Snapshot
	if path != "" {
		data, _, err := snapshot.OpenFile(path)
		if err != nil {
			return err
		}
		initial = data
	}

	a := app.NewWithID("dev.activitycanvas")
	title := "Activity Canvas"
	if path != "" {
		title += " - " + filepath.Base(path)
	}
	w := a.NewWindow(title)

	loader := imageload.New(imageload.Options{
		BaseURL:  cfg.Images.BaseURL,
		Timeout:  cfg.Images.Timeout(),
		MaxBytes: cfg.Images.MaxBytes,
	})
	ed := NewEditor(loader)
	bar := NewFloatBar(loader)
	status := widget.NewLabel("")

	var onSave func(context.Context, snapshot.Snapshot) error
	if path != "" {
		onSave = func(_ context.Context, snap snapshot.Snapshot) error {
			if err := snapshot.WriteFile(path, snap); err != nil {
				return err
			}
			telemetry.Event(telemetry.DocumentSaved, map[string]any{"bytes": len(snap)})
			fyne.Do(func() { status.SetText("Saved " + filepath.Base(path)) })
			return nil
		}
	}
	sess := session.New(session.Options{
		Surface:       ed.Surface(),
		Snapshot:      initial,
		Width:         cfg.Editor.Width,
		Height:        cfg.Editor.Height,
		Background:    cfg.Editor.Background,
		OnSave:        onSave,
		ImageLoader:   loader,
		AutosaveDelay: cfg.Editor.AutosaveDelay(),
		Style:         cfg.Editor.Style(),
		Clipboard:     clipboard.New(cfg.Editor.PasteOffset),
		OnToolbar:     bar.Show,
		Dispatch:      fyne.Do,
	})
	defer crash.Recover(sess)
	ed.Bind(sess)
	bar.Bind(sess)

	ctx := applog.WithSession(context.Background(), sess.ID())
	if err := sess.Init(ctx); err != nil {
		return fmt.Errorf("open editor: %w", err)
	}
	telemetry.Event(telemetry.SessionReady, map[string]any{"objects": len(sess.Engine().Objects())})

	showErr := func(err error) {
		log.WarnContext(ctx, "editor action failed", slog.Any("err", err))
		dialog.ShowError(err, w)
	}
	ed.OnError = showErr
	bar.OnError = showErr
	ed.OnEditText = func(t *scene.Text) { editText(w, sess, ed, t) }

	w.SetOnDropped(func(pos fyne.Position, uris []fyne.URI) {
		off := a.Driver().AbsolutePositionForObject(ed)
		for i, u := range uris {
			shift := float64(i) * clipboard.DefaultOffset
			p := vector.Pt{X: float64(pos.X-off.X) + shift, Y: float64(pos.Y-off.Y) + shift}
			if ed.Drop(p, string(commands.ShapeImage), u.String()) == nil && !sess.Locked() {
				telemetry.Event(telemetry.ImageFailed, map[string]any{"scheme": u.Scheme()})
			}
		}
	})

	top := container.NewHBox(
		paletteButton(ed, status, "Text", commands.ShapeText),
		paletteButton(ed, status, "Rectangle", commands.ShapeRect),
		paletteButton(ed, status, "Circle", commands.ShapeCircle),
		paletteButton(ed, status, "Line", commands.ShapeLine),
		widget.NewButton("Image…", func() { askImage(w, ed, status) }),
		widget.NewSeparator(),
		drawCheck(sess, cfg.Editor),
		lockCheck(sess, ed),
		widget.NewButton("Background…", func() { askBackground(w, sess, showErr) }),
		widget.NewSeparator(),
		widget.NewButton("Copy", func() { ed.TypedShortcut(&fyne.ShortcutCopy{}) }),
		widget.NewButton("Paste", func() { ed.TypedShortcut(&fyne.ShortcutPaste{}) }),
		widget.NewButton("Save", func() {
			if err := sess.Save(ctx); err != nil {
				showErr(err)
			}
		}),
		widget.NewButton("Export…", func() { exportDialog(ctx, w, sess, status, showErr) }),
		widget.NewButton("Print", func() {
			out, err := sess.Print(ctx, export.BrowserViewer{})
			if err != nil {
				showErr(err)
				return
			}
			telemetry.Event(telemetry.Printed, nil)
			status.SetText("Printed to " + out)
		}),
	)

	scroll := container.NewScroll(container.NewStack(ed, bar.Overlay()))
	scroll.OnScrolled = func(fyne.Position) {
		if tb := sess.Toolbar(); tb != nil {
			tb.Recompute()
		}
	}
	w.SetContent(container.NewBorder(top, status, nil, nil, scroll))
	w.SetOnClosed(func() {
		if onSave != nil {
			if err := sess.Save(ctx); err != nil {
				log.ErrorContext(ctx, "final save failed", slog.Any("err", err))
			}
		}
		sess.Dispose()
		telemetry.Flush(ctx)
	})
	size := ed.surfaceSize()
	w.Resize(fyne.NewSize(size.Width+40, size.Height+120))
	w.ShowAndRun()
	return nil
}

func paletteButton(ed *Editor, status *widget.Label, label string, kind commands.ShapeKind) *widget.Button {
	return widget.NewButton(label, func() {
		ed.Arm(string(kind), "")
		status.SetText("Click the canvas to place a " + strings.ToLower(label))
	})
}

func askImage(w fyne.Window, ed *Editor, status *widget.Label) {
	src := widget.NewEntry()
	src.SetPlaceHolder("https://… or a file path")
	dialog.ShowForm("Insert image", "Place", "Cancel", []*widget.FormItem{widget.NewFormItem("Source", src)}, func(ok bool) {
		if !ok || strings.TrimSpace(src.Text) == "" {
			return
		}
		ed.Arm(string(commands.ShapeImage), strings.TrimSpace(src.Text))
		status.SetText("Click the canvas to place the image")
	}, w)
}

func askBackground(w fyne.Window, sess *session.Session, fail func(error)) {
	eng := sess.Engine()
	if eng == nil {
		return
	}
	c := widget.NewEntry()
	c.SetText(eng.Background())
	dialog.ShowForm("Background", "Apply", "Cancel", []*widget.FormItem{widget.NewFormItem("Color", c)}, func(ok bool) {
		if !ok {
			return
		}
		if err := commands.SetBackground(eng, c.Text); err != nil {
			fail(err)
		}
	}, w)
}

func drawCheck(sess *session.Session, cfg config.EditorConfig) *widget.Check {
	var chk *widget.Check
	chk = widget.NewCheck("Draw", func(on bool) {
		if !sess.SetDrawing(on, cfg.StrokeColor, cfg.StrokeWidth) && on {
			chk.SetChecked(false)
		}
	})
	return chk
}

func lockCheck(sess *session.Session, ed *Editor) *widget.Check {
	chk := widget.NewCheck("Lock", func(on bool) {
		sess.SetLocked(on)
		ed.Refresh()
	})
	chk.Checked = sess.Locked()
	return chk
}

func editText(w fyne.Window, sess *session.Session, ed *Editor, t *scene.Text) {
	entry := widget.NewMultiLineEntry()
	entry.SetText(t.Text)
	dialog.ShowForm("Edit text", "Apply", "Cancel", []*widget.FormItem{widget.NewFormItem("Text", entry)}, func(ok bool) {
		eng := sess.Engine()
		if eng == nil {
			return
		}
		if ok {
			commands.SetText(eng, t, entry.Text)
		} else {
			eng.ExitTextEditing()
		}
		ed.Refresh()
	}, w)
}

func exportDialog(ctx context.Context, w fyne.Window, sess *session.Session, status *widget.Label, fail func(error)) {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			fail(err)
			return
		}
		if wc == nil {
			return
		}
		out := wc.URI().Path()
		_ = wc.Close()
		if err := sess.Download(ctx, out); err != nil {
			fail(err)
			return
		}
		telemetry.Event(telemetry.Exported, map[string]any{"format": strings.TrimPrefix(filepath.Ext(out), ".")})
		status.SetText("Exported " + filepath.Base(out))
	}, w)
	d.SetFileName("activity.pdf")
	d.Show()
}
