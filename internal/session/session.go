/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the single live engine of an editor instance and
// exposes its lifecycle, lock mode, selection state and user gestures.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"activitycanvas/internal/autosave"
	"activitycanvas/internal/clipboard"
	"activitycanvas/internal/commands"
	"activitycanvas/internal/engine"
	"activitycanvas/internal/export"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/toolbar"
	"activitycanvas/internal/vector"
)

// State is the session lifecycle phase.
type State int

const (
	Uninitialized State = iota
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrNotReady is returned by operations that need a live engine.
	ErrNotReady = errors.New("session not ready")
	// ErrInitialized is returned by a second Init.
	ErrInitialized = errors.New("session already initialized")
)

// WidthThreshold is the smallest container width change that resizes the surface.
const WidthThreshold = 0.5

// DefaultText is the content of a text box dropped from the palette.
const DefaultText = "Text"

// Options configure a session.
type Options struct {
	// ID tags log records; a random one is generated when empty.
	ID      string
	Surface engine.Surface
	Loader  engine.Loader
	// Snapshot is the initial scene; empty starts blank.
	Snapshot snapshot.Snapshot
	// Width 0 makes the surface follow its container (see ObserveWidth).
	Width      float64
	Height     float64
	Background string
	Locked     bool
	// OnSave receives each saved snapshot. Nil disables autosave.
	OnSave func(ctx context.Context, snap snapshot.Snapshot) error
	// OnLoaded runs once the engine exists and the snapshot is hydrated.
	OnLoaded      func(eng engine.Engine)
	ImageLoader   commands.ImageLoader
	AutosaveDelay time.Duration
	// AfterFunc replaces the autosave timer, mainly for tests.
	AfterFunc autosave.AfterFunc
	Style     commands.Style
	// Clipboard defaults to clipboard.Default.
	Clipboard *clipboard.Clipboard
	// OnToolbar receives every toolbar recomputation.
	OnToolbar func(toolbar.View)
	// Dispatch runs f on the UI goroutine. Autosave fires on a timer
	// goroutine and hands its save to Dispatch; nil runs it in place, which
	// is only safe for hosts without a separate UI loop.
	Dispatch func(f func())
}

// Session is driven from a single UI goroutine. Autosave reaches it through
// Options.Dispatch.
type Session struct {
	opts Options
	ctx  context.Context
	log  *slog.Logger

	mu           sync.Mutex
	state        State
	eng          engine.Engine
	locked       bool
	hasSelection bool
	active       scene.Object
	fill         bool

	sched *autosave.Scheduler
	tb    *toolbar.Toolbar
	subs  engine.Subscriptions
}

// New returns an uninitialized session.
func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Loader == nil {
		opts.Loader = engine.DefaultLoader
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.Default
	}
	return &Session{
		opts:   opts,
		ctx:    applog.WithSession(context.Background(), opts.ID),
		log:    applog.WithComponent("session"),
		locked: opts.Locked,
		fill:   opts.Width <= 0,
	}
}

func (s *Session) ID() string { return s.opts.ID }

func (s *Session) dispatch(f func()) {
	if s.opts.Dispatch != nil {
		s.opts.Dispatch(f)
		return
	}
	f()
}

// autosave runs on the UI goroutine; a session disposed while the save was
// queued is skipped.
func (s *Session) autosave() {
	if s.State() != Ready {
		return
	}
	if err := s.Save(context.Background()); err != nil {
		applog.WithOperation(s.log, "autosave").WarnContext(s.ctx, "autosave failed", slog.Any("err", err))
	}
}

// Init creates the engine, hydrates the snapshot, applies the lock flag and
// wires selection tracking, the toolbar and autosave. On failure the session
// stays Uninitialized.
func (s *Session) Init(ctx context.Context) error {
	l := applog.WithOperation(s.log, "init")
	s.mu.Lock()
	if s.state != Uninitialized {
		s.mu.Unlock()
		return ErrInitialized
	}
	s.mu.Unlock()

	eng, err := s.opts.Loader(ctx, s.opts.Surface, engine.Options{
		Width:      s.opts.Width,
		Height:     s.opts.Height,
		Background: s.opts.Background,
	})
	if err != nil {
		l.WarnContext(s.ctx, "engine init failed", slog.Any("err", err))
		return fmt.Errorf("init engine: %w", err)
	}
	// A broken snapshot leaves a blank scene; Deserialize already logged it.
	_ = snapshot.Deserialize(s.opts.Snapshot, eng)

	s.mu.Lock()
	if s.state != Uninitialized {
		s.mu.Unlock()
		eng.Dispose()
		return ErrInitialized
	}
	s.eng = eng
	locked := s.locked
	s.state = Ready
	s.mu.Unlock()

	s.applyLock(locked)
	s.subs.Add(
		eng.On(engine.SelectionCreated, s.onSelection),
		eng.On(engine.SelectionUpdated, s.onSelection),
		eng.On(engine.SelectionCleared, s.onSelection),
		eng.On(engine.ObjectAdded, s.onAdded),
		eng.On(engine.ObjectScaling, s.onScaling),
	)
	s.tb = toolbar.New(eng, s.Locked, s.opts.OnToolbar)
	var save func()
	if s.opts.OnSave != nil {
		save = func() { s.dispatch(s.autosave) }
	}
	s.sched = autosave.New(save, autosave.Options{Delay: s.opts.AutosaveDelay, AfterFunc: s.opts.AfterFunc, Locked: locked})
	s.sched.Attach(eng)

	if s.opts.OnLoaded != nil {
		s.opts.OnLoaded(eng)
	}
	eng.RequestRender()
	l.InfoContext(s.ctx, "session ready", slog.Int("objects", len(eng.Objects())), slog.Bool("locked", locked))
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Engine returns the live engine, or nil outside Ready.
func (s *Session) Engine() engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return nil
	}
	return s.eng
}

func (s *Session) ready() (engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng, s.state == Ready
}

func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// SetLocked switches preview mode. Locking clears the selection, stops
// drawing and text editing, makes every object inert and disables autosave.
func (s *Session) SetLocked(on bool) {
	s.mu.Lock()
	changed := s.locked != on
	s.locked = on
	s.mu.Unlock()
	if _, ok := s.ready(); !ok || !changed {
		return
	}
	s.applyLock(on)
	s.sched.SetLocked(on)
	s.tb.Recompute()
}

func (s *Session) applyLock(on bool) {
	eng, ok := s.ready()
	if !ok {
		return
	}
	for _, o := range eng.Objects() {
		o.Base().SetInteractive(!on)
	}
	if on {
		eng.ExitTextEditing()
		eng.SetDrawingMode(false)
		eng.DiscardActive()
		s.setSelection(false, nil)
	}
	eng.RequestRender()
}

func (s *Session) onSelection(engine.EventData) {
	eng, ok := s.ready()
	if !ok {
		return
	}
	if s.Locked() {
		if len(eng.ActiveObjects()) > 0 {
			eng.DiscardActive()
		}
		s.setSelection(false, nil)
		return
	}
	objs := eng.ActiveObjects()
	s.setSelection(len(objs) > 0, eng.ActiveObject())
}

func (s *Session) setSelection(has bool, active scene.Object) {
	s.mu.Lock()
	s.hasSelection = has
	s.active = active
	s.mu.Unlock()
}

func (s *Session) onAdded(e engine.EventData) {
	if e.Target != nil && s.Locked() {
		e.Target.Base().SetInteractive(false)
	}
}

func (s *Session) onScaling(e engine.EventData) {
	t, ok := e.Target.(*scene.Text)
	if !ok {
		return
	}
	if eng, ok := s.ready(); ok {
		commands.NormalizeTextScale(eng, t)
	}
}

// HasSelection is always false while locked.
func (s *Session) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSelection && !s.locked
}

// ActiveObject returns the single selected object, or nil.
func (s *Session) ActiveObject() scene.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil
	}
	return s.active
}

// Toolbar returns the floating toolbar, or nil outside Ready.
func (s *Session) Toolbar() *toolbar.Toolbar {
	if _, ok := s.ready(); !ok {
		return nil
	}
	return s.tb
}

// SetHeight applies an explicit surface height.
func (s *Session) SetHeight(h float64) {
	eng, ok := s.ready()
	if !ok || h <= 0 {
		return
	}
	d := eng.Dimensions()
	if d.H == h {
		return
	}
	eng.SetDimensions(d.W, h)
	s.tb.Recompute()
}

// FillsWidth reports whether the surface follows its container's width.
func (s *Session) FillsWidth() bool { return s.fill }

// ObserveWidth is fed the container's content width. Sessions created with a
// fixed width ignore it; otherwise the surface is resized when the width moves
// by more than WidthThreshold. It reports whether a resize happened.
func (s *Session) ObserveWidth(w float64) bool {
	eng, ok := s.ready()
	if !ok || !s.fill || w <= 0 {
		return false
	}
	d := eng.Dimensions()
	if math.Abs(d.W-w) <= WidthThreshold {
		return false
	}
	eng.SetDimensions(w, d.H)
	eng.RequestRender()
	s.tb.Recompute()
	return true
}

// Save serializes the scene and hands it to OnSave.
func (s *Session) Save(ctx context.Context) error {
	eng, ok := s.ready()
	if !ok {
		return ErrNotReady
	}
	if s.opts.OnSave == nil {
		return nil
	}
	snap, err := snapshot.Serialize(eng)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := s.opts.OnSave(ctx, snap); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.log.DebugContext(s.ctx, "saved", slog.Int("bytes", len(snap)))
	return nil
}

// Snapshot serializes the live scene.
func (s *Session) Snapshot() (snapshot.Snapshot, error) {
	eng, ok := s.ready()
	if !ok {
		return nil, ErrNotReady
	}
	return snapshot.Serialize(eng)
}

func (s *Session) Copy() (bool, error) {
	eng, ok := s.ready()
	if !ok {
		return false, nil
	}
	return s.opts.Clipboard.Copy(eng, s.Locked())
}

func (s *Session) Paste() ([]scene.Object, error) {
	eng, ok := s.ready()
	if !ok {
		return nil, nil
	}
	return s.opts.Clipboard.Paste(eng, s.Locked())
}

// Delete removes the selection unless locked.
func (s *Session) Delete() int {
	eng, ok := s.ready()
	if !ok {
		return 0
	}
	return commands.DeleteSelection(eng, s.Locked())
}

// SetDrawing toggles freehand mode; it stays off while locked.
func (s *Session) SetDrawing(on bool, color string, width float64) bool {
	eng, ok := s.ready()
	if !ok || (on && s.Locked()) {
		return false
	}
	commands.ToggleFreehandDrawing(eng, on, color, width)
	return true
}

// FinishStroke turns a completed freehand stroke into a path.
func (s *Session) FinishStroke(points []vector.Pt) *scene.Path {
	eng, ok := s.ready()
	if !ok || s.Locked() {
		return nil
	}
	return commands.FinishFreehandPath(eng, points)
}

func (s *Session) pdfOptions() export.PDFOptions {
	opts := export.PDFOptions{Title: "Activity"}
	if src, ok := s.opts.ImageLoader.(export.ImageSource); ok {
		opts.Images = src
	}
	return opts
}

// Download writes the scene as SVG or PDF depending on the file extension.
func (s *Session) Download(ctx context.Context, filename string) error {
	eng, ok := s.ready()
	if !ok {
		return ErrNotReady
	}
	doc, err := export.RenderEngine(eng)
	if err == nil {
		err = export.Download(ctx, doc, filename, s.pdfOptions())
	}
	if err != nil {
		applog.WithOperation(s.log, "download").WarnContext(s.ctx, "export failed", slog.String("file", filename), slog.Any("err", err))
	}
	return err
}

// Print renders a print-ready PDF and opens it with viewer (nil uses the OS).
func (s *Session) Print(ctx context.Context, viewer export.Viewer) (string, error) {
	eng, ok := s.ready()
	if !ok {
		return "", ErrNotReady
	}
	doc, err := export.RenderEngine(eng)
	if err != nil {
		applog.WithOperation(s.log, "print").WarnContext(s.ctx, "export failed", slog.Any("err", err))
		return "", err
	}
	path, err := export.Print(ctx, doc, viewer, s.pdfOptions())
	if err != nil {
		applog.WithOperation(s.log, "print").WarnContext(s.ctx, "print failed", slog.Any("err", err))
	}
	return path, err
}

// Dispose tears the session down. The autosave timer is cancelled before the
// engine goes away; repeated calls are no-ops.
func (s *Session) Dispose() {
	s.mu.Lock()
	prev := s.state
	s.state = Disposed
	eng := s.eng
	s.hasSelection, s.active = false, nil
	s.mu.Unlock()
	if prev != Ready {
		return
	}
	s.sched.Close()
	s.tb.Close()
	s.subs.ReleaseAll()
	eng.Dispose()
	s.log.InfoContext(s.ctx, "session disposed")
}
