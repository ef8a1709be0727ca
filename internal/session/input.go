/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"activitycanvas/internal/commands"
	"activitycanvas/internal/scene"
)

// KeyEvent is a key press on the editor surface.
type KeyEvent struct {
	Key  string
	Ctrl bool
	Meta bool
	// InTextField is set when focus is inside a text input outside the surface.
	InTextField bool
}

// DropEvent is a palette drop. Data carries the drag payload; the "shape" key
// names the kind and "src" the image source.
type DropEvent struct {
	Data map[string]string
	X, Y float64
}

const (
	DropKeyShape = "shape"
	DropKeySrc   = "src"
)

// HandleKey reports whether the key was consumed. Delete and Backspace remove
// the selection; Ctrl/Cmd+C and Ctrl/Cmd+V copy and paste. Nothing is
// intercepted while typing or while locked.
func (s *Session) HandleKey(ev KeyEvent) bool {
	eng, ok := s.ready()
	if !ok || s.Locked() || ev.InTextField || eng.EditingText() != nil {
		return false
	}
	switch {
	case ev.Key == "Delete" || ev.Key == "Backspace":
		if !s.HasSelection() {
			return false
		}
		return s.Delete() > 0
	case ev.Ctrl || ev.Meta:
		switch strings.ToLower(ev.Key) {
		case "c":
			if _, err := s.Copy(); err != nil {
				s.log.WarnContext(s.ctx, "copy failed", slog.Any("err", err))
			}
			return true
		case "v":
			if _, err := s.Paste(); err != nil {
				s.log.WarnContext(s.ctx, "paste failed", slog.Any("err", err))
			}
			return true
		}
	}
	return false
}

// HandleDrop adds the dropped palette item at the drop point. Locked sessions
// ignore drops and return nil.
func (s *Session) HandleDrop(ctx context.Context, ev DropEvent) (scene.Object, error) {
	eng, ok := s.ready()
	if !ok {
		return nil, ErrNotReady
	}
	if s.Locked() {
		return nil, nil
	}
	kind, err := commands.ParseShapeKind(ev.Data[DropKeyShape])
	if err != nil {
		return nil, fmt.Errorf("drop: %w", err)
	}
	at := commands.At(ev.X, ev.Y)
	switch kind {
	case commands.ShapeText:
		return commands.AddText(eng, DefaultText, at, s.opts.Style), nil
	case commands.ShapeImage:
		src := strings.TrimSpace(ev.Data[DropKeySrc])
		if src == "" {
			return nil, fmt.Errorf("drop image: missing %q", DropKeySrc)
		}
		if s.opts.ImageLoader == nil {
			return nil, fmt.Errorf("drop image: no image loader")
		}
		img, err := commands.AddImage(ctx, eng, s.opts.ImageLoader, src, at, s.opts.Style)
		if err != nil {
			return nil, err
		}
		return img, nil
	default:
		return commands.AddShape(eng, kind, at, s.opts.Style)
	}
}
