/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snapshot converts the live scene to and from the opaque snapshot
// exchanged with the host. JSON is the current format; raw SVG markup is
// accepted as the legacy form.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"activitycanvas/internal/engine"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
)

// Snapshot is a serialized scene. Treat it as immutable.
type Snapshot []byte

// ErrUnknownFormat is returned for input that is neither JSON nor SVG.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// Format identifies the snapshot encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatSVG
)

// Detect sniffs the encoding from the first non-space byte.
func Detect(data []byte) Format {
	d := bytes.TrimSpace(data)
	// UTF-8 BOM
	d = bytes.TrimPrefix(d, []byte{0xEF, 0xBB, 0xBF})
	if len(d) == 0 {
		return FormatUnknown
	}
	switch d[0] {
	case '{':
		return FormatJSON
	case '<':
		return FormatSVG
	}
	return FormatUnknown
}

// Marshal encodes sc as a JSON snapshot.
func Marshal(sc *scene.Scene) (Snapshot, error) {
	doc := document{
		Version:    FormatVersion,
		Background: sc.Background,
		Width:      sc.Width,
		Height:     sc.Height,
		Objects:    make([]objectJSON, 0, len(sc.Objects)),
	}
	for _, o := range sc.Objects {
		j, err := encodeObject(o)
		if err != nil {
			return nil, err
		}
		doc.Objects = append(doc.Objects, j)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a JSON or legacy SVG snapshot into a new scene.
func Unmarshal(data []byte) (*scene.Scene, error) {
	switch Detect(data) {
	case FormatJSON:
		return unmarshalJSON(data)
	case FormatSVG:
		return ParseSVG(bytes.NewReader(data))
	}
	return nil, ErrUnknownFormat
}

func unmarshalJSON(data []byte) (*scene.Scene, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	sc := scene.New(doc.Width, doc.Height, doc.Background)
	for i, j := range doc.Objects {
		o, err := decodeObject(j)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		sc.Objects = append(sc.Objects, o)
	}
	return sc, nil
}

// Capture copies the engine's current state into a detached scene value.
func Capture(eng engine.Engine) *scene.Scene {
	d := eng.Dimensions()
	return &scene.Scene{
		Background: eng.Background(),
		Width:      d.W,
		Height:     d.H,
		Objects:    eng.Objects(),
	}
}

// Serialize snapshots the live engine, including image sources and clip paths.
func Serialize(eng engine.Engine) (Snapshot, error) {
	if eng == nil || eng.Disposed() {
		return nil, engine.ErrDisposed
	}
	return Marshal(Capture(eng))
}

// Deserialize replaces the engine's content with the decoded snapshot. On any
// failure the engine is left untouched and the error is logged at WARN and
// returned. An empty snapshot is a no-op.
func Deserialize(data []byte, eng engine.Engine) error {
	l := applog.WithOperation(applog.WithComponent("snapshot"), "deserialize")
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if eng == nil || eng.Disposed() {
		return engine.ErrDisposed
	}
	sc, err := Unmarshal(data)
	if err != nil {
		l.Warn("snapshot ignored", slog.Int("bytes", len(data)), slog.Any("err", err))
		return err
	}
	eng.Clear()
	_ = eng.SetBackground(sc.Background)
	eng.Add(sc.Objects...)
	eng.RequestRender()
	l.Debug("snapshot loaded", slog.Int("objects", len(sc.Objects)))
	return nil
}
