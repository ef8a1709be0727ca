/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"activitycanvas/internal/engine"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/vector"
)

func sampleScene() *scene.Scene {
	sc := scene.New(800, 600, "#fafafa")
	txt := &scene.Text{Common: scene.NewCommon(100, 100), Text: "Hello", FontFamily: "Arial", FontSize: 24,
		Fill: "#000000", Bold: true, Underline: true, TextAlign: scene.AlignCenter, Width: 200}
	line := &scene.Line{Common: scene.NewCommon(10, 20), X2: 150, Stroke: "#1f2937", StrokeWidth: 2}
	rect := &scene.Rect{Common: scene.NewCommon(30, 40), Width: 120, Height: 80, Stroke: "#1f2937", StrokeWidth: 2, Fill: "transparent", RX: 8, RY: 8}
	rect.Angle = 15
	circ := &scene.Circle{Common: scene.NewCommon(300, 300), Radius: 50, Stroke: "#1f2937", StrokeWidth: 2, Fill: "#ff0000"}
	circ.ScaleX, circ.ScaleY = 1.5, 0.75
	img := &scene.Image{Common: scene.NewCommon(400, 50), Src: "https://cdn.example.com/a.png", Width: 640, Height: 480, CrossOrigin: "anonymous",
		Clip: &scene.ClipRect{Width: 640, Height: 480, RX: 20, RY: 20}}
	img.ScaleX, img.ScaleY = 0.25, 0.25
	path := &scene.Path{Common: scene.NewCommon(5, 5), Points: []vector.Pt{{X: 0, Y: 0}, {X: 3.5, Y: 4.25}, {X: 10, Y: 2}}, Stroke: "#333333", StrokeWidth: 4}
	locked := &scene.Rect{Common: scene.NewCommon(0, 0), Width: 10, Height: 10, Fill: "#00ff00"}
	locked.SetInteractive(false)
	sc.Objects = []scene.Object{txt, line, rect, circ, img, path, locked}
	return sc
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	in := sampleScene()
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Background != in.Background || out.Width != in.Width || out.Height != in.Height {
		t.Fatalf("scene attrs differ: %+v", out)
	}
	if len(out.Objects) != len(in.Objects) {
		t.Fatalf("object count %d, want %d", len(out.Objects), len(in.Objects))
	}
	for i := range in.Objects {
		if out.Objects[i].Kind() != in.Objects[i].Kind() {
			t.Fatalf("object %d kind %s, want %s", i, out.Objects[i].Kind(), in.Objects[i].Kind())
		}
		if !reflect.DeepEqual(out.Objects[i], in.Objects[i]) {
			t.Fatalf("object %d differs:\n got %+v\nwant %+v", i, out.Objects[i], in.Objects[i])
		}
	}
}

func TestMarshal_IncludesImageSourceAndClip(t *testing.T) {
	data, err := Marshal(sampleScene())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("json: %v", err)
	}
	objs := doc["objects"].([]any)
	img := objs[4].(map[string]any)
	if img["src"] != "https://cdn.example.com/a.png" || img["crossOrigin"] != "anonymous" {
		t.Fatalf("image attrs missing: %v", img)
	}
	clip := img["clipPath"].(map[string]any)
	if clip["type"] != "rect" || clip["absolutePositioned"] != false || clip["rx"] != 20.0 {
		t.Fatalf("clip path wrong: %v", clip)
	}
	if err := Validate(data); err != nil {
		t.Fatalf("own output fails schema: %v", err)
	}
}

func TestUnmarshal_DefaultsForMissingFields(t *testing.T) {
	sc, err := Unmarshal([]byte(`{"objects":[{"type":"rect","left":1,"top":2,"width":3,"height":4}]}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r := sc.Objects[0].(*scene.Rect)
	if r.ScaleX != 1 || r.ScaleY != 1 || r.Opacity != 1 || !r.Selectable || r.Fill != "transparent" || r.ID == "" {
		t.Fatalf("defaults not applied: %+v", r)
	}
	if sc.Background != scene.DefaultBackground || sc.Width != scene.DefaultWidth {
		t.Fatalf("scene defaults not applied: %+v", sc)
	}
}

func TestValidate_RejectsImageWithoutSrc(t *testing.T) {
	err := Validate([]byte(`{"objects":[{"type":"image","width":10,"height":10}]}`))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	err = Validate([]byte(`{"objects":[{"type":"triangle"}]}`))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown type, got %v", err)
	}
}

func newEngine(t *testing.T) *engine.Canvas {
	t.Helper()
	c, err := engine.New(&engine.Headless{}, engine.Options{Width: 800, Height: 600, Background: "#ffffff"})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return c
}

func TestSerializeDeserialize_Engine(t *testing.T) {
	src := newEngine(t)
	in := sampleScene()
	_ = src.SetBackground(in.Background)
	src.Add(in.Objects...)
	snap, err := Serialize(src)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	dst := newEngine(t)
	if err := Deserialize(snap, dst); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	got := dst.Objects()
	if len(got) != len(in.Objects) || dst.Background() != "#fafafa" {
		t.Fatalf("engine content differs: %d objects, bg %s", len(got), dst.Background())
	}
	for i := range got {
		if got[i] == in.Objects[i] {
			t.Fatalf("object %d shares identity with the source scene", i)
		}
	}
}

func TestDeserialize_FailureIsNoOp(t *testing.T) {
	eng := newEngine(t)
	keep := &scene.Rect{Common: scene.NewCommon(0, 0), Width: 5, Height: 5}
	eng.Add(keep)
	for _, bad := range []string{`{"objects":[{"type":`, "plain text", `{"objects":[{"type":"image"}]}`, "<html><body>x</body></html>"} {
		if err := Deserialize([]byte(bad), eng); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
		if objs := eng.Objects(); len(objs) != 1 || objs[0] != keep {
			t.Fatalf("scene changed after bad input %q", bad)
		}
	}
	if err := Deserialize(nil, eng); err != nil || len(eng.Objects()) != 1 {
		t.Fatalf("empty snapshot should be a no-op: %v", err)
	}
}

func TestDetect(t *testing.T) {
	if Detect([]byte("  {}")) != FormatJSON || Detect([]byte("<?xml version=\"1.0\"?><svg/>")) != FormatSVG || Detect([]byte("x")) != FormatUnknown {
		t.Fatalf("format detection wrong")
	}
}

func TestSnapshotText_ScenarioB(t *testing.T) {
	eng := newEngine(t)
	eng.Add(&scene.Text{Common: scene.NewCommon(100, 100), Text: "Hello", FontFamily: "Arial", FontSize: 24, Fill: "#000000", Width: 200})
	snap, err := Serialize(eng)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(string(snap), `"text":"Hello"`) {
		t.Fatalf("snapshot missing text: %s", snap)
	}
}
