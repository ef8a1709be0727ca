/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"activitycanvas/internal/imageload"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func activityWithImages(t *testing.T, dir string) snapshot.Snapshot {
	t.Helper()
	pic := filepath.Join(dir, "pic.png")
	writePNG(t, pic)
	sc := scene.New(800, 600, "#ffffff")
	sc.Objects = append(sc.Objects,
		&scene.Image{Common: scene.NewCommon(10, 10), Src: pic, Width: 4, Height: 3},
		&scene.Image{Common: scene.NewCommon(50, 50), Src: pic, Width: 4, Height: 3},
		&scene.Image{Common: scene.NewCommon(90, 90), Src: filepath.Join(dir, "missing.png"), Width: 4, Height: 3},
		&scene.Rect{Common: scene.NewCommon(0, 0), Width: 10, Height: 10, Stroke: "#000000", StrokeWidth: 1, Fill: "transparent"},
	)
	snap, err := snapshot.Marshal(sc)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestExportAndImport(t *testing.T) {
	dir := t.TempDir()
	snap := activityWithImages(t, dir)
	zipPath := filepath.Join(dir, "out", "lesson.zip")

	n, err := Export(context.Background(), snap, imageload.New(imageload.Options{}), zipPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the shared image packed once, got %d", n)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	_ = r.Close()
	for _, want := range []string{ManifestName, ActivityName, "assets/000.png"} {
		if !names[want] {
			t.Fatalf("missing entry %s in %v", want, names)
		}
	}

	out, err := Import(zipPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	sc, err := snapshot.Unmarshal(out)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sc.Objects) != 4 {
		t.Fatalf("expected 4 objects, got %d", len(sc.Objects))
	}
	for i, o := range sc.Objects[:2] {
		if src := o.(*scene.Image).Src; !strings.HasPrefix(src, "data:image/png;base64,") {
			t.Fatalf("image %d not inlined: %.40s", i, src)
		}
	}
	if src := sc.Objects[2].(*scene.Image).Src; !strings.HasSuffix(src, "missing.png") {
		t.Fatalf("unfetchable image must keep its source, got %q", src)
	}
}

func TestImport_RequiresActivity(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if err := writeEntry(zw, ManifestName, []byte("x")); err != nil {
		t.Fatal(err)
	}
	_ = zw.Close()
	_ = f.Close()
	if _, err := Import(zipPath); !errors.Is(err, ErrNoActivity) {
		t.Fatalf("expected ErrNoActivity, got %v", err)
	}
}

func TestExport_RejectsBrokenSnapshot(t *testing.T) {
	if _, err := Export(context.Background(), snapshot.Snapshot("nope"), nil, filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatal("expected an error for an unreadable snapshot")
	}
}
