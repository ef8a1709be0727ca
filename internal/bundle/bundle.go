/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs an activity and the images it references into a single
// zip so it can move between machines without network access.
package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"activitycanvas/internal/imageload"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/version"
)

const (
	ManifestName = "bundle.manifest.txt"
	ActivityName = "activity.json"
	AssetDir     = "assets"
	// MaxEntry bounds a single extracted entry.
	MaxEntry = 32 << 20
)

// ErrNoActivity is returned for archives without an activity.json entry.
var ErrNoActivity = errors.New("bundle has no " + ActivityName)

// Fetcher reads image bytes; imageload.Loader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, src, crossOrigin string) ([]byte, error)
}

// Export writes snap and its images into destZip. Image sources are rewritten
// to assets/NNN.ext inside the archive. Images that cannot be fetched keep
// their original source. It returns the number of assets packed.
func Export(ctx context.Context, snap snapshot.Snapshot, images Fetcher, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("zip", destZip))
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destination is required")
	}
	sc, err := snapshot.Unmarshal(snap)
	if err != nil {
		return 0, fmt.Errorf("read activity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Activity Canvas Bundle\nCreated: %s\nVersion: %s\nObjects: %d\n",
		time.Now().Format(time.RFC3339), version.String(), len(sc.Objects))
	if err := writeEntry(zw, ManifestName, []byte(manifest)); err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}

	packed := make(map[string]string) // original src -> archive name
	for _, o := range sc.Objects {
		img, ok := o.(*scene.Image)
		if !ok || images == nil {
			continue
		}
		if name, ok := packed[img.Src]; ok {
			img.Src, img.CrossOrigin = name, ""
			continue
		}
		data, err := images.Fetch(ctx, img.Src, img.CrossOrigin)
		if err != nil {
			l.Warn("image not packed", slog.String("src", truncate(img.Src, 80)), slog.Any("err", err))
			continue
		}
		ext := "bin"
		if kind, _ := filetype.Match(data); kind != filetype.Unknown {
			ext = kind.Extension
		}
		name := path.Join(AssetDir, fmt.Sprintf("%03d.%s", len(packed), ext))
		if err := writeEntry(zw, name, data); err != nil {
			return len(packed), fmt.Errorf("add %s: %w", name, err)
		}
		packed[img.Src] = name
		img.Src, img.CrossOrigin = name, ""
	}

	out, err := snapshot.Marshal(sc)
	if err != nil {
		return len(packed), err
	}
	if err := writeEntry(zw, ActivityName, out); err != nil {
		return len(packed), fmt.Errorf("add activity: %w", err)
	}
	if err := zw.Close(); err != nil {
		return len(packed), fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle exported", slog.Int("assets", len(packed)))
	return len(packed), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Import reads a bundle and returns a self-contained snapshot: packed images
// are inlined as data URIs.
func Import(srcZip string) (snapshot.Snapshot, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("zip", srcZip))
	r, err := zip.OpenReader(srcZip)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	var activity []byte
	assets := make(map[string][]byte)
	for _, f := range r.File {
		name := path.Clean(f.Name)
		if f.FileInfo().IsDir() || name == ManifestName {
			continue
		}
		// entries outside assets/ other than the activity are ignored
		if name != ActivityName && !strings.HasPrefix(name, AssetDir+"/") {
			l.Warn("skip unexpected entry", slog.String("name", f.Name))
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if name == ActivityName {
			activity = data
		} else {
			assets[name] = data
		}
	}
	if activity == nil {
		return nil, ErrNoActivity
	}
	sc, err := snapshot.Unmarshal(activity)
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	inlined := 0
	for _, o := range sc.Objects {
		if img, ok := o.(*scene.Image); ok {
			if data, ok := assets[path.Clean(img.Src)]; ok {
				img.Src = imageload.DataURI(data)
				inlined++
			}
		}
	}
	l.Info("bundle imported", slog.Int("objects", len(sc.Objects)), slog.Int("assets", inlined))
	return snapshot.Marshal(sc)
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntry {
		return nil, fmt.Errorf("entry exceeds %d bytes", MaxEntry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, MaxEntry))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
