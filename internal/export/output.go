/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/browser"

	applog "activitycanvas/internal/log"
)

// Viewer opens a rendered document for the user.
type Viewer interface {
	Open(path string) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(path string) error

func (f ViewerFunc) Open(path string) error { return f(path) }

// BrowserViewer opens files with the system handler.
type BrowserViewer struct{}

func (BrowserViewer) Open(path string) error { return browser.OpenFile(path) }

// Download persists the document under filename. A .svg extension writes the
// markup; anything else writes a PDF. The file is replaced atomically, so a
// failed export leaves no partial file.
func Download(ctx context.Context, d *Document, filename string, opts PDFOptions) error {
	if d == nil || len(d.Markup) == 0 {
		return ErrNoMarkup
	}
	if strings.TrimSpace(filename) == "" {
		return errors.New("download: empty filename")
	}
	l := applog.WithOperation(applog.WithComponent("export"), "download")
	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".svg") {
		err = d.WriteSVG(&buf)
	} else {
		err = d.WritePDF(ctx, &buf, opts)
	}
	if err != nil {
		return err
	}
	if err := writeAtomic(filename, buf.Bytes()); err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	l.Info("document written", slog.String("path", filename), slog.Int("bytes", buf.Len()))
	return nil
}

// Print renders a PDF that opens the print dialog immediately and hands it to
// the viewer. It returns the path of the rendered file.
func Print(ctx context.Context, d *Document, viewer Viewer, opts PDFOptions) (string, error) {
	if d == nil || len(d.Markup) == 0 {
		return "", ErrNoMarkup
	}
	if viewer == nil {
		viewer = BrowserViewer{}
	}
	opts.Print = true
	var buf bytes.Buffer
	if err := d.WritePDF(ctx, &buf, opts); err != nil {
		return "", err
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("activitycanvas-print-%d.pdf", time.Now().UnixNano()))
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("print: %w", err)
	}
	if err := viewer.Open(path); err != nil {
		return path, fmt.Errorf("open print view: %w", err)
	}
	return path, nil
}

// writeAtomic writes to a temp file in the target directory, syncs it and
// renames it over path.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
