/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func TestLoad_DataURI(t *testing.T) {
	l := New(Options{})
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngOf(t, 7, 3))
	res, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Width != 7 || res.Height != 3 || res.MIME != "image/png" || res.CrossOrigin != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := DataURI(res.Data); got != src {
		t.Fatalf("DataURI round trip mismatch")
	}
}

func TestLoad_RemoteCrossOriginIsAnonymous(t *testing.T) {
	body := pngOf(t, 5, 9)
	var gotOrigin, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrigin = r.Header.Get("Origin")
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	l := New(Options{BaseURL: "https://school.example.org/app/"})
	res, err := l.Load(context.Background(), srv.URL+"/pic.png")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.CrossOrigin != CrossOriginAnonymous || res.Width != 5 || res.Height != 9 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotOrigin != "https://school.example.org" || gotCookie != "" {
		t.Fatalf("request was not anonymous CORS: origin=%q cookie=%q", gotOrigin, gotCookie)
	}
}

func TestLoad_SameOriginRelative(t *testing.T) {
	body := pngOf(t, 2, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/uploads/a.png" || r.Header.Get("Origin") != "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	l := New(Options{BaseURL: srv.URL + "/"})
	res, err := l.Load(context.Background(), "/uploads/a.png")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.CrossOrigin != "" {
		t.Fatalf("same-origin load should not use CORS")
	}
}

func TestLoad_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			_, _ = w.Write([]byte("hello, not an image"))
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	l := New(Options{MaxBytes: 1 << 10})
	if _, err := l.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := l.Load(context.Background(), srv.URL+"/text"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := l.Load(context.Background(), "data:image/png;base64,%%%"); err == nil {
		t.Fatalf("expected error for bad base64")
	}
	if _, err := l.Load(context.Background(), "ftp://x/y.png"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for ftp, got %v", err)
	}
	if _, err := l.Load(context.Background(), "file://"+writeTemp(t, make([]byte, 2<<10))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func writeTemp(t *testing.T, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "img.bin")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_LocalFile(t *testing.T) {
	p := writeTemp(t, pngOf(t, 3, 4))
	res, err := New(Options{}).Load(context.Background(), p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Width != 3 || res.Height != 4 {
		t.Fatalf("unexpected size %dx%d", res.Width, res.Height)
	}
}

func TestCrossOriginFor(t *testing.T) {
	l := New(Options{BaseURL: "https://a.example"})
	cases := map[string]string{
		"data:image/png;base64,AA":  "",
		"https://a.example/x.png":   "",
		"https://cdn.example/x.png": CrossOriginAnonymous,
		"/relative.png":             "",
	}
	for src, want := range cases {
		if got := l.CrossOriginFor(src); got != want {
			t.Fatalf("CrossOriginFor(%q) = %q, want %q", src, got, want)
		}
	}
}
