/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInit_FileReceivesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acv.log")
	var console bytes.Buffer
	InitWriter(Options{Level: "debug", File: path}, &console)
	t.Cleanup(func() {
		_ = Close()
		Init(Options{Level: "info"})
	})

	l := WithOperation(WithComponent("session"), "paste")
	l.InfoContext(WithSession(context.Background(), "s-1"), "pasted", slog.Int("objects", 2))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode record %q: %v", lines[len(lines)-1], err)
	}
	want := map[string]any{"app": AppName, "component": "session", "op": "paste", "session": "s-1", "msg": "pasted"}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s = %v, want %v (record %v)", k, m[k], v, m)
		}
	}
	if m["objects"] != float64(2) {
		t.Fatalf("objects attr: %v", m["objects"])
	}
	if !strings.Contains(console.String(), "INF pasted") || !strings.Contains(console.String(), "session=s-1") {
		t.Fatalf("console copy missing: %q", console.String())
	}
}

func TestInitWriter_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(Options{Level: "info"}, &buf)
	defer Init(Options{Level: "info"})
	WithComponent("engine").Debug("hidden")
	WithOperation(WithComponent("engine"), "add").Warn("shown", slog.Int("n", 2))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
	if !strings.Contains(out, "WRN shown") || !strings.Contains(out, "component=engine") || !strings.Contains(out, "op=add") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &consoleHandler{level: slog.LevelWarn, w: &buf}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info enabled at warn level")
	}
	h = h.WithAttrs([]slog.Attr{slog.String("src", "a b")}).WithGroup("box")

	r := slog.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Float64("left", 12.5), slog.Bool("locked", true), slog.Duration("wait", 1500*time.Millisecond),
		slog.Group("clip", slog.Int("rx", 8)))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `03:04:05.000 ERR boom src="a b" box.left=12.5 box.locked=true box.wait=1.5s box.clip.rx=8`
	if got != want {
		t.Fatalf("line:\n got %s\nwant %s", got, want)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ACV_LOG_LEVEL", "warn")
	t.Setenv("ACV_LOG_FORMAT", "json")
	t.Setenv("ACV_LOG_SOURCE", "true")
	t.Setenv("ACV_LOG_FILE", "")
	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv: %+v", opts)
	}
	if v := getenv("ACV_LOG_UNSET_FOR_TEST", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback: %q", v)
	}
}

func TestSessionFrom(t *testing.T) {
	if _, ok := SessionFrom(context.Background()); ok {
		t.Fatalf("empty context reported a session")
	}
	if id, ok := SessionFrom(WithSession(context.Background(), "abc")); !ok || id != "abc" {
		t.Fatalf("SessionFrom = %q, %v", id, ok)
	}
	if _, ok := SessionFrom(WithSession(context.Background(), "")); ok {
		t.Fatalf("blank id reported")
	}
}
