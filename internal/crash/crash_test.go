/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"activitycanvas/internal/snapshot"
)

type fakeSession struct {
	snap snapshot.Snapshot
	err  error
}

func (f fakeSession) ID() string                           { return "sess-1" }
func (f fakeSession) Snapshot() (snapshot.Snapshot, error) { return f.snap, f.err }

func useDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	old := Dir
	Dir = d
	t.Cleanup(func() { Dir = old })
	return d
}

func TestWriteReport(t *testing.T) {
	d := useDir(t)
	path, err := writeReport(fakeSession{}, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != d {
		t.Fatalf("report outside crash dir: %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Activity Canvas Crash Report") || !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "Session: sess-1") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestWriteRecovery(t *testing.T) {
	useDir(t)
	path, err := WriteRecovery(fakeSession{snap: snapshot.Snapshot(`{"objects":[]}`)})
	if err != nil {
		t.Fatalf("WriteRecovery: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != `{"objects":[]}` {
		t.Fatalf("unexpected recovery content %q", b)
	}
	list, err := Recoveries()
	if err != nil || len(list) != 1 || list[0] != path {
		t.Fatalf("Recoveries = %v %v", list, err)
	}
	if _, err := WriteRecovery(fakeSession{err: errors.New("disposed")}); err == nil {
		t.Fatalf("expected capture error")
	}
}

// Recover must write the report and recovery snapshot and exit with code 2.
func TestRecover_Panicking(t *testing.T) {
	d := useDir(t)
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(fakeSession{snap: snapshot.Snapshot(`{"objects":[]}`)})
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	entries, _ := os.ReadDir(d)
	var report, recovery bool
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "crash-"):
			b, _ := os.ReadFile(filepath.Join(d, e.Name()))
			report = bytes.Contains(b, []byte("Panic: boom"))
		case strings.HasPrefix(e.Name(), "recovery-"):
			recovery = true
		}
	}
	if !report || !recovery {
		t.Fatalf("report %v recovery %v", report, recovery)
	}
}

func TestRecover_NoPanic(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() { defer Recover(nil) }()
	if called {
		t.Fatalf("exit without panic")
	}
}
