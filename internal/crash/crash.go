/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a crash report plus a recovery snapshot of
// the live editor session.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	applog "activitycanvas/internal/log"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/telemetry"
	"activitycanvas/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Dir is where reports and recovery snapshots go; empty means
// <tempdir>/activitycanvas-crash.
var Dir = ""

// Recoverable is a session whose scene can be rescued.
type Recoverable interface {
	ID() string
	Snapshot() (snapshot.Snapshot, error)
}

func dir() string {
	if Dir != "" {
		return Dir
	}
	return filepath.Join(os.TempDir(), "activitycanvas-crash")
}

// Recover captures a panic, logs it with the stack, writes a report file and
// a recovery snapshot of sess (if provided), then exits with code 2.
//
// Usage: defer crash.Recover(sess)
func Recover(sess Recoverable) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(sess, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if sess != nil {
		if path, err := WriteRecovery(sess); err != nil {
			l.Error("recovery snapshot failed", slog.Any("err", err))
		} else {
			l.Info("recovery snapshot written", slog.String("path", path))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(sess Recoverable, panicVal any, stack []byte) (string, error) {
	d := dir()
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(d, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Activity Canvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if sess != nil {
		_, _ = fmt.Fprintf(&buf, "Session: %s\n", sess.ID())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	// optional upload, opt-in via env
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// WriteRecovery stores the session's current scene next to the crash reports.
func WriteRecovery(sess Recoverable) (string, error) {
	snap, err := sess.Snapshot()
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	d := dir()
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("recovery-%s-%s.json", sess.ID(), time.Now().Format("20060102-150405.000"))
	path := filepath.Join(d, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, snap, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// Recoveries lists recovery snapshots, newest first.
func Recoveries() ([]string, error) {
	entries, err := os.ReadDir(dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "recovery-") && strings.HasSuffix(e.Name(), ".json") {
			out = append(out, filepath.Join(dir(), e.Name()))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := os.Stat(out[i])
		b, _ := os.Stat(out[j])
		return a.ModTime().After(b.ModTime())
	})
	return out, nil
}
