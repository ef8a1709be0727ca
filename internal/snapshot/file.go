/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"activitycanvas/internal/scene"
)

// ErrUnreadable marks a file whose content is not a usable snapshot. Hosts
// that write back to the same file must not edit it.
var ErrUnreadable = errors.New("unreadable activity")

// ReadFile loads a snapshot from disk. A missing file is an empty snapshot.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return data, nil
}

// OpenFile reads path for editing. A missing file returns nil, nil. Content
// that does not parse or validate yields ErrUnreadable so callers never
// replace it with a blank scene.
func OpenFile(path string) (Snapshot, *scene.Scene, error) {
	data, err := ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil, nil, err
	}
	sc, err := Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w %s: %w", ErrUnreadable, path, err)
	}
	return data, sc, nil
}

// WriteFile replaces path atomically through a temp file in the same directory.
func WriteFile(path string, snap Snapshot) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
