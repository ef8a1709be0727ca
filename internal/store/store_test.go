/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "acv.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snap(t *testing.T, objects int) snapshot.Snapshot {
	t.Helper()
	sc := scene.New(800, 600, "#ffffff")
	for i := 0; i < objects; i++ {
		sc.Objects = append(sc.Objects, &scene.Rect{Common: scene.NewCommon(float64(i*10), 0), Width: 10, Height: 10, Fill: "transparent"})
	}
	b, err := snapshot.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestPutGet_Versions(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	a, err := s.Put(ctx, "lesson-1", "Fractions", snap(t, 1))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if a.Version != 1 || a.Name != "Fractions" {
		t.Fatalf("unexpected first put %+v", a)
	}
	a, err = s.Put(ctx, "lesson-1", "", snap(t, 2))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if a.Version != 2 || a.Name != "Fractions" {
		t.Fatalf("empty name must keep the stored one: %+v", a)
	}

	got, err := s.Get(ctx, "lesson-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sc, err := snapshot.Unmarshal(got.Snapshot)
	if err != nil || len(sc.Objects) != 2 {
		t.Fatalf("latest snapshot not returned: %v %v", err, sc)
	}
	old, err := s.Revision(ctx, "lesson-1", 1)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if sc, _ := snapshot.Unmarshal(old); len(sc.Objects) != 1 {
		t.Fatalf("revision 1 has %d objects", len(sc.Objects))
	}
	if _, err := s.Revision(ctx, "lesson-1", 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPut_RejectsGarbage(t *testing.T) {
	s := openSQLite(t)
	if _, err := s.Put(context.Background(), "x", "", snapshot.Snapshot("not a snapshot")); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	if _, err := s.Put(context.Background(), " ", "", snap(t, 0)); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestListDelete(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "a", "A", snap(t, 0)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := s.Put(ctx, "b", "B", snap(t, 0)); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[0].Snapshot != nil {
		t.Fatalf("unexpected list %+v", list)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestOpen_ReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acv.sqlite")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), "", path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 recorded migrations, got %d", n)
		}
		_ = s.Close()
	}
	if _, err := Open(context.Background(), "oracle", ""); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestPlaceholderRewrite(t *testing.T) {
	pg := &Store{dialect: dialects[DriverPostgres]}
	if got := pg.q("SELECT ? , ?"); got != "SELECT $1 , $2" {
		t.Fatalf("got %q", got)
	}
	lite := &Store{dialect: dialects[DriverSQLite]}
	if got := lite.q("a = ?"); got != "a = ?" {
		t.Fatalf("got %q", got)
	}
}

// Runs against a real database when ACV_PG_DSN is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("ACV_PG_DSN")
	if dsn == "" {
		t.Skip("ACV_PG_DSN not set")
	}
	s, err := Open(context.Background(), DriverPostgres, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer func() { _ = s.Close() }()
	id := "pg-" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	if _, err := s.Put(context.Background(), id, "pg", snap(t, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	defer func() { _ = s.Delete(context.Background(), id) }()
	if a, err := s.Get(context.Background(), id); err != nil || a.Version != 1 {
		t.Fatalf("get: %+v %v", a, err)
	}
}
