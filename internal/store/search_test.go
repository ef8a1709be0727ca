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
	"testing"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
)

func textSnap(t *testing.T, texts ...string) snapshot.Snapshot {
	t.Helper()
	sc := scene.New(800, 600, "#ffffff")
	for i, txt := range texts {
		sc.Objects = append(sc.Objects, &scene.Text{Common: scene.NewCommon(0, float64(i*40)), Text: txt, FontFamily: "Arial", FontSize: 24, Fill: "#000000", Width: 200})
	}
	b, err := snapshot.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestSearch(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "a", "Fractions", textSnap(t, "Shade one half of the circle")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "b", "Shapes", textSnap(t, "Draw a triangle", "Label the HALF line")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "c", "Reading", textSnap(t, "Underline the verbs")); err != nil {
		t.Fatal(err)
	}

	res, err := s.Search(ctx, SearchQuery{Text: "Half"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res))
	}
	for _, r := range res {
		if r.Snippet == "" || r.Snapshot != nil {
			t.Fatalf("unexpected result %+v", r)
		}
	}

	res, err = s.Search(ctx, SearchQuery{Text: "reading"})
	if err != nil || len(res) != 1 || res[0].ID != "c" || res[0].Snippet != "" {
		t.Fatalf("name match: %+v %v", res, err)
	}

	// content is reindexed on every put
	if _, err := s.Put(ctx, "c", "", textSnap(t, "Circle the nouns")); err != nil {
		t.Fatal(err)
	}
	if res, _ := s.Search(ctx, SearchQuery{Text: "verbs"}); len(res) != 0 {
		t.Fatalf("stale content still matches: %+v", res)
	}
	if _, err := s.Search(ctx, SearchQuery{Text: "  "}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet("shade one half of it", "half", 5); got != "… one [half] of i…" {
		t.Fatalf("got %q", got)
	}
	if got := snippet("half\nline", "half", 24); got != "[half] line" {
		t.Fatalf("got %q", got)
	}
	if got := snippet("nothing", "half", 5); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestPrune(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := s.Put(ctx, "p", "Prune", snap(t, i)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Prune(ctx, "p", 2)
	if err != nil || n != 3 {
		t.Fatalf("prune = %d, %v", n, err)
	}
	if _, err := s.Revision(ctx, "p", 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revision 3 should be pruned, got %v", err)
	}
	for _, v := range []int64{4, 5} {
		if _, err := s.Revision(ctx, "p", v); err != nil {
			t.Fatalf("revision %d: %v", v, err)
		}
	}
	if n, _ := s.Prune(ctx, "p", 0); n != 0 {
		t.Fatalf("keepLast 0 must not delete")
	}
}
