/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "acv.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	srv := httptest.NewServer(NewServer(st, "test-secret"))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL+"/", "", time.Second)
}

func blank(t *testing.T) snapshot.Snapshot {
	t.Helper()
	b, err := snapshot.Marshal(scene.New(800, 600, "#ffffff"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestClientServer_RoundTrip(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	if _, err := c.List(ctx); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 without token, got %v", err)
	}
	if _, err := c.IssueToken(ctx, "teacher", time.Hour); err != nil {
		t.Fatalf("token: %v", err)
	}
	env, err := c.Put(ctx, "lesson 1", "Shapes", blank(t))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if env.Version != 1 || env.Snapshot != "" {
		t.Fatalf("unexpected put response %+v", env)
	}
	got, err := c.Get(ctx, "lesson 1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Shapes" || !strings.Contains(got.Snapshot, "\"objects\"") {
		t.Fatalf("unexpected get %+v", got)
	}
	list, err := c.List(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "lesson 1" {
		t.Fatalf("list: %+v %v", list, err)
	}
	if found, err := c.Search(ctx, "shap"); err != nil || len(found) != 1 {
		t.Fatalf("search: %+v %v", found, err)
	}
	if found, err := c.Search(ctx, "nothing like it"); err != nil || len(found) != 0 {
		t.Fatalf("search miss: %+v %v", found, err)
	}
	if err := c.Delete(ctx, "lesson 1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "lesson 1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServer_RejectsBadSnapshot(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	if _, err := c.IssueToken(ctx, "", 0); err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, err := c.Put(ctx, "x", "", snapshot.Snapshot("garbage")); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := signToken("k", "alice", now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if sub, err := verifyToken("k", tok, now); err != nil || sub != "alice" {
		t.Fatalf("verify: %q %v", sub, err)
	}
	if _, err := verifyToken("other", tok, now); err == nil {
		t.Fatalf("wrong secret accepted")
	}
	if _, err := verifyToken("k", tok, now.Add(time.Hour)); err == nil {
		t.Fatalf("expired token accepted")
	}
	if _, err := verifyToken("k", "nodot", now); err == nil {
		t.Fatalf("malformed token accepted")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
