/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend serves stored activities over HTTP and provides the
// matching client used by the CLI.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	applog "activitycanvas/internal/log"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/store"
	"activitycanvas/internal/version"
)

// MaxSnapshotBytes bounds request bodies.
const MaxSnapshotBytes = 8 << 20

// Activities is the storage the server needs; *store.Store implements it.
type Activities interface {
	Put(ctx context.Context, id, name string, snap snapshot.Snapshot) (store.Activity, error)
	Get(ctx context.Context, id string) (store.Activity, error)
	List(ctx context.Context) ([]store.Activity, error)
	Search(ctx context.Context, q store.SearchQuery) ([]store.SearchResult, error)
	Delete(ctx context.Context, id string) error
}

// Envelope is the wire form of an activity.
type Envelope struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Version   int64     `json:"version,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	// Snapshot is the raw serialized scene (JSON or legacy SVG).
	Snapshot string `json:"snapshot,omitempty"`
}

func envelope(a store.Activity) Envelope {
	return Envelope{ID: a.ID, Name: a.Name, Version: a.Version, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, Snapshot: string(a.Snapshot)}
}

// Server exposes Activities with bearer-token auth.
type Server struct {
	store  Activities
	secret string
	now    func() time.Time
	log    *slog.Logger
	mux    *http.ServeMux
}

// NewServer builds the handler. An empty secret falls back to an insecure
// development secret and logs a warning.
func NewServer(st Activities, secret string) *Server {
	l := applog.WithComponent("backend")
	if secret == "" {
		secret = "dev-secret-change-me"
		l.Warn("auth secret not set; using insecure dev secret")
	}
	s := &Server{store: st, secret: secret, now: time.Now, log: l, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})
	s.mux.HandleFunc("POST /api/auth/token", s.handleToken)
	s.mux.HandleFunc("GET /api/activities", s.withAuth(s.handleList))
	s.mux.HandleFunc("GET /api/activities/{id}", s.withAuth(s.handleGet))
	s.mux.HandleFunc("PUT /api/activities/{id}", s.withAuth(s.handlePut))
	s.mux.HandleFunc("DELETE /api/activities/{id}", s.withAuth(s.handleDelete))
}

// POST /api/auth/token → { token, expires_at }
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	// Optional JSON body: { "subject": "name", "ttl_seconds": 3600 }
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := s.now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

// GET /api/activities[?q=text] lists activities, or searches them when q is set.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ string) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		res, err := s.store.Search(r.Context(), store.SearchQuery{Text: q})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out := make([]Envelope, 0, len(res))
		for _, a := range res {
			out = append(out, envelope(a.Activity))
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]Envelope, 0, len(list))
	for _, a := range list {
		out = append(out, envelope(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, _ string) {
	a, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope(a))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, sub string) {
	var env Envelope
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxSnapshotBytes))
	if err := dec.Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	a, err := s.store.Put(r.Context(), r.PathValue("id"), env.Name, snapshot.Snapshot(env.Snapshot))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.log.Info("activity stored", slog.String("id", a.ID), slog.Int64("version", a.Version), slog.String("sub", sub))
	a.Snapshot = nil
	writeJSON(w, http.StatusOK, envelope(a))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, _ string) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidSnapshot):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.log.Error("store failure", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// ListenAndServe runs the server until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	applog.WithComponent("backend").Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
