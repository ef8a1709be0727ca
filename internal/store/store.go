/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store persists activity snapshots in SQLite (default, CGO-free) or
// PostgreSQL. Every put keeps a numbered revision.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free) registered as "sqlite".
	_ "modernc.org/sqlite"

	applog "activitycanvas/internal/log"
	"activitycanvas/internal/snapshot"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DefaultFileName is the SQLite file used when no DSN is configured.
	DefaultFileName = "activities.sqlite"
)

var (
	// ErrNotFound is returned for unknown activity ids or revisions.
	ErrNotFound = errors.New("activity not found")
	// ErrInvalidSnapshot is returned when a put carries an unreadable snapshot.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Activity is a stored scene snapshot.
type Activity struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Version   int64             `json:"version"`
	Snapshot  snapshot.Snapshot `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type dialect struct {
	name     string
	driver   string
	numbered bool
}

var dialects = map[string]dialect{
	DriverSQLite:   {name: "sqlite", driver: "sqlite"},
	DriverPostgres: {name: "postgres", driver: "pgx", numbered: true},
}

// Store is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

// DefaultDSN returns the SQLite file under the user data directory.
func DefaultDSN() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(dir, "activitycanvas", DefaultFileName), nil
}

// Open connects, migrates and returns a store. driver is "sqlite" or
// "postgres"; an empty driver means sqlite. For sqlite the DSN is a file path.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" || driver == "sqlite3" {
		driver = DriverSQLite
	}
	if driver == "pgx" || driver == "postgresql" {
		driver = DriverPostgres
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	l := applog.WithOperation(applog.WithComponent("store"), "open").With(slog.String("driver", driver))

	if d.name == DriverSQLite {
		if strings.TrimSpace(dsn) == "" {
			p, err := DefaultDSN()
			if err != nil {
				return nil, err
			}
			dsn = p
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
			dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(dsn))
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if d.name == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	s := &Store{db: db, dialect: d, log: applog.WithComponent("store")}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if d.name == DriverSQLite {
		if _, err := db.ExecContext(pctx, "PRAGMA journal_mode=WAL;"); err != nil {
			l.Warn("enable WAL failed", slog.Any("err", err))
		}
	}
	if err := s.applyMigrations(pctx); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("store ready")
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// q rewrites ? placeholders to $n for numbered dialects.
func (s *Store) q(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Put stores snap under id, creating the activity or bumping its version. An
// empty name keeps the stored name.
func (s *Store) Put(ctx context.Context, id, name string, snap snapshot.Snapshot) (Activity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Activity{}, errors.New("put: empty id")
	}
	sc, err := snapshot.Unmarshal(snap)
	if err != nil {
		return Activity{}, fmt.Errorf("put %s: %w: %v", id, ErrInvalidSnapshot, err)
	}
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Activity{}, fmt.Errorf("put %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		version int64
		stored  string
		created int64
	)
	err = tx.QueryRowContext(ctx, s.q(`
		INSERT INTO activities(id, name, version, snapshot, text_content, created_at, updated_at)
		VALUES(?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN activities.name ELSE excluded.name END,
			version = activities.version + 1,
			snapshot = excluded.snapshot,
			text_content = excluded.text_content,
			updated_at = excluded.updated_at
		RETURNING version, name, created_at`),
		id, name, string(snap), textContent(sc), now.UnixMilli(), now.UnixMilli()).Scan(&version, &stored, &created)
	if err != nil {
		return Activity{}, fmt.Errorf("put %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO activity_revisions(activity_id, version, snapshot, created_at) VALUES(?, ?, ?, ?)`),
		id, version, string(snap), now.UnixMilli()); err != nil {
		return Activity{}, fmt.Errorf("put %s revision: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Activity{}, fmt.Errorf("put %s commit: %w", id, err)
	}
	s.log.Debug("activity stored", slog.String("id", id), slog.Int64("version", version))
	return Activity{
		ID: id, Name: stored, Version: version, Snapshot: snap,
		CreatedAt: time.UnixMilli(created).UTC(), UpdatedAt: now.Truncate(time.Millisecond),
	}, nil
}

// Get returns the latest snapshot of id.
func (s *Store) Get(ctx context.Context, id string) (Activity, error) {
	var (
		a                Activity
		snap             string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, name, version, snapshot, created_at, updated_at FROM activities WHERE id = ?`), id).
		Scan(&a.ID, &a.Name, &a.Version, &snap, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Activity{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Activity{}, fmt.Errorf("get %s: %w", id, err)
	}
	a.Snapshot = snapshot.Snapshot(snap)
	a.CreatedAt = time.UnixMilli(created).UTC()
	a.UpdatedAt = time.UnixMilli(updated).UTC()
	return a, nil
}

// Revision returns a specific stored version of id.
func (s *Store) Revision(ctx context.Context, id string, version int64) (snapshot.Snapshot, error) {
	var snap string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT snapshot FROM activity_revisions WHERE activity_id = ? AND version = ?`), id, version).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %s@%d: %w", id, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("revision %s@%d: %w", id, version, err)
	}
	return snapshot.Snapshot(snap), nil
}

// List returns activities without their snapshots, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, version, created_at, updated_at FROM activities ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Activity
	for rows.Next() {
		var (
			a                Activity
			created, updated int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Version, &created, &updated); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
		a.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes id and its revisions.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM activity_revisions WHERE activity_id = ?`), id); err != nil {
		return fmt.Errorf("delete %s revisions: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM activities WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
