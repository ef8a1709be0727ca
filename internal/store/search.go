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
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"activitycanvas/internal/scene"
)

// SearchQuery filters stored activities. Text matches the activity name or
// the content of its text boxes, case-insensitively. Limit/Offset paginate;
// Limit defaults to 100.
type SearchQuery struct {
	Text   string
	Limit  int
	Offset int
}

// SearchResult is one matching activity. Snippet shows the first match in
// the text content with [ ] markers; it is empty for name-only matches.
type SearchResult struct {
	Activity
	Snippet string
}

// textContent flattens the text boxes of sc for indexing.
func textContent(sc *scene.Scene) string {
	var parts []string
	for _, o := range sc.Objects {
		if t, ok := o.(*scene.Text); ok && strings.TrimSpace(t.Text) != "" {
			parts = append(parts, t.Text)
		}
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

func likeContains(s string) string { return "%" + s + "%" }

// Search returns activities matching q, most recently updated first.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	term := strings.ToLower(strings.TrimSpace(q.Text))
	if term == "" {
		return nil, errors.New("search: empty text")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, name, version, created_at, updated_at, text_content
		FROM activities
		WHERE lower(name) LIKE ? OR text_content LIKE ?
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?`),
		likeContains(term), likeContains(term), limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchResult
	for rows.Next() {
		var (
			r                SearchResult
			created, updated int64
			text             string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Version, &created, &updated, &text); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		r.UpdatedAt = time.UnixMilli(updated).UTC()
		r.Snippet = snippet(text, term, 24)
		out = append(out, r)
	}
	return out, rows.Err()
}

// snippet returns up to context runes on each side of the first match.
func snippet(text, term string, context int) string {
	i := strings.Index(text, term)
	if i < 0 {
		return ""
	}
	before, after := text[:i], text[i+len(term):]
	prefix, suffix := "", ""
	if n := utf8.RuneCountInString(before); n > context {
		r := []rune(before)
		before, prefix = string(r[n-context:]), "…"
	}
	if n := utf8.RuneCountInString(after); n > context {
		after, suffix = string([]rune(after)[:context]), "…"
	}
	s := prefix + before + "[" + term + "]" + after + suffix
	return strings.ReplaceAll(s, "\n", " ")
}

// Prune keeps at most keepLast revisions of id and deletes older ones. It
// returns the number removed; keepLast <= 0 removes nothing.
func (s *Store) Prune(ctx context.Context, id string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM activity_revisions
		WHERE activity_id = ? AND version <= (
			SELECT COALESCE(MAX(version), 0) FROM activity_revisions WHERE activity_id = ?
		) - ?`), id, id, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", id, err)
	}
	return res.RowsAffected()
}
