/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"activitycanvas/internal/snapshot"
)

// ErrNotFound is returned for a 404 from the server.
var ErrNotFound = errors.New("not found on server")

// Client is a minimal HTTP client for the activity API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("server %s %s: %w", method, u.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, e.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// IssueToken asks the server for a bearer token and keeps it on the client.
func (c *Client) IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// List returns stored activities without snapshots.
func (c *Client) List(ctx context.Context) ([]Envelope, error) {
	var list []Envelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/activities", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Search returns activities whose name or text matches q.
func (c *Client) Search(ctx context.Context, q string) ([]Envelope, error) {
	var list []Envelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/activities?q="+url.QueryEscape(q), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func activityPath(id string) string { return "/api/activities/" + url.PathEscape(id) }

// Get fetches the latest snapshot of id.
func (c *Client) Get(ctx context.Context, id string) (Envelope, error) {
	var env Envelope
	err := c.doJSON(ctx, http.MethodGet, activityPath(id), nil, &env)
	return env, err
}

// Put uploads snap and returns the stored version.
func (c *Client) Put(ctx context.Context, id, name string, snap snapshot.Snapshot) (Envelope, error) {
	var env Envelope
	err := c.doJSON(ctx, http.MethodPut, activityPath(id), Envelope{ID: id, Name: name, Snapshot: string(snap)}, &env)
	return env, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, activityPath(id), nil, nil)
}
