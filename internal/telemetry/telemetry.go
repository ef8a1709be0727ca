/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in, anonymous usage event sender with optional
// crash report upload. Nothing is sent unless ACV_TELEMETRY_OPT_IN is set and
// an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "activitycanvas/internal/log"
	"activitycanvas/internal/version"
)

// Name identifies a usage event.
type Name string

const (
	SessionReady  Name = "session_ready"
	DocumentSaved Name = "document_saved"
	Exported      Name = "exported"
	Printed       Name = "printed"
	ImageFailed   Name = "image_failed"
)

// Config holds runtime configuration. Environment variables (read by FromEnv):
//   - ACV_TELEMETRY_OPT_IN: "1", "true", "yes" to enable
//   - ACV_TELEMETRY_URL: endpoint for JSON events
//   - ACV_CRASH_UPLOAD_URL: endpoint for crash reports
//   - ACV_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - ACV_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("ACV_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("ACV_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("ACV_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("ACV_TELEMETRY_DEBUG") != "",
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("ACV_TELEMETRY_TIMEOUT_MS"))); err == nil && n > 0 {
		cfg.Timeout = time.Duration(n) * time.Millisecond
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client sends events from a background goroutine through a bounded queue;
// a full queue drops events.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan []byte
	pending sync.WaitGroup
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

func def() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the package-level client.
func SetDefault(c *Client) {
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil && old != c {
		old.Close()
	}
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues name with props. props must not carry personal data.
func (c *Client) Event(name Name, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    string(name),
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.pending.Add(1)
	select {
	case c.q <- b:
	default:
		c.pending.Done()
	}
}

// Flush waits until queued events are sent or ctx ends.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() { c.pending.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the sender; queued events are dropped.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			for {
				select {
				case <-c.q:
					c.pending.Done()
				default:
					return
				}
			}
		case b := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", b)
			c.pending.Done()
		}
	}
}

func (c *Client) post(url, contentType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report synchronously; the process is about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

// Event sends through the default client.
func Event(name Name, props map[string]any) { def().Event(name, props) }

// UploadCrash uploads through the default client.
func UploadCrash(report []byte) { def().UploadCrash(report) }

// Flush drains the default client.
func Flush(ctx context.Context) { def().Flush(ctx) }
