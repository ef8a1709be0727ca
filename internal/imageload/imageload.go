/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageload resolves image sources (data URIs, same-origin and
// cross-origin URLs, local files) to bytes and natural dimensions.
package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	applog "activitycanvas/internal/log"
)

var (
	// ErrUnsupported is returned for sources that are not decodable images.
	ErrUnsupported = errors.New("unsupported image")
	// ErrTooLarge is returned when a source exceeds MaxBytes.
	ErrTooLarge = errors.New("image too large")
)

// CrossOriginAnonymous requests CORS without credentials.
const CrossOriginAnonymous = "anonymous"

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 20 << 20
)

// Options configure a Loader.
type Options struct {
	// BaseURL is the editor origin; relative sources resolve against it and
	// sources on the same origin load without CORS.
	BaseURL  string
	Timeout  time.Duration
	MaxBytes int64
	Client   *http.Client
}

// Result is a loaded image.
type Result struct {
	Data        []byte
	MIME        string
	Width       int
	Height      int
	CrossOrigin string
}

// Loader fetches images. It is safe for concurrent use.
type Loader struct {
	base   *url.URL
	client *http.Client
	max    int64
	log    *slog.Logger
}

func New(opts Options) *Loader {
	l := &Loader{client: opts.Client, max: opts.MaxBytes, log: applog.WithComponent("imageload")}
	if opts.BaseURL != "" {
		if u, err := url.Parse(opts.BaseURL); err == nil {
			l.base = u
		}
	}
	if l.max <= 0 {
		l.max = DefaultMaxBytes
	}
	if l.client == nil {
		to := opts.Timeout
		if to <= 0 {
			to = DefaultTimeout
		}
		// no cookie jar: anonymous requests never carry credentials
		l.client = &http.Client{Timeout: to}
	}
	return l
}

// CrossOriginFor returns "anonymous" for remote URLs on a different origin
// and "" for data URIs, local files and same-origin URLs.
func (l *Loader) CrossOriginFor(src string) string {
	if strings.HasPrefix(src, "data:") {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	if l.base != nil && strings.EqualFold(u.Scheme, l.base.Scheme) && strings.EqualFold(u.Host, l.base.Host) {
		return ""
	}
	return CrossOriginAnonymous
}

// Load fetches src and reads its natural size.
func (l *Loader) Load(ctx context.Context, src string) (Result, error) {
	cors := l.CrossOriginFor(l.resolve(src))
	data, err := l.Fetch(ctx, src, cors)
	if err != nil {
		return Result{}, err
	}
	kind, _ := filetype.Match(data)
	if kind == filetype.Unknown || kind.MIME.Type != "image" {
		return Result{}, fmt.Errorf("%w: unrecognized content", ErrUnsupported)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrUnsupported, kind.MIME.Value, err)
	}
	return Result{Data: data, MIME: kind.MIME.Value, Width: cfg.Width, Height: cfg.Height, CrossOrigin: cors}, nil
}

func (l *Loader) resolve(src string) string {
	if l.base == nil || strings.HasPrefix(src, "data:") {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || u.IsAbs() {
		return src
	}
	return l.base.ResolveReference(u).String()
}

// Fetch returns the raw bytes of src. crossOrigin "anonymous" sends a CORS
// request without credentials.
func (l *Loader) Fetch(ctx context.Context, src, crossOrigin string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("%w: empty source", ErrUnsupported)
	}
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}
	src = l.resolve(src)
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, u, crossOrigin)
	case "file", "":
		p := u.Path
		if u.Scheme == "" {
			p = src
		}
		return l.readFile(p)
	}
	return nil, fmt.Errorf("%w: scheme %q", ErrUnsupported, u.Scheme)
}

func (l *Loader) fetchHTTP(ctx context.Context, u *url.URL, crossOrigin string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if crossOrigin == CrossOriginAnonymous {
		req.Header.Set("Sec-Fetch-Mode", "cors")
		if l.base != nil {
			req.Header.Set("Origin", l.base.Scheme+"://"+l.base.Host)
		}
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	if crossOrigin == CrossOriginAnonymous && l.base != nil {
		if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
			l.log.Warn("cross-origin image without CORS headers; export may not embed it", slog.String("url", u.Redacted()))
		}
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.max+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > l.max {
		return nil, ErrTooLarge
	}
	return data, nil
}

// decodeDataURI decodes data:[<mime>][;base64],<payload>.
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data uri", ErrUnsupported)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop padding
			b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return []byte(s), nil
}

// DataURI encodes image bytes as a base64 data URI.
func DataURI(data []byte) string {
	mime := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
