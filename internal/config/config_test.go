/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}

func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	old := tokenStore
	tokenStore = memTokens{}
	t.Cleanup(func() { tokenStore = old })
	return path
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	useTempConfig(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("unexpected token %q", tok)
	}
	if cfg.Editor.Height != 600 || cfg.Editor.Background != "#ffffff" || cfg.Editor.AutosaveDelay() != 1500*time.Millisecond {
		t.Fatalf("unexpected editor defaults: %#v", cfg.Editor)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("store driver = %q", cfg.Store.Driver)
	}
}

func TestSaveLoad_RoundTripWithToken(t *testing.T) {
	useTempConfig(t)
	cfg := Defaults()
	cfg.Editor.FontFamily = "Georgia"
	cfg.Editor.PasteOffset = 20
	cfg.Store.Driver = "postgres"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "s3cret" {
		t.Fatalf("token = %q", tok)
	}
	if got.Editor.FontFamily != "Georgia" || got.Editor.PasteOffset != 20 || got.Store.Driver != "postgres" {
		t.Fatalf("config not persisted: %#v", got)
	}
	if got.Editor.Style().FontFamily != "Georgia" {
		t.Fatalf("style not derived from editor config")
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken() error: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token still present: %q", tok)
	}
}

func TestLoadFrom_Malformed(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte("editor: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Editor.Height != 600 {
		t.Fatalf("defaults expected on error, got %#v", cfg.Editor)
	}
}

func TestEnvOverridesBackendURL(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if env, ok := EnvOverrideFor("backend.base_url"); !ok || env != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("store.dsn"); ok {
		t.Fatalf("store.dsn is not overridden")
	}
}

func TestEnvOverridesEditorAndStore(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvAutosaveMs, "250")
	t.Setenv(EnvStoreDriver, "POSTGRES")
	t.Setenv(EnvStoreDSN, "postgres://u@localhost/acv")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.AutosaveDelay() != 250*time.Millisecond {
		t.Fatalf("autosave = %v", cfg.Editor.AutosaveDelay())
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://u@localhost/acv" {
		t.Fatalf("store overrides not applied: %#v", cfg.Store)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/acv.log"
	src.Logging.MaxBackups = 7
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/acv.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	if o := dst.Logging.Options(); o.Format != "json" || !o.AddSource || o.MaxBackups != 7 || o.MaxSizeMB != 0 {
		t.Fatalf("logger options: %#v", o)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/acv.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/acv.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestTimeoutsFallBack(t *testing.T) {
	if (BackendConfig{}).Timeout() != 15*time.Second || (ImagesConfig{TimeoutMs: 100}).Timeout() != 100*time.Millisecond {
		t.Fatalf("unexpected timeouts")
	}
}
