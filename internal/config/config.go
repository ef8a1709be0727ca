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
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"activitycanvas/internal/commands"
	applog "activitycanvas/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type EditorConfig struct {
	Width       float64 `yaml:"width"` // 0 follows the window
	Height      float64 `yaml:"height"`
	Background  string  `yaml:"background"`
	AutosaveMs  int     `yaml:"autosave_ms"`
	TextWidth   float64 `yaml:"text_width"`
	FontFamily  string  `yaml:"font_family"`
	FontSize    float64 `yaml:"font_size"`
	StrokeColor string  `yaml:"stroke_color"`
	StrokeWidth float64 `yaml:"stroke_width"`
	PasteOffset float64 `yaml:"paste_offset"`
	// FontDir holds extra TTF/OTF files used for text measurement.
	FontDir string `yaml:"font_dir"`
}

type ImagesConfig struct {
	TimeoutMs int    `yaml:"timeout_ms"`
	MaxBytes  int64  `yaml:"max_bytes"`
	BaseURL   string `yaml:"base_url"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn"`
}

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
	// Rotation of File; zero keeps the logger defaults.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Images        ImagesConfig  `yaml:"images"`
	Store         StoreConfig   `yaml:"store"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	st := commands.DefaultStyle()
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			Width: 0, Height: 600, Background: "#ffffff", AutosaveMs: 1500,
			TextWidth: st.TextWidth, FontFamily: st.FontFamily, FontSize: st.FontSize,
			StrokeColor: st.StrokeColor, StrokeWidth: st.StrokeWidth, PasteOffset: 10,
		},
		Images:  ImagesConfig{TimeoutMs: 15000, MaxBytes: 20 << 20},
		Store:   StoreConfig{Driver: "sqlite", DSN: ""},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile       = "ACV_CONFIG"
	EnvAutosaveMs       = "ACV_AUTOSAVE_MS"
	EnvBackground       = "ACV_BACKGROUND"
	EnvImageBaseURL     = "ACV_IMAGE_BASE_URL"
	EnvImageTimeoutMs   = "ACV_IMAGE_TIMEOUT_MS"
	EnvStoreDriver      = "ACV_STORE_DRIVER"
	EnvStoreDSN         = "ACV_STORE_DSN"
	EnvBackendURL       = "ACV_BACKEND_URL"
	EnvBackendTimeoutMs = "ACV_BACKEND_TIMEOUT_MS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "ACV_LOG_LEVEL"
	EnvLogFormat = "ACV_LOG_FORMAT"
	EnvLogSource = "ACV_LOG_SOURCE"
	EnvLogFile   = "ACV_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "ActivityCanvas"
	keyringToken   = "backend_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ConfigPath returns the per-user config file path. ACV_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ActivityCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ActivityCanvas")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "activitycanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The backend token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return cfg, "", err
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// LoadFrom reads path without touching the keyring. A missing file yields the
// defaults; a malformed one is reported.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, err
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the backend token from the keyring.
func ClearToken() error { return tokenStore.Delete(keyringService, keyringToken) }

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	e, s := &dst.Editor, src.Editor
	if s.Width > 0 {
		e.Width = s.Width
	}
	if s.Height > 0 {
		e.Height = s.Height
	}
	if strings.TrimSpace(s.Background) != "" {
		e.Background = strings.TrimSpace(s.Background)
	}
	if s.AutosaveMs > 0 {
		e.AutosaveMs = s.AutosaveMs
	}
	if s.TextWidth > 0 {
		e.TextWidth = s.TextWidth
	}
	if strings.TrimSpace(s.FontFamily) != "" {
		e.FontFamily = strings.TrimSpace(s.FontFamily)
	}
	if s.FontSize > 0 {
		e.FontSize = s.FontSize
	}
	if strings.TrimSpace(s.StrokeColor) != "" {
		e.StrokeColor = strings.TrimSpace(s.StrokeColor)
	}
	if s.StrokeWidth > 0 {
		e.StrokeWidth = s.StrokeWidth
	}
	if s.PasteOffset > 0 {
		e.PasteOffset = s.PasteOffset
	}
	if strings.TrimSpace(s.FontDir) != "" {
		e.FontDir = strings.TrimSpace(s.FontDir)
	}
	// images
	if src.Images.TimeoutMs > 0 {
		dst.Images.TimeoutMs = src.Images.TimeoutMs
	}
	if src.Images.MaxBytes > 0 {
		dst.Images.MaxBytes = src.Images.MaxBytes
	}
	if src.Images.BaseURL != "" {
		dst.Images.BaseURL = src.Images.BaseURL
	}
	// store
	if strings.TrimSpace(src.Store.Driver) != "" {
		dst.Store.Driver = strings.ToLower(strings.TrimSpace(src.Store.Driver))
	}
	if src.Store.DSN != "" {
		dst.Store.DSN = src.Store.DSN
	}
	// backend
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	if src.Logging.MaxSizeMB > 0 {
		dst.Logging.MaxSizeMB = src.Logging.MaxSizeMB
	}
	if src.Logging.MaxBackups > 0 {
		dst.Logging.MaxBackups = src.Logging.MaxBackups
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAutosaveMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.AutosaveMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackground)); v != "" {
		cfg.Editor.Background = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvImageBaseURL)); v != "" {
		cfg.Images.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvImageTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Images.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"editor.autosave_ms": EnvAutosaveMs,
		"editor.background":  EnvBackground,
		"images.base_url":    EnvImageBaseURL,
		"images.timeout_ms":  EnvImageTimeoutMs,
		"store.driver":       EnvStoreDriver,
		"store.dsn":          EnvStoreDSN,
		"backend.base_url":   EnvBackendURL,
		"backend.timeout_ms": EnvBackendTimeoutMs,
		"logging.level":      EnvLogLevel,
		"logging.format":     EnvLogFormat,
		"logging.source":     EnvLogSource,
		"logging.file":       EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// AutosaveDelay returns the debounce delay.
func (e EditorConfig) AutosaveDelay() time.Duration {
	return millis(e.AutosaveMs, Defaults().Editor.AutosaveMs)
}

// Style maps the editor defaults onto the object style.
func (e EditorConfig) Style() commands.Style {
	st := commands.DefaultStyle()
	st.TextWidth = e.TextWidth
	st.FontFamily = e.FontFamily
	st.FontSize = e.FontSize
	st.StrokeColor = e.StrokeColor
	st.StrokeWidth = e.StrokeWidth
	return st
}

func (i ImagesConfig) Timeout() time.Duration {
	return millis(i.TimeoutMs, Defaults().Images.TimeoutMs)
}

func (b BackendConfig) Timeout() time.Duration {
	return millis(b.TimeoutMs, Defaults().Backend.TimeoutMs)
}

// Options converts the logging section for the logger.
func (l LoggingConfig) Options() applog.Options {
	return applog.Options{
		Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File,
		MaxSizeMB: l.MaxSizeMB, MaxBackups: l.MaxBackups,
	}
}
