/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads and persists the user-scoped YAML configuration.
// Environment variables act as read-only overrides at runtime; the Postgres
// password never touches the YAML file and lives in the OS keyring instead.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// config_version: bump when the structure changes in a backward-incompatible
// way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	DataDir        string `yaml:"data_dir"`
}

// StorageConfig selects the persistence backend for workspace documents.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "postgres", "memory".
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// The Postgres password is not stored on disk; it lives in the OS keyring.
}

type CanvasConfig struct {
	GridStep           float64 `yaml:"grid_step"`
	Width              float64 `yaml:"width"`
	Height             float64 `yaml:"height"`
	AutosaveDebounceMs int     `yaml:"autosave_debounce_ms"`
	HistoryDepth       int     `yaml:"history_depth"`
	QuotaBytes         int64   `yaml:"quota_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, DataDir: ""},
		Storage:       StorageConfig{Backend: "sqlite"},
		Canvas: CanvasConfig{
			GridStep:           20,
			Width:              5000,
			Height:             5000,
			AutosaveDebounceMs: 300,
			HistoryDepth:       42,
			QuotaBytes:         100 << 20,
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvDataDir        = "SPC_DATA_DIR"
	EnvStorageBackend = "SPC_STORAGE_BACKEND"
	EnvPostgresDSN    = "SPC_POSTGRES_DSN"
	EnvTelemetryOptIn = "SPC_TELEMETRY_OPT_IN"
	EnvHistoryDepth   = "SPC_HISTORY_DEPTH"
	EnvQuotaBytes     = "SPC_QUOTA_BYTES"
	EnvLogLevel       = "SPC_LOG_LEVEL"
	EnvLogFormat      = "SPC_LOG_FORMAT"
	EnvLogSource      = "SPC_LOG_SOURCE"
	EnvLogFile        = "SPC_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService  = "SpawnCanvas"
	keyringPgSecret = "postgres_password"
)

// PasswordStore abstracts the keyring so tests can stub it.
type PasswordStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var passwordStore PasswordStore = osKeyring{}

// SetPasswordStore swaps the keyring implementation, returning the previous
// one. Tests use this to avoid touching the real OS keychain.
func SetPasswordStore(s PasswordStore) PasswordStore {
	prev := passwordStore
	passwordStore = s
	return prev
}

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SpawnCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SpawnCanvas")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "spawncanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultDataDir returns the directory holding workspace storage when the
// config does not name one: alongside the config file.
func DefaultDataDir() (string, error) {
	p, err := Path()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), "data"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The Postgres password is fetched from the keyring
// and returned separately, never kept inside the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	pw, _ := passwordStore.Get(keyringService, keyringPgSecret)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the Postgres password into
// the OS keyring (if non-empty).
func Save(cfg AppConfig, pgPassword string) error {
	path, err := Path()
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
	if pgPassword != "" {
		if err := passwordStore.Set(keyringService, keyringPgSecret, pgPassword); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.DataDir) != "" {
		dst.General.DataDir = strings.TrimSpace(src.General.DataDir)
	}
	if strings.TrimSpace(src.Storage.Backend) != "" {
		dst.Storage.Backend = strings.ToLower(strings.TrimSpace(src.Storage.Backend))
	}
	if strings.TrimSpace(src.Storage.PostgresDSN) != "" {
		dst.Storage.PostgresDSN = strings.TrimSpace(src.Storage.PostgresDSN)
	}
	if src.Canvas.GridStep > 0 {
		dst.Canvas.GridStep = src.Canvas.GridStep
	}
	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height > 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if src.Canvas.AutosaveDebounceMs > 0 {
		dst.Canvas.AutosaveDebounceMs = src.Canvas.AutosaveDebounceMs
	}
	if src.Canvas.HistoryDepth > 0 {
		dst.Canvas.HistoryDepth = src.Canvas.HistoryDepth
	}
	if src.Canvas.QuotaBytes != 0 {
		dst.Canvas.QuotaBytes = src.Canvas.QuotaBytes
	}
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
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.General.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.HistoryDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvQuotaBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Canvas.QuotaBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func isTruthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
