/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

type fakeStore struct {
	values map[string]string
}

func (f *fakeStore) Get(service, key string) (string, error) {
	v, ok := f.values[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (f *fakeStore) Set(service, key, value string) error {
	f.values[service+"/"+key] = value
	return nil
}
func (f *fakeStore) Delete(service, key string) error {
	delete(f.values, service+"/"+key)
	return nil
}

func withTempHome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("path layout differs on windows")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func stubKeyring(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{values: map[string]string{}}
	prev := SetPasswordStore(fs)
	t.Cleanup(func() { SetPasswordStore(prev) })
	return fs
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Storage.Backend != "sqlite" {
		t.Fatalf("default backend = %q", cfg.Storage.Backend)
	}
	if cfg.Canvas.GridStep != 20 || cfg.Canvas.Width != 5000 || cfg.Canvas.Height != 5000 {
		t.Fatalf("canvas defaults: %+v", cfg.Canvas)
	}
	if cfg.Canvas.HistoryDepth != 42 || cfg.Canvas.AutosaveDebounceMs != 300 {
		t.Fatalf("canvas defaults: %+v", cfg.Canvas)
	}
	if cfg.Canvas.QuotaBytes != 100<<20 {
		t.Fatalf("quota default = %d", cfg.Canvas.QuotaBytes)
	}
}

func TestLoadWithoutFileYieldsDefaults(t *testing.T) {
	withTempHome(t)
	stubKeyring(t)
	cfg, pw, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pw != "" {
		t.Fatalf("unexpected password %q", pw)
	}
	if cfg != Defaults() {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	withTempHome(t)
	fs := stubKeyring(t)

	cfg := Defaults()
	cfg.Storage.Backend = "postgres"
	cfg.Storage.PostgresDSN = "postgres://spawn@localhost:5432/canvas"
	cfg.Canvas.HistoryDepth = 10
	cfg.General.TelemetryOptIn = true
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, pw, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Storage.Backend != "postgres" || got.Storage.PostgresDSN != cfg.Storage.PostgresDSN {
		t.Fatalf("storage = %+v", got.Storage)
	}
	if got.Canvas.HistoryDepth != 10 || !got.General.TelemetryOptIn {
		t.Fatalf("merged config = %+v", got)
	}
	if pw != "s3cret" {
		t.Fatalf("password = %q", pw)
	}
	if len(fs.values) != 1 {
		t.Fatalf("keyring entries = %v", fs.values)
	}
	// the password must never land in the YAML file
	path, _ := Path()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if bytes.Contains(data, []byte("s3cret")) {
		t.Fatalf("password leaked into config file")
	}
}

func TestPartialFileKeepsOtherDefaults(t *testing.T) {
	home := withTempHome(t)
	stubKeyring(t)
	dir := filepath.Join(home, ".config", "spawncanvas")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	partial := []byte("storage:\n  backend: file\nlogging:\n  level: debug\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), partial, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "file" || cfg.Logging.Level != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Canvas.GridStep != 20 || cfg.Canvas.HistoryDepth != 42 {
		t.Fatalf("unset sections lost their defaults: %+v", cfg.Canvas)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	withTempHome(t)
	stubKeyring(t)
	if err := Save(Defaults(), ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv(EnvStorageBackend, "Memory")
	t.Setenv(EnvHistoryDepth, "7")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Canvas.HistoryDepth != 7 || !cfg.General.TelemetryOptIn {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}

func TestBadEnvNumbersAreIgnored(t *testing.T) {
	withTempHome(t)
	stubKeyring(t)
	t.Setenv(EnvHistoryDepth, "not-a-number")
	t.Setenv(EnvQuotaBytes, "also-bad")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Canvas.HistoryDepth != 42 || cfg.Canvas.QuotaBytes != 100<<20 {
		t.Fatalf("bad env values applied: %+v", cfg.Canvas)
	}
}
