/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
)

// kvContract exercises the behavior every backend must share.
func kvContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, WorkspaceKey("w1"), []byte(`{"id":"w1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := kv.Get(ctx, WorkspaceKey("w1"))
	if err != nil || !ok || string(v) != `{"id":"w1"}` {
		t.Fatalf("get after set: ok=%v err=%v value=%q", ok, err, v)
	}
	// overwrite
	if err := kv.Set(ctx, WorkspaceKey("w1"), []byte(`{"id":"w1","v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _, _ = kv.Get(ctx, WorkspaceKey("w1"))
	if string(v) != `{"id":"w1","v":2}` {
		t.Fatalf("overwrite not visible: %q", v)
	}
	used, err := kv.UsedBytes(ctx)
	if err != nil || used <= 0 {
		t.Fatalf("usage: used=%d err=%v", used, err)
	}
	if err := kv.Remove(ctx, WorkspaceKey("w1")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, WorkspaceKey("w1")); ok {
		t.Fatalf("key survived removal")
	}
	// removing twice must not error
	if err := kv.Remove(ctx, WorkspaceKey("w1")); err != nil {
		t.Fatalf("double remove: %v", err)
	}
}

func TestMemContract(t *testing.T) {
	kvContract(t, NewMem())
}

func TestFileKVContract(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	kvContract(t, kv)
}

func TestSQLiteKVContract(t *testing.T) {
	kv, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = kv.Close() }()
	kvContract(t, kv)
}

func TestKeyNamespaces(t *testing.T) {
	if WorkspaceKey("abc") != "workspace:abc" {
		t.Fatalf("workspace key: %q", WorkspaceKey("abc"))
	}
	if HistoryKey("abc") != "history:abc" {
		t.Fatalf("history key: %q", HistoryKey("abc"))
	}
}

func TestSanitizeKey(t *testing.T) {
	if got := sanitizeKey("workspace:a-b.c"); got != "workspace_a-b.c" {
		t.Fatalf("sanitizeKey got %q", got)
	}
}

func TestFileKVSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	if err := kv.Set(ctx, KeyCurrentWorkspace, []byte(`"w1"`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	kv2, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, err := kv2.Get(ctx, KeyCurrentWorkspace)
	if err != nil || !ok || string(v) != `"w1"` {
		t.Fatalf("value lost across reopen: ok=%v err=%v v=%q", ok, err, v)
	}
}

func TestSQLiteKVSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	kv, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := kv.Set(ctx, WorkspaceKey("w9"), []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	kv2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = kv2.Close() }()
	if _, ok, err := kv2.Get(ctx, WorkspaceKey("w9")); err != nil || !ok {
		t.Fatalf("value lost across reopen: ok=%v err=%v", ok, err)
	}
}
