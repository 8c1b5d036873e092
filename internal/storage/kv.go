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
	"sync"
)

// KV is the persistence port. Every operation is individually fallible;
// callers treat failures as transient and retry on the next write.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// UsedBytes reports approximate storage usage, for soft-limit warnings.
	UsedBytes(ctx context.Context) (int64, error)
	// Close releases backend resources.
	Close() error
}

// Singleton keys.
const (
	KeyWorkspaceList    = "workspaces_list"
	KeyCurrentWorkspace = "current_workspace"
)

// WorkspaceKey returns the namespaced key for a workspace document.
func WorkspaceKey(id string) string { return "workspace:" + id }

// HistoryKey returns the namespaced key for a workspace's undo/redo stacks.
func HistoryKey(id string) string { return "history:" + id }

// Mem is an in-memory KV used by tests and the "memory" backend.
// It is safe for concurrent use.
type Mem struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSet, when non-nil, is returned from Set to simulate a
	// persistence failure.
	FailSet error
}

// NewMem returns an empty in-memory store.
func NewMem() *Mem { return &Mem{data: make(map[string][]byte)} }

func (m *Mem) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Mem) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Mem) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Mem) UsedBytes(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, v := range m.data {
		n += int64(len(v))
	}
	return n, nil
}

func (m *Mem) Close() error { return nil }

// Len reports the number of stored keys.
func (m *Mem) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
