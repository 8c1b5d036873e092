/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history implements bounded per-workspace undo/redo over full-array
// item snapshots. Snapshots are structural deep clones; no diffs, so restore
// is branch-free. Stacks are persisted through the storage port
// asynchronously; a crash loses at most the most recent push.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	applog "github.com/blazetornado2014/SpawnCanvas/internal/log"
	"github.com/blazetornado2014/SpawnCanvas/internal/storage"
)

// DefaultDepth is the maximum number of undo snapshots kept per workspace.
// The oldest entry is evicted first when the cap is exceeded.
const DefaultDepth = 42

// Snapshot is a full deep copy of the item array at one instant.
type Snapshot = []domain.Item

// Manager owns the undo/redo stacks for the currently active workspace.
// It is safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	kv          storage.KV
	log         *slog.Logger
	depth       int
	workspaceID string
	undo        []Snapshot
	redo        []Snapshot
	restoring   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithDepth overrides the snapshot depth cap.
func WithDepth(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.depth = n
		}
	}
}

// NewManager returns a manager persisting through kv.
func NewManager(kv storage.KV, opts ...Option) *Manager {
	m := &Manager{
		kv:    kv,
		log:   applog.WithComponent("history"),
		depth: DefaultDepth,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// persistedStacks is the JSON shape stored under history:<id>.
type persistedStacks struct {
	Undo []Snapshot `json:"undo"`
	Redo []Snapshot `json:"redo"`
}

// LoadHistory swaps in the stacks persisted for workspaceID, or empty stacks
// if none exist. It must be called before push/undo/redo for a newly
// activated workspace.
func (m *Manager) LoadHistory(ctx context.Context, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaceID = workspaceID
	m.undo = nil
	m.redo = nil
	b, ok, err := m.kv.Get(ctx, storage.HistoryKey(workspaceID))
	if err != nil {
		return fmt.Errorf("load history %s: %w", workspaceID, err)
	}
	if !ok {
		return nil
	}
	var st persistedStacks
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupt stacks are dropped rather than blocking the workspace.
		m.log.Warn("discarding unreadable history", slog.String("workspace", workspaceID), slog.Any("err", err))
		return nil
	}
	m.undo = st.Undo
	m.redo = st.Redo
	return nil
}

// WorkspaceID returns the id the stacks are currently bound to.
func (m *Manager) WorkspaceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workspaceID
}

// Push records a pre-mutation snapshot of items. It is a no-op while a
// restore is in progress. Any new push invalidates the redo stack.
func (m *Manager) Push(items []domain.Item) {
	m.mu.Lock()
	if m.restoring {
		m.mu.Unlock()
		return
	}
	m.undo = append(m.undo, domain.CloneItems(items))
	if len(m.undo) > m.depth {
		m.undo = append([]Snapshot{}, m.undo[len(m.undo)-m.depth:]...)
	}
	m.redo = nil
	m.mu.Unlock()
	m.persistAsync()
}

// Undo pushes a clone of current onto the redo stack and returns the most
// recent undo snapshot, or (nil, false) when there is nothing to undo.
func (m *Manager) Undo(current []domain.Item) (Snapshot, bool) {
	m.mu.Lock()
	if len(m.undo) == 0 {
		m.mu.Unlock()
		return nil, false
	}
	s := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, domain.CloneItems(current))
	m.mu.Unlock()
	m.persistAsync()
	return s, true
}

// Redo is symmetric to Undo.
func (m *Manager) Redo(current []domain.Item) (Snapshot, bool) {
	m.mu.Lock()
	if len(m.redo) == 0 {
		m.mu.Unlock()
		return nil, false
	}
	s := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, domain.CloneItems(current))
	m.mu.Unlock()
	m.persistAsync()
	return s, true
}

// CanUndo reports whether an undo snapshot is available.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether a redo snapshot is available.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// SetRestoring marks the span during which the caller replaces workspace
// state from a snapshot, so the replacement is not captured as a new entry.
func (m *Manager) SetRestoring(v bool) {
	m.mu.Lock()
	m.restoring = v
	m.mu.Unlock()
}

// Restoring reports whether a restore is in progress.
func (m *Manager) Restoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoring
}

// Depths returns the current stack depths, for diagnostics.
func (m *Manager) Depths() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// DeleteWorkspaceHistory removes the persisted stacks for a workspace being
// deleted. If the stacks are currently loaded they are cleared as well.
func (m *Manager) DeleteWorkspaceHistory(ctx context.Context, workspaceID string) error {
	m.mu.Lock()
	if m.workspaceID == workspaceID {
		m.undo = nil
		m.redo = nil
	}
	m.mu.Unlock()
	if err := m.kv.Remove(ctx, storage.HistoryKey(workspaceID)); err != nil {
		return fmt.Errorf("delete history %s: %w", workspaceID, err)
	}
	return nil
}

// persistAsync writes the stacks in the background; failures are logged and
// retried implicitly by the next stack mutation.
func (m *Manager) persistAsync() {
	m.mu.Lock()
	id := m.workspaceID
	st := persistedStacks{Undo: m.undo, Redo: m.redo}
	m.mu.Unlock()
	if id == "" {
		return
	}
	b, err := json.Marshal(st)
	if err != nil {
		m.log.Error("marshal history failed", slog.String("workspace", id), slog.Any("err", err))
		return
	}
	go func() {
		if err := m.kv.Set(context.Background(), storage.HistoryKey(id), b); err != nil {
			m.log.Warn("persist history failed", slog.String("workspace", id), slog.Any("err", err))
		}
	}()
}
