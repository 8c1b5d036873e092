/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/storage"
)

// DefaultWorkspaceName names the workspace auto-created on first launch or
// after every workspace has been deleted.
const DefaultWorkspaceName = "Workspace"

// WorkspaceInfo is the list entry stored under the workspaces index key.
// Item payloads live in their own per-workspace documents.
type WorkspaceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// CurrentWorkspaceID returns the id of the loaded workspace, or "".
func (s *Store) CurrentWorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.ID
}

// CurrentWorkspace returns a deep copy of the loaded workspace.
func (s *Store) CurrentWorkspace() (domain.Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Workspace{}, false
	}
	return s.current.Clone(), true
}

// ListWorkspaces reads the workspace index. A missing index means no
// workspaces exist yet; that is not an error.
func (s *Store) ListWorkspaces(ctx context.Context) ([]WorkspaceInfo, error) {
	b, ok, err := s.kv.Get(ctx, storage.KeyWorkspaceList)
	if err != nil {
		return nil, fmt.Errorf("load workspace list: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var list []WorkspaceInfo
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode workspace list: %w", err)
	}
	return list, nil
}

func (s *Store) saveList(ctx context.Context, list []WorkspaceInfo) error {
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal workspace list: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyWorkspaceList, b); err != nil {
		return fmt.Errorf("persist workspace list: %w", err)
	}
	return nil
}

// UniqueName derives a list-unique name from base by suffixing " (2)",
// " (3)", ... when base is taken.
func UniqueName(base string, list []WorkspaceInfo) string {
	taken := make(map[string]bool, len(list))
	for _, w := range list {
		taken[w.Name] = true
	}
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s (%d)", base, i)
		if !taken[cand] {
			return cand
		}
	}
}

// CreateWorkspace creates and persists a new empty workspace, registers it
// in the index and returns its info. The new workspace is not activated;
// call SwitchWorkspace for that.
func (s *Store) CreateWorkspace(ctx context.Context, name string) (WorkspaceInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultWorkspaceName
	}
	list, err := s.ListWorkspaces(ctx)
	if err != nil {
		return WorkspaceInfo{}, err
	}
	ts := s.now()
	ws := domain.Workspace{
		ID:        s.newID(),
		Name:      UniqueName(name, list),
		Items:     []domain.Item{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	b, err := json.Marshal(ws)
	if err != nil {
		return WorkspaceInfo{}, fmt.Errorf("marshal workspace: %w", err)
	}
	if err := s.kv.Set(ctx, storage.WorkspaceKey(ws.ID), b); err != nil {
		return WorkspaceInfo{}, fmt.Errorf("persist workspace %s: %w", ws.ID, err)
	}
	info := WorkspaceInfo{ID: ws.ID, Name: ws.Name, CreatedAt: ts.UnixMilli(), UpdatedAt: ts.UnixMilli()}
	if err := s.saveList(ctx, append(list, info)); err != nil {
		return WorkspaceInfo{}, err
	}
	s.log.Info("workspace created", slog.String("id", ws.ID), slog.String("name", ws.Name))
	s.bus.Emit(WorkspaceCreated{ID: ws.ID, Name: ws.Name})
	return info, nil
}

// SwitchWorkspace flushes the current workspace durably, then loads the
// target. Switching to the already-active workspace is a no-op. If id names
// a workspace missing from storage (first launch, or all deleted) a fresh
// default workspace is created and activated instead; this is the only path
// that auto-creates.
func (s *Store) SwitchWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// Flush first so the outgoing workspace can never lose edits, then load.
	if err := s.SaveNow(ctx); err != nil {
		return fmt.Errorf("flush before switch: %w", err)
	}

	ws, err := s.loadWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if ws == nil {
		info, err := s.CreateWorkspace(ctx, DefaultWorkspaceName)
		if err != nil {
			return fmt.Errorf("auto-create workspace: %w", err)
		}
		ws, err = s.loadWorkspace(ctx, info.ID)
		if err != nil {
			return err
		}
		if ws == nil {
			return fmt.Errorf("workspace %s vanished after creation", info.ID)
		}
	}

	s.mu.Lock()
	s.current = ws
	s.mu.Unlock()

	if err := s.kv.Set(ctx, storage.KeyCurrentWorkspace, []byte(ws.ID)); err != nil {
		s.log.Warn("persist current workspace failed", slog.Any("err", err))
	}
	s.log.Info("workspace switched", slog.String("id", ws.ID), slog.String("name", ws.Name))
	s.bus.Emit(WorkspaceSwitched{ID: ws.ID, Name: ws.Name})
	return nil
}

// OpenLast activates the workspace recorded as current at last shutdown,
// falling back to the first listed workspace, and finally to auto-creation.
func (s *Store) OpenLast(ctx context.Context) error {
	b, ok, err := s.kv.Get(ctx, storage.KeyCurrentWorkspace)
	if err != nil {
		return fmt.Errorf("load current workspace pointer: %w", err)
	}
	id := strings.Trim(string(b), `"`)
	if !ok || id == "" {
		list, err := s.ListWorkspaces(ctx)
		if err != nil {
			return err
		}
		if len(list) > 0 {
			id = list[0].ID
		}
	}
	return s.SwitchWorkspace(ctx, id)
}

// loadWorkspace reads and decodes one workspace document. (nil, nil) means
// the key does not exist.
func (s *Store) loadWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	if id == "" {
		return nil, nil
	}
	b, ok, err := s.kv.Get(ctx, storage.WorkspaceKey(id))
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	var ws domain.Workspace
	if err := json.Unmarshal(b, &ws); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	if ws.Items == nil {
		ws.Items = []domain.Item{}
	}
	return &ws, nil
}

// RenameWorkspace updates the name in both the index and the workspace
// document (and in memory when the workspace is active).
func (s *Store) RenameWorkspace(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("workspace name must not be empty")
	}
	list, err := s.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range list {
		if list[i].ID == id {
			list[i].Name = name
			list[i].UpdatedAt = s.now().UnixMilli()
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("workspace %s not found", id)
	}
	if err := s.saveList(ctx, list); err != nil {
		return err
	}
	ws, err := s.loadWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if ws != nil {
		ws.Name = name
		ws.UpdatedAt = s.now()
		b, err := json.Marshal(ws)
		if err != nil {
			return fmt.Errorf("marshal workspace: %w", err)
		}
		if err := s.kv.Set(ctx, storage.WorkspaceKey(id), b); err != nil {
			return fmt.Errorf("persist workspace %s: %w", id, err)
		}
	}
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current.Name = name
	}
	s.mu.Unlock()
	s.bus.Emit(WorkspaceRenamed{ID: id, Name: name})
	return nil
}

// DeleteWorkspace removes the workspace document and its index entry. When
// the active workspace is deleted the store is left without a current
// workspace; the caller is expected to switch (which auto-creates when the
// list is empty). Cascade cleanup such as undo history runs off the
// WorkspaceDeleted event.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	list, err := s.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, w := range list {
		if w.ID == id {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	if !found {
		return fmt.Errorf("workspace %s not found", id)
	}
	if err := s.kv.Remove(ctx, storage.WorkspaceKey(id)); err != nil {
		return fmt.Errorf("delete workspace %s: %w", id, err)
	}
	if err := s.saveList(ctx, kept); err != nil {
		return err
	}
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		if s.saveTimer != nil {
			s.saveTimer.Stop()
			s.saveTimer = nil
		}
		s.current = nil
	}
	s.mu.Unlock()
	s.log.Info("workspace deleted", slog.String("id", id))
	s.bus.Emit(WorkspaceDeleted{ID: id})
	return nil
}

// ImportWorkspace persists ws as a new workspace document and registers it.
// The caller (import codec) has already regenerated ids; the name is made
// unique here.
func (s *Store) ImportWorkspace(ctx context.Context, ws domain.Workspace) (WorkspaceInfo, error) {
	list, err := s.ListWorkspaces(ctx)
	if err != nil {
		return WorkspaceInfo{}, err
	}
	if ws.ID == "" {
		ws.ID = s.newID()
	}
	ws.Name = UniqueName(strings.TrimSpace(ws.Name), list)
	if ws.Name == "" {
		ws.Name = UniqueName(DefaultWorkspaceName, list)
	}
	if ws.Items == nil {
		ws.Items = []domain.Item{}
	}
	ts := s.now()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = ts
	}
	ws.UpdatedAt = ts
	b, err := json.Marshal(ws)
	if err != nil {
		return WorkspaceInfo{}, fmt.Errorf("marshal workspace: %w", err)
	}
	if err := s.kv.Set(ctx, storage.WorkspaceKey(ws.ID), b); err != nil {
		return WorkspaceInfo{}, fmt.Errorf("persist workspace %s: %w", ws.ID, err)
	}
	info := WorkspaceInfo{ID: ws.ID, Name: ws.Name, CreatedAt: ws.CreatedAt.UnixMilli(), UpdatedAt: ts.UnixMilli()}
	if err := s.saveList(ctx, append(list, info)); err != nil {
		return WorkspaceInfo{}, err
	}
	s.bus.Emit(WorkspaceCreated{ID: ws.ID, Name: ws.Name})
	return info, nil
}
