/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store owns the authoritative in-memory workspace document. It
// exposes CRUD over items, change notification through a typed event bus,
// debounced durable persistence through the storage port, and workspace
// management (list/create/switch/rename/delete) with a strict
// flush-then-load protocol on switch.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
	applog "github.com/blazetornado2014/SpawnCanvas/internal/log"
	"github.com/blazetornado2014/SpawnCanvas/internal/storage"
)

const (
	// DefaultSaveDebounce is the quiet period after which a burst of edits
	// coalesces into one durable write.
	DefaultSaveDebounce = 300 * time.Millisecond

	// DefaultQuotaSoftLimit is the storage usage above which a one-time
	// warning event is published.
	DefaultQuotaSoftLimit int64 = 100 << 20 // 100 MiB
)

// Store is the entity store. All mutation goes through its methods; the
// items array is never handed out by reference.
type Store struct {
	mu  sync.Mutex
	kv  storage.KV
	bus *Bus
	log *slog.Logger

	current *domain.Workspace

	saveDelay time.Duration
	saveTimer *time.Timer

	quotaLimit  int64
	quotaWarned bool

	canvas geom.Size
	grid   float64

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithSaveDebounce overrides the autosave quiet period.
func WithSaveDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.saveDelay = d
		}
	}
}

// WithQuotaSoftLimit overrides the soft usage limit; zero disables the check.
func WithQuotaSoftLimit(n int64) Option {
	return func(s *Store) { s.quotaLimit = n }
}

// WithCanvas overrides canvas extent and grid step.
func WithCanvas(extent geom.Size, gridStep float64) Option {
	return func(s *Store) {
		if extent.W > 0 && extent.H > 0 {
			s.canvas = extent
		}
		if gridStep > 0 {
			s.grid = gridStep
		}
	}
}

// WithClock injects a deterministic time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDSource injects a deterministic id generator for tests.
func WithIDSource(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore constructs a store persisting through kv. No workspace is loaded
// until SwitchWorkspace or OpenLast is called.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		log:        applog.WithComponent("store"),
		saveDelay:  DefaultSaveDebounce,
		quotaLimit: DefaultQuotaSoftLimit,
		canvas:     geom.Size{W: domain.CanvasWidth, H: domain.CanvasHeight},
		grid:       domain.GridStep,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	s.bus = newBus(s.log)
	for _, o := range opts {
		o(s)
	}
	return s
}

// On subscribes to an event kind. See Bus.On.
func (s *Store) On(k Kind, h Handler) int { return s.bus.On(k, h) }

// Off removes a subscription. See Bus.Off.
func (s *Store) Off(k Kind, token int) { s.bus.Off(k, token) }

// Canvas returns the canvas extent.
func (s *Store) Canvas() geom.Size { return s.canvas }

// GridStep returns the snap step.
func (s *Store) GridStep() float64 { return s.grid }

// CreateItem assigns a fresh id, merges type defaults onto tmpl, appends the
// item and schedules a save. It returns nil when no workspace is loaded;
// that is a programmer-error guard, not a recoverable condition.
func (s *Store) CreateItem(typ domain.ItemType, tmpl domain.Item) *domain.Item {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		s.log.Warn("createItem without a loaded workspace", slog.String("type", string(typ)))
		return nil
	}
	if !typ.Valid() {
		s.mu.Unlock()
		s.log.Warn("createItem with unknown type", slog.String("type", string(typ)))
		return nil
	}
	ts := s.now()
	it := tmpl
	it.ID = s.newID()
	it.Type = typ
	it.CreatedAt = ts
	it.UpdatedAt = ts
	if it.Size == (domain.Size{}) {
		it.Size = domain.DefaultSize(typ)
	}
	if it.Position == (domain.Point{}) {
		// Place at the canvas's logical center by default; the interaction
		// engine passes explicit view-centered positions.
		it.Position = domain.Point{X: s.canvas.W/2 - it.Size.Width/2, Y: s.canvas.H/2 - it.Size.Height/2}
	}
	it.Position = s.quantize(it.Position, it.Size)
	if typ == domain.ItemContainer && !it.Color.Valid() {
		it.Color = domain.ColorGray
	}
	if typ == domain.ItemChecklist && it.Entries == nil {
		it.Entries = []domain.ChecklistEntry{}
	}
	s.current.Items = append(s.current.Items, it)
	s.current.UpdatedAt = ts
	s.scheduleSaveLocked()
	out := it.Clone()
	s.mu.Unlock()

	s.bus.Emit(ItemCreated{Item: out.Clone()})
	return &out
}

// ItemPatch is a shallow merge applied by UpdateItem. Nil fields are left
// untouched.
type ItemPatch struct {
	Title     *string
	Position  *domain.Point
	Size      *domain.Size
	Content   *string
	Entries   *[]domain.ChecklistEntry
	Color     *domain.ContainerColor
	Children  *[]string
	ImageData *string
}

// UpdateItem merges patch onto the matching item and bumps its UpdatedAt.
// It returns nil when the id is unknown or no workspace is loaded.
func (s *Store) UpdateItem(id string, patch ItemPatch) *domain.Item {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		s.log.Debug("updateItem for unknown id", slog.String("id", id))
		return nil
	}
	it := &s.current.Items[idx]
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	if patch.Position != nil {
		it.Position = *patch.Position
	}
	if patch.Size != nil {
		it.Size = *patch.Size
	}
	if patch.Content != nil {
		it.Content = *patch.Content
	}
	if patch.Entries != nil {
		entries := make([]domain.ChecklistEntry, len(*patch.Entries))
		copy(entries, *patch.Entries)
		it.Entries = entries
	}
	if patch.Color != nil {
		it.Color = *patch.Color
	}
	if patch.Children != nil {
		children := make([]string, len(*patch.Children))
		copy(children, *patch.Children)
		it.Children = children
	}
	if patch.ImageData != nil {
		it.ImageData = *patch.ImageData
	}
	ts := s.now()
	it.UpdatedAt = ts
	s.current.UpdatedAt = ts
	s.scheduleSaveLocked()
	out := it.Clone()
	s.mu.Unlock()

	s.bus.Emit(ItemUpdated{Item: out.Clone()})
	return &out
}

// DeleteItem removes the item by id. It reports whether anything was removed.
func (s *Store) DeleteItem(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.current.Items = append(s.current.Items[:idx], s.current.Items[idx+1:]...)
	s.current.UpdatedAt = s.now()
	s.scheduleSaveLocked()
	s.mu.Unlock()

	s.bus.Emit(ItemDeleted{ID: id})
	return true
}

// Item returns a copy of the item with the given id.
func (s *Store) Item(id string) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Item{}, false
	}
	return s.current.Items[idx].Clone(), true
}

// Items returns a defensive deep copy of the item array in insertion order.
func (s *Store) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return domain.CloneItems(s.current.Items)
}

// ReplaceItems swaps the whole item array, used by undo/redo restores and
// crash recovery. The input is cloned.
func (s *Store) ReplaceItems(items []domain.Item) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		s.log.Warn("replaceItems without a loaded workspace")
		return
	}
	s.current.Items = domain.CloneItems(items)
	s.current.UpdatedAt = s.now()
	s.scheduleSaveLocked()
	out := domain.CloneItems(s.current.Items)
	s.mu.Unlock()

	s.bus.Emit(ItemsReplaced{Items: out})
}

// Viewport returns the current workspace's pan offset.
func (s *Store) Viewport() domain.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Viewport{}
	}
	return s.current.Viewport
}

// UpdateViewport persists the pan position so each workspace remembers its
// own last view.
func (s *Store) UpdateViewport(x, y float64) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current.Viewport = domain.Viewport{X: x, Y: y}
	s.scheduleSaveLocked()
	s.mu.Unlock()
}

// QueueNeighbor returns the item before (delta=-1) or after (delta=+1) id in
// insertion order, wrapping around. Insertion order is the queue navigation
// order.
func (s *Store) QueueNeighbor(id string, delta int) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 || len(s.current.Items) == 0 {
		return domain.Item{}, false
	}
	n := len(s.current.Items)
	next := ((idx+delta)%n + n) % n
	return s.current.Items[next].Clone(), true
}

// AddChecklistEntry appends a new entry to a checklist item.
func (s *Store) AddChecklistEntry(itemID, text string) *domain.Item {
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 || s.current.Items[idx].Type != domain.ItemChecklist {
		s.mu.Unlock()
		return nil
	}
	cur := s.current.Items[idx].Entries
	updated := make([]domain.ChecklistEntry, len(cur), len(cur)+1)
	copy(updated, cur)
	updated = append(updated, domain.ChecklistEntry{ID: s.newID(), Text: text})
	s.mu.Unlock()
	return s.UpdateItem(itemID, ItemPatch{Entries: &updated})
}

// ToggleChecklistEntry flips the completed flag of one entry.
func (s *Store) ToggleChecklistEntry(itemID, entryID string) *domain.Item {
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 || s.current.Items[idx].Type != domain.ItemChecklist {
		s.mu.Unlock()
		return nil
	}
	cur := s.current.Items[idx].Entries
	updated := make([]domain.ChecklistEntry, len(cur))
	copy(updated, cur)
	found := false
	for i := range updated {
		if updated[i].ID == entryID {
			updated[i].Completed = !updated[i].Completed
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return nil
	}
	return s.UpdateItem(itemID, ItemPatch{Entries: &updated})
}

// SetChecklistNesting sets an entry's indentation depth, clamped to
// [0, domain.MaxNesting].
func (s *Store) SetChecklistNesting(itemID, entryID string, nested int) *domain.Item {
	if nested < 0 {
		nested = 0
	}
	if nested > domain.MaxNesting {
		nested = domain.MaxNesting
	}
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 || s.current.Items[idx].Type != domain.ItemChecklist {
		s.mu.Unlock()
		return nil
	}
	cur := s.current.Items[idx].Entries
	updated := make([]domain.ChecklistEntry, len(cur))
	copy(updated, cur)
	found := false
	for i := range updated {
		if updated[i].ID == entryID {
			updated[i].Nested = nested
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return nil
	}
	return s.UpdateItem(itemID, ItemPatch{Entries: &updated})
}

// SaveNow bypasses the debounce and writes the current workspace durably.
// It is invoked at points where data loss would be unacceptable: closing,
// switching workspaces, crash recovery.
func (s *Store) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	id, err := s.saveLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Emit(WorkspaceSaved{ID: id})
	s.checkQuota(ctx)
	return nil
}

// saveLocked marshals and writes the current workspace. Caller holds s.mu.
func (s *Store) saveLocked(ctx context.Context) (string, error) {
	ws := s.current.Clone()
	b, err := json.Marshal(ws)
	if err != nil {
		return "", fmt.Errorf("marshal workspace %s: %w", ws.ID, err)
	}
	if err := s.kv.Set(ctx, storage.WorkspaceKey(ws.ID), b); err != nil {
		return "", fmt.Errorf("persist workspace %s: %w", ws.ID, err)
	}
	return ws.ID, nil
}

// scheduleSaveLocked (re)arms the debounced save. Caller holds s.mu.
func (s *Store) scheduleSaveLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.saveDelay, func() {
		if err := s.SaveNow(context.Background()); err != nil {
			// Transient: the next edit reschedules the debounce and retries.
			s.log.Warn("debounced save failed", slog.Any("err", err))
		}
	})
}

// checkQuota publishes a one-time warning when usage crosses the soft limit.
func (s *Store) checkQuota(ctx context.Context) {
	s.mu.Lock()
	limit := s.quotaLimit
	warned := s.quotaWarned
	s.mu.Unlock()
	if limit <= 0 || warned {
		return
	}
	used, err := s.kv.UsedBytes(ctx)
	if err != nil {
		s.log.Debug("usage query failed", slog.Any("err", err))
		return
	}
	if used <= limit {
		return
	}
	s.mu.Lock()
	if s.quotaWarned {
		s.mu.Unlock()
		return
	}
	s.quotaWarned = true
	s.mu.Unlock()
	s.log.Warn("storage usage above soft limit", slog.Int64("used", used), slog.Int64("limit", limit))
	s.bus.Emit(StorageQuota{UsedBytes: used, LimitBytes: limit})
}

// Close flushes pending state and stops the autosave timer.
func (s *Store) Close(ctx context.Context) error {
	return s.SaveNow(ctx)
}

// quantize snaps a position to the grid and clamps it to the canvas.
func (s *Store) quantize(p domain.Point, size domain.Size) domain.Point {
	snapped := geom.SnapPt(geom.Pt{X: p.X, Y: p.Y}, s.grid)
	clamped := geom.ClampPos(snapped, geom.Size{W: size.Width, H: size.Height}, s.canvas)
	return domain.Point{X: clamped.X, Y: clamped.Y}
}

// indexLocked returns the index of id in the current items, or -1. It also
// guards the no-workspace case. Caller holds s.mu.
func (s *Store) indexLocked(id string) int {
	if s.current == nil {
		return -1
	}
	for i := range s.current.Items {
		if s.current.Items[i].ID == id {
			return i
		}
	}
	return -1
}
