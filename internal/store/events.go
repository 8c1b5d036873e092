/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"log/slog"
	"sync"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
)

// Kind names an event stream on the bus.
type Kind string

const (
	KindItemCreated   Kind = "item:created"
	KindItemUpdated   Kind = "item:updated"
	KindItemDeleted   Kind = "item:deleted"
	KindItemsReplaced Kind = "items:replaced"

	KindWorkspaceSwitched Kind = "workspace:switched"
	KindWorkspaceSaved    Kind = "workspace:saved"
	KindWorkspaceCreated  Kind = "workspace:created"
	KindWorkspaceRenamed  Kind = "workspace:renamed"
	KindWorkspaceDeleted  Kind = "workspace:deleted"

	KindStorageQuota Kind = "storage:quota"
)

// Event is the closed union of bus payloads. Handlers receive the concrete
// struct and type-assert on it; constructing an event is compile-checked.
type Event interface {
	Kind() Kind
}

// ItemCreated is published after an item is appended to the workspace.
type ItemCreated struct{ Item domain.Item }

// ItemUpdated is published after a patch is merged onto an item.
type ItemUpdated struct{ Item domain.Item }

// ItemDeleted is published after an item is removed.
type ItemDeleted struct{ ID string }

// ItemsReplaced is published when the whole item array is swapped, e.g. by
// an undo/redo restore.
type ItemsReplaced struct{ Items []domain.Item }

// WorkspaceSwitched is published after the current workspace changes.
type WorkspaceSwitched struct{ ID, Name string }

// WorkspaceSaved is published after a successful durable write.
type WorkspaceSaved struct{ ID string }

// WorkspaceCreated is published when a new workspace document exists.
type WorkspaceCreated struct{ ID, Name string }

// WorkspaceRenamed is published after a rename.
type WorkspaceRenamed struct{ ID, Name string }

// WorkspaceDeleted is published after a workspace document is removed.
// Subscribers cascade cleanup (e.g. dropping undo history).
type WorkspaceDeleted struct{ ID string }

// StorageQuota is published once when usage crosses the soft limit.
type StorageQuota struct{ UsedBytes, LimitBytes int64 }

func (ItemCreated) Kind() Kind        { return KindItemCreated }
func (ItemUpdated) Kind() Kind        { return KindItemUpdated }
func (ItemDeleted) Kind() Kind        { return KindItemDeleted }
func (ItemsReplaced) Kind() Kind      { return KindItemsReplaced }
func (WorkspaceSwitched) Kind() Kind  { return KindWorkspaceSwitched }
func (WorkspaceSaved) Kind() Kind     { return KindWorkspaceSaved }
func (WorkspaceCreated) Kind() Kind   { return KindWorkspaceCreated }
func (WorkspaceRenamed) Kind() Kind   { return KindWorkspaceRenamed }
func (WorkspaceDeleted) Kind() Kind   { return KindWorkspaceDeleted }
func (StorageQuota) Kind() Kind       { return KindStorageQuota }

// Handler consumes one event. A panicking handler is recovered and logged;
// it never prevents delivery to the remaining subscribers.
type Handler func(Event)

// Bus is a minimal publish/subscribe mechanism keyed by event kind.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[Kind]map[int]Handler
	log  *slog.Logger
}

func newBus(log *slog.Logger) *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler), log: log}
}

// On subscribes h to events of kind k and returns a token for Off.
func (b *Bus) On(k Kind, h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	if b.subs[k] == nil {
		b.subs[k] = make(map[int]Handler)
	}
	b.subs[k][b.next] = h
	return b.next
}

// Off removes a subscription. Unknown tokens are ignored.
func (b *Bus) Off(k Kind, token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[k], token)
}

// Emit delivers e to every subscriber of its kind. Handlers run outside the
// bus lock so they may subscribe/unsubscribe or call back into the store.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	hs := make([]Handler, 0, len(b.subs[e.Kind()]))
	for _, h := range b.subs[e.Kind()] {
		hs = append(hs, h)
	}
	b.mu.Unlock()
	for _, h := range hs {
		b.dispatch(e, h)
	}
}

func (b *Bus) dispatch(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", slog.String("event", string(e.Kind())), slog.Any("panic", r))
		}
	}()
	h(e)
}
