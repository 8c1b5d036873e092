/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"time"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
	"github.com/blazetornado2014/SpawnCanvas/internal/store"
)

// TextPushQuiet is the inactivity window after which the next text edit
// records a fresh undo snapshot. Within the window keystrokes coalesce into
// one history entry.
const TextPushQuiet = time.Second

// Undo restores the previous item snapshot. It reports whether anything was
// undone.
func (e *Engine) Undo() bool {
	snap, ok := e.hist.Undo(e.st.Items())
	if !ok {
		return false
	}
	e.restore(snap)
	return true
}

// Redo reapplies the most recently undone snapshot.
func (e *Engine) Redo() bool {
	snap, ok := e.hist.Redo(e.st.Items())
	if !ok {
		return false
	}
	e.restore(snap)
	return true
}

// CanUndo reports whether an undo step is available.
func (e *Engine) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether a redo step is available.
func (e *Engine) CanRedo() bool { return e.hist.CanRedo() }

// restore swaps the item array under the restoring flag so the replacement
// itself is not captured as a new history entry, then drops selection
// entries whose items no longer exist.
func (e *Engine) restore(snap []domain.Item) {
	e.hist.SetRestoring(true)
	e.st.ReplaceItems(snap)
	e.hist.SetRestoring(false)

	alive := make(map[string]bool, len(snap))
	for _, it := range snap {
		alive[it.ID] = true
	}
	e.mu.Lock()
	kept := e.selection[:0]
	for _, id := range e.selection {
		if alive[id] {
			kept = append(kept, id)
		}
	}
	e.selection = kept
	e.mu.Unlock()
}

// CreateItemAtViewCenter records an undo snapshot, creates the item centered
// in the current view (grid-snapped) and selects it.
func (e *Engine) CreateItemAtViewCenter(typ domain.ItemType, tmpl domain.Item) *domain.Item {
	e.mu.Lock()
	off := e.offset
	vp := e.cfg.Viewport
	e.mu.Unlock()

	size := tmpl.Size
	if size == (domain.Size{}) {
		size = domain.DefaultSize(typ)
	}
	c := geom.ToCanvas(geom.Pt{X: vp.W / 2, Y: vp.H / 2}, off)
	tmpl.Position = domain.Point{X: c.X - size.Width/2, Y: c.Y - size.Height/2}

	e.hist.Push(e.st.Items())
	it := e.st.CreateItem(typ, tmpl)
	if it == nil {
		return nil
	}
	e.mu.Lock()
	e.selection = []string{it.ID}
	e.mu.Unlock()
	return it
}

// DeleteSelection records an undo snapshot and removes every selected item,
// returning how many were deleted.
func (e *Engine) DeleteSelection() int {
	e.mu.Lock()
	ids := make([]string, len(e.selection))
	copy(ids, e.selection)
	e.selection = nil
	e.mu.Unlock()
	if len(ids) == 0 {
		return 0
	}
	e.hist.Push(e.st.Items())
	n := 0
	for _, id := range ids {
		if e.st.DeleteItem(id) {
			n++
		}
	}
	return n
}

// ToggleChecklistEntry flips one checklist entry, preceded by an undo
// snapshot.
func (e *Engine) ToggleChecklistEntry(itemID, entryID string) *domain.Item {
	e.hist.Push(e.st.Items())
	return e.st.ToggleChecklistEntry(itemID, entryID)
}

// AddChecklistEntry appends a checklist entry, preceded by an undo snapshot.
func (e *Engine) AddChecklistEntry(itemID, text string) *domain.Item {
	e.hist.Push(e.st.Items())
	return e.st.AddChecklistEntry(itemID, text)
}

// SetChecklistNesting changes an entry's indentation, preceded by an undo
// snapshot.
func (e *Engine) SetChecklistNesting(itemID, entryID string, nested int) *domain.Item {
	e.hist.Push(e.st.Items())
	return e.st.SetChecklistNesting(itemID, entryID, nested)
}

// SetContainerColor changes a container's palette color, preceded by an undo
// snapshot. Colors outside the palette are ignored.
func (e *Engine) SetContainerColor(id string, color domain.ContainerColor) *domain.Item {
	if !color.Valid() {
		return nil
	}
	e.hist.Push(e.st.Items())
	return e.st.UpdateItem(id, store.ItemPatch{Color: &color})
}

// SetContent applies a text edit to a note's body. Bursts of edits within
// TextPushQuiet share one undo snapshot; the first edit after a quiet period
// records a new one.
func (e *Engine) SetContent(id, content string) *domain.Item {
	e.textPush(id)
	return e.st.UpdateItem(id, store.ItemPatch{Content: &content})
}

// SetTitle applies a text edit to an item's title with the same coalescing
// as SetContent.
func (e *Engine) SetTitle(id, title string) *domain.Item {
	e.textPush(id)
	return e.st.UpdateItem(id, store.ItemPatch{Title: &title})
}

// textPush records a snapshot for the first edit of a burst and arms the
// quiet timer; further edits to the same item within the window are
// absorbed. Editing a different item always starts a new burst.
func (e *Engine) textPush(id string) {
	e.mu.Lock()
	fresh := e.textItem != id
	e.textItem = id
	if e.textTimer != nil {
		e.textTimer.Stop()
	}
	e.textTimer = time.AfterFunc(TextPushQuiet, func() {
		e.mu.Lock()
		e.textItem = ""
		e.textTimer = nil
		e.mu.Unlock()
	})
	e.mu.Unlock()
	if fresh {
		e.hist.Push(e.st.Items())
	}
}
