/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
	"github.com/blazetornado2014/SpawnCanvas/internal/store"
)

// armDragLocked captures the drag set and the per-item origins. For a
// container the set additionally holds every item whose center point lies
// inside the container's bounds right now; the persisted children list is
// never consulted. Each member keeps a fixed offset from the press point for
// the whole drag. Caller holds e.mu.
func (e *Engine) armDragLocked(items []domain.Item, hit domain.Item) {
	e.mode = ModeDrag
	e.preSnap = items
	e.dragOrder = []string{hit.ID}
	e.dragOrigin = map[string]geom.Pt{hit.ID: {X: hit.Position.X, Y: hit.Position.Y}}
	e.dragSizes = map[string]geom.Size{hit.ID: {W: hit.Size.Width, H: hit.Size.Height}}
	e.live = map[string]geom.Pt{}

	if hit.Type != domain.ItemContainer {
		return
	}
	bounds := hit.Bounds()
	for _, it := range items {
		if it.ID == hit.ID {
			continue
		}
		if bounds.Contains(it.Bounds().Center()) {
			e.dragOrder = append(e.dragOrder, it.ID)
			e.dragOrigin[it.ID] = geom.Pt{X: it.Position.X, Y: it.Position.Y}
			e.dragSizes[it.ID] = geom.Size{W: it.Size.Width, H: it.Size.Height}
		}
	}
}

// moveDrag advances the drag. Positions are snapped to the grid and clamped
// to the canvas per item; results stay in the live map until pointer-up, so
// intermediate frames touch neither the store nor persistence.
func (e *Engine) moveDrag(view geom.Pt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeDrag {
		return
	}
	if !e.moved && geom.Dist(view, e.pressView) <= e.cfg.ClickThreshold {
		return
	}
	if !e.moved {
		e.moved = true
		e.pushOnceLocked()
	}
	c := geom.ToCanvas(view, e.offset)
	dx := c.X - e.pressCanvas.X
	dy := c.Y - e.pressCanvas.Y
	for _, id := range e.dragOrder {
		origin := e.dragOrigin[id]
		cand := geom.SnapPt(geom.Pt{X: origin.X + dx, Y: origin.Y + dy}, e.cfg.GridStep)
		e.live[id] = geom.ClampPos(cand, e.dragSizes[id], e.cfg.Canvas)
	}
}

// finishDrag commits the final positions of every moved item to the store.
// A press that never traveled past the click threshold commits nothing; the
// selection change from PointerDown stands on its own.
func (e *Engine) finishDrag() {
	e.mu.Lock()
	if e.mode != ModeDrag {
		e.mu.Unlock()
		return
	}
	moved := e.moved
	order := e.dragOrder
	final := make(map[string]geom.Pt, len(e.live))
	for id, p := range e.live {
		final[id] = p
	}
	e.mode = ModeIdle
	e.clearGestureLocked()
	e.mu.Unlock()

	if !moved {
		return
	}
	for _, id := range order {
		p, ok := final[id]
		if !ok {
			continue
		}
		pos := domain.Point{X: p.X, Y: p.Y}
		e.st.UpdateItem(id, store.ItemPatch{Position: &pos})
	}
}
