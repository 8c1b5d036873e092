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

// StartResize begins a handle resize of item id. The renderer owns handle
// hit-testing, so the handle arrives explicitly rather than being derived
// from the press point.
func (e *Engine) StartResize(id string, h Handle, view geom.Pt) {
	it, ok := e.st.Item(id)
	if !ok {
		return
	}
	items := e.st.Items()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeIdle || h == 0 {
		return
	}
	e.mode = ModeResize
	e.pressView, e.lastView = view, view
	e.pressCanvas = geom.ToCanvas(view, e.offset)
	e.moved = false
	e.pushed = false
	e.preSnap = items
	e.resizeID = id
	e.handle = h
	e.origRect = it.Bounds()
	e.liveRect = e.origRect
	min := domain.MinSize(it.Type)
	e.resizeMin = geom.Size{W: min.Width, H: min.Height}
	e.resizeLive = true
	if !e.selectedLocked(id) {
		e.selection = []string{id}
	}
}

// moveResize recomputes the live rectangle. The pointer delta is snapped per
// axis; a moving edge is floored at the type minimum by anchoring the
// opposite edge, and the rectangle never leaves the canvas.
func (e *Engine) moveResize(view geom.Pt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeResize {
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
	dx := geom.Snap(c.X-e.pressCanvas.X, e.cfg.GridStep)
	dy := geom.Snap(c.Y-e.pressCanvas.Y, e.cfg.GridStep)

	r := e.origRect
	if e.handle&HandleE != 0 {
		r.W = clampf(e.origRect.W+dx, e.resizeMin.W, e.cfg.Canvas.W-e.origRect.X)
	}
	if e.handle&HandleW != 0 {
		right := e.origRect.X + e.origRect.W
		r.X = clampf(e.origRect.X+dx, 0, right-e.resizeMin.W)
		r.W = right - r.X
	}
	if e.handle&HandleS != 0 {
		r.H = clampf(e.origRect.H+dy, e.resizeMin.H, e.cfg.Canvas.H-e.origRect.Y)
	}
	if e.handle&HandleN != 0 {
		bottom := e.origRect.Y + e.origRect.H
		r.Y = clampf(e.origRect.Y+dy, 0, bottom-e.resizeMin.H)
		r.H = bottom - r.Y
	}
	e.liveRect = r
}

// finishResize commits the live rectangle to the store.
func (e *Engine) finishResize() {
	e.mu.Lock()
	if e.mode != ModeResize {
		e.mu.Unlock()
		return
	}
	moved := e.moved
	id := e.resizeID
	r := e.liveRect
	e.mode = ModeIdle
	e.clearGestureLocked()
	e.mu.Unlock()

	if !moved {
		return
	}
	pos := domain.Point{X: r.X, Y: r.Y}
	size := domain.Size{Width: r.W, Height: r.H}
	e.st.UpdateItem(id, store.ItemPatch{Position: &pos, Size: &size})
}

func clampf(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
