/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interaction is the pointer-event state machine over the canvas:
// panning, rubber-band selection, grid-snapped dragging with container
// groups, and handle-based resizing. It mutates the entity store, records
// undo snapshots at action boundaries, and keeps in-progress geometry local
// so intermediate pointer frames never hit persistence or the undo stack.
// The package is headless; a rendering layer reads the live state through
// query methods and repaints off store events.
package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
	"github.com/blazetornado2014/SpawnCanvas/internal/history"
	applog "github.com/blazetornado2014/SpawnCanvas/internal/log"
	"github.com/blazetornado2014/SpawnCanvas/internal/store"
)

// DefaultClickThreshold is the pointer travel, in view pixels, below which a
// press-release counts as a click rather than a drag.
const DefaultClickThreshold = 5.0

// Mode is the engine's current pointer state.
type Mode int

const (
	ModeIdle Mode = iota
	ModePan
	ModeRubber
	ModeDrag
	ModeResize
)

// Handle identifies a resize handle as a bitmask of moving edges. Corner
// handles combine two edges.
type Handle uint8

const (
	HandleN Handle = 1 << iota
	HandleS
	HandleE
	HandleW

	HandleNE = HandleN | HandleE
	HandleNW = HandleN | HandleW
	HandleSE = HandleS | HandleE
	HandleSW = HandleS | HandleW
)

// Modifiers carries the keyboard state accompanying a pointer event.
type Modifiers struct {
	Shift bool
}

// Config fixes the engine's geometry. Zero fields fall back to the canvas
// defaults.
type Config struct {
	GridStep       float64
	Canvas         geom.Size
	Viewport       geom.Size
	ClickThreshold float64
}

func (c Config) withDefaults() Config {
	if c.GridStep <= 0 {
		c.GridStep = domain.GridStep
	}
	if c.Canvas.W <= 0 || c.Canvas.H <= 0 {
		c.Canvas = geom.Size{W: domain.CanvasWidth, H: domain.CanvasHeight}
	}
	if c.Viewport.W <= 0 || c.Viewport.H <= 0 {
		c.Viewport = geom.Size{W: 1280, H: 800}
	}
	if c.ClickThreshold <= 0 {
		c.ClickThreshold = DefaultClickThreshold
	}
	return c
}

// Engine drives all pointer interaction for the active workspace.
type Engine struct {
	mu   sync.Mutex
	st   *store.Store
	hist *history.Manager
	log  *slog.Logger
	cfg  Config

	offset geom.Pt
	mode   Mode

	// selection in selection order; the last entry paints frontmost
	selection []string

	pressView   geom.Pt
	pressCanvas geom.Pt
	lastView    geom.Pt
	shift       bool
	moved       bool
	pushed      bool
	preSnap     []domain.Item

	// drag
	dragOrder  []string
	dragOrigin map[string]geom.Pt
	dragSizes  map[string]geom.Size
	live       map[string]geom.Pt

	// rubber band
	band     geom.Rect
	banding  bool
	bandLive []string

	// resize
	resizeID   string
	handle     Handle
	origRect   geom.Rect
	liveRect   geom.Rect
	resizeMin  geom.Size
	resizeLive bool

	// text-edit history coalescing
	textItem  string
	textTimer *time.Timer
}

// NewEngine wires the engine to the store and history manager. It subscribes
// to workspace switches to rebind history, clear transient state and recenter
// the viewport.
func NewEngine(st *store.Store, hist *history.Manager, cfg Config) *Engine {
	e := &Engine{
		st:   st,
		hist: hist,
		log:  applog.WithComponent("interaction"),
		cfg:  cfg.withDefaults(),
	}
	e.offset = geom.CenterOffset(e.cfg.Viewport, e.cfg.Canvas)
	st.On(store.KindWorkspaceSwitched, func(ev store.Event) {
		sw := ev.(store.WorkspaceSwitched)
		e.onWorkspaceSwitched(sw.ID)
	})
	return e
}

func (e *Engine) onWorkspaceSwitched(id string) {
	if err := e.hist.LoadHistory(context.Background(), id); err != nil {
		e.log.Warn("history rebind failed", slog.String("workspace", id), slog.Any("err", err))
	}
	e.mu.Lock()
	e.mode = ModeIdle
	e.selection = nil
	e.clearGestureLocked()
	e.offset = geom.CenterOffset(e.cfg.Viewport, e.cfg.Canvas)
	off := e.offset
	e.mu.Unlock()
	e.st.UpdateViewport(off.X, off.Y)
}

// Mode returns the current pointer state.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Offset returns the current pan offset.
func (e *Engine) Offset() geom.Pt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// Selection returns the selected ids in selection order (frontmost last).
func (e *Engine) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.selection))
	copy(out, e.selection)
	return out
}

// Selected reports whether id is in the selection set.
func (e *Engine) Selected(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedLocked(id)
}

func (e *Engine) selectedLocked(id string) bool {
	for _, s := range e.selection {
		if s == id {
			return true
		}
	}
	return false
}

// RubberBand returns the in-progress selection box, if any.
func (e *Engine) RubberBand() (geom.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.band, e.banding
}

// RubberBandHits returns the ids the in-progress box currently touches.
func (e *Engine) RubberBandHits() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.bandLive))
	copy(out, e.bandLive)
	return out
}

// LiveBounds returns the in-progress rectangle of an item mid-drag or
// mid-resize. ok is false when the item is not part of the active gesture;
// the renderer then falls back to the store's committed geometry.
func (e *Engine) LiveBounds(id string) (geom.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == ModeResize && e.resizeLive && id == e.resizeID {
		return e.liveRect, true
	}
	if e.mode == ModeDrag {
		if p, ok := e.live[id]; ok {
			sz := e.dragSizes[id]
			return geom.Rect{X: p.X, Y: p.Y, W: sz.W, H: sz.H}, true
		}
	}
	return geom.Rect{}, false
}

// ZOrder returns the items in paint order: unselected items in insertion
// order first, then selected items in selection order, so the most recently
// selected item paints frontmost.
func (e *Engine) ZOrder() []domain.Item {
	items := e.st.Items()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zOrderLocked(items)
}

func (e *Engine) zOrderLocked(items []domain.Item) []domain.Item {
	selPos := make(map[string]int, len(e.selection))
	for i, id := range e.selection {
		selPos[id] = i
	}
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if _, ok := selPos[it.ID]; !ok {
			out = append(out, it)
		}
	}
	for _, id := range e.selection {
		for _, it := range items {
			if it.ID == id {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// hitTestLocked returns the topmost item containing the canvas point, or nil.
func (e *Engine) hitTestLocked(items []domain.Item, c geom.Pt) *domain.Item {
	ordered := e.zOrderLocked(items)
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].Bounds().Contains(c) {
			it := ordered[i]
			return &it
		}
	}
	return nil
}

// PointerDown begins a gesture. A press on an item selects it (shift
// toggles) and arms a drag; a press on empty canvas arms the rubber band.
func (e *Engine) PointerDown(view geom.Pt, mods Modifiers) {
	items := e.st.Items()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeIdle {
		return
	}
	c := geom.ToCanvas(view, e.offset)
	e.pressView, e.lastView = view, view
	e.pressCanvas = c
	e.shift = mods.Shift
	e.moved = false
	e.pushed = false

	hit := e.hitTestLocked(items, c)
	if hit == nil {
		e.mode = ModeRubber
		e.banding = true
		e.band = geom.Rect{X: c.X, Y: c.Y}
		e.bandLive = nil
		return
	}

	if mods.Shift && e.selectedLocked(hit.ID) {
		// shift-click on a selected item toggles it off; no drag starts
		e.removeSelectionLocked(hit.ID)
		return
	}
	if mods.Shift {
		e.selection = append(e.selection, hit.ID)
	} else if !e.selectedLocked(hit.ID) {
		e.selection = []string{hit.ID}
	} else {
		// re-press on a selected item brings it to the front
		e.removeSelectionLocked(hit.ID)
		e.selection = append(e.selection, hit.ID)
	}

	e.armDragLocked(items, *hit)
}

// PointerMove advances the active gesture.
func (e *Engine) PointerMove(view geom.Pt) {
	e.mu.Lock()
	mode := e.mode
	e.mu.Unlock()

	switch mode {
	case ModePan:
		e.mu.Lock()
		e.offset.X += view.X - e.lastView.X
		e.offset.Y += view.Y - e.lastView.Y
		e.lastView = view
		e.mu.Unlock()
	case ModeRubber:
		e.moveRubber(view)
	case ModeDrag:
		e.moveDrag(view)
	case ModeResize:
		e.moveResize(view)
	}
}

// PointerUp finishes the active gesture and commits its result.
func (e *Engine) PointerUp(view geom.Pt) {
	e.mu.Lock()
	mode := e.mode
	e.mu.Unlock()

	switch mode {
	case ModePan:
		e.mu.Lock()
		off := e.offset
		e.mode = ModeIdle
		e.mu.Unlock()
		e.st.UpdateViewport(off.X, off.Y)
	case ModeRubber:
		e.finishRubber()
	case ModeDrag:
		e.finishDrag()
	case ModeResize:
		e.finishResize()
	default:
		e.mu.Lock()
		e.mode = ModeIdle
		e.mu.Unlock()
	}
}

// StartPan switches the press into panning; the renderer calls this for
// middle-button or space-modified presses instead of PointerDown.
func (e *Engine) StartPan(view geom.Pt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeIdle {
		return
	}
	e.mode = ModePan
	e.pressView, e.lastView = view, view
}

// Pan applies a direct offset delta outside a pointer gesture (wheel or
// keyboard panning) and persists the result.
func (e *Engine) Pan(dx, dy float64) {
	e.mu.Lock()
	e.offset.X += dx
	e.offset.Y += dy
	off := e.offset
	e.mu.Unlock()
	e.st.UpdateViewport(off.X, off.Y)
}

// Home recenters the viewport on the canvas center.
func (e *Engine) Home() {
	e.mu.Lock()
	e.offset = geom.CenterOffset(e.cfg.Viewport, e.cfg.Canvas)
	off := e.offset
	e.mu.Unlock()
	e.st.UpdateViewport(off.X, off.Y)
}

func (e *Engine) moveRubber(view geom.Pt) {
	items := e.st.Items()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeRubber {
		return
	}
	c := geom.ToCanvas(view, e.offset)
	e.band = geom.FromCorners(e.pressCanvas, c)
	e.bandLive = e.bandLive[:0]
	for _, it := range items {
		if e.band.Intersects(it.Bounds()) {
			e.bandLive = append(e.bandLive, it.ID)
		}
	}
}

func (e *Engine) finishRubber() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeRubber {
		return
	}
	if e.band.W < e.cfg.ClickThreshold && e.band.H < e.cfg.ClickThreshold {
		// a click on empty canvas clears the selection unless shift is held
		if !e.shift {
			e.selection = nil
		}
	} else if e.shift {
		for _, id := range e.bandLive {
			if !e.selectedLocked(id) {
				e.selection = append(e.selection, id)
			}
		}
	} else {
		e.selection = append([]string{}, e.bandLive...)
	}
	e.mode = ModeIdle
	e.banding = false
	e.band = geom.Rect{}
	e.bandLive = nil
}

func (e *Engine) removeSelectionLocked(id string) {
	for i, s := range e.selection {
		if s == id {
			e.selection = append(e.selection[:i], e.selection[i+1:]...)
			return
		}
	}
}

// clearGestureLocked drops all in-progress gesture state.
func (e *Engine) clearGestureLocked() {
	e.dragOrder = nil
	e.dragOrigin = nil
	e.dragSizes = nil
	e.live = nil
	e.banding = false
	e.band = geom.Rect{}
	e.bandLive = nil
	e.resizeID = ""
	e.resizeLive = false
	e.preSnap = nil
	e.pushed = false
	e.moved = false
}

// pushOnceLocked records the pre-gesture snapshot on the first real
// movement, so a press that never travels past the click threshold leaves no
// history entry.
func (e *Engine) pushOnceLocked() {
	if e.pushed {
		return
	}
	e.pushed = true
	e.hist.Push(e.preSnap)
}
