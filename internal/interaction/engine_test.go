/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
	"github.com/blazetornado2014/SpawnCanvas/internal/history"
	"github.com/blazetornado2014/SpawnCanvas/internal/storage"
	"github.com/blazetornado2014/SpawnCanvas/internal/store"
)

// newEngine builds a store/history/engine stack over in-memory storage. The
// viewport equals the canvas so view and canvas coordinates coincide and the
// initial pan offset is zero, which keeps pointer math in tests readable.
func newEngine(t *testing.T) (*Engine, *store.Store, *history.Manager) {
	t.Helper()
	kv := storage.NewMem()
	st := store.NewStore(kv, store.WithSaveDebounce(10*time.Millisecond))
	h := history.NewManager(kv)
	e := NewEngine(st, h, Config{
		Viewport: geom.Size{W: domain.CanvasWidth, H: domain.CanvasHeight},
	})
	if err := st.SwitchWorkspace(context.Background(), ""); err != nil {
		t.Fatalf("SwitchWorkspace: %v", err)
	}
	return e, st, h
}

func place(t *testing.T, st *store.Store, typ domain.ItemType, x, y, w, h float64) *domain.Item {
	t.Helper()
	it := st.CreateItem(typ, domain.Item{
		Position: domain.Point{X: x, Y: y},
		Size:     domain.Size{Width: w, Height: h},
	})
	if it == nil {
		t.Fatalf("CreateItem(%s) failed", typ)
	}
	return it
}

func click(e *Engine, p geom.Pt, mods Modifiers) {
	e.PointerDown(p, mods)
	e.PointerUp(p)
}

func drag(e *Engine, from, to geom.Pt) {
	e.PointerDown(from, Modifiers{})
	e.PointerMove(to)
	e.PointerUp(to)
}

func TestClickSelectsTopmostItem(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)
	b := place(t, st, domain.ItemNote, 200, 140, 240, 160)

	// the overlap region belongs to whichever item is frontmost; with no
	// selection yet that is the later-inserted note
	click(e, geom.Pt{X: 220, Y: 150}, Modifiers{})
	if sel := e.Selection(); len(sel) != 1 || sel[0] != b.ID {
		t.Fatalf("selection = %v, want [%s]", sel, b.ID)
	}
	// selecting a brings it frontmost; the same press point now hits a
	click(e, geom.Pt{X: 110, Y: 110}, Modifiers{})
	click(e, geom.Pt{X: 220, Y: 150}, Modifiers{})
	if sel := e.Selection(); len(sel) != 1 || sel[0] != a.ID {
		t.Fatalf("selection after bring-to-front = %v, want [%s]", sel, a.ID)
	}
}

func TestClickOnEmptyCanvasClearsSelectionUnlessShift(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)
	click(e, geom.Pt{X: 120, Y: 120}, Modifiers{})
	if len(e.Selection()) != 1 {
		t.Fatalf("item not selected")
	}
	click(e, geom.Pt{X: 2000, Y: 2000}, Modifiers{Shift: true})
	if len(e.Selection()) != 1 {
		t.Fatalf("shift-click on empty canvas must keep the selection")
	}
	click(e, geom.Pt{X: 2000, Y: 2000}, Modifiers{})
	if len(e.Selection()) != 0 {
		t.Fatalf("click on empty canvas must clear the selection")
	}
	_ = a
}

func TestShiftClickTogglesSelection(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)
	b := place(t, st, domain.ItemNote, 600, 100, 240, 160)

	click(e, geom.Pt{X: 120, Y: 120}, Modifiers{})
	click(e, geom.Pt{X: 620, Y: 120}, Modifiers{Shift: true})
	if sel := e.Selection(); len(sel) != 2 {
		t.Fatalf("shift-click did not add: %v", sel)
	}
	click(e, geom.Pt{X: 120, Y: 120}, Modifiers{Shift: true})
	if sel := e.Selection(); len(sel) != 1 || sel[0] != b.ID {
		t.Fatalf("shift-click did not toggle off: %v", sel)
	}
	_ = a
}

func TestRubberBandReplacesOrAddsSelection(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 200, 100)
	b := place(t, st, domain.ItemNote, 400, 100, 200, 100)
	c := place(t, st, domain.ItemNote, 1000, 1000, 200, 100)

	// box touching a and b
	drag(e, geom.Pt{X: 80, Y: 80}, geom.Pt{X: 620, Y: 260})
	sel := e.Selection()
	if len(sel) != 2 || !containsID(sel, a.ID) || !containsID(sel, b.ID) {
		t.Fatalf("band selection = %v", sel)
	}
	// shift-box over c adds without dropping a, b
	e.PointerDown(geom.Pt{X: 960, Y: 960}, Modifiers{Shift: true})
	e.PointerMove(geom.Pt{X: 1220, Y: 1120})
	e.PointerUp(geom.Pt{X: 1220, Y: 1120})
	sel = e.Selection()
	if len(sel) != 3 || !containsID(sel, c.ID) {
		t.Fatalf("shift band selection = %v", sel)
	}
	// plain box over c alone replaces
	drag(e, geom.Pt{X: 960, Y: 960}, geom.Pt{X: 1220, Y: 1120})
	sel = e.Selection()
	if len(sel) != 1 || sel[0] != c.ID {
		t.Fatalf("replace band selection = %v", sel)
	}
}

func TestRubberBandEdgeTouchCountsAsHit(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 200, 200, 200, 100)
	// band's right edge lands exactly on the item's left edge
	drag(e, geom.Pt{X: 100, Y: 100}, geom.Pt{X: 200, Y: 400})
	if sel := e.Selection(); len(sel) != 1 || sel[0] != a.ID {
		t.Fatalf("edge-touching band must select: %v", sel)
	}
}

func TestDragSnapsClampsAndCommitsOnUp(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)

	e.PointerDown(geom.Pt{X: 120, Y: 120}, Modifiers{})
	e.PointerMove(geom.Pt{X: 171, Y: 183})
	// mid-drag the store still holds the original position
	mid, _ := st.Item(a.ID)
	if mid.Position != (domain.Point{X: 100, Y: 100}) {
		t.Fatalf("store mutated mid-drag: %+v", mid.Position)
	}
	lb, ok := e.LiveBounds(a.ID)
	if !ok {
		t.Fatalf("no live bounds during drag")
	}
	if int(lb.X)%20 != 0 || int(lb.Y)%20 != 0 {
		t.Fatalf("live position %+v not grid-snapped", lb)
	}
	e.PointerUp(geom.Pt{X: 171, Y: 183})

	got, _ := st.Item(a.ID)
	// raw delta (51,63) snaps onto the grid at (160,160)
	if got.Position != (domain.Point{X: 160, Y: 160}) {
		t.Fatalf("committed position = %+v", got.Position)
	}
}

func TestDragNeverLeavesCanvas(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 0, 20, 240, 160)
	drag(e, geom.Pt{X: 10, Y: 30}, geom.Pt{X: -900, Y: -900})
	got, _ := st.Item(a.ID)
	if got.Position != (domain.Point{X: 0, Y: 0}) {
		t.Fatalf("dragged out of canvas: %+v", got.Position)
	}

	b := place(t, st, domain.ItemNote, 4700, 4800, 240, 160)
	drag(e, geom.Pt{X: 4710, Y: 4810}, geom.Pt{X: 9000, Y: 9000})
	got, _ = st.Item(b.ID)
	if got.Position.X+got.Size.Width > domain.CanvasWidth || got.Position.Y+got.Size.Height > domain.CanvasHeight {
		t.Fatalf("item exceeds canvas: %+v", got)
	}
}

func TestSubThresholdMoveIsAClickNotADrag(t *testing.T) {
	e, st, h := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)
	e.PointerDown(geom.Pt{X: 120, Y: 120}, Modifiers{})
	e.PointerMove(geom.Pt{X: 122, Y: 121})
	e.PointerUp(geom.Pt{X: 122, Y: 121})

	got, _ := st.Item(a.ID)
	if got.Position != (domain.Point{X: 100, Y: 100}) {
		t.Fatalf("sub-threshold move changed position: %+v", got.Position)
	}
	if h.CanUndo() {
		t.Fatalf("sub-threshold move recorded a history entry")
	}
	if sel := e.Selection(); len(sel) != 1 || sel[0] != a.ID {
		t.Fatalf("click selection missing: %v", sel)
	}
}

func TestContainerGroupDrag(t *testing.T) {
	e, st, _ := newEngine(t)
	box := place(t, st, domain.ItemContainer, 100, 100, 300, 200)
	// center (140,150) lies inside the container
	inside := place(t, st, domain.ItemNote, 40, 100, 200, 100)
	// center far outside
	outside := place(t, st, domain.ItemNote, 900, 900, 200, 100)

	e.PointerDown(geom.Pt{X: 380, Y: 120}, Modifiers{}) // container body, clear of the notes
	e.PointerMove(geom.Pt{X: 430, Y: 170})
	e.PointerUp(geom.Pt{X: 430, Y: 170})

	gotBox, _ := st.Item(box.ID)
	if gotBox.Position != (domain.Point{X: 160, Y: 160}) {
		t.Fatalf("container position = %+v", gotBox.Position)
	}
	gotIn, _ := st.Item(inside.ID)
	if gotIn.Position != (domain.Point{X: 100, Y: 160}) {
		t.Fatalf("grouped note did not follow: %+v", gotIn.Position)
	}
	gotOut, _ := st.Item(outside.ID)
	if gotOut.Position != (domain.Point{X: 900, Y: 900}) {
		t.Fatalf("ungrouped note moved: %+v", gotOut.Position)
	}
}

func TestGroupMembershipFixedAtDragStart(t *testing.T) {
	e, st, _ := newEngine(t)
	box := place(t, st, domain.ItemContainer, 100, 100, 300, 200)
	inside := place(t, st, domain.ItemNote, 40, 100, 200, 100)

	e.PointerDown(geom.Pt{X: 380, Y: 120}, Modifiers{})
	// drag the container far away; the note keeps following even though its
	// center left the container's original bounds long ago
	e.PointerMove(geom.Pt{X: 1380, Y: 1120})
	e.PointerUp(geom.Pt{X: 1380, Y: 1120})

	gotBox, _ := st.Item(box.ID)
	gotIn, _ := st.Item(inside.ID)
	if gotIn.Position.X-40 != gotBox.Position.X-100 || gotIn.Position.Y-100 != gotBox.Position.Y-100 {
		t.Fatalf("group offset drifted: box=%+v note=%+v", gotBox.Position, gotIn.Position)
	}
}

func TestResizeEnforcesTypeMinimum(t *testing.T) {
	e, st, _ := newEngine(t)
	cl := place(t, st, domain.ItemChecklist, 200, 200, 260, 200)

	e.StartResize(cl.ID, HandleSE, geom.Pt{X: 460, Y: 400})
	e.PointerMove(geom.Pt{X: 210, Y: 210}) // requests roughly 10x10
	e.PointerUp(geom.Pt{X: 210, Y: 210})

	got, _ := st.Item(cl.ID)
	if got.Size != (domain.Size{Width: 200, Height: 100}) {
		t.Fatalf("committed size = %+v, want the checklist minimum", got.Size)
	}
	if got.Position != (domain.Point{X: 200, Y: 200}) {
		t.Fatalf("SE resize moved the origin: %+v", got.Position)
	}
}

func TestResizeNWAnchorsOppositeEdges(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)

	e.StartResize(a.ID, HandleNW, geom.Pt{X: 100, Y: 100})
	e.PointerMove(geom.Pt{X: 1100, Y: 1100})
	e.PointerUp(geom.Pt{X: 1100, Y: 1100})

	got, _ := st.Item(a.ID)
	// right/bottom edges stay at (340,260); size floors at the note minimum
	if got.Size != (domain.Size{Width: 200, Height: 100}) {
		t.Fatalf("size = %+v", got.Size)
	}
	if got.Position != (domain.Point{X: 140, Y: 160}) {
		t.Fatalf("position = %+v", got.Position)
	}
}

func TestResizeGrowsWithGridSnappedDelta(t *testing.T) {
	e, st, _ := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)

	e.StartResize(a.ID, HandleE, geom.Pt{X: 340, Y: 180})
	e.PointerMove(geom.Pt{X: 391, Y: 180}) // dx=51 snaps to 60
	e.PointerUp(geom.Pt{X: 391, Y: 180})

	got, _ := st.Item(a.ID)
	if got.Size != (domain.Size{Width: 300, Height: 160}) {
		t.Fatalf("size = %+v", got.Size)
	}
}

func TestDragRecordsOneUndoStep(t *testing.T) {
	e, st, h := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)

	drag(e, geom.Pt{X: 120, Y: 120}, geom.Pt{X: 320, Y: 320})
	if undo, _ := h.Depths(); undo != 1 {
		t.Fatalf("drag recorded %d history entries, want 1", undo)
	}
	if !e.Undo() {
		t.Fatalf("undo failed")
	}
	got, _ := st.Item(a.ID)
	if got.Position != (domain.Point{X: 100, Y: 100}) {
		t.Fatalf("undo did not restore pre-drag position: %+v", got.Position)
	}
	if !e.Redo() {
		t.Fatalf("redo failed")
	}
	got, _ = st.Item(a.ID)
	if got.Position != (domain.Point{X: 300, Y: 300}) {
		t.Fatalf("redo did not restore post-drag position: %+v", got.Position)
	}
}

func TestPanUpdatesOffsetAndViewport(t *testing.T) {
	e, st, _ := newEngine(t)
	e.StartPan(geom.Pt{X: 500, Y: 500})
	e.PointerMove(geom.Pt{X: 560, Y: 450})
	e.PointerUp(geom.Pt{X: 560, Y: 450})

	off := e.Offset()
	if off != (geom.Pt{X: 60, Y: -50}) {
		t.Fatalf("offset = %+v", off)
	}
	// pan is a pure translation, never snapped
	e.Pan(7, 3)
	if got := e.Offset(); got != (geom.Pt{X: 67, Y: -47}) {
		t.Fatalf("offset after Pan = %+v", got)
	}
	if vp := st.Viewport(); vp.X != 67 || vp.Y != -47 {
		t.Fatalf("viewport not persisted: %+v", vp)
	}
}

func TestWorkspaceSwitchResetsViewportAndSelection(t *testing.T) {
	e, st, h := newEngine(t)
	place(t, st, domain.ItemNote, 100, 100, 240, 160)
	drag(e, geom.Pt{X: 80, Y: 80}, geom.Pt{X: 400, Y: 300}) // select via band
	e.Pan(300, 300)

	ctx := context.Background()
	info, err := st.CreateWorkspace(ctx, "Other")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.SwitchWorkspace(ctx, info.ID); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if len(e.Selection()) != 0 {
		t.Fatalf("selection survived workspace switch")
	}
	want := geom.CenterOffset(geom.Size{W: domain.CanvasWidth, H: domain.CanvasHeight}, geom.Size{W: domain.CanvasWidth, H: domain.CanvasHeight})
	if off := e.Offset(); off != want {
		t.Fatalf("offset = %+v, want centered %+v", off, want)
	}
	if h.WorkspaceID() != info.ID {
		t.Fatalf("history bound to %q, want %q", h.WorkspaceID(), info.ID)
	}
}

func TestCreateItemAtViewCenter(t *testing.T) {
	e, st, h := newEngine(t)
	it := e.CreateItemAtViewCenter(domain.ItemNote, domain.Item{Title: "centered"})
	if it == nil {
		t.Fatalf("create failed")
	}
	center := it.Bounds().Center()
	if center != (geom.Pt{X: domain.CanvasWidth / 2, Y: domain.CanvasHeight / 2}) {
		t.Fatalf("item center = %+v", center)
	}
	if sel := e.Selection(); len(sel) != 1 || sel[0] != it.ID {
		t.Fatalf("new item not selected: %v", sel)
	}
	if !h.CanUndo() {
		t.Fatalf("creation not undoable")
	}
	if !e.Undo() {
		t.Fatalf("undo failed")
	}
	if len(st.Items()) != 0 {
		t.Fatalf("undo did not remove the created item")
	}
	if len(e.Selection()) != 0 {
		t.Fatalf("selection kept a dead id")
	}
}

func TestDeleteSelectionIsUndoable(t *testing.T) {
	e, st, _ := newEngine(t)
	place(t, st, domain.ItemNote, 100, 100, 200, 100)
	place(t, st, domain.ItemNote, 400, 100, 200, 100)
	drag(e, geom.Pt{X: 80, Y: 80}, geom.Pt{X: 620, Y: 260})

	if n := e.DeleteSelection(); n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}
	if len(st.Items()) != 0 {
		t.Fatalf("items survived deletion")
	}
	if !e.Undo() {
		t.Fatalf("undo failed")
	}
	if len(st.Items()) != 2 {
		t.Fatalf("undo restored %d items, want 2", len(st.Items()))
	}
}

func TestTextEditsCoalesceIntoOneUndoStep(t *testing.T) {
	e, st, h := newEngine(t)
	a := place(t, st, domain.ItemNote, 100, 100, 240, 160)

	e.SetContent(a.ID, "d")
	e.SetContent(a.ID, "dr")
	e.SetContent(a.ID, "dra")
	e.SetContent(a.ID, "draft")
	if undo, _ := h.Depths(); undo != 1 {
		t.Fatalf("burst recorded %d entries, want 1", undo)
	}
	if !e.Undo() {
		t.Fatalf("undo failed")
	}
	got, _ := st.Item(a.ID)
	if got.Content != "" {
		t.Fatalf("undo left content %q", got.Content)
	}
}

func TestSetContainerColorRejectsOffPalette(t *testing.T) {
	e, st, _ := newEngine(t)
	box := place(t, st, domain.ItemContainer, 100, 100, 300, 200)
	if got := e.SetContainerColor(box.ID, domain.ContainerColor("magenta")); got != nil {
		t.Fatalf("off-palette color accepted")
	}
	got := e.SetContainerColor(box.ID, domain.ColorBlue)
	if got == nil || got.Color != domain.ColorBlue {
		t.Fatalf("palette color rejected: %+v", got)
	}
	_ = st
}

func containsID(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}
