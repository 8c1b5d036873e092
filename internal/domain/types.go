/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model for SpawnCanvas workspaces.
// The structures are plain data and serialize to human-readable JSON; all
// deep copying goes through the structural clone helpers below rather than
// round-trip serialization.
package domain

import (
	"time"

	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
)

// Canvas defaults. Positions and sizes are quantized to GridStep after every
// completed drag or resize; the canvas is a large but finite square.
const (
	GridStep     = 20.0
	CanvasWidth  = 5000.0
	CanvasHeight = 5000.0
)

// ItemType discriminates the item variants.
type ItemType string

const (
	ItemNote      ItemType = "note"
	ItemChecklist ItemType = "checklist"
	ItemContainer ItemType = "container"
	ItemImage     ItemType = "image"
)

// Valid reports whether t is one of the known variants.
func (t ItemType) Valid() bool {
	switch t {
	case ItemNote, ItemChecklist, ItemContainer, ItemImage:
		return true
	}
	return false
}

// ContainerColor is the closed palette for grouping containers.
type ContainerColor string

const (
	ColorRed    ContainerColor = "red"
	ColorOrange ContainerColor = "orange"
	ColorYellow ContainerColor = "yellow"
	ColorGreen  ContainerColor = "green"
	ColorTeal   ContainerColor = "teal"
	ColorBlue   ContainerColor = "blue"
	ColorPurple ContainerColor = "purple"
	ColorGray   ContainerColor = "gray"
)

// ContainerColors lists the palette in presentation order.
var ContainerColors = []ContainerColor{
	ColorRed, ColorOrange, ColorYellow, ColorGreen,
	ColorTeal, ColorBlue, ColorPurple, ColorGray,
}

// Valid reports whether c is part of the palette.
func (c ContainerColor) Valid() bool {
	for _, v := range ContainerColors {
		if c == v {
			return true
		}
	}
	return false
}

// Point is an absolute canvas position (top-left corner of an item).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an item extent in canvas units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the per-workspace pan offset, in canvas pixels.
type Viewport struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChecklistEntry is a single line of a checklist item.
// Nested is the indentation depth, hard-capped at MaxNesting.
type ChecklistEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Nested    int    `json:"nested"`
}

// MaxNesting is the deepest allowed checklist indentation.
const MaxNesting = 2

// Item is a positioned, sized entity on the canvas. The variant payload
// fields are populated according to Type and omitted from JSON otherwise.
type Item struct {
	ID        string    `json:"id"`
	Type      ItemType  `json:"type"`
	Title     string    `json:"title"`
	Position  Point     `json:"position"`
	Size      Size      `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// note
	Content string `json:"content,omitempty"`
	// checklist
	Entries []ChecklistEntry `json:"items,omitempty"`
	// container; Children is advisory interchange data only — group
	// membership is always computed live from spatial containment.
	Color    ContainerColor `json:"color,omitempty"`
	Children []string       `json:"children,omitempty"`
	// image (data-URI)
	ImageData string `json:"imageData,omitempty"`
}

// Bounds returns the item's rectangle for hit testing and intersection.
func (i Item) Bounds() geom.Rect {
	return geom.Rect{X: i.Position.X, Y: i.Position.Y, W: i.Size.Width, H: i.Size.Height}
}

// Clone returns a structural deep copy of the item.
func (i Item) Clone() Item {
	c := i
	if i.Entries != nil {
		c.Entries = make([]ChecklistEntry, len(i.Entries))
		copy(c.Entries, i.Entries)
	}
	if i.Children != nil {
		c.Children = make([]string, len(i.Children))
		copy(c.Children, i.Children)
	}
	return c
}

// CloneItems deep-copies a whole item slice. A nil input yields an empty,
// non-nil slice so snapshots always restore to a usable array.
func CloneItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Clone())
	}
	return out
}

// Workspace is one independent canvas document and the unit of persistence
// and undo scope. Items are insertion-ordered; that order defines queue
// navigation order.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Viewport  Viewport  `json:"viewport"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a structural deep copy of the workspace.
func (w Workspace) Clone() Workspace {
	c := w
	c.Items = CloneItems(w.Items)
	return c
}

// MinSize returns the type-dependent minimum item size. A resize never
// commits a size below this floor.
func MinSize(t ItemType) Size {
	switch t {
	case ItemContainer:
		return Size{Width: 300, Height: 200}
	case ItemImage:
		return Size{Width: 50, Height: 50}
	default: // note, checklist
		return Size{Width: 200, Height: 100}
	}
}

// DefaultSize returns the initial size for a freshly created item.
func DefaultSize(t ItemType) Size {
	switch t {
	case ItemContainer:
		return Size{Width: 400, Height: 300}
	case ItemImage:
		return Size{Width: 200, Height: 200}
	case ItemChecklist:
		return Size{Width: 260, Height: 200}
	default:
		return Size{Width: 240, Height: 160}
	}
}
