/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the pure 2D math used by the canvas: grid snapping,
// touch-semantics rectangle intersection, canvas clamping, and
// viewport/canvas coordinate conversion. These helpers are UI-agnostic and
// deterministic to enable headless testing of the interaction engine.
package geom

import "math"

// Pt is a 2D point in canvas units.
type Pt struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

// Center returns the rectangle's center point.
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

// Contains reports whether p lies within r, edges included.
func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Intersects reports whether two rectangles overlap using touch semantics:
// rectangles sharing only an edge or a corner still count as intersecting.
func (r Rect) Intersects(o Rect) bool {
	return !(r.X > o.X+o.W || r.X+r.W < o.X || r.Y > o.Y+o.H || r.Y+r.H < o.Y)
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// FromCorners builds the normalized rectangle spanned by two arbitrary
// corner points, regardless of drag direction.
func FromCorners(a, b Pt) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(a.X - b.X),
		H: math.Abs(a.Y - b.Y),
	}
}

// Snap quantizes v to the nearest multiple of step. Snapping an already
// snapped value is a no-op. A non-positive step returns v unchanged.
func Snap(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// SnapPt snaps both coordinates of p to the grid.
func SnapPt(p Pt, step float64) Pt { return Pt{Snap(p.X, step), Snap(p.Y, step)} }

// ClampPos constrains a candidate top-left position so an item of the given
// size stays fully inside a canvas of the given extent. Positions are never
// negative; x+w and y+h never exceed the extent.
func ClampPos(p Pt, size Size, extent Size) Pt {
	p.X = clamp(p.X, 0, extent.W-size.W)
	p.Y = clamp(p.Y, 0, extent.H-size.H)
	return p
}

func clamp(v, lo, hi float64) float64 {
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

// ToCanvas converts a viewport-relative point into canvas-absolute
// coordinates given the current pan offset. The canvas is painted translated
// by the offset, so the conversion subtracts it.
func ToCanvas(view Pt, offset Pt) Pt { return Pt{view.X - offset.X, view.Y - offset.Y} }

// ToView is the inverse of ToCanvas.
func ToView(canvas Pt, offset Pt) Pt { return Pt{canvas.X + offset.X, canvas.Y + offset.Y} }

// CenterOffset computes the pan offset that places the canvas's logical
// center point in the middle of the viewport.
func CenterOffset(viewport Size, canvas Size) Pt {
	return Pt{(viewport.W - canvas.W) / 2, (viewport.H - canvas.H) / 2}
}

// Dist returns the euclidean distance between two points.
func Dist(a, b Pt) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }
