/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
)

const (
	pngPadding  = 40
	pngMaxEdge  = 4096
	pngTitlePad = 4
)

var containerFillPNG = map[domain.ContainerColor]color.RGBA{
	domain.ColorRed:    {244, 199, 195, 255},
	domain.ColorOrange: {250, 222, 190, 255},
	domain.ColorYellow: {251, 240, 195, 255},
	domain.ColorGreen:  {206, 234, 214, 255},
	domain.ColorTeal:   {200, 232, 233, 255},
	domain.ColorBlue:   {201, 221, 247, 255},
	domain.ColorPurple: {223, 207, 243, 255},
	domain.ColorGray:   {226, 228, 231, 255},
}

// WritePNG rasterizes the workspace at 1:1 canvas units per pixel, cropped
// to the content bounds plus padding and capped at pngMaxEdge on the longer
// side. Pasted images are decoded from their data URIs and scaled into
// their item rects.
func WritePNG(ws domain.Workspace, w io.Writer) error {
	bounds, ok := contentBounds(ws.Items)
	if !ok {
		bounds = geom.Rect{W: 400, H: 300}
	}
	bounds.X -= pngPadding
	bounds.Y -= pngPadding
	bounds.W += 2 * pngPadding
	bounds.H += 2 * pngPadding

	scale := 1.0
	if bounds.W > pngMaxEdge || bounds.H > pngMaxEdge {
		scale = pngMaxEdge / bounds.W
		if v := pngMaxEdge / bounds.H; v < scale {
			scale = v
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(bounds.W*scale), int(bounds.H*scale)))
	fill(dst, dst.Bounds(), color.RGBA{250, 250, 250, 255})

	project := func(r geom.Rect) image.Rectangle {
		return image.Rect(
			int((r.X-bounds.X)*scale), int((r.Y-bounds.Y)*scale),
			int((r.X-bounds.X+r.W)*scale), int((r.Y-bounds.Y+r.H)*scale),
		)
	}

	for _, pass := range []bool{true, false} {
		for _, it := range ws.Items {
			if (it.Type == domain.ItemContainer) != pass {
				continue
			}
			drawItemPNG(dst, it, project(it.Bounds()))
		}
	}
	if err := png.Encode(w, dst); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func drawItemPNG(dst *image.RGBA, it domain.Item, r image.Rectangle) {
	switch it.Type {
	case domain.ItemContainer:
		c, ok := containerFillPNG[it.Color]
		if !ok {
			c = containerFillPNG[domain.ColorGray]
		}
		fill(dst, r, c)
	case domain.ItemImage:
		fill(dst, r, color.RGBA{255, 255, 255, 255})
		if raw, _, err := decodeDataURI(it.ImageData); err == nil {
			if src, _, derr := image.Decode(bytes.NewReader(raw)); derr == nil {
				xdraw.ApproxBiLinear.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
			}
		}
	default:
		fill(dst, r, color.RGBA{255, 255, 255, 255})
	}
	stroke(dst, r, color.RGBA{90, 90, 90, 255})

	text := it.Title
	if it.Type == domain.ItemChecklist {
		done := 0
		for _, en := range it.Entries {
			if en.Completed {
				done++
			}
		}
		text = fmt.Sprintf("%s (%d/%d)", it.Title, done, len(it.Entries))
	}
	drawLabel(dst, r, strings.TrimSpace(text))
}

func fill(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	xdraw.Draw(dst, r, &image.Uniform{C: c}, image.Point{}, xdraw.Src)
}

func stroke(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.SetRGBA(x, r.Min.Y, c)
		dst.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.SetRGBA(r.Min.X, y, c)
		dst.SetRGBA(r.Max.X-1, y, c)
	}
}

// drawLabel renders the item title in the top-left corner, clipped to the
// item rect.
func drawLabel(dst *image.RGBA, r image.Rectangle, text string) {
	if text == "" || r.Dx() < 3*pngTitlePad {
		return
	}
	face := basicfont.Face7x13
	maxChars := (r.Dx() - 2*pngTitlePad) / 7
	if maxChars <= 0 {
		return
	}
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{40, 40, 40, 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(r.Min.X + pngTitlePad),
			Y: fixed.I(r.Min.Y + pngTitlePad + face.Ascent),
		},
	}
	d.DrawString(text)
}
