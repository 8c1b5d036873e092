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
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/geom"
)

// rgb is a paper-friendly palette for container fills.
var containerRGB = map[domain.ContainerColor][3]int{
	domain.ColorRed:    {244, 199, 195},
	domain.ColorOrange: {250, 222, 190},
	domain.ColorYellow: {251, 240, 195},
	domain.ColorGreen:  {206, 234, 214},
	domain.ColorTeal:   {200, 232, 233},
	domain.ColorBlue:   {201, 221, 247},
	domain.ColorPurple: {223, 207, 243},
	domain.ColorGray:   {226, 228, 231},
}

// WritePDF renders the workspace onto a single landscape A4 page, scaled so
// the union of all item bounds fits the printable area. Containers are drawn
// first so grouped items paint on top of their fill.
func WritePDF(ws domain.Workspace, w io.Writer) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(ws.Name, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, ws.Name, "", 1, "L", false, 0, "")

	pw, ph := pdf.GetPageSize()
	l, t, r, b := pdf.GetMargins()
	area := geom.Rect{X: l, Y: t + 12, W: pw - l - r, H: ph - t - b - 12}

	bounds, ok := contentBounds(ws.Items)
	if !ok {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 10, "(empty workspace)", "", 1, "L", false, 0, "")
		return finishPDF(pdf, w)
	}
	scale := fitScale(bounds, area)
	project := func(p geom.Pt) (float64, float64) {
		return area.X + (p.X-bounds.X)*scale, area.Y + (p.Y-bounds.Y)*scale
	}

	for _, pass := range []bool{true, false} {
		for _, it := range ws.Items {
			if (it.Type == domain.ItemContainer) != pass {
				continue
			}
			x, y := project(geom.Pt{X: it.Position.X, Y: it.Position.Y})
			w := it.Size.Width * scale
			h := it.Size.Height * scale
			drawItemPDF(pdf, it, x, y, w, h)
		}
	}
	return finishPDF(pdf, w)
}

func finishPDF(pdf *gofpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawItemPDF(pdf *gofpdf.Fpdf, it domain.Item, x, y, w, h float64) {
	pdf.SetDrawColor(90, 90, 90)
	pdf.SetLineWidth(0.2)
	switch it.Type {
	case domain.ItemContainer:
		c, ok := containerRGB[it.Color]
		if !ok {
			c = containerRGB[domain.ColorGray]
		}
		pdf.SetFillColor(c[0], c[1], c[2])
		pdf.Rect(x, y, w, h, "FD")
	case domain.ItemImage:
		pdf.Rect(x, y, w, h, "D")
		if img, kind, err := decodeDataURI(it.ImageData); err == nil {
			name := "img-" + it.ID
			pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: kind}, bytes.NewReader(img))
			pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{ImageType: kind}, 0, "")
		}
	default:
		pdf.SetFillColor(255, 255, 255)
		pdf.Rect(x, y, w, h, "FD")
	}

	pdf.SetXY(x+1, y+1)
	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(w-2, 3.2, it.Title, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 6)
	switch it.Type {
	case domain.ItemNote:
		pdf.SetXY(x+1, y+4.5)
		pdf.MultiCell(w-2, 2.6, it.Content, "", "L", false)
	case domain.ItemChecklist:
		yy := y + 4.5
		for _, en := range it.Entries {
			if yy > y+h-2.5 {
				break
			}
			mark := "[ ]"
			if en.Completed {
				mark = "[x]"
			}
			indent := strings.Repeat("  ", en.Nested)
			pdf.SetXY(x+1, yy)
			pdf.CellFormat(w-2, 2.6, indent+mark+" "+en.Text, "", 0, "L", false, 0, "")
			yy += 2.8
		}
	}
}

// contentBounds returns the union of all item rects.
func contentBounds(items []domain.Item) (geom.Rect, bool) {
	if len(items) == 0 {
		return geom.Rect{}, false
	}
	u := items[0].Bounds()
	for _, it := range items[1:] {
		u = u.Union(it.Bounds())
	}
	return u, true
}

// fitScale returns the uniform scale that fits content into area without
// upscaling past 1:1 mm-per-canvas-unit.
func fitScale(content, area geom.Rect) float64 {
	if content.W <= 0 || content.H <= 0 {
		return 1
	}
	s := area.W / content.W
	if v := area.H / content.H; v < s {
		s = v
	}
	if s > 1 {
		s = 1
	}
	return s
}

// decodeDataURI splits a data-URI image payload into raw bytes and a
// gofpdf-compatible type tag.
func decodeDataURI(uri string) ([]byte, string, error) {
	const prefix = "data:image/"
	if !strings.HasPrefix(uri, prefix) {
		return nil, "", fmt.Errorf("not an image data-URI")
	}
	rest := uri[len(prefix):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil, "", fmt.Errorf("image data-URI is not base64")
	}
	kind := rest[:sep]
	switch kind {
	case "png", "jpeg", "jpg", "gif":
	default:
		return nil, "", fmt.Errorf("unsupported image type %q", kind)
	}
	raw, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return nil, "", fmt.Errorf("decode image payload: %w", err)
	}
	return raw, strings.ToUpper(kind[:1]) + kind[1:], nil
}
