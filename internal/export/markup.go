/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"activitycanvas/internal/scene"
	"activitycanvas/internal/textlayout"
	"activitycanvas/internal/vector"
)

func writeMarkup(buf *bytes.Buffer, d *Document) error {
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", d.Width, d.Height, d.Width, d.Height)
	wf("  <rect x=\"0\" y=\"0\" width=\"100%%\" height=\"100%%\" fill=\"%s\"%s/>\n", d.Background.Hex(), alphaAttr("fill-opacity", d.Background))

	for i, el := range d.Elements {
		wf("  <g transform=\"translate(%g %g) rotate(%g) scale(%g %g)\"", fr(el.Left), fr(el.Top), fr(el.Angle), fr(el.ScaleX), fr(el.ScaleY))
		if el.Opacity < 1 {
			wf(" opacity=\"%g\"", fr(el.Opacity))
		}
		wf(">\n")
		switch el.Kind {
		case scene.KindRect:
			wf("    <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\"", fr(el.Box.W), fr(el.Box.H))
			if el.RX > 0 || el.RY > 0 {
				wf(" rx=\"%g\" ry=\"%g\"", fr(el.RX), fr(el.RY))
			}
			wf("%s/>\n", paintAttrs(el))
		case scene.KindCircle:
			r := el.Box.W / 2
			wf("    <circle cx=\"%g\" cy=\"%g\" r=\"%g\"%s/>\n", fr(r), fr(r), fr(r), paintAttrs(el))
		case scene.KindLine:
			a, b := el.Points[0], el.Points[1]
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"%s stroke-linecap=\"round\"/>\n", fr(a.X), fr(a.Y), fr(b.X), fr(b.Y), paintAttrs(el))
		case scene.KindPath:
			pts := make([]string, 0, len(el.Points))
			for _, p := range el.Points {
				pts = append(pts, fmt.Sprintf("%g,%g", fr(p.X), fr(p.Y)))
			}
			wf("    <polyline points=\"%s\"%s stroke-linecap=\"round\" stroke-linejoin=\"round\"/>\n", strings.Join(pts, " "), paintAttrs(el))
		case scene.KindText:
			writeText(wf, el)
		case scene.KindImage:
			img := el.Image
			clip := ""
			if img.Clip != nil {
				id := fmt.Sprintf("clip-%d", i)
				c := img.Clip
				wf("    <defs><clipPath id=\"%s\"><rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" ry=\"%g\"/></clipPath></defs>\n",
					id, fr(c.Left), fr(c.Top), fr(c.Width), fr(c.Height), fr(c.RX), fr(c.RY))
				clip = fmt.Sprintf(" clip-path=\"url(#%s)\"", id)
			}
			cors := ""
			if img.CrossOrigin != "" {
				cors = fmt.Sprintf(" crossorigin=\"%s\"", esc(img.CrossOrigin))
			}
			wf("    <image x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"none\" xlink:href=\"%s\"%s%s/>\n",
				fr(el.Box.W), fr(el.Box.H), esc(img.Src), cors, clip)
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	return werr
}

func writeText(wf func(string, ...any), el Element) {
	t := el.Text
	x, anchor := alignX(t.Align, t.Width)
	var deco []string
	if t.Underline {
		deco = append(deco, "underline")
	}
	if t.Linethrough {
		deco = append(deco, "line-through")
	}
	wf("    <text font-family=\"%s\" font-size=\"%g\"", esc(t.Family), fr(t.Size))
	if t.Bold {
		wf(" font-weight=\"bold\"")
	}
	if t.Italic {
		wf(" font-style=\"italic\"")
	}
	if len(deco) > 0 {
		wf(" text-decoration=\"%s\"", strings.Join(deco, " "))
	}
	wf(" text-anchor=\"%s\" data-width=\"%g\" xml:space=\"preserve\"%s>", anchor, fr(t.Width), paintAttrs(el))
	for i, line := range t.Lines {
		wf("<tspan x=\"%g\" y=\"%g\">%s</tspan>", fr(x), fr(textlayout.Baseline(i, t.Size)), esc(line))
	}
	wf("</text>\n")
}

// alignX returns the anchor x and SVG text-anchor for an alignment.
func alignX(align string, width float64) (float64, string) {
	switch align {
	case scene.AlignCenter:
		return width / 2, "middle"
	case scene.AlignRight:
		return width, "end"
	}
	return 0, "start"
}

func paintAttrs(el Element) string {
	var sb strings.Builder
	if el.Fill.Enabled {
		fmt.Fprintf(&sb, " fill=\"%s\"%s", el.Fill.Color.Hex(), alphaAttr("fill-opacity", el.Fill.Color))
	} else {
		sb.WriteString(" fill=\"none\"")
	}
	if el.Stroke.Enabled {
		fmt.Fprintf(&sb, " stroke=\"%s\" stroke-width=\"%g\"%s", el.Stroke.Color.Hex(), fr(el.Stroke.Width), alphaAttr("stroke-opacity", el.Stroke.Color))
	}
	return sb.String()
}

func alphaAttr(name string, c vector.Color) string {
	if c.Opaque() {
		return ""
	}
	return fmt.Sprintf(" %s=\"%g\"", name, fr(float64(c.A)/255))
}

func fr(v float64) float64 { return vector.FloatRound(v, 3) }

func esc(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// WriteSVG writes the markup.
func (d *Document) WriteSVG(w io.Writer) error {
	if d == nil || len(d.Markup) == 0 {
		return ErrNoMarkup
	}
	if _, err := w.Write(d.Markup); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}
