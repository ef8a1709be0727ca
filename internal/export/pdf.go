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
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jung-kurt/gofpdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/textlayout"
)

// ImageSource resolves image bytes for embedding.
type ImageSource interface {
	Fetch(ctx context.Context, src, crossOrigin string) ([]byte, error)
}

// PDFOptions controls PDF output. Units are points; one scene pixel is one point.
type PDFOptions struct {
	Title  string
	Images ImageSource // nil skips images
	Print  bool        // embed a script that opens the print dialog on open
}

// pageSize maps the scene size to gofpdf's portrait-normalized size. gofpdf
// swaps width and height for "L".
func pageSize(w, h float64) (string, gofpdf.SizeType) {
	if w >= h {
		return "L", gofpdf.SizeType{Wd: h, Ht: w}
	}
	return "P", gofpdf.SizeType{Wd: w, Ht: h}
}

// WritePDF draws the document onto a single page sized exactly to the scene.
func (d *Document) WritePDF(ctx context.Context, w io.Writer, opts PDFOptions) error {
	if d == nil || len(d.Markup) == 0 {
		return ErrNoMarkup
	}
	l := applog.WithOperation(applog.WithComponent("export"), "pdf")
	orient, size := pageSize(d.Width, d.Height)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size, OrientationStr: orient})
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.SetCreator(applog.AppName, false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	bg := d.Background
	if !bg.Invisible() {
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, d.Width, d.Height, "F")
	}

	for i, el := range d.Elements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if el.ScaleX == 0 || el.ScaleY == 0 {
			continue
		}
		pdf.TransformBegin()
		// content is drawn at (Left, Top) + local; scale then rotate about that origin
		pdf.TransformRotate(-el.Angle, el.Left, el.Top)
		pdf.TransformScale(el.ScaleX*100, el.ScaleY*100, el.Left, el.Top)
		if el.Opacity < 1 {
			pdf.SetAlpha(math.Max(0, el.Opacity), "Normal")
		}
		switch el.Kind {
		case scene.KindRect:
			if st := applyPaint(pdf, el); st != "" {
				roundedRect(pdf, el.Left+el.Box.X, el.Top+el.Box.Y, el.Box.W, el.Box.H, el.RX, el.RY, st)
			}
		case scene.KindCircle:
			if st := applyPaint(pdf, el); st != "" {
				r := el.Box.W / 2
				pdf.Ellipse(el.Left+r, el.Top+r, r, r, 0, st)
			}
		case scene.KindLine:
			if applyPaint(pdf, el) != "" {
				pdf.SetLineCapStyle("round")
				a, b := el.Points[0], el.Points[1]
				pdf.Line(el.Left+a.X, el.Top+a.Y, el.Left+b.X, el.Top+b.Y)
			}
		case scene.KindPath:
			if applyPaint(pdf, el) != "" && len(el.Points) > 0 {
				pdf.SetLineCapStyle("round")
				pdf.SetLineJoinStyle("round")
				pdf.MoveTo(el.Left+el.Points[0].X, el.Top+el.Points[0].Y)
				for _, p := range el.Points[1:] {
					pdf.LineTo(el.Left+p.X, el.Top+p.Y)
				}
				pdf.DrawPath("D")
			}
		case scene.KindText:
			drawText(pdf, tr, el)
		case scene.KindImage:
			if err := drawImage(ctx, pdf, el, i, opts.Images); err != nil {
				l.Warn("image skipped", slog.String("src", truncate(el.Image.Src, 64)), slog.Any("err", err))
			}
		}
		pdf.TransformEnd()
		if el.Opacity < 1 {
			pdf.SetAlpha(1, "Normal")
		}
	}

	if opts.Print {
		pdf.SetJavascript("print(true);")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// applyPaint sets colors and returns the gofpdf style string, or "" when
// nothing is painted.
func applyPaint(pdf *gofpdf.Fpdf, el Element) string {
	st := ""
	if el.Fill.Enabled {
		c := el.Fill.Color
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		st += "F"
	}
	if el.Stroke.Enabled {
		c := el.Stroke.Color
		pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
		pdf.SetLineWidth(el.Stroke.Width)
		st += "D"
	}
	return st
}

// bezier handle length for a quarter circle
const kappa = 0.5522847498

func roundedRect(pdf *gofpdf.Fpdf, x, y, w, h, rx, ry float64, style string) {
	if ry <= 0 {
		ry = rx
	}
	rx = math.Min(rx, w/2)
	ry = math.Min(ry, h/2)
	if rx <= 0 || ry <= 0 {
		pdf.Rect(x, y, w, h, style)
		return
	}
	kx, ky := kappa*rx, kappa*ry
	pdf.MoveTo(x+rx, y)
	pdf.LineTo(x+w-rx, y)
	pdf.CurveBezierCubicTo(x+w-rx+kx, y, x+w, y+ry-ky, x+w, y+ry)
	pdf.LineTo(x+w, y+h-ry)
	pdf.CurveBezierCubicTo(x+w, y+h-ry+ky, x+w-rx+kx, y+h, x+w-rx, y+h)
	pdf.LineTo(x+rx, y+h)
	pdf.CurveBezierCubicTo(x+rx-kx, y+h, x, y+h-ry+ky, x, y+h-ry)
	pdf.LineTo(x, y+ry)
	pdf.CurveBezierCubicTo(x, y+ry-ky, x+rx-kx, y, x+rx, y)
	pdf.ClosePath()
	pdf.DrawPath(style)
}

// pdfFamily maps a CSS family onto a core PDF font.
func pdfFamily(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "times") || strings.Contains(f, "serif") && !strings.Contains(f, "sans"):
		return "Times"
	case strings.Contains(f, "courier") || strings.Contains(f, "mono"):
		return "Courier"
	}
	return "Helvetica"
}

func drawText(pdf *gofpdf.Fpdf, tr func(string) string, el Element) {
	t := el.Text
	if t == nil || t.Size <= 0 {
		return
	}
	style := ""
	if t.Bold {
		style += "B"
	}
	if t.Italic {
		style += "I"
	}
	if t.Underline {
		style += "U"
	}
	pdf.SetFont(pdfFamily(t.Family), style, t.Size)
	c := el.Fill.Color
	if !el.Fill.Enabled {
		return
	}
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
	for i, line := range t.Lines {
		s := tr(line)
		sw := pdf.GetStringWidth(s)
		x := el.Left
		switch t.Align {
		case scene.AlignCenter:
			x += (t.Width - sw) / 2
		case scene.AlignRight:
			x += t.Width - sw
		}
		y := el.Top + textlayout.Baseline(i, t.Size)
		pdf.Text(x, y, s)
		if t.Linethrough && sw > 0 {
			pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
			pdf.SetLineWidth(math.Max(t.Size/18, 0.5))
			sy := y - t.Size*0.3
			pdf.Line(x, sy, x+sw, sy)
		}
	}
}

func drawImage(ctx context.Context, pdf *gofpdf.Fpdf, el Element, idx int, src ImageSource) error {
	if src == nil {
		return fmt.Errorf("no image source configured")
	}
	data, err := src.Fetch(ctx, el.Image.Src, el.Image.CrossOrigin)
	if err != nil {
		return err
	}
	data, typ, err := pdfImage(data)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("img-%d-%s", idx, el.ID)
	opt := gofpdf.ImageOptions{ImageType: typ}
	pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
	if !pdf.Ok() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("register image: %w", err)
	}
	if c := el.Image.Clip; c != nil && (c.RX > 0 || c.RY > 0) {
		pdf.ClipRoundedRect(el.Left+c.Left, el.Top+c.Top, c.Width, c.Height, c.RX, false)
		defer pdf.ClipEnd()
	}
	pdf.ImageOptions(name, el.Left, el.Top, el.Box.W, el.Box.H, false, opt, 0, "")
	return nil
}

// pdfImage returns bytes gofpdf can embed directly: PNG and JPEG pass
// through, everything else is re-encoded as PNG.
func pdfImage(data []byte) ([]byte, string, error) {
	kind, _ := filetype.Match(data)
	switch kind.MIME.Subtype {
	case "png":
		return data, "PNG", nil
	case "jpeg":
		return data, "JPG", nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "PNG", nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
