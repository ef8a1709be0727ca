/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Colors and paint definitions.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type Color struct{ R, G, B, A uint8 }

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
)

// ErrInvalidColor is returned by ParseColor for unparseable input.
var ErrInvalidColor = errors.New("invalid color")

var namedColors = map[string]Color{
	"black":   Black,
	"white":   White,
	"red":     {255, 0, 0, 255},
	"green":   {0, 128, 0, 255},
	"blue":    {0, 0, 255, 255},
	"yellow":  {255, 255, 0, 255},
	"orange":  {255, 165, 0, 255},
	"purple":  {128, 0, 128, 255},
	"gray":    {128, 128, 128, 255},
	"grey":    {128, 128, 128, 255},
	"pink":    {255, 192, 203, 255},
	"brown":   {165, 42, 42, 255},
	"cyan":    {0, 255, 255, 255},
	"magenta": {255, 0, 255, 255},
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(), rgba(), a small set of
// CSS names and the keywords transparent/none.
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return Color{}, fmt.Errorf("%w: empty", ErrInvalidColor)
	case v == "transparent" || v == "none":
		return Transparent, nil
	case strings.HasPrefix(v, "#") && len(v) == 9:
		c, err := colorful.Hex(v[:7])
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		a, err := strconv.ParseUint(v[7:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		r, g, b := c.RGB255()
		return Color{r, g, b, uint8(a)}, nil
	case strings.HasPrefix(v, "#"):
		c, err := colorful.Hex(v)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		r, g, b := c.RGB255()
		return Color{r, g, b, 255}, nil
	case strings.HasPrefix(v, "rgb"):
		return parseRGBFunc(v)
	}
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// ValidColor reports whether s parses as a color.
func ValidColor(s string) bool {
	_, err := ParseColor(s)
	return err == nil
}

func parseRGBFunc(v string) (Color, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
	}
	parts := strings.Split(v[open+1:len(v)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
		}
		ch[i] = uint8(n)
	}
	a := uint8(255)
	if len(parts) == 4 {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || f < 0 || f > 1 {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
		}
		a = uint8(f*255 + 0.5)
	}
	return Color{ch[0], ch[1], ch[2], a}, nil
}

// Hex renders the color as #rrggbb, ignoring alpha.
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

// Opaque reports whether the color is fully visible.
func (c Color) Opaque() bool { return c.A == 255 }

// Invisible reports whether the color has zero alpha.
func (c Color) Invisible() bool { return c.A == 0 }

type Fill struct {
	Color   Color
	Enabled bool
}

type Stroke struct {
	Color   Color
	Width   float64
	Enabled bool
}

// FillFrom builds a Fill from a color string; transparent or invalid disables it.
func FillFrom(s string) Fill {
	c, err := ParseColor(s)
	if err != nil || c.Invisible() {
		return Fill{}
	}
	return Fill{Color: c, Enabled: true}
}

// StrokeFrom builds a Stroke from a color string and width.
func StrokeFrom(s string, width float64) Stroke {
	c, err := ParseColor(s)
	if err != nil || c.Invisible() || width <= 0 {
		return Stroke{}
	}
	return Stroke{Color: c, Width: width, Enabled: true}
}
