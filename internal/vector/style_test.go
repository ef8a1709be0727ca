/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"errors"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"#ffffff":          White,
		"#000":             Black,
		"#ff000080":        {255, 0, 0, 128},
		"rgb(10, 20, 30)":  {10, 20, 30, 255},
		"rgba(10,20,30,0)": {10, 20, 30, 0},
		"transparent":      Transparent,
		"  Red ":           {255, 0, 0, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestParseColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "#12", "rgb(300,0,0)", "notacolor", "#gggggg"} {
		if _, err := ParseColor(in); !errors.Is(err, ErrInvalidColor) {
			t.Fatalf("ParseColor(%q) expected ErrInvalidColor, got %v", in, err)
		}
	}
}

func TestColorHexAndPaintHelpers(t *testing.T) {
	if got := (Color{31, 41, 55, 255}).Hex(); got != "#1f2937" {
		t.Fatalf("Hex() = %q", got)
	}
	if FillFrom("transparent").Enabled {
		t.Fatalf("transparent fill should be disabled")
	}
	if s := StrokeFrom("#1f2937", 2); !s.Enabled || s.Width != 2 {
		t.Fatalf("unexpected stroke: %+v", s)
	}
}
