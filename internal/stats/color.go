// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package stats

import (
	"fmt"
	"github.com/mlnoga/inkprep/internal/pix"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Chroma above which the mean color counts as a visible tint, e.g. yellow paper or tungsten light
const CastChromaThreshold = 0.05

// Mean color of an image
type ColorCast struct {
	Color  colorful.Color `json:"-"`
	Hex    string         `json:"hex"`
	Hue    float64        `json:"hue"`     // HCL hue in degrees
	Chroma float64        `json:"chroma"`  // HCL chroma, 0 for neutral gray
	Tinted bool           `json:"tinted"`
}

// Calculates the mean sRGB color of the buffer and its HCL hue and chroma
func MeanColor(b *pix.Buffer) (*ColorCast, error) {
	if err:=b.Validate(); err!=nil { return nil, err }
	var sumR, sumG, sumB int64
	for i:=0; i<len(b.Data); i+=pix.Channels {
		sumR+=int64(b.Data[i  ])
		sumG+=int64(b.Data[i+1])
		sumB+=int64(b.Data[i+2])
	}
	n:=float64(b.Pixels())*255
	col:=colorful.Color{R: float64(sumR)/n, G: float64(sumG)/n, B: float64(sumB)/n}
	h, c, _:=col.Hcl()
	return &ColorCast{
		Color : col,
		Hex   : col.Hex(),
		Hue   : h,
		Chroma: c,
		Tinted: c>CastChromaThreshold,
	}, nil
}

func (c *ColorCast) String() string {
	tint:="neutral"
	if c.Tinted { tint="tinted" }
	return fmt.Sprintf("mean color %s hue %.0f chroma %.3f (%s)", c.Hex, c.Hue, c.Chroma, tint)
}
