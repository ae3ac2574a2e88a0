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


package ops

import (
	"fmt"
	"github.com/mlnoga/inkprep/internal/stats"
)

// Effective parameters for one image, resolved from caller settings and
// optional image statistics
type Plan struct {
	Contrast        int                `json:"contrast"`
	Brightness      int                `json:"brightness"`
	Sharpness       int                `json:"sharpness"`
	NoiseReduction  int                `json:"noiseReduction"`
	Auto            bool               `json:"auto"`
	Stats          *stats.Stats        `json:"stats,omitempty"`
	Suggestion     *stats.Suggestion   `json:"suggestion,omitempty"`
}

// Merges caller settings with suggestions derived from the statistics.
// Contrast takes the larger of both, the other fields take the caller value
// if non-zero and the suggestion otherwise. Without auto enhancement or
// statistics, the plan holds the caller settings unchanged. Values are
// clamped to their nominal ranges when applied to pixels
func Resolve(caller Settings, st *stats.Stats) Plan {
	p:=Plan{
		Contrast       : caller.Contrast,
		Brightness     : caller.Brightness,
		Sharpness      : caller.Sharpness,
		NoiseReduction : caller.NoiseReduction,
	}
	if !caller.AutoEnhance || st==nil { return p }

	sug:=stats.Suggest(st)
	p.Auto, p.Stats, p.Suggestion=true, st, &sug
	if sug.ContrastBoost>p.Contrast { p.Contrast=sug.ContrastBoost }
	if p.Brightness    ==0 { p.Brightness    =sug.BrightnessAdjust }
	if p.Sharpness     ==0 { p.Sharpness     =sug.Sharpness }
	if p.NoiseReduction==0 { p.NoiseReduction=sug.NoiseReduction }
	return p
}

// Returns the fixed stage sequence tone map, noise reduction, sharpening
func (p *Plan) Operators() []Operator {
	return []Operator{
		NewOpToneMap(p.Contrast, p.Brightness),
		NewOpNoiseReduce(p.NoiseReduction),
		NewOpSharpen(p.Sharpness),
	}
}

func (p *Plan) String() string {
	auto:="manual"
	if p.Auto { auto="auto" }
	return fmt.Sprintf("%s plan contrast %d brightness %d sharpness %d noise reduction %d",
		auto, p.Contrast, p.Brightness, p.Sharpness, p.NoiseReduction)
}
