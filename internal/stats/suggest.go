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
)

// Tuning of the automatic enhancement
const (
	TargetDynamicRange = 180  // images with a narrower 5..95% range get a contrast boost
	MaxContrastBoost   = 50
	DarkThreshold      = 110  // average brightness below this gets brightened
	BrightThreshold    = 180  // average brightness above this gets darkened
	MidGray            = 128
	MaxBrighten        = 30
	MaxDarken          = -20

	// Fixed baseline tuned for handwriting legibility, not derived from the histogram
	BaselineSharpness      = 25
	BaselineNoiseReduction = 15
)

// Enhancement parameters suggested from image statistics
type Suggestion struct {
	ContrastBoost    int `json:"contrastBoost"`
	BrightnessAdjust int `json:"brightnessAdjust"`
	Sharpness        int `json:"sharpness"`
	NoiseReduction   int `json:"noiseReduction"`
}

// Derives suggested enhancement parameters from the given statistics
func Suggest(s *Stats) Suggestion {
	res:=Suggestion{Sharpness: BaselineSharpness, NoiseReduction: BaselineNoiseReduction}

	if s.DynamicRange<TargetDynamicRange {
		boost:=int(pix.RoundHalfUp(float64(TargetDynamicRange-s.DynamicRange)/2))
		if boost>MaxContrastBoost { boost=MaxContrastBoost }
		res.ContrastBoost=boost
	}

	if s.AverageBrightness<DarkThreshold {
		adj:=int(pix.RoundHalfUp((MidGray-s.AverageBrightness)/3))
		if adj>MaxBrighten { adj=MaxBrighten }
		res.BrightnessAdjust=adj
	} else if s.AverageBrightness>BrightThreshold {
		adj:=int(pix.RoundHalfUp((MidGray-s.AverageBrightness)/4))
		if adj<MaxDarken { adj=MaxDarken }
		res.BrightnessAdjust=adj
	}
	return res
}

func (s Suggestion) String() string {
	return fmt.Sprintf("contrast +%d brightness %+d sharpness %d noise reduction %d",
		s.ContrastBoost, s.BrightnessAdjust, s.Sharpness, s.NoiseReduction)
}
