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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"github.com/mlnoga/inkprep/internal/pix"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Nominal setting ranges
const (
	MinTone   = -100
	MaxTone   =  100
	MaxAmount =  100
)

// Caller-supplied enhancement settings
type Settings struct {
	Contrast       int   `json:"contrast"`        // -100..100
	Brightness     int   `json:"brightness"`      // -100..100
	Sharpness      int   `json:"sharpness"`       // 0..100, <=0 is a no-op
	NoiseReduction int   `json:"noiseReduction"`  // 0..100, <=0 is a no-op
	AutoEnhance    bool  `json:"autoEnhance"`
}

func DefaultSettings() Settings {
	return Settings{AutoEnhance: true}
}

// Unmarshals settings from JSON, filling missing fields with defaults
func (s *Settings) UnmarshalJSON(data []byte) error {
	type defaults Settings
	def:=defaults(DefaultSettings())
	if err:=json.Unmarshal(data, &def); err!=nil { return err }
	*s=Settings(def)
	return nil
}

// Returns a copy with all fields clamped to their nominal ranges. Negative
// sharpness and noise reduction stay unchanged, as they are valid no-ops
func (s Settings) Clamped() Settings {
	s.Contrast  =pix.ClampInt(s.Contrast,   MinTone, MaxTone)
	s.Brightness=pix.ClampInt(s.Brightness, MinTone, MaxTone)
	if s.Sharpness     >MaxAmount { s.Sharpness     =MaxAmount }
	if s.NoiseReduction>MaxAmount { s.NoiseReduction=MaxAmount }
	return s
}

// Reports all out-of-range fields. Negative sharpness and noise reduction
// are valid and mean no-op
func (s Settings) Validate() error {
	var bad []string
	if s.Contrast<MinTone || s.Contrast>MaxTone {
		bad=append(bad, fmt.Sprintf("contrast %d", s.Contrast))
	}
	if s.Brightness<MinTone || s.Brightness>MaxTone {
		bad=append(bad, fmt.Sprintf("brightness %d", s.Brightness))
	}
	if s.Sharpness>MaxAmount {
		bad=append(bad, fmt.Sprintf("sharpness %d", s.Sharpness))
	}
	if s.NoiseReduction>MaxAmount {
		bad=append(bad, fmt.Sprintf("noise reduction %d", s.NoiseReduction))
	}
	if len(bad)>0 {
		return fmt.Errorf("%w: %s out of range", ErrInvalidSettings, strings.Join(bad, ", "))
	}
	return nil
}

func (s Settings) String() string {
	return fmt.Sprintf("contrast %d brightness %d sharpness %d noise reduction %d auto %v",
		s.Contrast, s.Brightness, s.Sharpness, s.NoiseReduction, s.AutoEnhance)
}

// Reads settings from a JSON file. Missing fields take their defaults
func ReadSettingsFile(fileName string) (s Settings, err error) {
	data, err:=os.ReadFile(fileName)
	if err!=nil { return s, err }
	if err=json.Unmarshal(data, &s); err!=nil {
		return s, fmt.Errorf("%w: %s: %s", ErrInvalidSettings, fileName, err.Error())
	}
	return s, nil
}
