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
	"os"
	"path/filepath"
	"testing"
	"github.com/valyala/fastrand"
)

func TestSettingsJSONDefaults(t *testing.T) {
	var s Settings
	if err:=json.Unmarshal([]byte(`{"contrast":10,"noiseReduction":20}`), &s); err!=nil { t.Fatalf("Unmarshal: %v", err) }
	want:=Settings{Contrast: 10, NoiseReduction: 20, AutoEnhance: true}
	if s!=want { t.Errorf("got %v; want %v", s, want) }

	if err:=json.Unmarshal([]byte(`{"autoEnhance":false}`), &s); err!=nil { t.Fatalf("Unmarshal: %v", err) }
	if s!=(Settings{}) { t.Errorf("got %v; want all zero", s) }
}

func TestSettingsClampedInRange(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=0; i<1000; i++ {
		s:=Settings{
			Contrast      : int(rng.Uint32n(1001))-500,
			Brightness    : int(rng.Uint32n(1001))-500,
			Sharpness     : int(rng.Uint32n(1001))-500,
			NoiseReduction: int(rng.Uint32n(1001))-500,
		}
		c:=s.Clamped()
		if err:=c.Validate(); err!=nil { t.Fatalf("%v clamped to %v: %v", s, c, err) }
		if s.Validate()==nil && c!=s { t.Errorf("valid %v changed to %v", s, c) }
	}
}

func TestSettingsValidate(t *testing.T) {
	tcs:=[]struct {
		S     Settings
		Valid bool
	}{
		{Settings{}, true},
		{Settings{Contrast: -100, Brightness: 100, Sharpness: 100, NoiseReduction: 100}, true},
		{Settings{Sharpness: -5, NoiseReduction: -1}, true},
		{Settings{Contrast: 101}, false},
		{Settings{Brightness: -101}, false},
		{Settings{Sharpness: 101}, false},
		{Settings{NoiseReduction: 1000}, false},
	}
	for _, tc:=range tcs {
		err:=tc.S.Validate()
		if tc.Valid && err!=nil { t.Errorf("%v: err=%v; want nil", tc.S, err) }
		if !tc.Valid && !errors.Is(err, ErrInvalidSettings) { t.Errorf("%v: err=%v; want ErrInvalidSettings", tc.S, err) }
	}
}

func TestReadSettingsFile(t *testing.T) {
	dir:=t.TempDir()
	fileName:=filepath.Join(dir, "settings.json")
	if err:=os.WriteFile(fileName, []byte(`{"sharpness":40}`), 0644); err!=nil { t.Fatal(err) }
	s, err:=ReadSettingsFile(fileName)
	if err!=nil { t.Fatalf("ReadSettingsFile: %v", err) }
	if s.Sharpness!=40 || !s.AutoEnhance { t.Errorf("got %v; want sharpness 40 with auto", s) }

	if err:=os.WriteFile(fileName, []byte(`{"sharpness":`), 0644); err!=nil { t.Fatal(err) }
	if _, err=ReadSettingsFile(fileName); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("truncated file err=%v; want ErrInvalidSettings", err)
	}
}

func TestSettingsClampedKeepsNegativeAmounts(t *testing.T) {
	s:=Settings{Contrast: 300, Brightness: -300, Sharpness: -1, NoiseReduction: -40, AutoEnhance: true}
	want:=Settings{Contrast: 100, Brightness: -100, Sharpness: -1, NoiseReduction: -40, AutoEnhance: true}
	if got:=s.Clamped(); got!=want { t.Errorf("Clamped()=%v; want %v", got, want) }

	s=Settings{Sharpness: 101, NoiseReduction: 1000}
	if got:=s.Clamped(); got.Sharpness!=MaxAmount || got.NoiseReduction!=MaxAmount {
		t.Errorf("Clamped()=%v; want amounts at %d", got, MaxAmount)
	}
}
