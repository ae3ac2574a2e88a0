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
	"bytes"
	"errors"
	"image/png"
	"testing"
	"github.com/mlnoga/inkprep/internal/pix"
	"github.com/mlnoga/inkprep/internal/stats"
)

func testContext() *Context {
	c:=NewContext(nil)
	c.Limit(4, 256)
	return c
}

func flatBuffer(t *testing.T, width, height int, value uint8) *pix.Buffer {
	b, err:=pix.NewBuffer(width, height)
	if err!=nil { t.Fatalf("NewBuffer: %v", err) }
	for i:=0; i<len(b.Data); i+=pix.Channels {
		b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3]=value, value, value, 255
	}
	return b
}

// Left half dark gray, right half light gray, like ink on dull paper
func lowContrastBuffer(t *testing.T) *pix.Buffer {
	b:=flatBuffer(t, 20, 20, 150)
	for y:=0; y<b.Height; y++ {
		for x:=0; x<b.Width/2; x++ {
			b.SetPixel(x, y, 100, 100, 100, 255)
		}
	}
	return b
}

func pngBytes(t *testing.T, b *pix.Buffer) []byte {
	var buf bytes.Buffer
	if err:=png.Encode(&buf, b.ToNRGBA()); err!=nil { t.Fatalf("png.Encode: %v", err) }
	return buf.Bytes()
}

func TestProcessBufferIdentity(t *testing.T) {
	p:=NewPipeline(testContext())
	b:=flatBuffer(t, 10, 10, 128)
	orig:=b.Clone()
	plan, err:=p.ProcessBuffer(0, b, Settings{}, true)
	if err!=nil { t.Fatalf("ProcessBuffer: %v", err) }
	if plan.Auto || plan.Stats!=nil {
		t.Errorf("plan %v with stats %v; want manual without stats", plan, plan.Stats)
	}
	if !bytes.Equal(b.Data, orig.Data) { t.Errorf("buffer changed by neutral settings") }
}

func TestProcessBufferAutoBoostsContrast(t *testing.T) {
	p:=NewPipeline(testContext())
	b:=lowContrastBuffer(t)
	before, _:=stats.Analyze(b, 1)
	if before.DynamicRange!=50 { t.Fatalf("input range %d; want 50", before.DynamicRange) }

	plan, err:=p.ProcessBuffer(1, b, DefaultSettings(), true)
	if err!=nil { t.Fatalf("ProcessBuffer: %v", err) }
	if !plan.Auto || plan.Contrast!=stats.MaxContrastBoost || plan.Brightness!=0 {
		t.Errorf("plan %v; want auto with contrast %d brightness 0", plan, stats.MaxContrastBoost)
	}
	if plan.Sharpness!=stats.BaselineSharpness || plan.NoiseReduction!=stats.BaselineNoiseReduction {
		t.Errorf("plan %v; want baseline sharpness and noise reduction", plan)
	}

	after, _:=stats.Analyze(b, 1)
	if after.DynamicRange<=before.DynamicRange {
		t.Errorf("output range %d; want above input range %d", after.DynamicRange, before.DynamicRange)
	}
}

func TestProcessBufferWithoutAutoSkipsAnalysis(t *testing.T) {
	p:=NewPipeline(testContext())
	b:=lowContrastBuffer(t)
	plan, err:=p.ProcessBuffer(2, b, DefaultSettings(), false)
	if err!=nil { t.Fatalf("ProcessBuffer: %v", err) }
	if plan.Auto || plan.Stats!=nil || plan.Contrast!=0 {
		t.Errorf("plan %v; want literal settings", plan)
	}
}

func TestPreprocessRoundTrip(t *testing.T) {
	p:=NewPipeline(testContext())
	out, plan, err:=p.Preprocess(3, pngBytes(t, lowContrastBuffer(t)), DefaultSettings())
	if err!=nil { t.Fatalf("Preprocess: %v", err) }
	if plan==nil || !plan.Auto { t.Errorf("plan %v; want auto", plan) }
	b, format, err:=pix.Decode(out, pix.DecodeOptions{})
	if err!=nil { t.Fatalf("decoding output: %v", err) }
	if format!="jpeg" || b.Width!=20 || b.Height!=20 {
		t.Errorf("output %s %s; want 20x20 jpeg", b.DimensionsToString(), format)
	}
}

func TestPreprocessDecodeError(t *testing.T) {
	p:=NewPipeline(testContext())
	out, plan, err:=p.Preprocess(4, []byte("not an image"), DefaultSettings())
	if !errors.Is(err, pix.ErrDecode) { t.Errorf("err=%v; want ErrDecode", err) }
	if out!=nil || plan!=nil { t.Errorf("partial output on error") }
}

func TestPreprocessSurfaceLimit(t *testing.T) {
	c:=testContext()
	c.MaxPixels=399
	_, _, err:=NewPipeline(c).Preprocess(5, pngBytes(t, lowContrastBuffer(t)), DefaultSettings())
	if !errors.Is(err, pix.ErrSurface) { t.Errorf("err=%v; want ErrSurface", err) }
}

func TestStrictRejectsOutOfRange(t *testing.T) {
	data:=pngBytes(t, flatBuffer(t, 4, 4, 128))
	s:=Settings{Contrast: 150}

	c:=testContext()
	if _, _, err:=NewPipeline(c).Preprocess(6, data, s); err!=nil {
		t.Errorf("lenient err=%v; want nil", err)
	}
	c.Strict=true
	if _, _, err:=NewPipeline(c).Preprocess(6, data, s); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("strict err=%v; want ErrInvalidSettings", err)
	}
	if _, _, err:=NewPipeline(c).Preview(6, data, s, 0); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("strict preview err=%v; want ErrInvalidSettings", err)
	}
}

func TestPreviewDownsamplesWithoutAnalysis(t *testing.T) {
	p:=NewPipeline(testContext())
	out, plan, err:=p.Preview(7, pngBytes(t, flatBuffer(t, 200, 100, 90)), DefaultSettings(), 50)
	if err!=nil { t.Fatalf("Preview: %v", err) }
	if plan.Auto || plan.Stats!=nil { t.Errorf("preview plan %v; want manual", plan) }
	b, _, err:=pix.Decode(out, pix.DecodeOptions{})
	if err!=nil { t.Fatalf("decoding preview: %v", err) }
	if b.Width!=50 || b.Height!=25 { t.Errorf("preview %s; want 50x25", b.DimensionsToString()) }
}

func TestStatsReport(t *testing.T) {
	p:=NewPipeline(testContext())
	r, err:=p.Stats(8, pngBytes(t, lowContrastBuffer(t)))
	if err!=nil { t.Fatalf("Stats: %v", err) }
	if r.Format!="png" || r.Width!=20 || r.Height!=20 { t.Errorf("report %s %dx%d", r.Format, r.Width, r.Height) }
	if r.Stats.DynamicRange!=50 || r.Suggestion.ContrastBoost!=stats.MaxContrastBoost {
		t.Errorf("stats %v suggestion %v", r.Stats, r.Suggestion)
	}
	if r.Color==nil || r.Color.Tinted { t.Errorf("color %v; want neutral", r.Color) }
}

func TestProcessBufferClampsButKeepsNoOps(t *testing.T) {
	p:=NewPipeline(testContext())
	s:=Settings{Contrast: 500, Sharpness: -1, NoiseReduction: 250, AutoEnhance: true}
	plan, err:=p.ProcessBuffer(9, lowContrastBuffer(t), s, true)
	if err!=nil { t.Fatalf("ProcessBuffer: %v", err) }
	if plan.Contrast!=MaxTone || plan.NoiseReduction!=MaxAmount {
		t.Errorf("plan %v; want contrast %d noise reduction %d", plan, MaxTone, MaxAmount)
	}
	// a negative caller amount is non-zero, so the suggestion must not replace it
	if plan.Sharpness!=-1 { t.Errorf("plan sharpness %d; want -1", plan.Sharpness) }
}
