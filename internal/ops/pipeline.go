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
	"github.com/mlnoga/inkprep/internal/pix"
	"github.com/mlnoga/inkprep/internal/stats"
)

// Decodes, enhances and re-encodes images within an execution context
type Pipeline struct {
	c *Context
}

func NewPipeline(c *Context) *Pipeline {
	if c==nil { c=NewContext(nil) }
	return &Pipeline{c: c}
}

func (p *Pipeline) Context() *Context { return p.c }

// Analysis results for one encoded image
type Report struct {
	Format      string             `json:"format"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Stats      *stats.Stats        `json:"stats"`
	Suggestion  stats.Suggestion   `json:"suggestion"`
	Color      *stats.ColorCast    `json:"color"`
}

// Enhances an encoded image at full resolution and returns it as JPEG, along
// with the resolved plan. Analyzes the image first if s.AutoEnhance is set
func (p *Pipeline) Preprocess(id int, data []byte, s Settings) (out []byte, plan *Plan, err error) {
	if err=p.checkSettings(id, s); err!=nil { return nil, nil, err }
	b, err:=p.decode(id, data)
	if err!=nil { return nil, nil, err }
	if plan, err=p.ProcessBuffer(id, b, s, true); err!=nil { return nil, nil, err }
	if out, err=p.encode(id, b, p.c.JPEGQuality); err!=nil { return nil, nil, err }
	return out, plan, nil
}

// Enhances a downsampled copy of an encoded image with max(width,height)<=maxDim
// and returns it as JPEG. Settings are applied literally, without analysis.
// maxDim<=0 keeps the original size
func (p *Pipeline) Preview(id int, data []byte, s Settings, maxDim int) (out []byte, plan *Plan, err error) {
	if err=p.checkSettings(id, s); err!=nil { return nil, nil, err }
	b, err:=p.decode(id, data)
	if err!=nil { return nil, nil, err }
	small, err:=b.Downsample(maxDim)
	if err!=nil { return nil, nil, fmt.Errorf("%d: %w: %s", id, pix.ErrSurface, err.Error()) }
	if small!=b {
		fmt.Fprintf(p.c.Log, "%d: Downsampled from %s to %s pixels\n", id, b.DimensionsToString(), small.DimensionsToString())
	}
	if plan, err=p.ProcessBuffer(id, small, s, false); err!=nil { return nil, nil, err }
	if out, err=p.encode(id, small, p.c.PreviewQuality); err!=nil { return nil, nil, err }
	return out, plan, nil
}

// Runs the enhancement stages on a buffer in place and returns the plan used.
// The analyzer only runs if auto is true and s.AutoEnhance is set
func (p *Pipeline) ProcessBuffer(id int, b *pix.Buffer, s Settings, auto bool) (*Plan, error) {
	if err:=b.Validate(); err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }

	var st *stats.Stats
	if auto && s.AutoEnhance {
		var err error
		if st, err=stats.Analyze(b, p.c.MaxThreads); err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }
		fmt.Fprintf(p.c.Log, "%d: Analyzed %v\n", id, st)
	} else {
		s.AutoEnhance=false
	}

	if clamped:=s.Clamped(); clamped!=s {
		fmt.Fprintf(p.c.Log, "%d: Clamping settings %v to %v\n", id, s, clamped)
		s=clamped
	}
	plan:=Resolve(s, st)
	fmt.Fprintf(p.c.Log, "%d: Using %v\n", id, &plan)
	if err:=NewOpSequence(plan.Operators()...).Apply(b, id, p.c); err!=nil { return nil, err }
	return &plan, nil
}

// Decodes an encoded image and returns its statistics, enhancement suggestion and mean color
func (p *Pipeline) Stats(id int, data []byte) (*Report, error) {
	b, format, err:=pix.Decode(data, p.c.DecodeOptions())
	if err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }
	st, err:=stats.Analyze(b, p.c.MaxThreads)
	if err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }
	col, err:=stats.MeanColor(b)
	if err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }
	r:=&Report{
		Format     : format,
		Width      : b.Width,
		Height     : b.Height,
		Stats      : st,
		Suggestion : stats.Suggest(st),
		Color      : col,
	}
	fmt.Fprintf(p.c.Log, "%d: %s pixel %s image with %v, %v\n", id, b.DimensionsToString(), format, st, col)
	return r, nil
}

func (p *Pipeline) checkSettings(id int, s Settings) error {
	if !p.c.Strict { return nil }
	if err:=s.Validate(); err!=nil { return fmt.Errorf("%d: %w", id, err) }
	return nil
}

func (p *Pipeline) decode(id int, data []byte) (*pix.Buffer, error) {
	b, format, err:=pix.Decode(data, p.c.DecodeOptions())
	if err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }
	fmt.Fprintf(p.c.Log, "%d: Decoded %s pixel %s image\n", id, b.DimensionsToString(), format)
	return b, nil
}

func (p *Pipeline) encode(id int, b *pix.Buffer, quality int) ([]byte, error) {
	out, err:=b.EncodeJPG(quality)
	if err!=nil { return nil, fmt.Errorf("%d: %w", id, err) }
	fmt.Fprintf(p.c.Log, "%d: Encoded %s pixel JPEG of %d bytes at quality %d\n", id, b.DimensionsToString(), len(out), quality)
	return out, nil
}
