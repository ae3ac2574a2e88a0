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
	"github.com/mlnoga/inkprep/internal/median"
	"github.com/mlnoga/inkprep/internal/pix"
)

// An in-place image processing stage
type Operator interface {
	GetType() string
	IsActive() bool
	Apply(b *pix.Buffer, id int, c *Context) error
}

// Base type for operators, including type information for JSON serializing
type OpBase struct {
	Type        string `json:"type"`
	Active      bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool { return op.Active }


// Contrast and brightness adjustment via a per-channel lookup table
type OpToneMap struct {
	OpBase
	Contrast    int  `json:"contrast"`
	Brightness  int  `json:"brightness"`
}

func NewOpToneMap(contrast, brightness int) *OpToneMap {
	return &OpToneMap{
		OpBase     : OpBase{Type: "toneMap", Active: contrast!=0 || brightness!=0},
		Contrast   : contrast,
		Brightness : brightness,
	}
}

func (op *OpToneMap) Apply(b *pix.Buffer, id int, c *Context) error {
	if !op.Active { return nil }
	fmt.Fprintf(c.Log, "%d: Tone mapping with contrast %d brightness %d\n", id, op.Contrast, op.Brightness)
	pix.ApplyToneMap(b, op.Contrast, op.Brightness, c.MaxThreads)
	return nil
}


// Iterated 3x3 median filter
type OpNoiseReduce struct {
	OpBase
	Amount      int  `json:"amount"`
}

func NewOpNoiseReduce(amount int) *OpNoiseReduce {
	return &OpNoiseReduce{
		OpBase : OpBase{Type: "noiseReduce", Active: amount>0},
		Amount : amount,
	}
}

func (op *OpNoiseReduce) Apply(b *pix.Buffer, id int, c *Context) error {
	if !op.Active { return nil }
	fmt.Fprintf(c.Log, "%d: Reducing noise with amount %d in %d median passes\n", id, op.Amount, median.Passes(op.Amount))
	median.ApplyMedianFilter(b, op.Amount, c.Pool, c.MaxThreads)
	return nil
}


// 3x3 edge enhancement
type OpSharpen struct {
	OpBase
	Amount      int  `json:"amount"`
}

func NewOpSharpen(amount int) *OpSharpen {
	return &OpSharpen{
		OpBase : OpBase{Type: "sharpen", Active: amount>0},
		Amount : amount,
	}
}

func (op *OpSharpen) Apply(b *pix.Buffer, id int, c *Context) error {
	if !op.Active { return nil }
	fmt.Fprintf(c.Log, "%d: Sharpening with amount %d\n", id, op.Amount)
	pix.ApplySharpen(b, op.Amount, c.Pool, c.MaxThreads)
	return nil
}


// Applies a sequence of operators to a buffer, in order
type OpSequence struct {
	OpBase
	Steps       []Operator        `json:"steps"`
}

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase : OpBase{Type: "seq", Active: len(steps)>0},
		Steps  : steps,
	}
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	op.Steps=append(op.Steps, steps...)
	op.Active=len(op.Steps)>0
}

// Applies the active steps in order. Stops at the first error
func (op *OpSequence) Apply(b *pix.Buffer, id int, c *Context) error {
	if !op.Active { return nil }
	for i, step:=range op.Steps {
		if !step.IsActive() { continue }
		if err:=step.Apply(b, id, c); err!=nil {
			return fmt.Errorf("%d: step %d (%s): %w", id, i, step.GetType(), err)
		}
	}
	return nil
}
