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


package pix

import (
	"math"
	"golang.org/x/image/draw"
)

// Returns the dimensions after scaling width and height down so that neither exceeds maxDim,
// preserving the aspect ratio. Never scales up. maxDim<=0 means no limit
func FitDimensions(width, height, maxDim int) (w, h int) {
	longest:=width
	if height>longest { longest=height }
	if maxDim<=0 || longest<=maxDim { return width, height }

	scale:=float64(maxDim)/float64(longest)
	w=int(RoundHalfUp(float64(width)*scale))
	h=int(RoundHalfUp(float64(height)*scale))
	if w<1 { w=1 }
	if h<1 { h=1 }
	if w>maxDim { w=maxDim }
	if h>maxDim { h=maxDim }
	return w, h
}

// Returns a downsampled copy of the buffer with max(width,height)<=maxDim, using Catmull-Rom
// resampling. Returns the buffer itself if it is already small enough
func (b *Buffer) Downsample(maxDim int) (*Buffer, error) {
	w, h:=FitDimensions(b.Width, b.Height, maxDim)
	if w==b.Width && h==b.Height { return b, nil }

	res, err:=NewBuffer(w, h)
	if err!=nil { return nil, err }
	dst:=res.ToNRGBA()
	src:=b.ToNRGBA()
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return res, nil
}

// Returns the memory needed for a buffer of given dimensions, in MB, rounded up
func EstimateMB(width, height int) int {
	return int(math.Ceil(float64(width)*float64(height)*Channels/1024/1024))
}
