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
	"errors"
	"fmt"
	"image"
	"golang.org/x/image/draw"
)

// Number of interleaved channels per pixel: red, green, blue, alpha
const Channels = 4

var (
	ErrDecode  = errors.New("decode error")   // input bytes are not a valid or supported image
	ErrSurface = errors.New("surface error")  // no writable pixel buffer obtainable
	ErrEncode  = errors.New("encode error")   // buffer cannot be serialized to the target format
	ErrEmpty   = errors.New("empty image")    // image has zero pixels
)

// A rectangular grid of interleaved 8-bit RGBA samples.
// Each pipeline run owns exactly one buffer, buffers are never shared between runs.
type Buffer struct {
	Width  int
	Height int
	Data   []uint8  // len(Data)==Width*Height*Channels
}

// Creates a zeroed buffer of given dimensions
func NewBuffer(width, height int) (*Buffer, error) {
	if width<=0 || height<=0 { return nil, ErrEmpty }
	n:=width*height*Channels
	if n/Channels/width!=height {
		return nil, fmt.Errorf("%w: %dx%d pixels overflow", ErrSurface, width, height)
	}
	return &Buffer{Width: width, Height: height, Data: make([]uint8, n)}, nil
}

// Creates a buffer holding a copy of the given image, converted to non-premultiplied RGBA if necessary
func NewBufferFromImage(img image.Image) (*Buffer, error) {
	bounds:=img.Bounds()
	b, err:=NewBuffer(bounds.Dx(), bounds.Dy())
	if err!=nil { return nil, err }

	// fast path for images which are already in our memory layout
	if nrgba, ok:=img.(*image.NRGBA); ok {
		for y:=0; y<b.Height; y++ {
			o:=nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(b.Data[y*b.Width*Channels:(y+1)*b.Width*Channels], nrgba.Pix[o:o+b.Width*Channels])
		}
		return b, nil
	}

	dst:=&image.NRGBA{Pix: b.Data, Stride: b.Width*Channels, Rect: image.Rect(0, 0, b.Width, b.Height)}
	draw.Draw(dst, dst.Rect, img, bounds.Min, draw.Src)
	return b, nil
}

// Returns a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	return &Buffer{Width: b.Width, Height: b.Height, Data: append([]uint8(nil), b.Data...)}
}

// Copies pixel data from another buffer of identical dimensions
func (b *Buffer) CopyFrom(other *Buffer) error {
	if b.Width!=other.Width || b.Height!=other.Height {
		return fmt.Errorf("%w: cannot copy %s into %s", ErrSurface, other.DimensionsToString(), b.DimensionsToString())
	}
	copy(b.Data, other.Data)
	return nil
}

// Checks the buffer invariants
func (b *Buffer) Validate() error {
	if b==nil || b.Width<=0 || b.Height<=0 { return ErrEmpty }
	if len(b.Data)!=b.Width*b.Height*Channels {
		return fmt.Errorf("%w: %s buffer has %d samples, want %d", ErrSurface, b.DimensionsToString(), len(b.Data), b.Width*b.Height*Channels)
	}
	return nil
}

// Returns the number of pixels
func (b *Buffer) Pixels() int { return b.Width*b.Height }

// Returns the red, green, blue and alpha samples at the given position
func (b *Buffer) Pixel(x, y int) (r, g, bl, a uint8) {
	o:=(y*b.Width+x)*Channels
	return b.Data[o], b.Data[o+1], b.Data[o+2], b.Data[o+3]
}

// Sets the samples at the given position
func (b *Buffer) SetPixel(x, y int, r, g, bl, a uint8) {
	o:=(y*b.Width+x)*Channels
	b.Data[o], b.Data[o+1], b.Data[o+2], b.Data[o+3] = r, g, bl, a
}

// Returns a view of the buffer as a Golang image. Shares the pixel data
func (b *Buffer) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: b.Data, Stride: b.Width*Channels, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Returns a string with the image dimensions
func (b *Buffer) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}
