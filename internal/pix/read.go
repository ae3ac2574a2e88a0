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
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options for decoding
type DecodeOptions struct {
	AutoOrient bool  // apply EXIF orientation, as recorded by phone cameras
	MaxPixels  int   // reject images with more pixels than this with ErrSurface. 0=unlimited
}

// Decodes an encoded JPEG, PNG, GIF, TIFF or WebP image into a new pixel buffer.
// Returns the buffer and the name of the detected format.
func Decode(data []byte, opts DecodeOptions) (b *Buffer, format string, err error) {
	if len(data)==0 { return nil, "", fmt.Errorf("%w: no input data", ErrDecode) }

	// check dimensions before allocating anything
	cfg, format, err:=image.DecodeConfig(bytes.NewReader(data))
	if err!=nil { return nil, "", fmt.Errorf("%w: %s", ErrDecode, err.Error()) }
	if cfg.Width<=0 || cfg.Height<=0 {
		return nil, format, fmt.Errorf("%w: %w: %dx%d pixels", ErrDecode, ErrEmpty, cfg.Width, cfg.Height)
	}
	if opts.MaxPixels>0 && int64(cfg.Width)*int64(cfg.Height)>int64(opts.MaxPixels) {
		return nil, format, fmt.Errorf("%w: %dx%d pixels exceed limit of %d", ErrSurface, cfg.Width, cfg.Height, opts.MaxPixels)
	}

	img, err:=imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(opts.AutoOrient))
	if err!=nil { return nil, format, fmt.Errorf("%w: %s", ErrDecode, err.Error()) }

	if b, err=NewBufferFromImage(img); err!=nil { return nil, format, fmt.Errorf("%w: %s", ErrSurface, err.Error()) }
	return b, format, nil
}

// Reads and decodes the image file with the given name
func ReadFile(fileName string, opts DecodeOptions) (b *Buffer, format string, err error) {
	data, err:=os.ReadFile(fileName)
	if err!=nil { return nil, "", err }
	return Decode(data, opts)
}

// Returns the dimensions of an encoded image without decoding its pixels
func DecodeDimensions(data []byte) (width, height int, err error) {
	cfg, _, err:=image.DecodeConfig(bytes.NewReader(data))
	if err!=nil { return 0, 0, fmt.Errorf("%w: %s", ErrDecode, err.Error()) }
	return cfg.Width, cfg.Height, nil
}
