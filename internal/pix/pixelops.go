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
)


//////////////////////////////////////////////////////////////////
// Complex, CPU-limited pixel operations. Parallelized across CPUs
//////////////////////////////////////////////////////////////////

// A row function. Processes rows [from, to) of an image. For parallelization across CPUs.
type RowFunction func(from, to int)

// Apply given row function to rows [lower, upper). Uses thread parallelism with at most
// the given number of goroutines. Row ranges handed to each call are disjoint.
func ApplyRowFunction(lower, upper, threads int, rf RowFunction) {
	rows:=upper-lower
	if rows<=0 { return }
	if threads<=1 || rows<16 {
		rf(lower, upper)
		return
	}

	// split into 8*threads work packages, limit parallelism to threads
	numBatches:=8*threads
	batchSize :=(rows+numBatches-1)/numBatches
	sem       :=make(chan bool, threads)
	for from:=lower; from<upper; from+=batchSize {
		to:=from+batchSize
		if to>upper { to=upper }

		sem <- true
		go func(from, to int) {
			rf(from, to)
			<-sem
		}(from, to)
	}

	for i:=0; i<cap(sem); i++ {  // wait for goroutines to finish
		sem <- true
	}
}

// Rounds half values towards positive infinity, so -2.5 becomes -2 and 2.5 becomes 3
func RoundHalfUp(x float64) float64 {
	return math.Floor(x+0.5)
}

// Clamps and rounds a value to the 8-bit sample range
func ClampToUint8(x float64) uint8 {
	if x<=0 || math.IsNaN(x) { return 0 }
	if x>=255 { return 255 }
	return uint8(RoundHalfUp(x))
}

// Clamps an integer parameter to [min, max]
func ClampInt(x, min, max int) int {
	if x<min { return min }
	if x>max { return max }
	return x
}


// Returns the linear tone curve for the given contrast and brightness as a 256-entry lookup table.
// Contrast and brightness are clamped to [-100,100], which keeps the contrast factor finite and positive.
func ToneCurve(contrast, brightness int) (lut [256]uint8) {
	contrast  =ClampInt(contrast,   -100, 100)
	brightness=ClampInt(brightness, -100, 100)

	factor:=(259.0*(float64(contrast)+255.0)) / (255.0*(259.0-float64(contrast)))
	offset:=float64(brightness)*2.55
	for v:=0; v<256; v++ {
		lut[v]=ClampToUint8(factor*(float64(v)-128.0) + 128.0 + offset)
	}
	return lut
}

// Applies a linear contrast and brightness transform to the red, green and blue channels.
// Alpha is untouched. A true no-op if contrast and brightness are both zero. Operates in-place.
func ApplyToneMap(b *Buffer, contrast, brightness int, threads int) {
	if contrast==0 && brightness==0 { return }
	lut:=ToneCurve(contrast, brightness)
	rowLen:=b.Width*Channels
	ApplyRowFunction(0, b.Height, threads, func(from, to int) {
		data:=b.Data[from*rowLen : to*rowLen]
		for i:=0; i<len(data); i+=Channels {
			data[i  ]=lut[data[i  ]]
			data[i+1]=lut[data[i+1]]
			data[i+2]=lut[data[i+2]]
		}
	})
}


// Returns the 3x3 sharpening kernel for the given amount in [0,100], in row-major order
func SharpenKernel(amount int) [9]float64 {
	strength:=float64(ClampInt(amount, 0, 100))/100.0
	return [9]float64{
		 0, -1,              0,
		-1,  5+2*strength,  -1,
		 0, -1,              0,
	}
}

// Applies a Laplacian sharpening convolution with center weight 5+2*amount/100 to the
// red, green and blue channels of all interior pixels. Reads from a snapshot of the buffer,
// so already written pixels do not affect their neighbours. The outermost ring is untouched.
// No-op if amount<=0 or the image is smaller than 3x3. Operates in-place.
func ApplySharpen(b *Buffer, amount int, pool *Pool, threads int) {
	if amount<=0 || b.Width<3 || b.Height<3 { return }
	center:=SharpenKernel(amount)[4]

	src:=pool.Snapshot(b)
	defer pool.Put(src)

	width, rowLen:=b.Width, b.Width*Channels
	ApplyRowFunction(1, b.Height-1, threads, func(from, to int) {
		for y:=from; y<to; y++ {
			for x:=1; x<width-1; x++ {
				o:=y*rowLen+x*Channels
				for c:=0; c<3; c++ {
					i:=o+c
					sum:=center*float64(src[i]) -
						float64(src[i-rowLen]) - float64(src[i+rowLen]) -
						float64(src[i-Channels]) - float64(src[i+Channels])
					b.Data[i]=ClampToUint8(sum)
				}
			}
		}
	})
}
