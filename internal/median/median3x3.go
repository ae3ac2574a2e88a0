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


package median

import (
	"github.com/mlnoga/inkprep/internal/pix"
)

// Amount of noise reduction covered by a single median pass
const AmountPerPass = 30

// Returns the number of 3x3 median passes for the given noise reduction amount in [0,100]:
// 1-30 gives one pass, 31-60 two, 61-90 three and 91-100 four. Zero for amount<=0
func Passes(amount int) int {
	if amount<=0 { return 0 }
	amount=pix.ClampInt(amount, 0, 100)
	return (amount+AmountPerPass-1)/AmountPerPass
}

// Applies an iterative 3x3 median filter to the red, green and blue channels of the buffer.
// Each pass reads from a snapshot of the previous pass's output. The outermost ring of pixels
// is never written. No-op if amount<=0 or the image is smaller than 3x3. Operates in-place.
func ApplyMedianFilter(b *pix.Buffer, amount int, pool *pix.Pool, threads int) {
	passes:=Passes(amount)
	if passes==0 || b.Width<3 || b.Height<3 { return }

	src:=pool.Get(len(b.Data))
	defer pool.Put(src)
	for i:=0; i<passes; i++ {
		copy(src, b.Data)
		MedianFilter3x3(b.Data, src, b.Width, b.Height, threads)
	}
}

// Applies 3x3 median filter to interleaved RGBA input data with given width and height, and stores
// results in output. Does not touch the outermost rows and columns of the output, nor the alpha channel.
// Output and data must not overlap
func MedianFilter3x3(output, data []uint8, width, height int, threads int) {
	rowLen:=width*pix.Channels
	pix.ApplyRowFunction(1, height-1, threads, func(from, to int) {
		var gathered [9]uint8
		for line:=from; line<to; line++ {
			start, end:=(line-1)*rowLen, (line+2)*rowLen
			MedianFilterLine3x3(output[start:end], data[start:end], width, &gathered)
		}
	})
}

// Input data is three lines of given width in pixels. Applies a 3x3 median filter to these.
// Stores results in the middle row of the output, which must have the same shape as the input.
// Does not touch first and last column
func MedianFilterLine3x3(output, data []uint8, width int, gathered *[9]uint8) {
	rowLen:=width*pix.Channels
	for x:=1; x<width-1; x++ {
		for c:=0; c<3; c++ {
			i:=rowLen+x*pix.Channels+c
			up, down:=i-rowLen, i+rowLen
			gathered[0]=data[up-pix.Channels]
			gathered[1]=data[up]
			gathered[2]=data[up+pix.Channels]
			gathered[3]=data[i-pix.Channels]
			gathered[4]=data[i]
			gathered[5]=data[i+pix.Channels]
			gathered[6]=data[down-pix.Channels]
			gathered[7]=data[down]
			gathered[8]=data[down+pix.Channels]
			output[i]=MedianUint8Slice9(gathered)
		}
	}
}


// Calculates the median of nine values, i.e. the 5th of the nine sorted values.
// Modifies the elements in place
// From https://stackoverflow.com/questions/45453537/optimal-9-element-sorting-network-that-reduces-to-an-optimal-median-of-9-network
// See also http://ndevilla.free.fr/median/median/src/optmed.c for other sizes
func MedianUint8Slice9(a *[9]uint8) uint8 {       // 19 compare-exchanges
    // function swap(i,j) {var tmp = MIN(a[i],a[j]); a[j] = MAX(a[i],a[j]); a[i] = tmp;}
    // function min(i,j) {a[i] = MIN(a[i],a[j]);}
    // function max(i,j) {a[j] = MAX(a[i],a[j]);}

    if a[0]>a[1] { a[0], a[1] = a[1], a[0]}  // swap(a,0,1)
    if a[3]>a[4] { a[3], a[4] = a[4], a[3]}  // swap(a,3,4)
    if a[6]>a[7] { a[6], a[7] = a[7], a[6]}  // swap(a,6,7)
    if a[1]>a[2] { a[1], a[2] = a[2], a[1]}  // swap(a,1,2)
    if a[4]>a[5] { a[4], a[5] = a[5], a[4]}  // swap(a,4,5)
    if a[7]>a[8] { a[7], a[8] = a[8], a[7]}  // swap(a,7,8)
    if a[0]>a[1] { a[0], a[1] = a[1], a[0]}  // swap(a,0,1)
    if a[3]>a[4] { a[3], a[4] = a[4], a[3]}  // swap(a,3,4)
    if a[6]>a[7] { a[6], a[7] = a[7], a[6]}  // swap(a,6,7)
    if a[0]>a[3] { a[3]       = a[0]      }  // max (a,0,3)
    if a[3]>a[6] { a[6]       = a[3]      }  // max (a,3,6)
    if a[1]>a[4] { a[1], a[4] = a[4], a[1]}  // swap(a,1,4)
    if a[4]>a[7] { a[4]       = a[7]      }  // min (a,4,7)
    if a[1]>a[4] { a[4]       = a[1]      }  // max (a,1,4)
    if a[5]>a[8] { a[5]       = a[8]      }  // min (a,5,8)
    if a[2]>a[5] { a[2]       = a[5]      }  // min (a,2,5)
    if a[2]>a[4] { a[2], a[4] = a[4], a[2]}  // swap(a,2,4)
    if a[4]>a[6] { a[4]       = a[6]      }  // min (a,4,6)
    if a[2]>a[4] { a[4]       = a[2]      }  // max (a,2,4)
    return a[4]
}
