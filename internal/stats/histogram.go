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


package stats

import (
	"fmt"
	"sync"
	"github.com/mlnoga/inkprep/internal/pix"
	"gonum.org/v1/gonum/stat"
)

// Number of luminance histogram bins
const Bins = 256

// Percentiles delimiting the dynamic range
const (
	LowPercentile  = 0.05
	HighPercentile = 0.95
)

// Luminance statistics of one pixel buffer. Computed fresh per image, never mutated
type Stats struct {
	Histogram          [Bins]int32  `json:"histogram"`
	Pixels              int         `json:"pixels"`
	AverageBrightness   float64     `json:"averageBrightness"`
	StdDev              float64     `json:"stdDev"`
	DynamicRangeLow     int         `json:"dynamicRangeLow"`  // 5th percentile luminance bin
	DynamicRangeHigh    int         `json:"dynamicRangeHigh"` // 95th percentile luminance bin
	DynamicRange        int         `json:"dynamicRange"`     // high-low
}

// Returns the luminance of a pixel with standard broadcast luma weights, rounded half up
func Luminance(r, g, b uint8) uint8 {
	return uint8(pix.RoundHalfUp(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
}

// Calculates luminance statistics of the given buffer. Alpha is ignored.
// Fails only for an empty or malformed buffer
func Analyze(b *pix.Buffer, threads int) (s *Stats, err error) {
	if err=b.Validate(); err!=nil { return nil, err }
	s=&Stats{Pixels: b.Pixels()}

	// accumulate partial histograms per work package, then merge
	var mutex sync.Mutex
	rowLen:=b.Width*pix.Channels
	pix.ApplyRowFunction(0, b.Height, threads, func(from, to int) {
		var bins [Bins]int32
		data:=b.Data[from*rowLen : to*rowLen]
		for i:=0; i<len(data); i+=pix.Channels {
			bins[Luminance(data[i], data[i+1], data[i+2])]++
		}
		mutex.Lock()
		for i, v:=range bins { s.Histogram[i]+=v }
		mutex.Unlock()
	})

	sum:=int64(0)
	for i, v:=range s.Histogram { sum+=int64(i)*int64(v) }
	s.AverageBrightness=float64(sum)/float64(s.Pixels)
	s.StdDev=histogramStdDev(&s.Histogram, s.Pixels)
	s.DynamicRangeLow, s.DynamicRangeHigh=Percentiles(&s.Histogram, s.Pixels, LowPercentile, HighPercentile)
	s.DynamicRange=s.DynamicRangeHigh-s.DynamicRangeLow
	return s, nil
}

// Walks the histogram cumulatively and returns the smallest bins whose cumulative counts
// first exceed the fractions low and high of the total
func Percentiles(bins *[Bins]int32, total int, low, high float64) (lowBin, highBin int) {
	lowLimit, highLimit:=low*float64(total), high*float64(total)
	lowBin, highBin=-1, -1
	cum:=int64(0)
	for i, v:=range bins {
		cum+=int64(v)
		if lowBin<0 && float64(cum)>lowLimit { lowBin=i }
		if highBin<0 && float64(cum)>highLimit { highBin=i; break }
	}
	if lowBin <0 { lowBin =Bins-1 }
	if highBin<0 { highBin=Bins-1 }
	return lowBin, highBin
}

// Standard deviation of the luminance, weighted over the histogram
func histogramStdDev(bins *[Bins]int32, total int) float64 {
	if total<2 { return 0 }
	xs, weights:=make([]float64, Bins), make([]float64, Bins)
	for i, v:=range bins { xs[i], weights[i]=float64(i), float64(v) }
	_, std:=stat.MeanStdDev(xs, weights)
	return std
}

func (s *Stats) String() string {
	return fmt.Sprintf("pixels %d avg %.2f stdDev %.2f range [%d,%d]=%d",
		s.Pixels, s.AverageBrightness, s.StdDev, s.DynamicRangeLow, s.DynamicRangeHigh, s.DynamicRange)
}
