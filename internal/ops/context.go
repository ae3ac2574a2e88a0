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
	"io"
	"runtime"
	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
	"github.com/mlnoga/inkprep/internal/pix"
)

// Default JPEG quality for downsampled previews
const DefaultPreviewQuality = 80

// Buffers held per in-flight image: decoded image, pixel buffer and one scratch snapshot
const buffersPerImage = 3

// An execution context for the pipeline. Replaces module-level state, so
// independent contexts can run concurrently
type Context struct {
	Log              io.Writer
	MemoryMB         int           // memory.TotalMemory()/1024/1024
	ImageMemoryMB    int           // MemoryMB/2, budget for in-flight images
	MaxThreads       int           `json:"maxThreads"`
	MaxPixels        int           // surface limit for a single image. 0=unlimited
	Pool            *pix.Pool      // scratch buffers, reused across stages and images
	JPEGQuality      int
	PreviewQuality   int
	BatchPolicy      BatchPolicy
	Strict           bool          // reject out-of-range settings instead of clamping them
	AutoOrient       bool          // apply EXIF orientation on decode
}

func NewContext(log io.Writer) *Context {
	if log==nil { log=io.Discard }
	memoryMB:=int(memory.TotalMemory()/1024/1024)
	c:=&Context{
		Log             : log,
		MemoryMB        : memoryMB,
		ImageMemoryMB   : memoryMB/2,
		MaxThreads      : DefaultThreads(),
		Pool            : pix.NewPool(),
		JPEGQuality     : pix.DefaultJPEGQuality,
		PreviewQuality  : DefaultPreviewQuality,
		BatchPolicy     : CollectPerImage,
		AutoOrient      : true,
	}
	c.MaxPixels=c.maxPixelsFor(c.ImageMemoryMB)
	return c
}

// Returns the number of logical cores, bounded by GOMAXPROCS
func DefaultThreads() int {
	threads:=runtime.GOMAXPROCS(0)
	if cores:=cpuid.CPU.LogicalCores; cores>0 && cores<threads { threads=cores }
	if threads<1 { threads=1 }
	return threads
}

// Largest image that fits the given memory budget. 0 if memory size is unknown
func (c *Context) maxPixelsFor(mb int) int {
	if mb<=0 { return 0 }
	return int(int64(mb)*1024*1024/(pix.Channels*buffersPerImage))
}

// Sets the number of threads, and the image memory budget in MB.
// Non-positive values keep the current setting
func (c *Context) Limit(threads, memoryMB int) {
	if threads>0 { c.MaxThreads=threads }
	if memoryMB>0 {
		c.ImageMemoryMB=memoryMB
		c.MaxPixels=c.maxPixelsFor(memoryMB)
	}
}

// Number of images of the given dimensions to process in parallel, within
// the thread and memory limits. At least one
func (c *Context) BatchWidth(width, height int) int {
	n:=c.MaxThreads
	if perImage:=pix.EstimateMB(width, height)*buffersPerImage; perImage>0 && c.ImageMemoryMB>0 {
		if fit:=c.ImageMemoryMB/perImage; fit<n { n=fit }
	}
	if n<1 { n=1 }
	return n
}

// Options for decoding images in this context
func (c *Context) DecodeOptions() pix.DecodeOptions {
	return pix.DecodeOptions{AutoOrient: c.AutoOrient, MaxPixels: c.MaxPixels}
}

// Writes a summary of CPU and memory resources to the log
func (c *Context) LogResources() {
	fmt.Fprintf(c.Log, "CPU %s has %d logical cores, using %d threads. Physical memory is %d MiB, image budget %d MiB fits %.1f MPixels.\n",
		cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, c.MaxThreads, c.MemoryMB, c.ImageMemoryMB, float32(c.MaxPixels)*1e-6)
}
