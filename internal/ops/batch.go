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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"github.com/mlnoga/inkprep/internal/pix"
)

// How a batch reacts to a failing image
type BatchPolicy int

const (
	CollectPerImage BatchPolicy = iota  // record the error and continue with the other images
	AbortOnError                        // stop starting new images after the first failure
)

func (bp BatchPolicy) String() string {
	if bp==AbortOnError { return "abort" }
	return "collect"
}

// Parses a batch policy name, "collect" or "abort"
func ParseBatchPolicy(s string) (BatchPolicy, error) {
	switch strings.ToLower(s) {
	case "", "collect": return CollectPerImage, nil
	case "abort":       return AbortOnError, nil
	}
	return CollectPerImage, fmt.Errorf("unknown batch policy '%s'", s)
}

// Reported for images that were not started because an earlier image failed
var ErrAborted = errors.New("batch aborted")

// Outcome for one image of a batch
type BatchResult struct {
	Index  int
	Data   []byte
	Plan  *Plan
	Err    error
}

// Called after each image of a batch completes, with current running from 1 to total
type ProgressFunc func(current, total int)

// Preprocesses a batch of encoded images with shared settings. Images run in
// parallel within the thread and memory limits of the context. Results are
// returned in input order. Progress callbacks are serialized.
// Returns ctx.Err() if the context was cancelled, the first image error
// under AbortOnError, and nil otherwise
func (p *Pipeline) PreprocessBatch(ctx context.Context, images [][]byte, s Settings, onProgress ProgressFunc) ([]BatchResult, error) {
	results:=make([]BatchResult, len(images))
	if len(images)==0 { return results, nil }

	width:=p.batchWidth(images)
	sub:=*p.c
	sub.MaxThreads=p.c.MaxThreads/width
	if sub.MaxThreads<1 { sub.MaxThreads=1 }
	worker:=&Pipeline{c: &sub}
	fmt.Fprintf(p.c.Log, "Preprocessing %d images, %d in parallel with %d threads each, policy %v\n",
		len(images), width, sub.MaxThreads, p.c.BatchPolicy)

	batchCtx, cancel:=context.WithCancel(ctx)
	defer cancel()

	var mutex sync.Mutex
	completed:=0
	var firstErr error

	limiter:=make(chan bool, width)
	for i:=range images {
		results[i].Index=i
		if err:=skipReason(ctx, batchCtx); err!=nil { results[i].Err=err; continue }
		limiter <- true
		if err:=skipReason(ctx, batchCtx); err!=nil { <-limiter; results[i].Err=err; continue }

		go func(i int) {
			defer func() { <-limiter }()
			out, plan, err:=worker.Preprocess(i, images[i], s)
			results[i]=BatchResult{Index: i, Data: out, Plan: plan, Err: err}

			mutex.Lock()
			defer mutex.Unlock()
			completed++
			if err!=nil {
				fmt.Fprintf(p.c.Log, "%d: Error: %s\n", i, err.Error())
				if firstErr==nil { firstErr=err }
				if p.c.BatchPolicy==AbortOnError { cancel() }
			}
			if onProgress!=nil { onProgress(completed, len(images)) }
		}(i)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}

	if err:=ctx.Err(); err!=nil { return results, err }
	if p.c.BatchPolicy==AbortOnError && firstErr!=nil { return results, firstErr }
	return results, nil
}

// Returns why no further images should start, or nil
func skipReason(parent, batch context.Context) error {
	if err:=parent.Err(); err!=nil { return err }
	if batch.Err()!=nil { return ErrAborted }
	return nil
}

// Number of images to process in parallel, sized for the largest image
func (p *Pipeline) batchWidth(images [][]byte) int {
	maxW, maxH:=0, 0
	for _, data:=range images {
		w, h, err:=pix.DecodeDimensions(data)
		if err!=nil { continue }  // reported when the image is processed
		if int64(w)*int64(h) > int64(maxW)*int64(maxH) { maxW, maxH=w, h }
	}
	width:=p.c.BatchWidth(maxW, maxH)
	if width>len(images) { width=len(images) }
	return width
}
