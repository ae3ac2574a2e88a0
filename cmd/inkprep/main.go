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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"runtime/pprof"
	"strings"
	"time"
	"github.com/mlnoga/inkprep/internal"
	"github.com/mlnoga/inkprep/internal/ops"
	"github.com/mlnoga/inkprep/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")

var out  = flag.String("out", "%auto", "save output to `file`. `%d` is replaced by the input index, `%auto` appends _prep.jpg or _preview.jpg to the input name")
var log  = flag.String("log", "", "save log output to `file`. `%auto` derives the name from the first input")
var settingsFile = flag.String("settings", "", "read enhancement settings from JSON `file`. Explicit flags override it")

var contrast   = flag.Int("contrast", 0, "contrast adjustment in [-100,100], 0=no op")
var brightness = flag.Int("brightness", 0, "brightness adjustment in [-100,100], 0=no op")
var sharpness  = flag.Int("sharpness", 0, "edge enhancement in [0,100], 0=no op or auto")
var noise      = flag.Int("noise", 0, "noise reduction in [0,100], 0=no op or auto")
var auto       = flag.Bool("auto", true, "derive missing settings from the image histogram")

var maxDim         = flag.Int("maxDim", rest.DefaultPreviewDimension, "maximum preview width and height in pixels, 0=full size")
var quality        = flag.Int("quality", 0, "JPEG quality in [1,100] for full-size output, 0=default 92")
var previewQuality = flag.Int("previewQuality", 0, "JPEG quality in [1,100] for previews, 0=default 80")

var policy  = flag.String("policy", "collect", "batch error policy: collect=continue with remaining images, abort=stop after first failure")
var strict  = flag.Bool("strict", false, "reject out-of-range settings instead of clamping them")
var orient  = flag.Bool("orient", true, "apply EXIF orientation when decoding")
var threads = flag.Int("threads", 0, "number of threads, 0=all logical cores")
var memMB   = flag.Int("memory", 0, "MiB of memory for in-flight images, 0=half of physical memory")

var addr   = flag.String("addr", ":8080", "listen address for serve")
var chroot = flag.String("chroot", "", "change filesystem root to `dir` before serving (requires root)")
var setuid = flag.Int("setuid", -1, "change user id before serving, -1=keep")

func main() {
	var logWriter io.Writer=os.Stdout
	start:=time.Now()
	flag.Usage=func(){
		fmt.Fprintf(logWriter, `Inkprep Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (preprocess|preview|batch|stats|serve|legal|version) (img0.jpg ... imgn.jpg)

Commands:
  preprocess Enhance images at full resolution for handwriting recognition
  preview    Enhance downsampled copies of images with literal settings
  batch      Enhance images in parallel with shared settings
  stats      Show image statistics and suggested settings
  serve      Serve the REST API
  legal      Show license and attribution information
  version    Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}
	cmd, files:=args[0], args[1:]

	// Initialize logging to file in addition to stdout, if selected
	if *log=="%auto" {
		*log=""
		if len(files)>0 { *log=stem(files[0])+".log" }
	}
	teeLog, err:=internal.NewTeeLog(os.Stdout, *log)
	if err!=nil {
		fmt.Fprintf(logWriter, "Unable to open logfile '%s': %s\n", *log, err.Error())
		os.Exit(-1)
	}
	defer teeLog.Close()
	logWriter=teeLog

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	c, err:=newContext(logWriter)
	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
	p:=ops.NewPipeline(c)

	// run actions
	switch cmd {
	case "preprocess", "preview", "batch":
		var s ops.Settings
		if s, err=settingsFromFlags(); err!=nil { break }
		fmt.Fprintf(logWriter, "Using settings %v\n", s)
		c.LogResources()
		switch cmd {
		case "preprocess": err=cmdPreprocess(p, files, s, false)
		case "preview":    err=cmdPreprocess(p, files, s, true)
		case "batch":      err=cmdBatch(p, files, s)
		}

	case "stats":
		err=cmdStats(p, files)

	case "serve":
		c.LogResources()
		if err=rest.MakeSandbox(logWriter, *chroot, *setuid); err!=nil { break }
		err=rest.Serve(p, *addr)

	case "legal":
		cmdLegal(logWriter)
		return

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
		return

	case "help", "?":
		flag.Usage()
		return

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", cmd)
		flag.Usage()
		return
	}

	elapsed:=time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		teeLog.Close()
		os.Exit(-1)
	}
}

func newContext(logWriter io.Writer) (*ops.Context, error) {
	c:=ops.NewContext(logWriter)
	c.Limit(*threads, *memMB)
	if *quality>0        { c.JPEGQuality=*quality }
	if *previewQuality>0 { c.PreviewQuality=*previewQuality }
	c.Strict, c.AutoOrient=*strict, *orient
	bp, err:=ops.ParseBatchPolicy(*policy)
	if err!=nil { return nil, err }
	c.BatchPolicy=bp
	return c, nil
}

// Reads settings from the optional settings file, then applies explicitly given flags
func settingsFromFlags() (s ops.Settings, err error) {
	s=ops.DefaultSettings()
	if *settingsFile!="" {
		if s, err=ops.ReadSettingsFile(*settingsFile); err!=nil { return s, err }
	}
	setFlags:=map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name]=true })
	if *settingsFile=="" || setFlags["contrast"]   { s.Contrast=*contrast }
	if *settingsFile=="" || setFlags["brightness"] { s.Brightness=*brightness }
	if *settingsFile=="" || setFlags["sharpness"]  { s.Sharpness=*sharpness }
	if *settingsFile=="" || setFlags["noise"]      { s.NoiseReduction=*noise }
	if *settingsFile=="" || setFlags["auto"]       { s.AutoEnhance=*auto }
	return s, nil
}

// Enhances files one by one at full size, or as previews
func cmdPreprocess(p *ops.Pipeline, files []string, s ops.Settings, preview bool) error {
	if len(files)==0 { return errors.New("no input files") }
	suffix:="_prep.jpg"
	if preview { suffix="_preview.jpg" }
	if err:=checkPattern(*out, len(files)); err!=nil { return err }

	var firstErr error
	for i, fileName:=range files {
		data, err:=os.ReadFile(fileName)
		if err==nil {
			var res []byte
			if preview {
				res, _, err=p.Preview(i, data, s, *maxDim)
			} else {
				res, _, err=p.Preprocess(i, data, s)
			}
			if err==nil { err=writeOutput(p, i, OutputName(*out, fileName, i, suffix), res) }
		}
		if err!=nil {
			fmt.Fprintf(p.Context().Log, "%d: Error processing %s: %s\n", i, fileName, err.Error())
			if firstErr==nil { firstErr=err }
			if p.Context().BatchPolicy==ops.AbortOnError { return err }
		}
	}
	return firstErr
}

// Enhances files in parallel. Cancelled on interrupt
func cmdBatch(p *ops.Pipeline, files []string, s ops.Settings) error {
	if len(files)==0 { return errors.New("no input files") }
	if err:=checkPattern(*out, len(files)); err!=nil { return err }
	ctx, stop:=signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	images:=make([][]byte, len(files))
	for i, fileName:=range files {
		data, err:=os.ReadFile(fileName)
		if err!=nil { return err }
		images[i]=data
	}
	logWriter:=p.Context().Log
	results, err:=p.PreprocessBatch(ctx, images, s, func(current, total int) {
		fmt.Fprintf(logWriter, "Completed %d of %d images\n", current, total)
	})

	failed:=0
	for _, r:=range results {
		if r.Err!=nil {
			failed++
			fmt.Fprintf(logWriter, "%d: Error processing %s: %s\n", r.Index, files[r.Index], r.Err.Error())
			continue
		}
		if werr:=writeOutput(p, r.Index, OutputName(*out, files[r.Index], r.Index, "_prep.jpg"), r.Data); werr!=nil && err==nil {
			err=werr
		}
	}
	fmt.Fprintf(logWriter, "%d of %d images succeeded.\n", len(results)-failed, len(results))
	if err==nil && failed>0 { err=fmt.Errorf("%d images failed", failed) }
	return err
}

func cmdStats(p *ops.Pipeline, files []string) error {
	if len(files)==0 { return errors.New("no input files") }
	var firstErr error
	for i, fileName:=range files {
		data, err:=os.ReadFile(fileName)
		var r *ops.Report
		if err==nil { r, err=p.Stats(i, data) }
		if err!=nil {
			fmt.Fprintf(p.Context().Log, "%d: Error analyzing %s: %s\n", i, fileName, err.Error())
			if firstErr==nil { firstErr=err }
			continue
		}
		r.Stats.Histogram=[256]int32{}  // too long for the console
		m, err:=json.MarshalIndent(r, "", "  ")
		if err!=nil { return err }
		fmt.Fprintf(p.Context().Log, "%d: %s suggests %v\n%s\n", i, fileName, r.Suggestion, string(m))
	}
	return firstErr
}

func writeOutput(p *ops.Pipeline, id int, fileName string, data []byte) error {
	fmt.Fprintf(p.Context().Log, "%d: Writing %d bytes to %s\n", id, len(data), fileName)
	return os.WriteFile(fileName, data, 0666)
}

// Index placeholder in output patterns, e.g. %d or %04d
var indexVerb=regexp.MustCompile(`%[0-9]*d`)

// Multiple inputs need an output pattern that yields distinct names
func checkPattern(pattern string, numFiles int) error {
	if numFiles>1 && pattern!="%auto" && !indexVerb.MatchString(pattern) {
		return fmt.Errorf("output '%s' needs %%d or %%auto for %d input files", pattern, numFiles)
	}
	return nil
}

// Expands an output file pattern for the given input file and index.
// Only the index placeholders are formatted, other percent signs are kept
func OutputName(pattern, input string, index int, suffix string) string {
	if pattern=="%auto" { return stem(input)+suffix }
	return indexVerb.ReplaceAllStringFunc(pattern, func(verb string) string {
		return fmt.Sprintf(verb, index)
	})
}

// Returns the file name without its extension
func stem(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
