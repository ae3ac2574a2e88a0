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


package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"

	"github.com/mlnoga/inkprep/internal/ops"
	"github.com/mlnoga/inkprep/internal/pix"
)

// Preview size if the request does not specify one
const DefaultPreviewDimension = 1024

// Handles image requests with a shared pipeline
type server struct {
	p      *ops.Pipeline
	nextID  atomic.Int64
}

// Returns the router for the REST API
func NewRouter(p *ops.Pipeline) *gin.Engine {
	s:=&server{p: p}
	r:=gin.Default()
	api:=r.Group("/api")
	{
		v1:=api.Group("/v1")
		{
			v1.GET ("/ping",       getPing)
			v1.POST("/preprocess", s.postPreprocess)
			v1.POST("/preview",    s.postPreview)
			v1.POST("/stats",      s.postStats)
			v1.POST("/batch",      s.postBatch)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func Serve(p *ops.Pipeline, addr string) error {
	fmt.Fprintf(p.Context().Log, "Serving REST API on %s\n", addr)
	return NewRouter(p).Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func (s *server) postPreprocess(c *gin.Context) {
	data, settings, ok:=readImageAndSettings(c)
	if !ok { return }
	out, _, err:=s.p.Preprocess(s.id(), data, settings)
	if err!=nil { abortWithError(c, err); return }
	c.Data(http.StatusOK, "image/jpeg", out)
}

func (s *server) postPreview(c *gin.Context) {
	maxDim:=DefaultPreviewDimension
	if str:=c.PostForm("maxDimension"); str!="" {
		var err error
		if maxDim, err=strconv.Atoi(str); err!=nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid maxDimension '%s'", str)})
			return
		}
	}
	data, settings, ok:=readImageAndSettings(c)
	if !ok { return }
	out, _, err:=s.p.Preview(s.id(), data, settings, maxDim)
	if err!=nil { abortWithError(c, err); return }
	c.Data(http.StatusOK, "image/jpeg", out)
}

func (s *server) postStats(c *gin.Context) {
	fh, err:=c.FormFile("image")
	if err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return }
	data, err:=readFormFile(fh)
	if err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return }
	r, err:=s.p.Stats(s.id(), data)
	if err!=nil { abortWithError(c, err); return }
	c.JSON(http.StatusOK, r)
}

// Preprocesses all uploaded images and returns a ZIP archive with one JPEG per
// successful image, plus errors.txt listing the failures
func (s *server) postBatch(c *gin.Context) {
	settings, err:=readSettings(c)
	if err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return }
	form, err:=c.MultipartForm()
	if err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return }
	files:=form.File["images"]
	if len(files)==0 { c.JSON(http.StatusBadRequest, gin.H{"error": "no images"}); return }

	images:=make([][]byte, len(files))
	for i, fh:=range files {
		if images[i], err=readFormFile(fh); err!=nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	results, err:=s.p.PreprocessBatch(c.Request.Context(), images, settings, nil)
	if err!=nil && c.Request.Context().Err()!=nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	archive, err:=writeArchive(files, results)
	if err!=nil { c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()}); return }
	c.Header("Content-Disposition", "attachment; filename=\"inkprep.zip\"")
	c.Data(http.StatusOK, "application/zip", archive)
}

// Packs batch results into a ZIP archive. JPEGs are stored without recompression
func writeArchive(files []*multipart.FileHeader, results []ops.BatchResult) ([]byte, error) {
	var buf bytes.Buffer
	zw:=zip.NewWriter(&buf)
	var failures strings.Builder
	for _, r:=range results {
		name:=files[r.Index].Filename
		if r.Err!=nil {
			fmt.Fprintf(&failures, "%d %s: %s\n", r.Index, name, r.Err.Error())
			continue
		}
		w, err:=zw.CreateHeader(&zip.FileHeader{Name: ArchiveName(r.Index, name), Method: zip.Store})
		if err!=nil { return nil, err }
		if _, err=w.Write(r.Data); err!=nil { return nil, err }
	}
	if failures.Len()>0 {
		w, err:=zw.Create("errors.txt")
		if err!=nil { return nil, err }
		if _, err=io.WriteString(w, failures.String()); err!=nil { return nil, err }
	}
	if err:=zw.Close(); err!=nil { return nil, err }
	return buf.Bytes(), nil
}

// Name of the archive entry for the given upload. The index keeps names unique
func ArchiveName(index int, fileName string) string {
	base:=filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	stem:=strings.TrimSuffix(base, filepath.Ext(base))
	if stem=="" || stem=="." || stem=="/" { stem="image" }
	return fmt.Sprintf("%03d_%s_prep.jpg", index, stem)
}

func readImageAndSettings(c *gin.Context) (data []byte, s ops.Settings, ok bool) {
	s, err:=readSettings(c)
	if err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return nil, s, false }
	fh, err:=c.FormFile("image")
	if err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return nil, s, false }
	if data, err=readFormFile(fh); err!=nil { c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return nil, s, false }
	return data, s, true
}

// Reads the optional settings form field as JSON. Missing fields take their defaults
func readSettings(c *gin.Context) (s ops.Settings, err error) {
	str:=c.PostForm("settings")
	if str=="" { return ops.DefaultSettings(), nil }
	if err=json.Unmarshal([]byte(str), &s); err!=nil {
		return s, fmt.Errorf("%w: %s", ops.ErrInvalidSettings, err.Error())
	}
	return s, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err:=fh.Open()
	if err!=nil { return nil, err }
	defer f.Close()
	return io.ReadAll(f)
}

// Maps pipeline errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, pix.ErrDecode), errors.Is(err, pix.ErrEmpty), errors.Is(err, ops.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, pix.ErrSurface):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

func (s *server) id() int {
	return int(s.nextID.Add(1))
}
