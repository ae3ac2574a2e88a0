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
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"

	"github.com/mlnoga/inkprep/internal/ops"
	"github.com/mlnoga/inkprep/internal/pix"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	c:=ops.NewContext(nil)
	c.Limit(2, 256)
	return NewRouter(ops.NewPipeline(c))
}

func testPNG(t *testing.T, width, height int) []byte {
	b, err:=pix.NewBuffer(width, height)
	if err!=nil { t.Fatalf("NewBuffer: %v", err) }
	for i:=range b.Data { b.Data[i]=uint8(100+i%50) }
	var buf bytes.Buffer
	if err:=png.Encode(&buf, b.ToNRGBA()); err!=nil { t.Fatalf("png.Encode: %v", err) }
	return buf.Bytes()
}

type upload struct {
	Field, Name string
	Data        []byte
}

func postMultipart(t *testing.T, r http.Handler, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw:=multipart.NewWriter(&body)
	for k, v:=range fields {
		if err:=mw.WriteField(k, v); err!=nil { t.Fatal(err) }
	}
	for _, f:=range files {
		w, err:=mw.CreateFormFile(f.Field, f.Name)
		if err!=nil { t.Fatal(err) }
		if _, err=w.Write(f.Data); err!=nil { t.Fatal(err) }
	}
	if err:=mw.Close(); err!=nil { t.Fatal(err) }
	req:=httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec:=httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	rec:=httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code!=http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("pong")) {
		t.Errorf("ping: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPostPreprocess(t *testing.T) {
	rec:=postMultipart(t, testRouter(), "/api/v1/preprocess", map[string]string{"settings": `{"sharpness":30}`},
		upload{"image", "page.png", testPNG(t, 16, 12)})
	if rec.Code!=http.StatusOK { t.Fatalf("status %d: %s", rec.Code, rec.Body.String()) }
	if ct:=rec.Header().Get("Content-Type"); ct!="image/jpeg" { t.Errorf("content type %s", ct) }
	b, format, err:=pix.Decode(rec.Body.Bytes(), pix.DecodeOptions{})
	if err!=nil || format!="jpeg" || b.Width!=16 || b.Height!=12 { t.Errorf("output %v %s err %v", b, format, err) }
}

func TestPostPreprocessErrors(t *testing.T) {
	r:=testRouter()
	tcs:=[]struct {
		Name   string
		Fields map[string]string
		Files  []upload
		Status int
	}{
		{"missing image", nil, nil, http.StatusBadRequest},
		{"garbage image", nil, []upload{{"image", "x.png", []byte("garbage")}}, http.StatusBadRequest},
		{"bad settings", map[string]string{"settings": "{"}, []upload{{"image", "x.png", testPNG(t, 4, 4)}}, http.StatusBadRequest},
	}
	for _, tc:=range tcs {
		rec:=postMultipart(t, r, "/api/v1/preprocess", tc.Fields, tc.Files...)
		if rec.Code!=tc.Status { t.Errorf("%s: status %d; want %d", tc.Name, rec.Code, tc.Status) }
		var res map[string]string
		if err:=json.Unmarshal(rec.Body.Bytes(), &res); err!=nil || res["error"]=="" {
			t.Errorf("%s: body %s; want JSON error", tc.Name, rec.Body.String())
		}
	}
}

func TestPostPreview(t *testing.T) {
	rec:=postMultipart(t, testRouter(), "/api/v1/preview", map[string]string{"maxDimension": "10"},
		upload{"image", "page.png", testPNG(t, 40, 20)})
	if rec.Code!=http.StatusOK { t.Fatalf("status %d: %s", rec.Code, rec.Body.String()) }
	b, _, err:=pix.Decode(rec.Body.Bytes(), pix.DecodeOptions{})
	if err!=nil || b.Width!=10 || b.Height!=5 { t.Errorf("preview %v err %v; want 10x5", b, err) }

	rec=postMultipart(t, testRouter(), "/api/v1/preview", map[string]string{"maxDimension": "big"},
		upload{"image", "page.png", testPNG(t, 4, 4)})
	if rec.Code!=http.StatusBadRequest { t.Errorf("invalid maxDimension status %d", rec.Code) }
}

func TestPostStats(t *testing.T) {
	rec:=postMultipart(t, testRouter(), "/api/v1/stats", nil, upload{"image", "page.png", testPNG(t, 8, 8)})
	if rec.Code!=http.StatusOK { t.Fatalf("status %d: %s", rec.Code, rec.Body.String()) }
	var r ops.Report
	if err:=json.Unmarshal(rec.Body.Bytes(), &r); err!=nil { t.Fatalf("decoding report: %v", err) }
	if r.Format!="png" || r.Width!=8 || r.Stats==nil || r.Stats.Pixels!=64 { t.Errorf("report %+v", r) }
}

func TestPostBatch(t *testing.T) {
	rec:=postMultipart(t, testRouter(), "/api/v1/batch", nil,
		upload{"images", "a.png", testPNG(t, 8, 8)},
		upload{"images", "b.png", []byte("garbage")},
		upload{"images", "dir/c.png", testPNG(t, 6, 6)})
	if rec.Code!=http.StatusOK { t.Fatalf("status %d: %s", rec.Code, rec.Body.String()) }
	zr, err:=zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err!=nil { t.Fatalf("zip.NewReader: %v", err) }

	entries:=map[string][]byte{}
	for _, f:=range zr.File {
		rc, err:=f.Open()
		if err!=nil { t.Fatalf("open %s: %v", f.Name, err) }
		data, err:=io.ReadAll(rc)
		rc.Close()
		if err!=nil { t.Fatalf("read %s: %v", f.Name, err) }
		entries[f.Name]=data
	}
	for _, name:=range []string{"000_a_prep.jpg", "002_c_prep.jpg", "errors.txt"} {
		if _, ok:=entries[name]; !ok { t.Errorf("archive lacks %s, has %d entries", name, len(entries)) }
	}
	if len(entries)!=3 { t.Errorf("archive has %d entries; want 3", len(entries)) }
	if !bytes.Contains(entries["errors.txt"], []byte("1 b.png")) { t.Errorf("errors.txt: %s", entries["errors.txt"]) }
}

func TestArchiveName(t *testing.T) {
	tcs:=map[string]string{
		"page.png"          : "007_page_prep.jpg",
		"../../etc/notes.jpg": "007_notes_prep.jpg",
		"C:\\scans\\x.tiff" : "007_x_prep.jpg",
		""                  : "007_image_prep.jpg",
	}
	for in, want:=range tcs {
		if got:=ArchiveName(7, in); got!=want { t.Errorf("ArchiveName(%q)=%q; want %q", in, got, want) }
	}
}

func TestRequestIDsUnique(t *testing.T) {
	s:=&server{}
	const workers, perWorker=8, 100
	ids:=make(chan int, workers*perWorker)
	var wg sync.WaitGroup
	for i:=0; i<workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j:=0; j<perWorker; j++ { ids <- s.id() }
		}()
	}
	wg.Wait()
	close(ids)
	seen:=map[int]bool{}
	for id:=range ids {
		if id<1 || id>workers*perWorker || seen[id] { t.Errorf("unexpected or repeated id %d", id) }
		seen[id]=true
	}
	if len(seen)!=workers*perWorker { t.Errorf("%d distinct ids; want %d", len(seen), workers*perWorker) }
}
