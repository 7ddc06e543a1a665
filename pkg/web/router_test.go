// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

func newTestRouter(t *testing.T, token string) (http.Handler, Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		AccessToken: token,
		ServeRoot:   filepath.Join(dir, "served"),
		FixtureRoot: filepath.Join(dir, "fixture"),
		Options:     fixture.Options{MaxDepth: 1, MaxFilesPerDir: 2, MaxDirsPerDir: 2, FileSizeMinKiB: 1, FileSizeMaxKiB: 1},
		Seed:        3,
	}
	return NewRouter(cfg), cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPingAndMetricsAreOpen(t *testing.T) {
	h, _ := newTestRouter(t, "secret")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccessToken(t *testing.T) {
	h, _ := newTestRouter(t, "secret")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/fixture/index", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/fixture/index", nil)
	req.Header.Set(model.ApiAccessTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/fixture/generate", nil)
	req.Header.Set(model.ApiAccessTokenHeader, "secret")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
}

func TestUploadThenRaw(t *testing.T) {
	h, cfg := newTestRouter(t, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("path", "fixture/a"))
	part, err := mw.CreateFormFile("file", "x.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err = os.Stat(filepath.Join(cfg.ServeRoot, "fixture", "a", "x.txt"))
	require.NoError(t, err)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/raw?path=fixture/a/x.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payload", rec.Body.String())
}

func TestFixtureRoutes(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/fixture/generate", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/fixture/index", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var idx model.IndexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
	assert.NotEmpty(t, idx.Entries)

	req := httptest.NewRequest(http.MethodPost, "/fixture/mutations", bytes.NewReader([]byte(`{"count":2}`)))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
