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

package harness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/web"
)

var fastBackoff = wait.Backoff{Steps: 3, Duration: time.Millisecond, Factor: 1}

func newFileServer(t *testing.T, token string) (*httptest.Server, string) {
	t.Helper()
	served := filepath.Join(t.TempDir(), "served")
	srv := httptest.NewServer(web.NewRouter(web.Config{
		AccessToken: token,
		ServeRoot:   served,
		FixtureRoot: filepath.Join(t.TempDir(), "unused"),
		Options:     fixture.DefaultOptions(),
	}))
	t.Cleanup(srv.Close)
	return srv, served
}

func TestClientUploadAndRaw(t *testing.T) {
	srv, served := newFileServer(t, "tok")
	client := NewClient(srv.URL, WithToken("tok"), WithBackoff(fastBackoff))
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	local := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello world"), 0o644))

	resp, err := client.Upload(ctx, local, "a/b")
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "a/b/note.txt", resp.Files[0].Path)

	stored, err := os.ReadFile(filepath.Join(served, "a", "b", "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(stored))

	got, err := client.Raw(ctx, "a/b/note.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestClientStatusErrors(t *testing.T) {
	srv, _ := newFileServer(t, "tok")
	ctx := context.Background()

	_, err := NewClient(srv.URL, WithBackoff(fastBackoff)).Raw(ctx, "x.txt")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)

	_, err = NewClient(srv.URL, WithToken("tok"), WithBackoff(fastBackoff)).Raw(ctx, "missing.txt")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, statusErr.Temporary())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, WithBackoff(fastBackoff)).Raw(context.Background(), "f")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithBackoff(fastBackoff)).Raw(context.Background(), "f")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, int32(fastBackoff.Steps), calls.Load())
}

func TestVerifierRoundTrip(t *testing.T) {
	srv, served := newFileServer(t, "")
	root := filepath.Join(t.TempDir(), "fixture")
	stats, err := fixture.Generate(root, fixture.Options{
		MaxDepth: 2, MaxFilesPerDir: 3, MaxDirsPerDir: 2, FileSizeMinKiB: 1, FileSizeMaxKiB: 2,
	}, fixture.NewRand(12))
	require.NoError(t, err)

	v, err := NewVerifier(NewClient(srv.URL, WithBackoff(fastBackoff)), fixture.IndexOptions{})
	require.NoError(t, err)
	report, err := v.Verify(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, report.OK(), "mismatches: %+v", report.Mismatches)
	assert.Equal(t, stats.Files, report.Files)
	assert.Equal(t, stats.Directories, report.Directories)
	assert.Equal(t, stats.Bytes, report.Bytes)

	mirrored, err := fixture.BuildIndex(filepath.Join(served, "fixture"))
	require.NoError(t, err)
	_, files := mirrored.Counts()
	assert.Equal(t, stats.Files, files)
}

func TestVerifierReportsMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/upload" {
			_, _ = w.Write([]byte(`{"files":[]}`))
			return
		}
		_, _ = w.Write([]byte("tampered"))
	}))
	defer srv.Close()

	root := filepath.Join(t.TempDir(), "fixture")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("original"), 0o644))

	v, err := NewVerifier(NewClient(srv.URL, WithBackoff(fastBackoff)), fixture.IndexOptions{})
	require.NoError(t, err)
	report, err := v.Verify(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "fixture/a.txt", report.Mismatches[0].Path)
}
