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

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/harness"
	"github.com/alibaba/opensandbox/treegen/pkg/report"
	"github.com/alibaba/opensandbox/treegen/pkg/runner"
	"github.com/alibaba/opensandbox/treegen/pkg/sink"
	"github.com/alibaba/opensandbox/treegen/pkg/web"
)

func resetCommandFlags() {
	flag.Defaults()
	rootCMD.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	generateClean, generateTree = false, false
	indexOut, indexTree = "", false
	mutateCount = 3
	diffUnified, diffContext, diffFromSQL = false, report.DefaultContext, false
	runKeep, runRecord = false, false
	publishTo, publishSnapshot = "sql", ""
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetCommandFlags()
	var out bytes.Buffer
	rootCMD.SetOut(&out)
	rootCMD.SetErr(io.Discard)
	rootCMD.SetArgs(args)
	err := rootCMD.ExecuteContext(context.Background())
	return out.String(), err
}

func smallTree(root string, extra ...string) []string {
	args := []string{"--root", root, "--seed", "7", "--max-depth", "2", "--max-files", "3", "--max-dirs", "2", "--file-size-max", "2"}
	return append(args, extra...)
}

func TestGenerateThenIndex(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")

	out, err := execute(t, append([]string{"generate"}, smallTree(root)...)...)
	require.NoError(t, err)
	var stats fixture.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))

	out, err = execute(t, append([]string{"index"}, smallTree(root)...)...)
	require.NoError(t, err)
	var idx fixture.Index
	require.NoError(t, json.Unmarshal([]byte(out), &idx))

	dirs, files := idx.Counts()
	assert.Equal(t, stats.Directories, dirs)
	assert.Equal(t, stats.Files, files)
	assert.Equal(t, stats.Bytes, idx.TotalSize())
}

func TestGenerateTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	out, err := execute(t, append([]string{"generate", "--tree"}, smallTree(root)...)...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "fixture/\n"), out)
}

func TestZeroSeedIsReproducible(t *testing.T) {
	dir := t.TempDir()
	var outputs []string
	for _, name := range []string{"a", "b"} {
		root := filepath.Join(dir, name, "fixture")
		args := append([]string{"generate", "--tree"}, smallTree(root)...)
		out, err := execute(t, append(args, "--seed", "0")...)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), flag.Seed)
		outputs = append(outputs, out)
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestUnsetSeedIsResolved(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := execute(t, "generate", "--root", root, "--max-depth", "1")
	require.NoError(t, err)
	assert.True(t, flag.SeedSet)
}

func TestInvalidOptionsRejected(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := execute(t, "generate", "--root", root, "--max-files", "0")
	assert.ErrorIs(t, err, fixture.ErrInvalidOptions)
}

func TestMutatePrintsRecords(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := execute(t, append([]string{"generate"}, smallTree(root)...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"mutate", "-n", "4"}, smallTree(root)...)...)
	require.NoError(t, err)
	var records []fixture.ChangeRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.LessOrEqual(t, len(records), 4)
	for _, rec := range records {
		assert.NotEmpty(t, rec.Description)
	}
}

func TestSnapshotDiff(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "fixture")
	before := filepath.Join(dir, "before.json")
	after := filepath.Join(dir, "after.json")

	_, err := execute(t, append([]string{"generate"}, smallTree(root)...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"index", "-o", before}, smallTree(root)...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"mutate", "-n", "5"}, smallTree(root)...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"index", "-o", after}, smallTree(root)...)...)
	require.NoError(t, err)

	out, err := execute(t, "diff", before, after)
	require.NoError(t, err)
	var delta fixture.Delta
	require.NoError(t, json.Unmarshal([]byte(out), &delta))

	prev, err := fixture.ReadSnapshot(before)
	require.NoError(t, err)
	curr, err := fixture.ReadSnapshot(after)
	require.NoError(t, err)
	want := fixture.Diff(prev.Entries, curr.Entries)
	assert.Equal(t, len(want.Added), len(delta.Added))
	assert.Equal(t, len(want.Removed), len(delta.Removed))
	assert.Equal(t, len(want.Changed), len(delta.Changed))

	out, err = execute(t, "diff", "--unified", before, after)
	require.NoError(t, err)
	if want.Empty() {
		assert.Empty(t, out)
	} else {
		assert.Contains(t, out, "--- "+before)
	}
}

func TestDiffMissingSnapshot(t *testing.T) {
	_, err := execute(t, "diff", filepath.Join(t.TempDir(), "a.json"), filepath.Join(t.TempDir(), "b.json"))
	assert.Error(t, err)
}

func TestLoadStoredPair(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := sink.NewSQLSink(db, sink.DriverMySQL)
	require.NoError(t, err)

	for _, id := range []string{"before", "after"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT root, taken_at FROM treegen_snapshots")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"root", "taken_at"}).AddRow("fixture", []byte("2025-01-01 00:00:00")))
		rows := sqlmock.NewRows([]string{"kind", "path", "name", "size", "last_modified"}).
			AddRow("directory", "fixture/d", "d", nil, nil)
		if id == "after" {
			rows.AddRow("file", "fixture/d/x.txt", "x.txt", int64(3), []byte("2025-01-01 00:00:01"))
		}
		mock.ExpectQuery(regexp.QuoteMeta("FROM treegen_entries")).WithArgs(id).WillReturnRows(rows)
	}

	before, after, err := loadStoredPair(context.Background(), store, "before", "after")
	require.NoError(t, err)
	delta := fixture.Diff(before.Entries, after.Entries)
	require.Len(t, delta.Added, 1)
	assert.Equal(t, "fixture/d/x.txt", delta.Added[0].Path)
	assert.Empty(t, delta.Removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiffFromSQLUnsupportedDriver(t *testing.T) {
	_, err := execute(t, "diff", "--sql", "--db-driver", "sqlite", "a", "b")
	assert.ErrorIs(t, err, sink.ErrUnsupportedDriver)
}

func TestRunCommand(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	out, err := execute(t, append([]string{"run", "--cycles", "2", "--delay", "0s", "--mutations-min", "1", "--mutations-max", "2"}, smallTree(root)...)...)
	require.NoError(t, err)

	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0, out)
	var summary runner.Summary
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &summary))
	assert.Equal(t, 2, summary.Cycles)
	assert.Equal(t, strings.Count(out, "cycle "), summary.Changes)
}

func TestPublishUnknownTarget(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := execute(t, append([]string{"generate"}, smallTree(root)...)...)
	require.NoError(t, err)

	_, err = execute(t, append([]string{"publish", "--to", "ftp"}, smallTree(root)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown publish target")
}

func TestVerifyAgainstServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	srv := httptest.NewServer(web.NewRouter(web.Config{
		AccessToken: "secret",
		ServeRoot:   filepath.Join(dir, "served"),
		FixtureRoot: filepath.Join(dir, "unused"),
		Options:     fixture.DefaultOptions(),
	}))
	t.Cleanup(srv.Close)

	root := filepath.Join(dir, "fixture")
	_, err := execute(t, append([]string{"generate"}, smallTree(root)...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"verify", "--endpoint", srv.URL, "--access-token", "secret"}, smallTree(root)...)...)
	require.NoError(t, err)
	var rep harness.VerifyReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.OK())
	assert.Positive(t, rep.Directories)

	_, err = execute(t, append([]string{"verify", "--endpoint", srv.URL, "--access-token", "wrong"}, smallTree(root)...)...)
	assert.Error(t, err)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestRunServerListenError(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler()}
	err := runServer(context.Background(), srv, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start treegen server")
}
