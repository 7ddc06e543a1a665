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

package fixture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileEntry(path string, size int64, mod time.Time) IndexEntry {
	return IndexEntry{Kind: KindFile, Path: path, Name: filepath.Base(path), Size: &size, LastModified: &mod}
}

func dirEntry(path string) IndexEntry {
	return IndexEntry{Kind: KindDirectory, Path: path, Name: filepath.Base(path)}
}

func TestDiff(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	t1 := t0.Add(time.Second)

	prev := Index{
		dirEntry("r/a"),
		fileEntry("r/a/same.txt", 10, t0),
		fileEntry("r/a/grown.txt", 10, t0),
		fileEntry("r/a/touched.txt", 10, t0),
		fileEntry("r/gone.txt", 1, t0),
		dirEntry("r/old"),
	}
	curr := Index{
		dirEntry("r/a"),
		fileEntry("r/a/same.txt", 10, t0),
		fileEntry("r/a/grown.txt", 20, t0),
		fileEntry("r/a/touched.txt", 10, t1),
		dirEntry("r/new"),
		fileEntry("r/new/n.txt", 0, t1),
	}

	d := Diff(prev, curr)
	assert.False(t, d.Empty())
	assert.Equal(t, []string{"r/new", "r/new/n.txt"}, paths(d.Added))
	assert.Equal(t, []string{"r/gone.txt", "r/old"}, paths(d.Removed))
	assert.Equal(t, []string{"r/a/grown.txt", "r/a/touched.txt"}, paths(d.Changed))
	assert.Equal(t, int64(20), *d.Changed[0].Size)
}

func TestDiffKindSwitch(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	d := Diff(Index{dirEntry("r/x")}, Index{fileEntry("r/x", 3, t0)})
	assert.Equal(t, []string{"r/x"}, paths(d.Changed))
}

func TestDiffAfterMutationsMatchesRecords(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := Generate(root, smallOptions(2, 3, 2), NewRand(31))
	require.NoError(t, err)

	before, err := BuildIndex(root)
	require.NoError(t, err)
	assert.True(t, Diff(before, before).Empty())

	records, err := newTestMutator(t, 31).Apply(root, 1)
	require.NoError(t, err)
	after, err := BuildIndex(root)
	require.NoError(t, err)

	d := Diff(before, after)
	if len(records) == 0 {
		assert.True(t, d.Empty())
		return
	}
	rel, err := filepath.Rel(filepath.Dir(root), records[0].TargetPath)
	require.NoError(t, err)
	switch records[0].Operation {
	case OpAddFile, OpAddDir:
		assert.Contains(t, paths(d.Added), rel)
	case OpDelete:
		assert.Contains(t, paths(d.Removed), rel)
	case OpModify:
		// Same size and a coarse mtime can hide a rewrite.
		assert.Empty(t, d.Added)
		assert.Empty(t, d.Removed)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := Generate(root, smallOptions(1, 3, 2), NewRand(4))
	require.NoError(t, err)
	idx, err := BuildIndex(root)
	require.NoError(t, err)

	snap := NewSnapshot(root, idx)
	require.NotEmpty(t, snap.ID)

	out := filepath.Join(t.TempDir(), "snapshots", "first.json")
	require.NoError(t, WriteSnapshot(out, snap))

	loaded, err := ReadSnapshot(out)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, root, loaded.Root)
	assert.True(t, Diff(idx, loaded.Entries).Empty())
}

func TestReadSnapshotErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadSnapshot(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadSnapshot(bad)
	assert.Error(t, err)
}

func paths(entries []IndexEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, filepath.ToSlash(e.Path))
	}
	return out
}
