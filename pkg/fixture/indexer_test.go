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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string, dirs ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0o755))
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestBuildIndexOrdering(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeTree(t, root, map[string]string{
		"b.txt":           "bb",
		"a.txt":           "",
		"sub1/x.txt":      "xxx",
		"sub1/deep/y.txt": "y",
		"sub0/z.txt":      "zzzz",
	}, "sub0/empty")

	idx, err := BuildIndex(root)
	require.NoError(t, err)

	type row struct {
		kind EntryKind
		path string
	}
	want := []row{
		{KindFile, "root/a.txt"},
		{KindFile, "root/b.txt"},
		{KindDirectory, "root/sub0"},
		{KindFile, "root/sub0/z.txt"},
		{KindDirectory, "root/sub0/empty"},
		{KindDirectory, "root/sub1"},
		{KindFile, "root/sub1/x.txt"},
		{KindDirectory, "root/sub1/deep"},
		{KindFile, "root/sub1/deep/y.txt"},
	}
	require.Len(t, idx, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, idx[i].Kind, "entry %d", i)
		assert.Equal(t, filepath.FromSlash(w.path), idx[i].Path, "entry %d", i)
		assert.Equal(t, filepath.Base(w.path), idx[i].Name, "entry %d", i)
	}
}

func TestBuildIndexFileMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeTree(t, root, map[string]string{"f.txt": "hello"}, "d")

	idx, err := BuildIndex(root)
	require.NoError(t, err)
	require.Len(t, idx, 2)

	file, dir := idx[0], idx[1]
	require.Equal(t, KindFile, file.Kind)
	require.NotNil(t, file.Size)
	require.NotNil(t, file.LastModified)
	assert.Equal(t, int64(5), *file.Size)

	info, err := os.Stat(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(*file.LastModified))

	assert.Equal(t, KindDirectory, dir.Kind)
	assert.Nil(t, dir.Size)
	assert.Nil(t, dir.LastModified)
}

func TestBuildIndexIsStable(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := Generate(root, smallOptions(3, 4, 3), NewRand(5))
	require.NoError(t, err)

	first, err := BuildIndex(root)
	require.NoError(t, err)
	second, err := BuildIndex(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildIndexEmptiedTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fixture")
	_, err := Generate(root, smallOptions(2, 3, 2), NewRand(11))
	require.NoError(t, err)

	idx, err := BuildIndex(root)
	require.NoError(t, err)
	require.NotEmpty(t, idx)

	children, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, c := range children {
		require.NoError(t, os.RemoveAll(filepath.Join(root, c.Name())))
	}

	idx, err = BuildIndex(root)
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestBuildIndexRootErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := BuildIndex(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = BuildIndex(file)
	assert.ErrorIs(t, err, ErrRootNotDirectory)
}

func TestIndexerSkipsVanishedDirectory(t *testing.T) {
	w := &walk{ix: &Indexer{}}
	err := w.visit(filepath.Join(t.TempDir(), "gone"), "root/gone", "gone", false)
	require.NoError(t, err)
	assert.Empty(t, w.entries)
}

func TestIndexerExclude(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeTree(t, root, map[string]string{
		"keep.txt":        "k",
		"skip.log":        "s",
		"cache/a.txt":     "a",
		"cache/sub/b.txt": "b",
		"docs/c.txt":      "c",
	})

	ix, err := NewIndexer(IndexOptions{Exclude: []string{"**/*.log", "cache"}})
	require.NoError(t, err)
	idx, err := ix.Build(root)
	require.NoError(t, err)

	var paths []string
	for _, e := range idx {
		paths = append(paths, filepath.ToSlash(e.Path))
	}
	assert.Equal(t, []string{"root/keep.txt", "root/docs", "root/docs/c.txt"}, paths)
}

func TestNewIndexerRejectsBadPattern(t *testing.T) {
	_, err := NewIndexer(IndexOptions{Exclude: []string{"[unclosed"}})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func TestBuildIndexSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside")
	writeTree(t, outside, map[string]string{"secret.txt": "s"})
	root := filepath.Join(dir, "root")
	writeTree(t, root, map[string]string{"a.txt": "a"}, "sub")
	symlinkOrSkip(t, outside, filepath.Join(root, "linkdir"))
	symlinkOrSkip(t, filepath.Join(root, "a.txt"), filepath.Join(root, "sub", "linkfile"))

	idx, err := BuildIndex(root)
	require.NoError(t, err)
	var got []string
	for _, e := range idx {
		got = append(got, filepath.ToSlash(e.Path))
	}
	assert.Equal(t, []string{"root/a.txt", "root/sub"}, got)
}
