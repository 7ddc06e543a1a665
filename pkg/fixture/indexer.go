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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

// IndexOptions tunes an Indexer.
type IndexOptions struct {
	// Exclude holds doublestar patterns matched against root-relative slash paths.
	// An excluded directory is skipped together with its subtree.
	Exclude []string `json:"exclude,omitempty"`
}

// Indexer walks a hierarchy and produces a flat Index.
type Indexer struct {
	exclude []string
}

func NewIndexer(opts IndexOptions) (*Indexer, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: bad exclude pattern %q", ErrInvalidOptions, pattern)
		}
	}
	return &Indexer{exclude: append([]string(nil), opts.Exclude...)}, nil
}

// BuildIndex indexes root with default options.
func BuildIndex(root string) (Index, error) {
	return (&Indexer{}).Build(root)
}

// Build walks root top-down. Every visited directory contributes its own entry
// (root excepted), then its files, then the walk descends into its subdirectories
// in name order. Paths that vanish during the walk are skipped.
func (ix *Indexer) Build(root string) (Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	w := &walk{ix: ix, entries: make(Index, 0, 64)}
	if err := w.visit(abs, filepath.Base(abs), "", true); err != nil {
		return nil, err
	}
	return w.entries, nil
}

type walk struct {
	ix      *Indexer
	entries Index
}

// visit indexes dir. display is the path reported in entries; rel is the
// slash-separated path below the root used for exclusion.
func (w *walk) visit(dir, display, rel string, isRoot bool) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return fmt.Errorf("read root %s: %w", dir, err)
		}
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("directory vanished during walk: %s", dir)
		} else {
			log.Warn("skipping unreadable directory %s: %v", dir, err)
		}
		return nil
	}

	if !isRoot {
		w.entries = append(w.entries, IndexEntry{
			Kind: KindDirectory,
			Path: display,
			Name: filepath.Base(dir),
		})
	}

	var subdirs []fs.DirEntry
	for _, child := range children {
		if w.ix.excluded(path.Join(rel, child.Name())) {
			continue
		}
		if child.IsDir() {
			subdirs = append(subdirs, child)
			continue
		}
		// symlinks, sockets and devices are neither followed nor indexed
		if !child.Type().IsRegular() {
			log.Debug("skipping non-regular entry %s", filepath.Join(dir, child.Name()))
			continue
		}
		info, err := child.Info()
		if err != nil {
			log.Debug("file vanished during walk: %s: %v", filepath.Join(dir, child.Name()), err)
			continue
		}
		size := info.Size()
		modTime := info.ModTime()
		w.entries = append(w.entries, IndexEntry{
			Kind:         KindFile,
			Path:         filepath.Join(display, child.Name()),
			Name:         child.Name(),
			Size:         &size,
			LastModified: &modTime,
		})
	}

	for _, sub := range subdirs {
		if err := w.visit(
			filepath.Join(dir, sub.Name()),
			filepath.Join(display, sub.Name()),
			path.Join(rel, sub.Name()),
			false,
		); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) excluded(rel string) bool {
	for _, pattern := range ix.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
