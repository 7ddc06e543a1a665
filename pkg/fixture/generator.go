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
	"path/filepath"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

// Generator materializes bounded random hierarchies.
type Generator struct {
	opts    Options
	content contentPolicy
	rand    *Rand
}

// node is one directory visited by the generator.
type node struct {
	path  string
	depth int
}

func NewGenerator(opts Options, r *Rand) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{opts: opts, content: opts.content(), rand: r}, nil
}

// Generate builds a tree under root, creating root if needed.
// Files are placed at every depth up to and including MaxDepth; subdirectories
// only below MaxDepth.
func (g *Generator) Generate(root string) (Stats, error) {
	var stats Stats
	if err := EnsureRoot(root); err != nil {
		return stats, err
	}
	err := g.populate(node{path: root, depth: 0}, &stats)
	return stats, err
}

func (g *Generator) populate(n node, stats *Stats) error {
	if n.depth > g.opts.MaxDepth {
		return nil
	}

	files := g.rand.IntRange(1, g.opts.MaxFilesPerDir)
	for i := 0; i < files; i++ {
		path := filepath.Join(n.path, g.rand.FileName())
		_, statErr := os.Lstat(path)
		mode, size, err := g.content.writeAny(g.rand, path)
		if err != nil {
			return err
		}
		if statErr != nil {
			stats.Files++
		}
		stats.Bytes += size
		log.Debug("created file %s (%s, %d bytes)", path, mode, size)
	}

	if n.depth >= g.opts.MaxDepth {
		return nil
	}

	dirs := g.rand.IntRange(1, g.opts.MaxDirsPerDir)
	for i := 0; i < dirs; i++ {
		path := filepath.Join(n.path, g.rand.Name())
		created, err := makeDir(path)
		if err != nil {
			return err
		}
		if created {
			stats.Directories++
			log.Debug("created directory %s", path)
		}
		if err := g.populate(node{path: path, depth: n.depth + 1}, stats); err != nil {
			return err
		}
	}
	return nil
}

// EnsureRoot creates root if absent and checks that it is a directory.
func EnsureRoot(root string) error {
	info, err := os.Stat(root)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("create root %s: %w", root, err)
		}
		log.Info("created root directory %s", root)
		return nil
	default:
		return fmt.Errorf("stat root %s: %w", root, err)
	}
}

// makeDir creates a single directory. An existing directory is accepted.
func makeDir(path string) (bool, error) {
	err := os.Mkdir(path, 0o755)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrExist) {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			return false, nil
		}
	}
	return false, fmt.Errorf("create directory %s: %w", path, err)
}

// Generate is a convenience wrapper around NewGenerator and Generator.Generate.
func Generate(root string, opts Options, r *Rand) (Stats, error) {
	g, err := NewGenerator(opts, r)
	if err != nil {
		return Stats{}, err
	}
	return g.Generate(root)
}
