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
	"strings"
)

// inventory is the set of mutation candidates under a root. It is built by one
// scan per mutation batch and kept current as the batch creates and removes entries.
type inventory struct {
	root  string
	dirs  pathSet // non-root directories
	files pathSet
}

func scanInventory(root string) (*inventory, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	inv := &inventory{root: root, dirs: newPathSet(), files: newPathSet()}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		switch {
		case p == root:
		case d.IsDir():
			inv.dirs.add(p)
		case d.Type().IsRegular():
			inv.files.add(p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return inv, nil
}

// randomDir picks uniformly among all directories, root included.
func (inv *inventory) randomDir(r *Rand) string {
	i := r.IntN(inv.dirs.len() + 1)
	if i == 0 {
		return inv.root
	}
	return inv.dirs.at(i - 1)
}

// removeTree forgets dir and everything below it.
func (inv *inventory) removeTree(dir string) {
	inv.dirs.remove(dir)
	prefix := dir + string(filepath.Separator)
	inv.dirs.removeIf(func(p string) bool { return strings.HasPrefix(p, prefix) })
	inv.files.removeIf(func(p string) bool { return strings.HasPrefix(p, prefix) })
}

// pathSet supports O(1) add, remove and uniform pick.
type pathSet struct {
	items []string
	pos   map[string]int
}

func newPathSet() pathSet {
	return pathSet{pos: make(map[string]int)}
}

func (s *pathSet) len() int { return len(s.items) }

func (s *pathSet) at(i int) string { return s.items[i] }

func (s *pathSet) random(r *Rand) string {
	return s.items[r.IntN(len(s.items))]
}

func (s *pathSet) add(p string) {
	if _, ok := s.pos[p]; ok {
		return
	}
	s.pos[p] = len(s.items)
	s.items = append(s.items, p)
}

func (s *pathSet) remove(p string) {
	i, ok := s.pos[p]
	if !ok {
		return
	}
	last := len(s.items) - 1
	s.items[i] = s.items[last]
	s.pos[s.items[i]] = i
	s.items = s.items[:last]
	delete(s.pos, p)
}

func (s *pathSet) removeIf(match func(string) bool) {
	kept := s.items[:0]
	for _, p := range s.items {
		if match(p) {
			delete(s.pos, p)
			continue
		}
		s.pos[p] = len(kept)
		kept = append(kept, p)
	}
	s.items = kept
}
