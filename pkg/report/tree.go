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

package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	indentBar  = "│   "
	indentNone = "    "
)

// PrintTree draws the tree under root. Within a directory, subdirectories come
// before files and each group is ordered by name.
func PrintTree(w io.Writer, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	if _, err := fmt.Fprintf(w, "%s/\n", filepath.Base(filepath.Clean(root))); err != nil {
		return err
	}
	return printDir(w, root, "")
}

func printDir(w io.Writer, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		iFile, jFile := !entries[i].IsDir(), !entries[j].IsDir()
		if iFile != jFile {
			return !iFile
		}
		return entries[i].Name() < entries[j].Name()
	})

	for i, entry := range entries {
		last := i == len(entries)-1
		connector, childPrefix := branchMid, prefix+indentBar
		if last {
			connector, childPrefix = branchLast, prefix+indentNone
		}

		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, connector, name); err != nil {
			return err
		}
		if entry.IsDir() {
			if err := printDir(w, filepath.Join(dir, entry.Name()), childPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}
