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
	"sort"
)

// Delta is the path-keyed difference between two indexes.
type Delta struct {
	Added   []IndexEntry `json:"added"`
	Removed []IndexEntry `json:"removed"`
	Changed []IndexEntry `json:"changed"`
}

// Empty reports whether the two indexes were equivalent.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares prev with curr by path. A file is changed when its size or
// modification time differs, or when an entry switched between file and directory.
// Changed entries carry the curr values. Each list is sorted by path.
func Diff(prev, curr Index) Delta {
	prevByPath := indexByPath(prev)
	currByPath := indexByPath(curr)

	var d Delta
	for p, before := range prevByPath {
		after, ok := currByPath[p]
		if !ok {
			d.Removed = append(d.Removed, before)
			continue
		}
		if entryChanged(before, after) {
			d.Changed = append(d.Changed, after)
		}
	}
	for p, after := range currByPath {
		if _, ok := prevByPath[p]; !ok {
			d.Added = append(d.Added, after)
		}
	}

	sortByPath(d.Added)
	sortByPath(d.Removed)
	sortByPath(d.Changed)
	return d
}

func indexByPath(idx Index) map[string]IndexEntry {
	m := make(map[string]IndexEntry, len(idx))
	for _, e := range idx {
		m[e.Path] = e
	}
	return m
}

func entryChanged(a, b IndexEntry) bool {
	if a.Kind != b.Kind {
		return true
	}
	if a.IsDir() {
		return false
	}
	if (a.Size == nil) != (b.Size == nil) || (a.Size != nil && *a.Size != *b.Size) {
		return true
	}
	if (a.LastModified == nil) != (b.LastModified == nil) {
		return true
	}
	return a.LastModified != nil && !a.LastModified.Equal(*b.LastModified)
}

func sortByPath(entries []IndexEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}
