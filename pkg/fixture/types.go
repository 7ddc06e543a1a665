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
	"time"
)

var (
	// ErrInvalidOptions is returned when generation or mutation bounds are out of range.
	ErrInvalidOptions = errors.New("invalid fixture options")
	// ErrRootNotDirectory is returned when the configured root exists but is not a directory.
	ErrRootNotDirectory = errors.New("root is not a directory")
	// ErrRootDelete guards the root against removal.
	ErrRootDelete = errors.New("refusing to delete root directory")
)

// EntryKind distinguishes files from directories in an index.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// IndexEntry is an immutable snapshot record of one file or directory.
// Path is relative to the parent of the indexed root, so it starts with the root's own name.
// Size and LastModified are only set for files.
type IndexEntry struct {
	Kind         EntryKind  `json:"type"`
	Path         string     `json:"path"`
	Name         string     `json:"name"`
	Size         *int64     `json:"size,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

func (e IndexEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Index is the ordered result of one indexer pass.
type Index []IndexEntry

// Counts returns the number of directory and file entries.
func (idx Index) Counts() (dirs, files int) {
	for _, e := range idx {
		if e.IsDir() {
			dirs++
		} else {
			files++
		}
	}
	return dirs, files
}

// TotalSize sums the size of every file entry.
func (idx Index) TotalSize() int64 {
	var total int64
	for _, e := range idx {
		if e.Size != nil {
			total += *e.Size
		}
	}
	return total
}

// Operation names a mutation kind.
type Operation string

const (
	OpAddFile Operation = "add_file"
	OpAddDir  Operation = "add_dir"
	OpDelete  Operation = "delete"
	OpModify  Operation = "modify"
)

// Operations lists every mutation kind; the engine draws uniformly from it.
var Operations = []Operation{OpAddFile, OpAddDir, OpDelete, OpModify}

// ChangeRecord describes one applied mutation.
type ChangeRecord struct {
	Operation   Operation `json:"operation"`
	Kind        EntryKind `json:"kind"`
	TargetPath  string    `json:"target_path"`
	Description string    `json:"description"`
}

// ContentMode is how a generated file is filled.
type ContentMode string

const (
	ContentEmpty  ContentMode = "empty"
	ContentRandom ContentMode = "random-filled"
)

// Stats counts what a generation pass actually created.
type Stats struct {
	Directories int   `json:"directories"`
	Files       int   `json:"files"`
	Bytes       int64 `json:"bytes"`
}
