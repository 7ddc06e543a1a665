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
	"fmt"
	"os"
	"path/filepath"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

// Mutator applies random structural drift to an existing hierarchy.
type Mutator struct {
	content contentPolicy
	rand    *Rand
}

func NewMutator(opts Options, r *Rand) (*Mutator, error) {
	if opts.FileSizeMinKiB < 1 || opts.FileSizeMaxKiB < opts.FileSizeMinKiB {
		return nil, fmt.Errorf("%w: file size range [%d,%d]", ErrInvalidOptions, opts.FileSizeMinKiB, opts.FileSizeMaxKiB)
	}
	return &Mutator{content: opts.content(), rand: r}, nil
}

// Apply performs count operation slots, each drawn uniformly from Operations, and
// returns the records of the ones that changed something, in application order.
// Slots with no eligible target are skipped. A file-system error stops the batch;
// changes already applied stay in place and their records are returned with the error.
func (m *Mutator) Apply(root string, count int) ([]ChangeRecord, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative mutation count %d", ErrInvalidOptions, count)
	}
	inv, err := scanInventory(root)
	if err != nil {
		return nil, err
	}

	records := make([]ChangeRecord, 0, count)
	for i := 0; i < count; i++ {
		op := Operations[m.rand.IntN(len(Operations))]
		rec, ok, err := m.apply(op, inv)
		if err != nil {
			return records, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			log.Debug("mutation slot %d (%s) had no eligible target", i, op)
			continue
		}
		log.Debug("%s", rec.Description)
		records = append(records, rec)
	}
	return records, nil
}

func (m *Mutator) apply(op Operation, inv *inventory) (ChangeRecord, bool, error) {
	switch op {
	case OpAddFile:
		return m.addFile(inv)
	case OpAddDir:
		return m.addDir(inv)
	case OpDelete:
		return m.delete(inv)
	case OpModify:
		return m.modify(inv)
	default:
		return ChangeRecord{}, false, fmt.Errorf("unknown operation %q", op)
	}
}

func (m *Mutator) addFile(inv *inventory) (ChangeRecord, bool, error) {
	path := filepath.Join(inv.randomDir(m.rand), m.rand.FileName())
	mode, size, err := m.content.writeAny(m.rand, path)
	if err != nil {
		return ChangeRecord{}, false, err
	}
	inv.files.add(path)
	return ChangeRecord{
		Operation:   OpAddFile,
		Kind:        KindFile,
		TargetPath:  path,
		Description: fmt.Sprintf("added file: %s (%s, %d bytes)", path, mode, size),
	}, true, nil
}

func (m *Mutator) addDir(inv *inventory) (ChangeRecord, bool, error) {
	path := filepath.Join(inv.randomDir(m.rand), m.rand.Name())
	if _, err := makeDir(path); err != nil {
		return ChangeRecord{}, false, err
	}
	inv.dirs.add(path)
	return ChangeRecord{
		Operation:   OpAddDir,
		Kind:        KindDirectory,
		TargetPath:  path,
		Description: fmt.Sprintf("added directory: %s", path),
	}, true, nil
}

func (m *Mutator) delete(inv *inventory) (ChangeRecord, bool, error) {
	hasFiles, hasDirs := inv.files.len() > 0, inv.dirs.len() > 0
	switch {
	case hasFiles && hasDirs:
		if m.rand.Bool() {
			return m.deleteFile(inv)
		}
		return m.deleteDir(inv)
	case hasFiles:
		return m.deleteFile(inv)
	case hasDirs:
		return m.deleteDir(inv)
	default:
		return ChangeRecord{}, false, nil
	}
}

func (m *Mutator) deleteFile(inv *inventory) (ChangeRecord, bool, error) {
	path := inv.files.random(m.rand)
	if err := os.Remove(path); err != nil {
		return ChangeRecord{}, false, fmt.Errorf("remove file %s: %w", path, err)
	}
	inv.files.remove(path)
	return ChangeRecord{
		Operation:   OpDelete,
		Kind:        KindFile,
		TargetPath:  path,
		Description: fmt.Sprintf("deleted file: %s", path),
	}, true, nil
}

func (m *Mutator) deleteDir(inv *inventory) (ChangeRecord, bool, error) {
	path := inv.dirs.random(m.rand)
	if filepath.Clean(path) == filepath.Clean(inv.root) {
		return ChangeRecord{}, false, ErrRootDelete
	}
	if err := os.RemoveAll(path); err != nil {
		return ChangeRecord{}, false, fmt.Errorf("remove directory %s: %w", path, err)
	}
	inv.removeTree(path)
	return ChangeRecord{
		Operation:   OpDelete,
		Kind:        KindDirectory,
		TargetPath:  path,
		Description: fmt.Sprintf("deleted directory: %s", path),
	}, true, nil
}

func (m *Mutator) modify(inv *inventory) (ChangeRecord, bool, error) {
	if inv.files.len() == 0 {
		return ChangeRecord{}, false, nil
	}
	path := inv.files.random(m.rand)
	size, err := m.content.writeRandom(m.rand, path)
	if err != nil {
		return ChangeRecord{}, false, err
	}
	return ChangeRecord{
		Operation:   OpModify,
		Kind:        KindFile,
		TargetPath:  path,
		Description: fmt.Sprintf("modified file: %s (%d bytes)", path, size),
	}, true, nil
}

// ApplyMutations is a convenience wrapper around NewMutator and Mutator.Apply.
func ApplyMutations(root string, count int, opts Options, r *Rand) ([]ChangeRecord, error) {
	m, err := NewMutator(opts, r)
	if err != nil {
		return nil, err
	}
	return m.Apply(root, count)
}
