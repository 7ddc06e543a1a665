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
	"path/filepath"
	"time"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
)

// DefaultContext is the number of unchanged lines kept around each hunk.
const DefaultContext = 3

// IndexLines renders one line per entry in index order. Paths use forward
// slashes so the output is identical across platforms.
func IndexLines(idx fixture.Index) []string {
	lines := make([]string, 0, len(idx))
	for _, e := range idx {
		p := filepath.ToSlash(e.Path)
		if e.IsDir() {
			lines = append(lines, fmt.Sprintf("d %s/\n", p))
			continue
		}
		var size int64
		if e.Size != nil {
			size = *e.Size
		}
		mod := "-"
		if e.LastModified != nil {
			mod = e.LastModified.UTC().Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("f %s %d %s\n", p, size, mod))
	}
	return lines
}

// UnifiedIndexDiff compares two index passes line by line and returns a
// unified patch. It returns an empty string when both render identically.
func UnifiedIndexDiff(aName, bName string, a, b fixture.Index, context int) (string, error) {
	if context <= 0 {
		context = DefaultContext
	}
	u := difflib.UnifiedDiff{
		A:        IndexLines(a),
		B:        IndexLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	return s, nil
}
