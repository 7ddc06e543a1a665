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

package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

// Mismatch is a file whose round trip through the server did not return the original bytes.
type Mismatch struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type VerifyReport struct {
	Files       int           `json:"files"`
	Directories int           `json:"directories"`
	Bytes       int64         `json:"bytes"`
	Mismatches  []Mismatch    `json:"mismatches"`
	Duration    time.Duration `json:"duration"`
}

func (r *VerifyReport) OK() bool {
	return len(r.Mismatches) == 0
}

// Verifier uploads a fixture tree to a file server and reads every file back.
type Verifier struct {
	client  *Client
	indexer *fixture.Indexer
}

func NewVerifier(client *Client, indexOpts fixture.IndexOptions) (*Verifier, error) {
	indexer, err := fixture.NewIndexer(indexOpts)
	if err != nil {
		return nil, err
	}
	return &Verifier{client: client, indexer: indexer}, nil
}

// Verify mirrors root onto the server under its base name. Files land in the
// same relative directory they occupy locally. Transport failures abort the
// run; content differences are collected in the report.
func (v *Verifier) Verify(ctx context.Context, root string) (*VerifyReport, error) {
	start := time.Now()
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	idx, err := v.indexer.Build(abs)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{}
	parent := filepath.Dir(abs)
	for _, entry := range idx {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if entry.IsDir() {
			report.Directories++
			continue
		}

		local := filepath.Join(parent, entry.Path)
		remote := filepath.ToSlash(entry.Path)
		want, err := os.ReadFile(local)
		if err != nil {
			// the tree may be mutated concurrently
			log.Warn("skip %s: %v", local, err)
			continue
		}

		if _, err := v.client.Upload(ctx, local, filepath.ToSlash(filepath.Dir(entry.Path))); err != nil {
			return report, fmt.Errorf("upload %s: %w", remote, err)
		}
		got, err := v.client.Raw(ctx, remote)
		if err != nil {
			return report, fmt.Errorf("download %s: %w", remote, err)
		}

		report.Files++
		report.Bytes += int64(len(want))
		if !bytes.Equal(want, got) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Path:   remote,
				Reason: fmt.Sprintf("sent %d bytes, received %d", len(want), len(got)),
			})
		}
	}

	report.Duration = time.Since(start)
	log.Info("verified %d files (%d bytes) under %s: %d mismatches",
		report.Files, report.Bytes, root, len(report.Mismatches))
	return report, nil
}
