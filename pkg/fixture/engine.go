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
	"time"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/metrics"
)

// Engine binds a generator, a mutator and an indexer to one root and one
// randomness source. Callers must not use an Engine from several goroutines.
type Engine struct {
	root string
	gen  *Generator
	mut  *Mutator
	idx  *Indexer
}

func NewEngine(root string, opts Options, indexOpts IndexOptions, r *Rand) (*Engine, error) {
	gen, err := NewGenerator(opts, r)
	if err != nil {
		return nil, err
	}
	mut, err := NewMutator(opts, r)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndexer(indexOpts)
	if err != nil {
		return nil, err
	}
	return &Engine{root: root, gen: gen, mut: mut, idx: idx}, nil
}

func (e *Engine) Root() string {
	return e.root
}

// Generate builds a fresh tree under the engine root.
func (e *Engine) Generate() (Stats, error) {
	stats, err := e.gen.Generate(e.root)
	metrics.RecordGeneration(stats.Directories, stats.Files, stats.Bytes)
	if err != nil {
		return stats, err
	}
	log.Info("generated %d directories and %d files (%d bytes) under %s",
		stats.Directories, stats.Files, stats.Bytes, e.root)
	return stats, nil
}

// Index snapshots the tree under the engine root.
func (e *Engine) Index() (Index, error) {
	start := time.Now()
	idx, err := e.idx.Build(e.root)
	if err != nil {
		return nil, err
	}
	dirs, files := idx.Counts()
	metrics.RecordIndex(dirs, files, time.Since(start))
	log.Info("indexed %d entries (%d directories, %d files) under %s", len(idx), dirs, files, e.root)
	return idx, nil
}

// Mutate applies count random operations to the tree under the engine root.
func (e *Engine) Mutate(count int) ([]ChangeRecord, error) {
	records, err := e.mut.Apply(e.root, count)
	for _, rec := range records {
		metrics.RecordMutation(string(rec.Operation), string(rec.Kind))
	}
	if err != nil {
		return records, err
	}
	log.Info("applied %d of %d mutation slots under %s", len(records), count, e.root)
	return records, nil
}
