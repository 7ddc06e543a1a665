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

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/metrics"
)

// Config drives one generate-then-mutate session.
type Config struct {
	Root        string               `validate:"required"`
	Options     fixture.Options      `validate:"-"`
	Index       fixture.IndexOptions `validate:"-"`
	MutationMin int                  `validate:"gte=0"`
	MutationMax int                  `validate:"gtefield=MutationMin"`
	Cycles      int                  `validate:"gte=0"`
	Delay       time.Duration        `validate:"gte=0"`
	Seed        uint64
	// KeepExisting skips removing a previous tree at Root before generating.
	KeepExisting bool
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", fixture.ErrInvalidOptions, err)
	}
	if err := c.Options.Validate(); err != nil {
		return err
	}
	clean := filepath.Clean(c.Root)
	if clean == "." || clean == string(filepath.Separator) || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("%w: refusing to use %q as fixture root", fixture.ErrInvalidOptions, c.Root)
	}
	return nil
}

// CycleReport describes one mutation cycle.
type CycleReport struct {
	Cycle     int                    `json:"cycle"`
	Requested int                    `json:"requested"`
	Records   []fixture.ChangeRecord `json:"records"`
	Index     fixture.Index          `json:"-"`
	Delta     fixture.Delta          `json:"delta"`
}

// Summary is what a completed (or interrupted) run produced.
type Summary struct {
	Stats   fixture.Stats `json:"stats"`
	Initial fixture.Index `json:"-"`
	Final   fixture.Index `json:"-"`
	Cycles  int           `json:"cycles"`
	Changes int           `json:"changes"`
}

type Runner struct {
	cfg    Config
	rand   *fixture.Rand
	engine *fixture.Engine
}

func New(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := fixture.NewRand(cfg.Seed)
	engine, err := fixture.NewEngine(cfg.Root, cfg.Options, cfg.Index, r)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, rand: r, engine: engine}, nil
}

// Run cleans the root, generates a tree, indexes it and then runs the
// configured number of mutation cycles. onCycle may be nil. Cancelling ctx
// stops the run between cycles and returns the summary so far with ctx.Err().
func (r *Runner) Run(ctx context.Context, onCycle func(CycleReport)) (*Summary, error) {
	if !r.cfg.KeepExisting {
		if err := cleanup(r.cfg.Root); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	stats, err := r.engine.Generate()
	summary.Stats = stats
	if err != nil {
		return summary, fmt.Errorf("generate: %w", err)
	}

	prev, err := r.engine.Index()
	if err != nil {
		return summary, fmt.Errorf("initial index: %w", err)
	}
	summary.Initial = prev
	summary.Final = prev

	for cycle := 1; cycle <= r.cfg.Cycles; cycle++ {
		if err := sleep(ctx, r.cfg.Delay); err != nil {
			log.Warn("run interrupted before cycle %d: %v", cycle, err)
			return summary, err
		}

		requested := r.rand.IntRange(r.cfg.MutationMin, r.cfg.MutationMax)
		records, err := r.engine.Mutate(requested)
		summary.Changes += len(records)
		if err != nil {
			return summary, fmt.Errorf("cycle %d: %w", cycle, err)
		}

		curr, err := r.engine.Index()
		if err != nil {
			return summary, fmt.Errorf("cycle %d index: %w", cycle, err)
		}

		report := CycleReport{
			Cycle:     cycle,
			Requested: requested,
			Records:   records,
			Index:     curr,
			Delta:     fixture.Diff(prev, curr),
		}
		metrics.RecordCycle()
		log.Info("cycle %d/%d: %d changes, +%d -%d ~%d entries",
			cycle, r.cfg.Cycles, len(records), len(report.Delta.Added), len(report.Delta.Removed), len(report.Delta.Changed))
		if onCycle != nil {
			onCycle(report)
		}

		prev = curr
		summary.Final = curr
		summary.Cycles = cycle
	}
	return summary, nil
}

func cleanup(root string) error {
	if _, err := os.Lstat(root); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	log.Info("removing previous tree at %s", root)
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("remove previous tree %s: %w", root, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
