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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/runner"
	"github.com/alibaba/opensandbox/treegen/pkg/sink"
)

var (
	runKeep   bool
	runRecord bool
)

var runCMD = &cobra.Command{
	Use:   "run",
	Short: "generate a tree and run timed mutation cycles against it",
	Long: `remove any previous tree at --root, generate a new one, then run --cycles
cycles of mutate and re-index, pausing --delay before each cycle.
With --record, every cycle's index and changes are stored in the SQL sink.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, err := runner.New(runner.Config{
			Root:         flag.RootPath,
			Options:      flag.FixtureOptions(),
			Index:        flag.IndexOptions(),
			MutationMin:  flag.MutationMin,
			MutationMax:  flag.MutationMax,
			Cycles:       flag.CycleCount,
			Delay:        flag.CycleDelay,
			Seed:         flag.Seed,
			KeepExisting: runKeep,
		})
		if err != nil {
			return err
		}

		var store *sink.SQLSink
		if runRecord {
			store, err = sink.OpenSQL(ctx, flag.DatabaseDriver, flag.DatabaseDSN)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		var sinkErr error
		summary, err := r.Run(ctx, func(rep runner.CycleReport) {
			for _, rec := range rep.Records {
				fmt.Fprintf(out, "cycle %d: %s\n", rep.Cycle, rec.Description)
			}
			if store == nil || sinkErr != nil {
				return
			}
			snap := fixture.NewSnapshot(flag.RootPath, rep.Index)
			if sinkErr = store.SaveSnapshot(ctx, snap); sinkErr != nil {
				return
			}
			sinkErr = store.SaveChanges(ctx, snap.ID, rep.Records)
		})
		if summary != nil {
			log.Info("run finished: %d cycles, %d changes, %d entries",
				summary.Cycles, summary.Changes, len(summary.Final))
			if werr := writeJSON(out, summary); werr != nil && err == nil {
				err = werr
			}
		}
		if err != nil {
			return err
		}
		return sinkErr
	},
}

func init() {
	runCMD.Flags().BoolVar(&runKeep, "keep", false, "Do not remove an existing tree at --root first")
	runCMD.Flags().BoolVar(&runRecord, "record", false, "Store each cycle in the SQL sink (--db-driver, --db-dsn)")
	rootCMD.AddCommand(runCMD)
}
