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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/report"
	"github.com/alibaba/opensandbox/treegen/pkg/sink"
)

var (
	diffUnified bool
	diffContext int
	diffFromSQL bool
)

var diffCMD = &cobra.Command{
	Use:   "diff <before> <after>",
	Short: "compare two snapshots",
	Long: `compare two snapshot files, or with --sql two snapshot ids stored by
"run --record" or "publish --to sql"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, after, err := loadSnapshotPair(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if diffUnified {
			patch, err := report.UnifiedIndexDiff(args[0], args[1], before.Entries, after.Entries, diffContext)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), patch)
			return err
		}
		return writeJSON(cmd.OutOrStdout(), fixture.Diff(before.Entries, after.Entries))
	},
}

func loadSnapshotPair(ctx context.Context, a, b string) (*fixture.Snapshot, *fixture.Snapshot, error) {
	if !diffFromSQL {
		before, err := fixture.ReadSnapshot(a)
		if err != nil {
			return nil, nil, err
		}
		after, err := fixture.ReadSnapshot(b)
		if err != nil {
			return nil, nil, err
		}
		return before, after, nil
	}

	store, err := sink.OpenSQL(ctx, flag.DatabaseDriver, flag.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()
	return loadStoredPair(ctx, store, a, b)
}

func loadStoredPair(ctx context.Context, store *sink.SQLSink, a, b string) (*fixture.Snapshot, *fixture.Snapshot, error) {
	before, err := store.LoadSnapshot(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	after, err := store.LoadSnapshot(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func init() {
	diffCMD.Flags().BoolVarP(&diffUnified, "unified", "u", false, "Print a unified diff of the two index listings")
	diffCMD.Flags().IntVar(&diffContext, "context", report.DefaultContext, "Context lines for --unified")
	diffCMD.Flags().BoolVar(&diffFromSQL, "sql", false, "Treat the arguments as snapshot ids in the SQL sink (--db-driver, --db-dsn)")
	rootCMD.AddCommand(diffCMD)
}
