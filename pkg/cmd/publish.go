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
	"github.com/alibaba/opensandbox/treegen/pkg/sink"
)

var (
	publishTo       string
	publishSnapshot string
)

var publishCMD = &cobra.Command{
	Use:   "publish",
	Short: "store the index of --root in a SQL database or copy the tree to S3",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		snap, err := loadOrIndex()
		if err != nil {
			return err
		}

		switch publishTo {
		case "sql":
			store, err := sink.OpenSQL(ctx, flag.DatabaseDriver, flag.DatabaseDSN)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			if err := store.SaveSnapshot(ctx, snap); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"snapshot": snap.ID, "entries": len(snap.Entries)})
		case "s3":
			pub, err := sink.NewS3Publisher(ctx, sink.S3Config{
				Endpoint:  flag.S3Endpoint,
				Bucket:    flag.S3Bucket,
				Region:    flag.S3Region,
				AccessKey: flag.S3AccessKey,
				SecretKey: flag.S3SecretKey,
				Prefix:    flag.S3Prefix,
			})
			if err != nil {
				return err
			}
			if err := pub.EnsureBucket(ctx); err != nil {
				return err
			}
			rep, err := pub.Publish(ctx, flag.RootPath, snap)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rep)
		default:
			return fmt.Errorf("unknown publish target %q: use sql or s3", publishTo)
		}
	},
}

func loadOrIndex() (*fixture.Snapshot, error) {
	if publishSnapshot != "" {
		return fixture.ReadSnapshot(publishSnapshot)
	}
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	idx, err := engine.Index()
	if err != nil {
		return nil, err
	}
	return fixture.NewSnapshot(flag.RootPath, idx), nil
}

func init() {
	publishCMD.Flags().StringVar(&publishTo, "to", "sql", "Publish target: sql or s3")
	publishCMD.Flags().StringVar(&publishSnapshot, "snapshot", "", "Publish this snapshot file instead of indexing --root")
	rootCMD.AddCommand(publishCMD)
}
