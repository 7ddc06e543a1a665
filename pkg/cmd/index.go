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
	"github.com/spf13/cobra"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/report"
)

var (
	indexOut  string
	indexTree bool
)

var indexCMD = &cobra.Command{
	Use:   "index",
	Short: "index the tree under --root",
	Long:  `print the index of --root as JSON, or store it as a snapshot file with --out`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if indexTree {
			return report.PrintTree(cmd.OutOrStdout(), flag.RootPath)
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		idx, err := engine.Index()
		if err != nil {
			return err
		}

		if indexOut == "" {
			if idx == nil {
				idx = fixture.Index{}
			}
			return writeJSON(cmd.OutOrStdout(), idx)
		}
		snap := fixture.NewSnapshot(flag.RootPath, idx)
		if err := fixture.WriteSnapshot(indexOut, snap); err != nil {
			return err
		}
		log.Info("snapshot %s with %d entries written to %s", snap.ID, len(idx), indexOut)
		return nil
	},
}

func init() {
	indexCMD.Flags().StringVarP(&indexOut, "out", "o", "", "Write a snapshot file instead of printing the index")
	indexCMD.Flags().BoolVar(&indexTree, "tree", false, "Print the tree with box-drawing connectors")
	rootCMD.AddCommand(indexCMD)
}
