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
	"os"

	"github.com/spf13/cobra"

	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/report"
)

var (
	generateClean bool
	generateTree  bool
)

var generateCMD = &cobra.Command{
	Use:   "generate",
	Short: "generate a random tree under --root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateClean {
			log.Info("removing %s before generating", flag.RootPath)
			if err := os.RemoveAll(flag.RootPath); err != nil {
				return fmt.Errorf("remove %s: %w", flag.RootPath, err)
			}
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		stats, err := engine.Generate()
		if err != nil {
			return err
		}

		if generateTree {
			return report.PrintTree(cmd.OutOrStdout(), flag.RootPath)
		}
		return writeJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	generateCMD.Flags().BoolVar(&generateClean, "clean", false, "Remove an existing tree at --root first")
	generateCMD.Flags().BoolVar(&generateTree, "tree", false, "Print the generated tree instead of the counts")
	rootCMD.AddCommand(generateCMD)
}
