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
)

var mutateCount int

var mutateCMD = &cobra.Command{
	Use:   "mutate",
	Short: "apply random add, delete and modify operations to --root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		records, err := engine.Mutate(mutateCount)
		if records == nil {
			records = []fixture.ChangeRecord{}
		}
		if encErr := writeJSON(cmd.OutOrStdout(), records); encErr != nil && err == nil {
			err = encErr
		}
		return err
	},
}

func init() {
	mutateCMD.Flags().IntVarP(&mutateCount, "count", "n", 3, "Number of operation slots to draw")
	rootCMD.AddCommand(mutateCMD)
}
