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

	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/harness"
)

var verifyCMD = &cobra.Command{
	Use:   "verify",
	Short: "upload --root to a file server and check every file reads back unchanged",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := harness.NewClient(flag.Endpoint, harness.WithToken(flag.ServerAccessToken))
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("file server %s unreachable: %w", flag.Endpoint, err)
		}

		v, err := harness.NewVerifier(client, flag.IndexOptions())
		if err != nil {
			return err
		}
		rep, err := v.Verify(ctx, flag.RootPath)
		if err != nil {
			return err
		}
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if !rep.OK() {
			return fmt.Errorf("%d of %d files did not round-trip", len(rep.Mismatches), rep.Files)
		}
		return nil
	},
}

func init() {
	rootCMD.AddCommand(verifyCMD)
}
