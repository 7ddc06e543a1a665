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
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/util/safego"
)

var rootCMD = &cobra.Command{
	Use:   "treegen",
	Short: "treegen",
	Long:  `generate, index and mutate synthetic file trees for file sync and indexing tests`,
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := log.SetLevel(flag.LogLevel); err != nil {
			return err
		}
		safego.InitPanicLogger(cmd.Context())
		if err := flag.Validate(); err != nil {
			return err
		}
		log.Info("using seed %d", flag.ResolveSeed(cmd.Flags()))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flag.Defaults()
	flag.Register(rootCMD.PersistentFlags())
}

// Execute applies environment overrides and runs the command line.
func Execute(ctx context.Context) error {
	if err := flag.LoadEnv(); err != nil {
		return err
	}
	defer log.Sync()
	return rootCMD.ExecuteContext(ctx)
}

func newEngine() (*fixture.Engine, error) {
	return fixture.NewEngine(flag.RootPath, flag.FixtureOptions(), flag.IndexOptions(), fixture.NewRand(flag.Seed))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
