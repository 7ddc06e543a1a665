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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alibaba/opensandbox/treegen/pkg/flag"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/util/safego"
	"github.com/alibaba/opensandbox/treegen/pkg/web"
)

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "serve the reference file server and the fixture API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine := web.NewRouter(web.Config{
			AccessToken:  flag.ServerAccessToken,
			ServeRoot:    flag.ServeRoot,
			FixtureRoot:  flag.RootPath,
			Options:      flag.FixtureOptions(),
			IndexOptions: flag.IndexOptions(),
			Seed:         flag.Seed,
		})

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", flag.ServerPort),
			Handler: engine,
		}
		log.Info("treegen listening on %s (serving %s, fixture root %s)", srv.Addr, flag.ServeRoot, flag.RootPath)
		return runServer(ctx, srv, flag.ApiGracefulShutdownTimeout)
	},
}

// runServer serves until ctx is cancelled, then drains in-flight requests
// for at most grace.
func runServer(ctx context.Context, srv *http.Server, grace time.Duration) error {
	stopped := make(chan struct{})
	shutdownErr := make(chan error, 1)
	safego.Go(func() {
		select {
		case <-stopped:
			shutdownErr <- nil
			return
		case <-ctx.Done():
		}
		log.Info("shutting down, waiting up to %s", grace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	})

	err := <-safego.GoErr(srv.ListenAndServe)
	close(stopped)
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start treegen server: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func init() {
	rootCMD.AddCommand(serveCMD)
}
