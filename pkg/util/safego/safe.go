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

package safego

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	runtimeutil "k8s.io/apimachinery/pkg/util/runtime"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

func InitPanicLogger(_ context.Context) {
	runtimeutil.PanicHandlers = []func(context.Context, any){
		func(_ context.Context, r any) {
			if r == http.ErrAbortHandler { // nolint:errorlint
				return
			}

			const size = 64 << 10
			stacktrace := make([]byte, size)
			stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
			log.Error("Observed a panic: %v\n%s", r, stacktrace)
		},
	}
}

func init() {
	runtimeutil.ReallyCrash = false
}

func Go(f func()) {
	go func() {
		defer runtimeutil.HandleCrash()

		f()
	}()
}

// GoErr runs f in its own goroutine and delivers its result, or the
// recovered panic as an error, on the returned channel.
func GoErr(f func() error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				runtimeutil.HandleError(fmt.Errorf("recovered panic: %v", r))
				errCh <- fmt.Errorf("panic: %v", r)
			}
		}()
		errCh <- f()
	}()
	return errCh
}
