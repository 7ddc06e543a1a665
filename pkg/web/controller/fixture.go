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

package controller

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

// FixtureState is the tree served by the fixture API. Handlers serialize on mu
// because generation and mutation share one randomness source and one root.
type FixtureState struct {
	mu        sync.Mutex
	root      string
	options   fixture.Options
	indexOpts fixture.IndexOptions
	rand      *fixture.Rand
}

func NewFixtureState(root string, opts fixture.Options, indexOpts fixture.IndexOptions, seed uint64) *FixtureState {
	return &FixtureState{
		root:      root,
		options:   opts,
		indexOpts: indexOpts,
		rand:      fixture.NewRand(seed),
	}
}

func (s *FixtureState) Root() string {
	return s.root
}

// engine must be called with mu held.
func (s *FixtureState) engine() (*fixture.Engine, error) {
	return fixture.NewEngine(s.root, s.options, s.indexOpts, s.rand)
}

type FixtureController struct {
	*basicController
	state *FixtureState
}

func NewFixtureController(ctx *gin.Context, state *FixtureState) *FixtureController {
	return &FixtureController{basicController: newBasicController(ctx), state: state}
}

// Generate builds a tree under the fixture root.
func (c *FixtureController) Generate() {
	var req model.GenerateRequest
	if err := c.bindJSON(&req); err != nil {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidRequest,
			fmt.Sprintf("error parsing request body. %v", err),
		)
		return
	}
	if err := req.Validate(); err != nil {
		c.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidFixtureInput, err.Error())
		return
	}

	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	opts, err := req.Apply(c.state.options)
	if err != nil {
		c.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidFixtureInput, err.Error())
		return
	}
	if req.Clean {
		if err := os.RemoveAll(c.state.root); err != nil {
			c.RespondError(
				http.StatusInternalServerError,
				model.ErrorCodeRuntimeError,
				fmt.Sprintf("error removing previous tree. %v", err),
			)
			return
		}
	}

	c.state.options = opts
	engine, err := c.state.engine()
	if err != nil {
		c.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidFixtureInput, err.Error())
		return
	}
	stats, err := engine.Generate()
	if err != nil {
		c.respondFixtureError(err)
		return
	}

	c.RespondSuccess(model.GenerateResponse{Root: c.state.root, Options: opts, Stats: stats})
}

// Index returns the current index of the fixture root.
func (c *FixtureController) Index() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	engine, err := c.state.engine()
	if err != nil {
		c.respondFixtureError(err)
		return
	}
	idx, err := engine.Index()
	if err != nil {
		c.respondFixtureError(err)
		return
	}
	if idx == nil {
		idx = fixture.Index{}
	}
	c.RespondSuccess(model.IndexResponse{Root: c.state.root, Entries: idx})
}

// Mutate applies a batch of random operations to the fixture root.
func (c *FixtureController) Mutate() {
	var req model.MutationRequest
	if err := c.bindJSON(&req); err != nil {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidRequest,
			fmt.Sprintf("error parsing request body. %v", err),
		)
		return
	}
	if err := req.Validate(); err != nil {
		c.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidFixtureInput, err.Error())
		return
	}

	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	engine, err := c.state.engine()
	if err != nil {
		c.respondFixtureError(err)
		return
	}
	records, err := engine.Mutate(req.Count)
	if err != nil {
		log.Error("mutation batch failed after %d records: %v", len(records), err)
		c.respondFixtureError(err)
		return
	}
	if records == nil {
		records = []fixture.ChangeRecord{}
	}
	c.RespondSuccess(model.MutationResponse{Requested: req.Count, Records: records})
}

func (c *FixtureController) respondFixtureError(err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.RespondError(
			http.StatusNotFound,
			model.ErrorCodeFixtureNotFound,
			fmt.Sprintf("fixture root %s does not exist; generate it first", c.state.root),
		)
	case errors.Is(err, fixture.ErrInvalidOptions), errors.Is(err, fixture.ErrRootNotDirectory):
		c.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidFixtureInput, err.Error())
	default:
		c.RespondError(http.StatusInternalServerError, model.ErrorCodeRuntimeError, err.Error())
	}
}
