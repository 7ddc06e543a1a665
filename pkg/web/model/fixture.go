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

package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
)

var validate = validator.New()

// GenerateRequest asks the server to build a tree. Zero fields fall back to the server defaults.
type GenerateRequest struct {
	MaxDepth       *int `json:"max_depth,omitempty" validate:"omitempty,gte=0,lte=16"`
	MaxFilesPerDir *int `json:"max_files_per_dir,omitempty" validate:"omitempty,gte=1,lte=1000"`
	MaxDirsPerDir  *int `json:"max_dirs_per_dir,omitempty" validate:"omitempty,gte=1,lte=100"`
	FileSizeMinKiB *int `json:"file_size_min_kib,omitempty" validate:"omitempty,gte=1"`
	FileSizeMaxKiB *int `json:"file_size_max_kib,omitempty" validate:"omitempty,gte=1"`
	// Clean removes the current tree before generating.
	Clean bool `json:"clean,omitempty"`
}

func (r GenerateRequest) Validate() error {
	return validate.Struct(r)
}

// Apply overlays the request on defaults and checks the merged result.
func (r GenerateRequest) Apply(defaults fixture.Options) (fixture.Options, error) {
	opts := defaults
	if r.MaxDepth != nil {
		opts.MaxDepth = *r.MaxDepth
	}
	if r.MaxFilesPerDir != nil {
		opts.MaxFilesPerDir = *r.MaxFilesPerDir
	}
	if r.MaxDirsPerDir != nil {
		opts.MaxDirsPerDir = *r.MaxDirsPerDir
	}
	if r.FileSizeMinKiB != nil {
		opts.FileSizeMinKiB = *r.FileSizeMinKiB
	}
	if r.FileSizeMaxKiB != nil {
		opts.FileSizeMaxKiB = *r.FileSizeMaxKiB
	}
	if err := opts.Validate(); err != nil {
		return fixture.Options{}, err
	}
	return opts, nil
}

type GenerateResponse struct {
	Root    string          `json:"root"`
	Options fixture.Options `json:"options"`
	Stats   fixture.Stats   `json:"stats"`
}

type MutationRequest struct {
	Count int `json:"count" validate:"gte=0,lte=10000"`
}

func (r MutationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid mutation request: %w", err)
	}
	return nil
}

type MutationResponse struct {
	Requested int                    `json:"requested"`
	Records   []fixture.ChangeRecord `json:"records"`
}

type IndexResponse struct {
	Root    string        `json:"root"`
	Entries fixture.Index `json:"entries"`
}
