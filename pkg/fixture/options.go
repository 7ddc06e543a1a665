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

package fixture

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Options bounds a generation pass and the content written by generation and mutation.
type Options struct {
	MaxDepth       int `json:"max_depth" validate:"gte=0"`
	MaxFilesPerDir int `json:"max_files_per_dir" validate:"gte=1"`
	MaxDirsPerDir  int `json:"max_dirs_per_dir" validate:"gte=1"`
	FileSizeMinKiB int `json:"file_size_min_kib" validate:"gte=1"`
	FileSizeMaxKiB int `json:"file_size_max_kib" validate:"gtefield=FileSizeMinKiB"`
}

// DefaultOptions mirrors the fixture shape the sync tests were written against.
func DefaultOptions() Options {
	return Options{
		MaxDepth:       4,
		MaxFilesPerDir: 8,
		MaxDirsPerDir:  3,
		FileSizeMinKiB: 1,
		FileSizeMaxKiB: 5,
	}
}

func (o Options) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

func (o Options) content() contentPolicy {
	return contentPolicy{minKiB: o.FileSizeMinKiB, maxKiB: o.FileSizeMaxKiB}
}

// contentPolicy writes generated file bodies.
type contentPolicy struct {
	minKiB, maxKiB int
}

// writeAny picks empty or random-filled content with equal probability.
func (p contentPolicy) writeAny(r *Rand, path string) (ContentMode, int64, error) {
	if r.Bool() {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return ContentEmpty, 0, fmt.Errorf("create empty file %s: %w", path, err)
		}
		return ContentEmpty, 0, nil
	}
	n, err := p.writeRandom(r, path)
	return ContentRandom, n, err
}

// writeRandom (over)writes path with a freshly sized random body.
func (p contentPolicy) writeRandom(r *Rand, path string) (int64, error) {
	data := r.Content(r.IntRange(p.minKiB, p.maxKiB))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write file %s: %w", path, err)
	}
	return int64(len(data)), nil
}
