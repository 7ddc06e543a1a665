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

package flag

import "time"

var (
	// RootPath is the directory the fixture tree is generated in.
	RootPath string

	MaxDepth       int
	MaxFilesPerDir int
	MaxDirsPerDir  int
	FileSizeMinKiB int
	FileSizeMaxKiB int

	// MutationMin and MutationMax bound the number of operations drawn per cycle.
	MutationMin int
	MutationMax int

	CycleCount int

	// CycleDelay is the pause before every mutation cycle.
	CycleDelay time.Duration

	// Seed makes runs reproducible. Every value, zero included, is a real seed.
	Seed uint64
	// SeedSet reports whether Seed came from the environment or --seed.
	// ResolveSeed draws a clock seed otherwise.
	SeedSet bool

	LogLevel string

	// Exclude holds doublestar patterns skipped while indexing.
	Exclude []string

	// ServerPort controls the HTTP listener port.
	ServerPort int

	// ServerAccessToken guards API entrypoints when set.
	ServerAccessToken string

	// ServeRoot is where the reference file server stores uploads.
	ServeRoot string

	// Endpoint is the file server the verify command talks to.
	Endpoint string

	DatabaseDriver string
	DatabaseDSN    string

	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	// ApiGracefulShutdownTimeout bounds how long serve waits for in-flight requests.
	ApiGracefulShutdownTimeout time.Duration
)
