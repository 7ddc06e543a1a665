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

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
)

const (
	rootEnv             = "TREEGEN_ROOT"
	maxDepthEnv         = "TREEGEN_MAX_DEPTH"
	cycleDelayEnv       = "TREEGEN_CYCLE_DELAY"
	seedEnv             = "TREEGEN_SEED"
	accessTokenEnv      = "TREEGEN_ACCESS_TOKEN"
	endpointEnv         = "TREEGEN_ENDPOINT"
	databaseDSNEnv      = "TREEGEN_DB_DSN"
	s3EndpointEnv       = "TREEGEN_S3_ENDPOINT"
	s3BucketEnv         = "TREEGEN_S3_BUCKET"
	s3RegionEnv         = "TREEGEN_S3_REGION"
	s3AccessKeyEnv      = "TREEGEN_S3_ACCESS_KEY"
	s3SecretKeyEnv      = "TREEGEN_S3_SECRET_KEY"
	gracefulShutdownEnv = "TREEGEN_API_GRACE_SHUTDOWN"
)

// Defaults resets every option to its built-in value.
func Defaults() {
	opts := fixture.DefaultOptions()
	RootPath = "test_files"
	MaxDepth = opts.MaxDepth
	MaxFilesPerDir = opts.MaxFilesPerDir
	MaxDirsPerDir = opts.MaxDirsPerDir
	FileSizeMinKiB = opts.FileSizeMinKiB
	FileSizeMaxKiB = opts.FileSizeMaxKiB
	MutationMin = 2
	MutationMax = 5
	CycleCount = 5
	CycleDelay = 2 * time.Second
	Seed = 0
	SeedSet = false
	LogLevel = "info"
	Exclude = nil
	ServerPort = 11073
	ServerAccessToken = ""
	ServeRoot = "served_files"
	Endpoint = "http://localhost:11073"
	DatabaseDriver = "mysql"
	DatabaseDSN = ""
	S3Endpoint = "http://localhost:9000"
	S3Bucket = "treegen"
	S3Region = "us-east-1"
	S3AccessKey = "minioadmin"
	S3SecretKey = "minioadmin"
	S3Prefix = ""
	ApiGracefulShutdownTimeout = 3 * time.Second
}

// LoadEnv overrides defaults from the environment. Flags registered
// afterwards use the resulting values as their defaults.
func LoadEnv() error {
	if v := os.Getenv(rootEnv); v != "" {
		RootPath = v
	}
	if v := os.Getenv(maxDepthEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", maxDepthEnv, err)
		}
		MaxDepth = n
	}
	if v := os.Getenv(cycleDelayEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", cycleDelayEnv, err)
		}
		CycleDelay = d
	}
	if v := os.Getenv(seedEnv); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", seedEnv, err)
		}
		Seed = n
		SeedSet = true
	}
	if v := os.Getenv(accessTokenEnv); v != "" {
		ServerAccessToken = v
	}
	if v := os.Getenv(endpointEnv); v != "" {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return fmt.Errorf("invalid %s %q: must start with http:// or https://", endpointEnv, v)
		}
		Endpoint = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		DatabaseDSN = v
	}
	for env, target := range map[string]*string{
		s3EndpointEnv:  &S3Endpoint,
		s3BucketEnv:    &S3Bucket,
		s3RegionEnv:    &S3Region,
		s3AccessKeyEnv: &S3AccessKey,
		s3SecretKeyEnv: &S3SecretKey,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
	if v := os.Getenv(gracefulShutdownEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", gracefulShutdownEnv, err)
		}
		ApiGracefulShutdownTimeout = d
	}
	return nil
}

// Register defines every option on fs with the current values as defaults.
func Register(fs *pflag.FlagSet) {
	fs.StringVarP(&RootPath, "root", "r", RootPath, "Directory the fixture tree is generated in")
	fs.IntVar(&MaxDepth, "max-depth", MaxDepth, "Maximum directory nesting below the root")
	fs.IntVar(&MaxFilesPerDir, "max-files", MaxFilesPerDir, "Maximum files created per directory")
	fs.IntVar(&MaxDirsPerDir, "max-dirs", MaxDirsPerDir, "Maximum subdirectories created per directory")
	fs.IntVar(&FileSizeMinKiB, "file-size-min", FileSizeMinKiB, "Minimum size in KiB of a filled file")
	fs.IntVar(&FileSizeMaxKiB, "file-size-max", FileSizeMaxKiB, "Maximum size in KiB of a filled file")
	fs.IntVar(&MutationMin, "mutations-min", MutationMin, "Minimum operations per mutation cycle")
	fs.IntVar(&MutationMax, "mutations-max", MutationMax, "Maximum operations per mutation cycle")
	fs.IntVar(&CycleCount, "cycles", CycleCount, "Number of mutation cycles")
	fs.DurationVar(&CycleDelay, "delay", CycleDelay, "Pause before each mutation cycle")
	fs.Uint64Var(&Seed, "seed", Seed, "Random seed (any value, 0 included); a clock seed is drawn and logged when unset")
	fs.StringVar(&LogLevel, "log-level", LogLevel, "Log level (debug, info, warn, error)")
	fs.StringArrayVar(&Exclude, "exclude", Exclude, "Doublestar pattern of root-relative paths to skip while indexing (repeatable)")
	fs.IntVar(&ServerPort, "port", ServerPort, "Server listening port")
	fs.StringVar(&ServerAccessToken, "access-token", ServerAccessToken, "Server access token for API authentication")
	fs.StringVar(&ServeRoot, "serve-root", ServeRoot, "Directory the reference file server stores uploads in")
	fs.StringVar(&Endpoint, "endpoint", Endpoint, "File server base URL used by verify")
	fs.StringVar(&DatabaseDriver, "db-driver", DatabaseDriver, "SQL sink driver (mysql or postgres)")
	fs.StringVar(&DatabaseDSN, "db-dsn", DatabaseDSN, "SQL sink data source name")
	fs.StringVar(&S3Endpoint, "s3-endpoint", S3Endpoint, "S3 compatible endpoint URL")
	fs.StringVar(&S3Bucket, "s3-bucket", S3Bucket, "S3 bucket")
	fs.StringVar(&S3Region, "s3-region", S3Region, "S3 region")
	fs.StringVar(&S3AccessKey, "s3-access-key", S3AccessKey, "S3 access key")
	fs.StringVar(&S3SecretKey, "s3-secret-key", S3SecretKey, "S3 secret key")
	fs.StringVar(&S3Prefix, "s3-prefix", S3Prefix, "Key prefix for published objects")
	fs.DurationVar(&ApiGracefulShutdownTimeout, "graceful-shutdown-timeout", ApiGracefulShutdownTimeout, "How long serve waits for in-flight requests on shutdown")
}

// ResolveSeed settles Seed after fs has been parsed. An explicit --seed or
// TREEGEN_SEED is kept as is; otherwise a clock seed is drawn once so the
// run can be repeated by passing it back.
func ResolveSeed(fs *pflag.FlagSet) uint64 {
	if f := fs.Lookup("seed"); f != nil && f.Changed {
		SeedSet = true
	}
	if !SeedSet {
		Seed = fixture.RandomSeed()
		SeedSet = true
	}
	return Seed
}

// FixtureOptions collects the generation options.
func FixtureOptions() fixture.Options {
	return fixture.Options{
		MaxDepth:       MaxDepth,
		MaxFilesPerDir: MaxFilesPerDir,
		MaxDirsPerDir:  MaxDirsPerDir,
		FileSizeMinKiB: FileSizeMinKiB,
		FileSizeMaxKiB: FileSizeMaxKiB,
	}
}

func IndexOptions() fixture.IndexOptions {
	return fixture.IndexOptions{Exclude: Exclude}
}

// Validate checks option ranges after flags have been parsed.
func Validate() error {
	if err := FixtureOptions().Validate(); err != nil {
		return err
	}
	if MutationMin < 0 || MutationMax < MutationMin {
		return fmt.Errorf("%w: mutation range %d..%d", fixture.ErrInvalidOptions, MutationMin, MutationMax)
	}
	if CycleCount < 0 {
		return fmt.Errorf("%w: cycles must not be negative", fixture.ErrInvalidOptions)
	}
	if CycleDelay < 0 {
		return fmt.Errorf("%w: delay must not be negative", fixture.ErrInvalidOptions)
	}
	if ServerPort <= 0 || ServerPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", fixture.ErrInvalidOptions, ServerPort)
	}
	if RootPath == "" {
		return fmt.Errorf("%w: root must not be empty", fixture.ErrInvalidOptions)
	}
	return nil
}
