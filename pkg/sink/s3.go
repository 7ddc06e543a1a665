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

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
)

// S3Config holds S3 connection settings.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3Publisher copies fixture trees into an S3 compatible bucket.
type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

// PublishReport counts what one Publish call wrote.
type PublishReport struct {
	Objects  int    `json:"objects"`
	Bytes    int64  `json:"bytes"`
	IndexKey string `json:"index_key"`
}

func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			},
		)
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &S3Publisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (p *S3Publisher) EnsureBucket(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(p.bucket),
	})
	if err == nil {
		return nil
	}
	if _, createErr := p.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(p.bucket),
	}); createErr != nil {
		return fmt.Errorf("bucket %s does not exist and cannot create: %w", p.bucket, createErr)
	}
	log.Info("Created S3 bucket: %s", p.bucket)
	return nil
}

// Publish uploads every file of snap under <prefix>/<index path> and then
// the snapshot itself as <prefix>/<root name>/index.json. Files are read from
// the parent of root, the directory index paths are relative to.
func (p *S3Publisher) Publish(ctx context.Context, root string, snap *fixture.Snapshot) (*PublishReport, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	parent := filepath.Dir(abs)

	report := &PublishReport{}
	for _, e := range snap.Entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(parent, e.Path))
		if err != nil {
			log.Warn("skip %s: %v", e.Path, err)
			continue
		}
		if err := p.put(ctx, p.key(filepath.ToSlash(e.Path)), data, "text/plain"); err != nil {
			return report, err
		}
		report.Objects++
		report.Bytes += int64(len(data))
	}

	index, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return report, fmt.Errorf("encode snapshot: %w", err)
	}
	report.IndexKey = p.key(path.Join(filepath.Base(abs), "index.json"))
	if err := p.put(ctx, report.IndexKey, index, "application/json"); err != nil {
		return report, err
	}
	report.Objects++

	log.Info("published %d objects (%d bytes) to s3://%s/%s", report.Objects, report.Bytes, p.bucket, p.prefix)
	return report, nil
}

func (p *S3Publisher) key(rel string) string {
	if p.prefix == "" {
		return rel
	}
	return p.prefix + "/" + rel
}

func (p *S3Publisher) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
