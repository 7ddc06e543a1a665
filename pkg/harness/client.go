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

package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/metrics"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

// DefaultBackoff retries transient failures for a few seconds in total.
var DefaultBackoff = wait.Backoff{
	Steps:    5,
	Duration: 200 * time.Millisecond,
	Factor:   2,
	Jitter:   0.1,
}

// StatusError is returned when the file server answers with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Temporary reports whether the request is worth repeating.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Client talks to a file server exposing /api/upload and /api/raw.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	backoff    wait.Backoff
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithToken sends the access token header on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func WithBackoff(backoff wait.Backoff) ClientOption {
	return func(c *Client) {
		c.backoff = backoff
	}
}

func NewClient(endpoint string, options ...ClientOption) *Client {
	client := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		backoff:    DefaultBackoff,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Upload sends localFile to the directory destDir on the server.
func (c *Client) Upload(ctx context.Context, localFile, destDir string) (*model.UploadResponse, error) {
	content, err := os.ReadFile(localFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", localFile, err)
	}

	var resp model.UploadResponse
	err = c.withRetry(ctx, "upload "+localFile, func() error {
		body, contentType, err := uploadBody(filepath.Base(localFile), destDir, content)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/upload", body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)
		data, err := c.do(req)
		if err != nil {
			return err
		}
		resp = model.UploadResponse{}
		return decodeJSON(data, &resp)
	})
	metrics.RecordUpload(err == nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Raw downloads the stored bytes of path.
func (c *Client) Raw(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, "raw "+path, func() error {
		u := c.endpoint + "/api/raw?" + url.Values{"path": {path}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		data, err = c.do(req)
		return err
	})
	return data, err
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/ping", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set(model.ApiAccessTokenHeader, c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}

func (c *Client) withRetry(ctx context.Context, what string, fn func() error) error {
	return retry.OnError(c.backoff, func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			if !statusErr.Temporary() {
				return false
			}
		}
		log.Warn("%s failed, retrying: %v", what, err)
		return true
	}, fn)
}

func uploadBody(name, destDir string, content []byte) (io.Reader, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("path", destDir); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

func decodeJSON(data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
