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
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alibaba/opensandbox/treegen/pkg/metrics"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

// DownloadFile serves the raw bytes of a stored file with support for range requests.
func (c *FilesystemController) DownloadFile() {
	rel := c.ctx.Query("path")
	if rel == "" {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeMissingQuery,
			"missing query parameter 'path'",
		)
		return
	}
	filePath, ok := c.resolve(rel)
	if !ok {
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		c.handleFileError(err)
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		c.RespondError(
			http.StatusInternalServerError,
			model.ErrorCodeRuntimeError,
			fmt.Sprintf("error getting file stat info: %s. %v", rel, err),
		)
		return
	}
	if fileInfo.IsDir() {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidPath,
			fmt.Sprintf("%s is a directory", rel),
		)
		return
	}

	c.ctx.Header("Content-Type", "application/octet-stream")
	c.ctx.Header("Content-Disposition", "attachment; filename="+filepath.Base(filePath))
	c.ctx.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))

	if rangeHeader := c.ctx.GetHeader("Range"); rangeHeader != "" {
		ranges, err := ParseRange(rangeHeader, fileInfo.Size())
		if err != nil {
			c.RespondError(
				http.StatusRequestedRangeNotSatisfiable,
				model.ErrorCodeInvalidRange,
				err.Error(),
			)
			return
		}
		if len(ranges) > 0 {
			r := ranges[0]
			c.ctx.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.start, r.start+r.length-1, fileInfo.Size()))
			c.ctx.Header("Content-Length", strconv.FormatInt(r.length, 10))
			c.ctx.Status(http.StatusPartialContent)

			_, _ = file.Seek(r.start, io.SeekStart)
			n, _ := io.CopyN(c.ctx.Writer, file, r.length)
			metrics.RecordFileServerTransfer("download", n)
			return
		}
	}

	http.ServeContent(c.ctx.Writer, c.ctx.Request, filepath.Base(filePath), fileInfo.ModTime(), file)
	metrics.RecordFileServerTransfer("download", fileInfo.Size())
}
