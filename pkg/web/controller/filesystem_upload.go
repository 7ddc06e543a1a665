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
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/metrics"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

// UploadFile stores every "file" part under the directory named by the "path" field.
func (c *FilesystemController) UploadFile() {
	form, err := c.ctx.MultipartForm()
	if err != nil || form == nil {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidFile,
			"multipart form is empty",
		)
		return
	}

	fileParts := form.File["file"]
	if len(fileParts) == 0 {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidFileContent,
			"file is missing",
		)
		return
	}

	dest := ""
	if values := form.Value["path"]; len(values) > 0 {
		dest = values[0]
	}
	targetDir, ok := c.resolve(dest)
	if !ok {
		return
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		c.RespondError(
			http.StatusInternalServerError,
			model.ErrorCodeRuntimeError,
			fmt.Sprintf("error creating target directory %s. %v", dest, err),
		)
		return
	}

	resp := model.UploadResponse{Files: make([]model.FileInfo, 0, len(fileParts))}
	for _, part := range fileParts {
		name := filepath.Base(filepath.FromSlash(part.Filename))
		if name == "." || name == ".." || name == string(filepath.Separator) {
			c.RespondError(
				http.StatusBadRequest,
				model.ErrorCodeInvalidFile,
				fmt.Sprintf("invalid file name %q", part.Filename),
			)
			return
		}

		targetPath := filepath.Join(targetDir, name)
		size, err := storePart(part, targetPath)
		if err != nil {
			c.RespondError(
				http.StatusInternalServerError,
				model.ErrorCodeRuntimeError,
				fmt.Sprintf("error storing file %s. %v", name, err),
			)
			return
		}
		metrics.RecordFileServerTransfer("upload", size)

		info, err := os.Stat(targetPath)
		if err != nil {
			c.handleFileError(err)
			return
		}
		rel, _ := filepath.Rel(c.root, targetPath)
		resp.Files = append(resp.Files, model.FileInfo{
			Path:       filepath.ToSlash(rel),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	c.RespondSuccess(resp)
}

func storePart(part *multipart.FileHeader, targetPath string) (int64, error) {
	src, err := part.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return n, err
	}
	if err := dst.Sync(); err != nil {
		log.Error("failed to sync target file: %v", err)
	}
	return n, dst.Close()
}
