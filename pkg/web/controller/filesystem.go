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
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

// FilesystemController is the reference file server that harness runs upload to and read back from.
type FilesystemController struct {
	*basicController
	root string
}

func NewFilesystemController(ctx *gin.Context, root string) *FilesystemController {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &FilesystemController{basicController: newBasicController(ctx), root: root}
}

// resolve maps the client path onto the served root and answers 400 on failure.
func (c *FilesystemController) resolve(rel string) (string, bool) {
	target, err := ResolveWithin(c.root, rel)
	if err != nil {
		c.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidPath, err.Error())
		return "", false
	}
	return target, true
}

func (c *FilesystemController) handleFileError(err error) {
	if errors.Is(err, os.ErrNotExist) {
		c.RespondError(
			http.StatusNotFound,
			model.ErrorCodeFileNotFound,
			fmt.Sprintf("file not found. %v", err),
		)
	} else {
		c.RespondError(
			http.StatusInternalServerError,
			model.ErrorCodeRuntimeError,
			fmt.Sprintf("error accessing file: %v", err),
		)
	}
}
