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

// ApiAccessTokenHeader carries the shared secret when the server is started with an access token.
const ApiAccessTokenHeader = "X-TREEGEN-ACCESS-TOKEN"

type ErrorCode string

const (
	ErrorCodeUnknown             ErrorCode = "UNKNOWN"
	ErrorCodeRuntimeError        ErrorCode = "RUNTIME_ERROR"
	ErrorCodeInvalidRequest      ErrorCode = "INVALID_REQUEST_BODY"
	ErrorCodeMissingQuery        ErrorCode = "MISSING_QUERY"
	ErrorCodeInvalidPath         ErrorCode = "INVALID_PATH"
	ErrorCodeInvalidFile         ErrorCode = "INVALID_FILE"
	ErrorCodeInvalidFileContent  ErrorCode = "INVALID_FILE_CONTENT"
	ErrorCodeFileNotFound        ErrorCode = "FILE_NOT_FOUND"
	ErrorCodeInvalidRange        ErrorCode = "INVALID_RANGE"
	ErrorCodeFixtureNotFound     ErrorCode = "FIXTURE_NOT_FOUND"
	ErrorCodeInvalidFixtureInput ErrorCode = "INVALID_FIXTURE_OPTIONS"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
