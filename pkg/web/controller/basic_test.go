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
	"encoding/json"
	"net/http"
	"testing"

	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

func TestBasicControllerRespondSuccess(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/", nil)
	ctrl := &basicController{ctx: ctx}

	ctrl.RespondSuccess(map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("unexpected body: %#v", resp)
	}
}

func TestBasicControllerRespondError(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/", nil)
	ctrl := &basicController{ctx: ctx}

	ctrl.RespondError(http.StatusBadRequest, model.ErrorCodeInvalidRequest, "boom")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var resp model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrorCodeInvalidRequest || resp.Message != "boom" {
		t.Fatalf("unexpected body: %#v", resp)
	}
}

func TestBindJSON(t *testing.T) {
	var req model.MutationRequest

	ctx, _ := newTestContext(http.MethodPost, "/", nil)
	if err := (&basicController{ctx: ctx}).bindJSON(&req); err != nil {
		t.Fatalf("empty body should bind cleanly, got %v", err)
	}

	ctx, _ = newTestContext(http.MethodPost, "/", []byte(`{"count":7}`))
	if err := (&basicController{ctx: ctx}).bindJSON(&req); err != nil {
		t.Fatalf("bindJSON: %v", err)
	}
	if req.Count != 7 {
		t.Fatalf("expected count 7, got %d", req.Count)
	}

	ctx, _ = newTestContext(http.MethodPost, "/", []byte(`{"cnt":7}`))
	if err := (&basicController{ctx: ctx}).bindJSON(&req); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestQueryInt64(t *testing.T) {
	ctrl := &basicController{}

	tests := []struct {
		name     string
		query    string
		def      int64
		expected int64
	}{
		{name: "valid number", query: "42", def: 0, expected: 42},
		{name: "empty uses default", query: "", def: 5, expected: 5},
		{name: "invalid uses default", query: "not-a-number", def: -1, expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ctrl.QueryInt64(tt.query, tt.def)
			if got != tt.expected {
				t.Fatalf("QueryInt64(%q, %d) = %d, want %d", tt.query, tt.def, got, tt.expected)
			}
		})
	}
}

func TestPingHandler(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/ping", nil)
	PingHandler(ctx)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("unexpected ping response %d %q", rec.Code, rec.Body.String())
	}
}
