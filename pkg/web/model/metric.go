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

import "time"

// DiskUsage is the usage of the volume that holds the fixture root.
type DiskUsage struct {
	Path        string  `json:"path"`
	TotalMiB    float64 `json:"total_mib"`
	FreeMiB     float64 `json:"free_mib"`
	UsedMiB     float64 `json:"used_mib"`
	UsedPercent float64 `json:"used_pct"`
}

// FixtureStats summarises the current tree and the host it lives on.
type FixtureStats struct {
	Root        string    `json:"root"`
	Directories int       `json:"directories"`
	Files       int       `json:"files"`
	Bytes       int64     `json:"bytes"`
	Disk        DiskUsage `json:"disk"`
	MemTotalMiB float64   `json:"mem_total_mib"`
	MemUsedMiB  float64   `json:"mem_used_mib"`
	Timestamp   int64     `json:"timestamp"`
}

func NewFixtureStats(root string) *FixtureStats {
	return &FixtureStats{
		Root:      root,
		Timestamp: time.Now().UnixMilli(),
	}
}
