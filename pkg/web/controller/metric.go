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
	"net/http"

	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

const mib = 1024 * 1024

// GetStats reports the size of the current tree and the usage of the volume and host it lives on.
func (c *FixtureController) GetStats() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	idx, err := fixture.BuildIndex(c.state.root)
	if err != nil {
		c.respondFixtureError(err)
		return
	}

	stats, err := readStats(c.state.root, idx)
	if err != nil {
		c.RespondError(
			http.StatusInternalServerError,
			model.ErrorCodeRuntimeError,
			fmt.Sprintf("error reading runtime metrics. %v", err),
		)
		return
	}
	c.RespondSuccess(stats)
}

func readStats(root string, idx fixture.Index) (*model.FixtureStats, error) {
	stats := model.NewFixtureStats(root)
	stats.Directories, stats.Files = idx.Counts()
	stats.Bytes = idx.TotalSize()

	usage, err := disk.Usage(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk usage: %w", err)
	}
	stats.Disk = model.DiskUsage{
		Path:        usage.Path,
		TotalMiB:    float64(usage.Total) / mib,
		FreeMiB:     float64(usage.Free) / mib,
		UsedMiB:     float64(usage.Used) / mib,
		UsedPercent: usage.UsedPercent,
	}

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to get memory info: %w", err)
	}
	stats.MemTotalMiB = float64(vmStat.Total) / mib
	stats.MemUsedMiB = float64(vmStat.Used) / mib
	return stats, nil
}
