// Package sysinfo собирает снимок состояния хоста для обработчика /status.
package sysinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot - снимок состояния хоста
type Snapshot struct {
	TotalMemory    uint64  `json:"total_memory"`
	FreeMemory     uint64  `json:"free_memory"`
	UsedMemoryPerc float64 `json:"used_memory_percent"`
	CPUCount       int     `json:"cpu_count"`
	CPUPercent     float64 `json:"cpu_percent"`
}

// Collect - собирает текущий снимок памяти и CPU
func Collect() (*Snapshot, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to collect memory stats: %w", err)
	}

	count, err := cpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("failed to count CPUs: %w", err)
	}

	// Мгновенный замер без интервала ожидания
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to collect CPU utilization: %w", err)
	}

	snapshot := &Snapshot{
		TotalMemory:    vm.Total,
		FreeMemory:     vm.Free,
		UsedMemoryPerc: vm.UsedPercent,
		CPUCount:       count,
	}
	if len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}

	return snapshot, nil
}
