// Package system samples host and process resource usage for the status endpoint.
package system

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats: host resource usage and process counters
type Stats struct {
	CPUUsage      float64 `json:"cpuUsage"`    // percent
	MemoryUsage   float64 `json:"memoryUsage"` // percent
	MemoryTotal   uint64  `json:"memoryTotal"` // bytes
	MemoryUsed    uint64  `json:"memoryUsed"`  // bytes
	HostUptimeSec uint64  `json:"hostUptimeSec"`
	Goroutines    int     `json:"goroutines"`
	HeapAlloc     uint64  `json:"heapAlloc"` // bytes
}

// Collector samples Stats.
type Collector struct {
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	cpuPercent    func(ctx context.Context) ([]float64, error)
	uptime        func(ctx context.Context) (uint64, error)
}

// NewCollector creates a Collector backed by gopsutil.
func NewCollector() *Collector {
	return &Collector{
		virtualMemory: mem.VirtualMemoryWithContext,
		cpuPercent: func(ctx context.Context) ([]float64, error) {
			// interval 0 compares against the previous call and returns immediately
			return cpu.PercentWithContext(ctx, 0, false)
		},
		uptime: host.UptimeWithContext,
	}
}

// GetCurrentStats returns the current sample.
func (c *Collector) GetCurrentStats(ctx context.Context) (*Stats, error) {
	v, err := c.virtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory stats: %w", err)
	}

	cpus, err := c.cpuPercent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu stats: %w", err)
	}
	var cpuUsage float64
	if len(cpus) > 0 {
		cpuUsage = cpus[0]
	}

	uptime, err := c.uptime(ctx)
	if err != nil {
		uptime = 0
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return &Stats{
		CPUUsage:      cpuUsage,
		MemoryUsage:   v.UsedPercent,
		MemoryTotal:   v.Total,
		MemoryUsed:    v.Used,
		HostUptimeSec: uptime,
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     ms.HeapAlloc,
	}, nil
}
