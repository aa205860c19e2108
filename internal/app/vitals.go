package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/avkarenow/beacond/internal/domain"
)

// VitalsCollector samples host health for one heartbeat. The sample duration
// bounds the CPU utilization measurement window.
type VitalsCollector func(ctx context.Context, sample time.Duration) (*domain.Vitals, error)

// CollectVitals reads uptime, CPU, and memory figures from the host.
func CollectVitals(ctx context.Context, sample time.Duration) (*domain.Vitals, error) {
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read host uptime: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory stats: %w", err)
	}

	// Blocks for the sample duration while the kernel counters tick.
	percents, err := cpu.PercentWithContext(ctx, sample, false)
	if err != nil {
		return nil, fmt.Errorf("sample cpu: %w", err)
	}

	vitals := &domain.Vitals{
		HostUptime:        time.Duration(uptime) * time.Second,
		MemoryUsedBytes:   vm.Used,
		MemoryTotalBytes:  vm.Total,
		MemoryUsedPercent: vm.UsedPercent,
	}
	if len(percents) > 0 {
		vitals.CPUPercent = percents[0]
	}

	return vitals, nil
}
