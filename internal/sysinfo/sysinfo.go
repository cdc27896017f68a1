package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
)

// CPUSampleInterval is how long CPU usage is measured for.
const CPUSampleInterval = time.Second

// Stats are usage percentages for the local machine.
type Stats struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
}

// String renders the stats as a single report line.
func (s Stats) String() string {
	return fmt.Sprintf("CPU Usage: %.1f%% | Memory Usage: %.1f%% | Disk Usage: %.1f%%",
		s.CPUPercent, s.MemoryPercent, s.DiskPercent)
}

// Collect samples CPU over interval while memory and disk (of diskPath) are
// read concurrently.
func Collect(ctx context.Context, interval time.Duration, diskPath string) (Stats, error) {
	var s Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pct, err := cpu.PercentWithContext(gctx, interval, false)
		if err != nil {
			return fmt.Errorf("cpu: %w", err)
		}
		if len(pct) > 0 {
			s.CPUPercent = pct[0]
		}
		return nil
	})
	g.Go(func() error {
		vm, err := mem.VirtualMemoryWithContext(gctx)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		s.MemoryPercent = vm.UsedPercent
		return nil
	})
	g.Go(func() error {
		du, err := disk.UsageWithContext(gctx, diskPath)
		if err != nil {
			return fmt.Errorf("disk: %w", err)
		}
		s.DiskPercent = du.UsedPercent
		return nil
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}
