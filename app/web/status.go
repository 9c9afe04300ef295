package web

import (
	"context"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostStats is a snapshot of host resources, fields left zero if not available on the platform
type HostStats struct {
	CPUs            int     `json:"cpus"`
	MemTotal        uint64  `json:"mem_total"`
	MemUsedPercent  float64 `json:"mem_used_percent"`
	Load1           float64 `json:"load1"`
	Load5           float64 `json:"load5"`
	Load15          float64 `json:"load15"`
	DiskPath        string  `json:"disk_path"`
	DiskFree        uint64  `json:"disk_free"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
}

// hostStats collects host stats, failures are logged and skipped
func hostStats(ctx context.Context, path string) HostStats {
	res := HostStats{DiskPath: path}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		res.CPUs = n
	} else {
		log.Printf("[DEBUG] failed to get cpu count: %v", err)
	}

	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		res.MemTotal = v.Total
		res.MemUsedPercent = v.UsedPercent
	} else {
		log.Printf("[DEBUG] failed to get memory: %v", err)
	}

	if l, err := load.AvgWithContext(ctx); err == nil {
		res.Load1, res.Load5, res.Load15 = l.Load1, l.Load5, l.Load15
	} else {
		log.Printf("[DEBUG] failed to get load average: %v", err)
	}

	if u, err := disk.UsageWithContext(ctx, path); err == nil {
		res.DiskFree = u.Free
		res.DiskUsedPercent = u.UsedPercent
	} else {
		log.Printf("[DEBUG] failed to get disk usage for %s: %v", path, err)
	}
	return res
}
