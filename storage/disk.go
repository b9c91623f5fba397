package storage

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskSpace holds usage figures for the filesystem holding a path
type DiskSpace struct {
	TotalMB     uint64
	FreeMB      uint64
	UsedPercent float64
}

// GetDiskSpace returns the space figures for the filesystem that contains path
func GetDiskSpace(path string) (DiskSpace, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskSpace{}, fmt.Errorf("failed to get disk usage for %s: %w", path, err)
	}
	return DiskSpace{
		TotalMB:     usage.Total / (1024 * 1024),
		FreeMB:      usage.Free / (1024 * 1024),
		UsedPercent: usage.UsedPercent,
	}, nil
}
