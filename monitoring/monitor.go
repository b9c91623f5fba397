package monitoring

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceUsage is one sample of the controller's footprint on the Pi
type ResourceUsage struct {
	CPUPercent    float64
	MemoryUsedMB  float64
	MemoryTotalMB float64
	MemoryPercent float64
	NumGoroutines int
}

func (u ResourceUsage) String() string {
	return fmt.Sprintf("CPU: %.2f%%, Memory: %.2f/%.2f MB (%.2f%%), Goroutines: %d",
		u.CPUPercent, u.MemoryUsedMB, u.MemoryTotalMB, u.MemoryPercent, u.NumGoroutines)
}

// StartMonitoring logs resource usage every interval until ctx is cancelled.
// A non-positive interval disables it.
func StartMonitoring(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Printf("[MONITOR] Resource monitoring disabled")
		return
	}

	go func() {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			log.Printf("[MONITOR] Error getting process: %v", err)
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			usage, err := Sample(proc)
			if err != nil {
				log.Printf("[MONITOR] Error getting resource usage: %v", err)
				continue
			}
			log.Printf("[MONITOR] Resource Usage - %s", usage)
		}
	}()
}

// Sample measures proc against the whole machine
func Sample(proc *process.Process) (ResourceUsage, error) {
	var usage ResourceUsage

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		return usage, fmt.Errorf("error getting CPU usage: %w", err)
	}
	usage.CPUPercent = cpuPercent

	virtualMem, err := mem.VirtualMemory()
	if err != nil {
		return usage, fmt.Errorf("error getting memory info: %w", err)
	}

	procMem, err := proc.MemoryInfo()
	if err != nil {
		return usage, fmt.Errorf("error getting process memory: %w", err)
	}

	usage.MemoryUsedMB = float64(procMem.RSS) / 1024 / 1024
	usage.MemoryTotalMB = float64(virtualMem.Total) / 1024 / 1024
	usage.MemoryPercent = float64(procMem.RSS) / float64(virtualMem.Total) * 100
	usage.NumGoroutines = runtime.NumGoroutine()

	return usage, nil
}
