package cron

import (
	"fmt"
	"log"
	"sync"

	"dashcam/storage"

	"github.com/robfig/cron/v3"
)

// Notifier receives status lines for the phone
type Notifier interface {
	Post(msg string)
}

// StorageCheckCron watches free space on the USB drive and warns the phone
// once each time it drops below the threshold.
type StorageCheckCron struct {
	cron      *cron.Cron
	root      string
	minFreeMB uint64
	notifier  Notifier
	diskSpace func(path string) (storage.DiskSpace, error)

	mu  sync.Mutex
	low bool
}

// NewStorageCheckCron creates a watchdog for the filesystem holding root
func NewStorageCheckCron(root string, minFreeMB int, notifier Notifier) *StorageCheckCron {
	if minFreeMB < 0 {
		minFreeMB = 0
	}
	return &StorageCheckCron{
		cron:      cron.New(cron.WithSeconds()),
		root:      root,
		minFreeMB: uint64(minFreeMB),
		notifier:  notifier,
		diskSpace: storage.GetDiskSpace,
	}
}

// Start schedules the check with spec (seconds field included) and runs it once
func (s *StorageCheckCron) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.check); err != nil {
		return fmt.Errorf("failed to schedule storage check: %w", err)
	}
	s.cron.Start()
	log.Printf("[CRON] Storage check scheduled (%s), warning below %d MB", spec, s.minFreeMB)

	s.check()
	return nil
}

// Stop stops scheduling and waits for a running check to finish
func (s *StorageCheckCron) Stop() {
	<-s.cron.Stop().Done()
	log.Printf("[CRON] Storage check stopped")
}

func (s *StorageCheckCron) check() {
	space, err := s.diskSpace(s.root)
	if err != nil {
		log.Printf("[CRON] Storage check failed: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if space.FreeMB >= s.minFreeMB {
		if s.low {
			log.Printf("[CRON] Storage recovered: %d MB free", space.FreeMB)
		}
		s.low = false
		return
	}
	if s.low {
		return
	}

	s.low = true
	log.Printf("[CRON] Storage low: %d MB free of %d MB (%.1f%% used)", space.FreeMB, space.TotalMB, space.UsedPercent)
	s.notifier.Post(fmt.Sprintf("Warning: storage low (%d MB free). Free up space on the USB drive.\r\n", space.FreeMB))
}
