package cron

import (
	"context"
	"fmt"
	"log"
	"sync"

	"dashcam/database"
	"dashcam/storage"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// sweepBatch caps how many files one sweep picks up
const sweepBatch = 50

// ArchiveCron periodically uploads local media to the archive bucket
type ArchiveCron struct {
	cron        *cron.Cron
	db          database.Database
	uploader    storage.Uploader
	root        string
	prefix      string
	concurrency int64

	// A slow sweep must not overlap the next one.
	sweepMu sync.Mutex
}

// NewArchiveCron creates the sweep job. Remote keys mirror the layout under
// root, prefixed with prefix.
func NewArchiveCron(db database.Database, uploader storage.Uploader, root, prefix string, concurrency int) *ArchiveCron {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ArchiveCron{
		cron:        cron.New(cron.WithSeconds()),
		db:          db,
		uploader:    uploader,
		root:        root,
		prefix:      prefix,
		concurrency: int64(concurrency),
	}
}

// Start schedules the sweep with spec (seconds field included)
func (a *ArchiveCron) Start(ctx context.Context, spec string) error {
	_, err := a.cron.AddFunc(spec, func() {
		if _, err := a.Sweep(ctx); err != nil {
			log.Printf("[CRON] Archive sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule archive sweep: %w", err)
	}
	a.cron.Start()
	log.Printf("[CRON] Archive sweep scheduled (%s), %d concurrent upload(s)", spec, a.concurrency)
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish
func (a *ArchiveCron) Stop() {
	<-a.cron.Stop().Done()
	log.Printf("[CRON] Archive sweep stopped")
}

// Sweep uploads up to one batch of local media and returns how many were archived
func (a *ArchiveCron) Sweep(ctx context.Context) (int, error) {
	if !a.sweepMu.TryLock() {
		log.Printf("[CRON] Archive sweep still running, skipping")
		return 0, nil
	}
	defer a.sweepMu.Unlock()

	pending, err := a.db.ListMediaByStatus(database.StatusLocal, sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list local media: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	log.Printf("[CRON] Archiving %d file(s)", len(pending))

	sem := semaphore.NewWeighted(a.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	archived := 0

	for _, media := range pending {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Printf("[CRON] Archive sweep interrupted: %v", err)
			break
		}

		wg.Add(1)
		go func(media database.MediaRecord) {
			defer wg.Done()
			defer sem.Release(1)

			if a.archive(media) {
				mu.Lock()
				archived++
				mu.Unlock()
			}
		}(media)
	}
	wg.Wait()

	log.Printf("[CRON] Archive sweep done: %d/%d archived", archived, len(pending))
	return archived, nil
}

func (a *ArchiveCron) archive(media database.MediaRecord) bool {
	key, err := storage.RemoteKey(a.prefix, a.root, media.Path)
	if err != nil {
		a.markFailed(media, err)
		return false
	}

	location, err := a.uploader.UploadFile(media.Path, key)
	if err != nil {
		a.markFailed(media, err)
		return false
	}

	if err := a.db.UpdateMediaStatus(media.ID, database.StatusArchived, location, ""); err != nil {
		log.Printf("[CRON] Uploaded %s but failed to update catalog: %v", media.Path, err)
		return false
	}
	log.Printf("[CRON] Archived %s to %s", media.Path, location)
	return true
}

func (a *ArchiveCron) markFailed(media database.MediaRecord, cause error) {
	log.Printf("[CRON] Failed to archive %s: %v", media.Path, cause)
	if err := a.db.UpdateMediaStatus(media.ID, database.StatusFailed, "", cause.Error()); err != nil {
		log.Printf("[CRON] Failed to mark %s as failed: %v", media.ID, err)
	}
}
