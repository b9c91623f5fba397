package recording

import (
	"log"
	"os"
	"time"

	"dashcam/database"

	"github.com/google/uuid"
)

// Notifier receives the status lines sent back to the phone
type Notifier interface {
	Post(msg string)
}

// Catalog records finished media
type Catalog interface {
	CreateMedia(media database.MediaRecord) error
}

// mediaLog adds catalog entries for one session; a nil catalog disables it
type mediaLog struct {
	catalog   Catalog
	sessionID string
}

func (m mediaLog) add(kind database.MediaKind, path string, capturedAt time.Time) {
	if m.catalog == nil {
		return
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	err := m.catalog.CreateMedia(database.MediaRecord{
		ID:         uuid.New().String(),
		SessionID:  m.sessionID,
		Kind:       kind,
		Path:       path,
		CapturedAt: capturedAt,
		Size:       size,
		Status:     database.StatusLocal,
	})
	if err != nil {
		log.Printf("[CATALOG] Failed to record %s %s: %v", kind, path, err)
	}
}

// displayTime is the timestamp format used in messages to the phone
const displayTime = "2006-01-02 15:04:05"
