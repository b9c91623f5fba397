package database

import (
	"time"
)

// MediaKind distinguishes still images from video clips
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// MediaStatus represents where a captured file currently lives
type MediaStatus string

const (
	StatusLocal    MediaStatus = "local"    // Only on the USB drive
	StatusArchived MediaStatus = "archived" // Uploaded to the archive bucket
	StatusFailed   MediaStatus = "failed"   // Archive upload failed
)

// SessionRecord represents one run of the controller and its directory
type SessionRecord struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`      // YYYYMMDD
	Number    int        `json:"number"`    // n in Session_<n>
	Path      string     `json:"path"`      // Absolute session directory
	StartedAt time.Time  `json:"startedAt"` // When the controller started
	EndedAt   *time.Time `json:"endedAt"`   // nil while the session is running
}

// MediaRecord represents a snapshot or a video clip written during a session
type MediaRecord struct {
	ID           string      `json:"id"`
	SessionID    string      `json:"sessionId"`
	Kind         MediaKind   `json:"kind"`
	Path         string      `json:"path"`
	CapturedAt   time.Time   `json:"capturedAt"`
	Size         int64       `json:"size"`
	Status       MediaStatus `json:"status"`
	RemotePath   string      `json:"remotePath"`
	ErrorMessage string      `json:"errorMessage"`
}

// Database defines the interface for catalog operations
type Database interface {
	// Session operations
	CreateSession(session SessionRecord) error
	GetSession(id string) (*SessionRecord, error)
	EndSession(id string, endedAt time.Time) error

	// Media operations
	CreateMedia(media MediaRecord) error
	GetMedia(id string) (*MediaRecord, error)
	ListMediaBySession(sessionID string) ([]MediaRecord, error)
	ListMediaByStatus(status MediaStatus, limit int) ([]MediaRecord, error)
	UpdateMediaStatus(id string, status MediaStatus, remotePath, errorMsg string) error

	// Helper operations
	Close() error
}
