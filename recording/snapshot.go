package recording

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"sync"
	"time"

	"dashcam/camera"
	"dashcam/config"
	"dashcam/database"
	"dashcam/storage"
)

// FrameProvider exposes the most recent preview frame
type FrameProvider interface {
	Latest() (camera.Frame, bool)
}

// SnapshotWriter persists the current preview frame as a PNG in the session directory
type SnapshotWriter struct {
	frames   FrameProvider
	dir      string
	notifier Notifier
	media    mediaLog
	now      func() time.Time

	// Save is called by both the controller and the repeat loop.
	mu sync.Mutex
}

// NewSnapshotWriter creates a writer for the session directory dir
func NewSnapshotWriter(frames FrameProvider, dir string, notifier Notifier) *SnapshotWriter {
	return &SnapshotWriter{
		frames:   frames,
		dir:      dir,
		notifier: notifier,
		now:      time.Now,
	}
}

// UseCatalog records every saved snapshot under sessionID
func (w *SnapshotWriter) UseCatalog(catalog Catalog, sessionID string) {
	w.media = mediaLog{catalog: catalog, sessionID: sessionID}
}

// Save writes the current frame and returns its path. It is a no-op
// returning "" when no frame has been captured yet.
func (w *SnapshotWriter) Save() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	frame, ok := w.frames.Latest()
	if !ok {
		log.Printf("[SNAPSHOT] No frame captured yet, skipping")
		return "", nil
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode frame %d: %w", frame.Seq, err)
	}

	t := w.now()
	path := storage.MediaPath(w.dir, t, config.ImageExtension)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	log.Printf("[SNAPSHOT] Image saved: %s", path)
	w.notifier.Post(fmt.Sprintf("Image captured @ %s \r\n", t.Format(displayTime)))
	w.media.add(database.KindImage, path, t)
	return path, nil
}
