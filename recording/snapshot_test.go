package recording

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dashcam/camera"
	"dashcam/database"
)

func TestSnapshotWriterNoFrameIsNoop(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	w := NewSnapshotWriter(&fakeFrames{}, dir, notifier)

	path, err := w.Save()
	if err != nil || path != "" {
		t.Fatalf("expected no-op, got %q, %v", path, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, found %d", len(entries))
	}
	if len(notifier.Messages()) != 0 {
		t.Errorf("expected no messages, got %q", notifier.Messages())
	}
}

func TestSnapshotWriterSavesDistinctPNGs(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	catalog := &fakeCatalog{}
	frames := &fakeFrames{frame: camera.Frame{Data: testJPEG(t), Seq: 1}, ok: true}

	w := NewSnapshotWriter(frames, dir, notifier)
	w.UseCatalog(catalog, "session-1")
	fixed := time.Date(2025, 3, 20, 11, 58, 7, 0, time.Local)
	w.now = func() time.Time { return fixed }

	first, err := w.Save()
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	second, err := w.Save()
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	if filepath.Base(first) != "20250320115807.png" {
		t.Errorf("unexpected first name %s", filepath.Base(first))
	}
	if first == second || filepath.Base(second) <= filepath.Base(first) {
		t.Errorf("expected strictly increasing names, got %s then %s", filepath.Base(first), filepath.Base(second))
	}

	f, err := os.Open(first)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("snapshot is not a PNG: %v", err)
	}

	msgs := notifier.Messages()
	if len(msgs) != 2 || msgs[0] != "Image captured @ 2025-03-20 11:58:07 \r\n" {
		t.Errorf("unexpected messages: %q", msgs)
	}

	media := catalog.Media()
	if len(media) != 2 {
		t.Fatalf("expected 2 catalog records, got %d", len(media))
	}
	if media[0].Kind != database.KindImage || media[0].SessionID != "session-1" || media[0].Size == 0 {
		t.Errorf("unexpected catalog record: %+v", media[0])
	}
}

func TestSnapshotWriterRejectsCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	frames := &fakeFrames{frame: camera.Frame{Data: []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}}, ok: true}
	w := NewSnapshotWriter(frames, dir, notifier)

	if _, err := w.Save(); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no file for a corrupt frame")
	}
	if len(notifier.Messages()) != 0 {
		t.Errorf("expected no capture message")
	}
}
