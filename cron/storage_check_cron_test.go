package cron

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"dashcam/storage"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Post(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *fakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func TestStorageCheckWarnsOncePerLowSpell(t *testing.T) {
	notifier := &fakeNotifier{}
	sc := NewStorageCheckCron(t.TempDir(), 500, notifier)

	free := []uint64{800, 300, 200, 900, 100}
	var step int
	sc.diskSpace = func(path string) (storage.DiskSpace, error) {
		space := storage.DiskSpace{TotalMB: 1000, FreeMB: free[step]}
		step++
		return space, nil
	}

	for range free {
		sc.check()
	}

	msgs := notifier.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 warnings, got %q", msgs)
	}
	if msgs[0] != "Warning: storage low (300 MB free). Free up space on the USB drive.\r\n" {
		t.Errorf("unexpected warning %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "(100 MB free)") {
		t.Errorf("unexpected second warning %q", msgs[1])
	}
}

func TestStorageCheckIgnoresErrors(t *testing.T) {
	notifier := &fakeNotifier{}
	sc := NewStorageCheckCron("/nonexistent", 500, notifier)
	sc.diskSpace = func(path string) (storage.DiskSpace, error) {
		return storage.DiskSpace{}, errors.New("no such device")
	}

	sc.check()
	if len(notifier.Messages()) != 0 {
		t.Errorf("expected no warning on error")
	}
}

func TestStorageCheckStartRejectsBadSpec(t *testing.T) {
	sc := NewStorageCheckCron(t.TempDir(), 0, &fakeNotifier{})
	if err := sc.Start("not a spec"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}

func TestStorageCheckStartRunsImmediately(t *testing.T) {
	notifier := &fakeNotifier{}
	sc := NewStorageCheckCron(t.TempDir(), 100, notifier)
	sc.diskSpace = func(path string) (storage.DiskSpace, error) {
		return storage.DiskSpace{FreeMB: 10}, nil
	}

	if err := sc.Start("0 0 * * * *"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sc.Stop()

	if len(notifier.Messages()) != 1 {
		t.Errorf("expected the initial check to warn, got %q", notifier.Messages())
	}
}
