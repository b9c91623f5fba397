package recording

import (
	"context"
	"log"
	"sync"
	"time"
)

// MsgRepeatStopped is posted when the repeat loop observes cancellation
const MsgRepeatStopped = "Recurring image capture stopped\r\n"

// MsgSaveFailed is posted when a snapshot could not be written
const MsgSaveFailed = "Failed to save image. Check the storage drive.\r\n"

// Saver takes one snapshot
type Saver interface {
	Save() (string, error)
}

// RepeatTask takes a snapshot every interval until stopped. Cycles are
// measured start to start, so snapshots are never closer than the interval.
type RepeatTask struct {
	saver    Saver
	notifier Notifier

	mu       sync.Mutex
	interval time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewRepeatTask creates a stopped task; call Start to run it
func NewRepeatTask(saver Saver, notifier Notifier, interval time.Duration) *RepeatTask {
	return &RepeatTask{
		saver:    saver,
		notifier: notifier,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. It must be called once.
func (r *RepeatTask) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(ctx)
}

func (r *RepeatTask) run(ctx context.Context) {
	defer close(r.done)
	log.Printf("[REPEAT] Started with interval %v", r.Interval())

	for ctx.Err() == nil {
		cycleStart := time.Now()
		if _, err := r.saver.Save(); err != nil {
			log.Printf("[REPEAT] Snapshot failed: %v", err)
			r.notifier.Post(MsgSaveFailed)
		}

		timer := time.NewTimer(time.Until(cycleStart.Add(r.Interval())))
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	r.notifier.Post(MsgRepeatStopped)
	log.Printf("[REPEAT] Stopped")
}

// Interval returns the current interval
func (r *RepeatTask) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// SetInterval changes the interval from the next cycle on
func (r *RepeatTask) SetInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = d
}

// Stop requests the loop to end; Done closes once it has
func (r *RepeatTask) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		cancel := r.cancel
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// Done is closed when the loop has exited
func (r *RepeatTask) Done() <-chan struct{} {
	return r.done
}
