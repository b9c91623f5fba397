package camera

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// MsgCaptureStopped is posted once the acquisition loop has released the camera
const MsgCaptureStopped = "Image capture stopped\r\n"

// CaptureService keeps the most recent preview frame available for snapshots.
// A reader may see a frame up to one acquisition period old.
type CaptureService struct {
	source   FrameSource
	cfg      StreamConfig
	notifier Notifier
	slot     Slot
	now      func() time.Time

	mu       sync.Mutex
	stream   FrameStream
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewCaptureService creates a capture service; nothing is opened until Start
func NewCaptureService(source FrameSource, cfg StreamConfig, notifier Notifier) *CaptureService {
	return &CaptureService{
		source:   source,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
	}
}

// Start opens the camera and begins continuous acquisition. Failure to open
// the camera returns an error wrapping ErrDeviceUnavailable.
func (s *CaptureService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("capture already started")
	}

	stream, err := s.source.Open(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.stream = stream
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx, stream, s.done)
	log.Printf("[CAPTURE] Started preview acquisition at %s", s.cfg)
	return nil
}

func (s *CaptureService) run(ctx context.Context, stream FrameStream, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		data, err := stream.ReadFrame()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[CAPTURE] Error reading frame: %v", err)
			}
			break
		}
		s.slot.Store(data, s.now())
	}

	if err := stream.Close(); err != nil {
		log.Printf("[CAPTURE] Error releasing camera: %v", err)
	}
	s.notifier.Post(MsgCaptureStopped)
	log.Printf("[CAPTURE] Acquisition stopped")
}

// Latest returns the newest frame, false if none has been captured yet
func (s *CaptureService) Latest() (Frame, bool) {
	return s.slot.Latest()
}

// Stop ends acquisition and waits for the camera to be released. Safe to call
// more than once, and before Start.
func (s *CaptureService) Stop() {
	s.mu.Lock()
	cancel, done, stream := s.cancel, s.done, s.stream
	s.mu.Unlock()

	if done == nil {
		return
	}

	s.stopOnce.Do(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(stopGrace):
			// ReadFrame is stuck on a stalled device; closing unblocks it.
			_ = stream.Close()
			<-done
		}
	})
}
