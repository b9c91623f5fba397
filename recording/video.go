package recording

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"dashcam/camera"
	"dashcam/config"
	"dashcam/database"
	"dashcam/storage"
)

const (
	// MsgVideoFailed is posted when the stream breaks mid-recording
	MsgVideoFailed = "Video recording failed. Check the camera connection.\r\n"

	inputStopGrace = 2 * time.Second
)

// VideoConfig is the fixed recording profile
type VideoConfig struct {
	Input           camera.StreamConfig
	OutputFrameRate int
	Codec           string
	FourCC          string
	Extension       string
}

// DefaultVideoConfig returns the 1280x720 XVID profile
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		Input: camera.StreamConfig{
			Width:     config.VideoWidth,
			Height:    config.VideoHeight,
			FrameRate: config.VideoCaptureRate,
		},
		OutputFrameRate: config.VideoOutputFrameRate,
		Codec:           config.VideoCodec,
		FourCC:          config.VideoFourCC,
		Extension:       config.VideoExtension,
	}
}

// VideoTask records its own camera stream into a new clip until stopped
type VideoTask struct {
	source   camera.FrameSource
	encoders EncoderFactory
	cfg      VideoConfig
	dir      string
	notifier Notifier
	media    mediaLog
	now      func() time.Time

	mu     sync.Mutex
	input  camera.FrameStream
	path   string
	cancel context.CancelFunc

	done     chan struct{}
	stopOnce sync.Once
}

// NewVideoTask creates a task writing into dir; nothing is opened until Start
func NewVideoTask(source camera.FrameSource, encoders EncoderFactory, cfg VideoConfig, dir string, notifier Notifier) *VideoTask {
	return &VideoTask{
		source:   source,
		encoders: encoders,
		cfg:      cfg,
		dir:      dir,
		notifier: notifier,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// UseCatalog records the finished clip under sessionID
func (v *VideoTask) UseCatalog(catalog Catalog, sessionID string) {
	v.media = mediaLog{catalog: catalog, sessionID: sessionID}
}

// Start opens the camera stream and the output file, then records in the
// background. Errors opening either are returned and the task never runs;
// camera failures wrap camera.ErrDeviceUnavailable.
func (v *VideoTask) Start(ctx context.Context) error {
	input, err := v.source.Open(ctx, v.cfg.Input)
	if err != nil {
		if errors.Is(err, camera.ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", camera.ErrDeviceUnavailable, err)
	}

	started := v.now()
	path := storage.MediaPath(v.dir, started, v.cfg.Extension)
	output, err := v.encoders.Create(path, v.cfg)
	if err != nil {
		input.Close()
		return fmt.Errorf("failed to open video output: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	v.mu.Lock()
	v.input = input
	v.path = path
	v.cancel = cancel
	v.mu.Unlock()

	log.Printf("[VIDEO] Recording %s to %s", v.cfg.Input, path)
	v.notifier.Post(fmt.Sprintf("Recording Video @ %s \r\n", started.Format(displayTime)))

	go v.run(loopCtx, input, output, path, started)
	return nil
}

func (v *VideoTask) run(ctx context.Context, input camera.FrameStream, output FrameWriter, path string, started time.Time) {
	defer close(v.done)

	var failure error
	frames := 0
	for ctx.Err() == nil {
		frame, err := input.ReadFrame()
		if err != nil {
			if ctx.Err() == nil {
				failure = fmt.Errorf("read frame: %w", err)
			}
			break
		}
		if err := output.WriteFrame(frame); err != nil {
			failure = err
			break
		}
		frames++
	}

	if err := input.Close(); err != nil {
		log.Printf("[VIDEO] Error releasing camera: %v", err)
	}
	if err := output.Close(); err != nil {
		log.Printf("[VIDEO] Error finalising %s: %v", path, err)
	}
	ended := v.now()

	if failure != nil {
		log.Printf("[VIDEO] Recording failed after %d frames: %v", frames, failure)
		v.notifier.Post(MsgVideoFailed)
	}
	log.Printf("[VIDEO] Recording ended: %s (%d frames)", path, frames)
	v.notifier.Post(fmt.Sprintf("Ending Recording @ %s \r\n", ended.Format(displayTime)))
	v.media.add(database.KindVideo, path, started)
}

// Path returns the output file of a started task
func (v *VideoTask) Path() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.path
}

// Stop requests the recording to end; Done closes once both files are closed.
// Safe to call more than once.
func (v *VideoTask) Stop() {
	v.stopOnce.Do(func() {
		v.mu.Lock()
		cancel, input := v.cancel, v.input
		v.mu.Unlock()
		if cancel == nil {
			return
		}
		cancel()

		go func() {
			select {
			case <-v.done:
			case <-time.After(inputStopGrace):
				// A stalled camera keeps ReadFrame blocked.
				input.Close()
			}
		}()
	})
}

// Done is closed when the recording loop has exited
func (v *VideoTask) Done() <-chan struct{} {
	return v.done
}
