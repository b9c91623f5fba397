package camera

import (
	"context"
	"errors"
	"fmt"
)

// ErrDeviceUnavailable is returned when the camera cannot be opened
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// StreamConfig describes how a stream is requested from the camera
type StreamConfig struct {
	Width     int
	Height    int
	FrameRate int
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%dx%d@%dfps", c.Width, c.Height, c.FrameRate)
}

// FrameSource opens independent streams from the physical camera
type FrameSource interface {
	Open(ctx context.Context, cfg StreamConfig) (FrameStream, error)
}

// FrameStream delivers JPEG frames until closed
type FrameStream interface {
	// ReadFrame blocks until the next frame is available
	ReadFrame() ([]byte, error)
	Close() error
}

// Notifier receives the human readable status lines sent back to the phone
type Notifier interface {
	Post(msg string)
}
