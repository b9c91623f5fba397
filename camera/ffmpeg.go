package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	startupGrace = 500 * time.Millisecond
	stopGrace    = 2 * time.Second
)

// FFmpegSource reads the camera through ffmpeg, which re-encodes whatever the
// device produces into an MJPEG stream on stdout.
type FFmpegSource struct {
	command     string
	device      string
	inputFormat string
}

// NewFFmpegSource creates a source for device (e.g. /dev/video0) using the
// given ffmpeg input format (e.g. v4l2).
func NewFFmpegSource(command, device, inputFormat string) *FFmpegSource {
	if command == "" {
		command = "ffmpeg"
	}
	if inputFormat == "" {
		inputFormat = "v4l2"
	}
	return &FFmpegSource{command: command, device: device, inputFormat: inputFormat}
}

// Args returns the ffmpeg arguments used to open a stream with cfg
func (s *FFmpegSource) Args(cfg StreamConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", s.inputFormat,
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FrameRate),
		"-i", s.device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	}
}

// Open starts ffmpeg and returns once it survived the startup grace period
func (s *FFmpegSource) Open(ctx context.Context, cfg StreamConfig) (FrameStream, error) {
	args := s.Args(cfg)
	cmd := exec.Command(s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ffmpeg stdout pipe: %v", ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	log.Printf("[CAMERA] Opened %s %s: %s %s", s.device, cfg, s.command, strings.Join(args, " "))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", ErrDeviceUnavailable, err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: ffmpeg exited before capture started", ErrDeviceUnavailable)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitErr
		return nil, ctx.Err()
	case <-time.After(startupGrace):
	}

	return &ffmpegStream{
		frames:  newMJPEGReader(stdout),
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type ffmpegStream struct {
	frames *mjpegReader
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) ReadFrame() ([]byte, error) {
	return s.frames.Next()
}

// Close interrupts ffmpeg, falling back to kill if it does not exit in time
func (s *ffmpegStream) Close() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeExitErr(err)
			}
		case <-time.After(stopGrace):
			_ = s.process.Kill()
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeExitErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// normalizeExitErr treats exits caused by our own interrupt/kill as clean
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 255 || exitErr.ExitCode() == -1 {
			return nil
		}
	}
	return err
}
