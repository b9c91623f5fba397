package recording

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const encoderStopTimeout = 10 * time.Second

// FrameWriter consumes JPEG frames and produces a video file
type FrameWriter interface {
	WriteFrame(frame []byte) error
	Close() error
}

// EncoderFactory opens a FrameWriter for a new output file
type EncoderFactory interface {
	Create(path string, cfg VideoConfig) (FrameWriter, error)
}

// FFmpegEncoder pipes JPEG frames into ffmpeg, which writes the container
type FFmpegEncoder struct {
	command string
}

// NewFFmpegEncoder creates an encoder factory using the ffmpeg binary at command
func NewFFmpegEncoder(command string) *FFmpegEncoder {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegEncoder{command: command}
}

// Args returns the ffmpeg arguments used to encode into path
func (e *FFmpegEncoder) Args(path string, cfg VideoConfig) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		// Frames are stamped on arrival so the clip plays back in real time
		// whatever rate the camera actually delivers.
		"-use_wallclock_as_timestamps", "1",
		"-i", "-",
		"-c:v", cfg.Codec,
		"-vtag", cfg.FourCC,
		"-s", fmt.Sprintf("%dx%d", cfg.Input.Width, cfg.Input.Height),
		"-r", strconv.Itoa(cfg.OutputFrameRate),
		"-q:v", "5",
		"-y",
		path,
	}
}

// Create starts ffmpeg writing to path
func (e *FFmpegEncoder) Create(path string, cfg VideoConfig) (FrameWriter, error) {
	args := e.Args(path, cfg)
	cmd := exec.Command(e.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg encoder: %w", err)
	}
	log.Printf("[VIDEO] Starting FFmpeg encoder with command: %s %s", e.command, strings.Join(args, " "))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	return &ffmpegWriter{cmd: cmd, stdin: stdin, stderr: &stderr, waitErr: waitErr}, nil
}

type ffmpegWriter struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *bytes.Buffer
	waitErr <-chan error

	closeOnce sync.Once
	closeErr  error
}

func (w *ffmpegWriter) WriteFrame(frame []byte) error {
	if _, err := w.stdin.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame to encoder: %w", err)
	}
	return nil
}

// Close ends the input so ffmpeg can finalise the container, then waits for it
func (w *ffmpegWriter) Close() error {
	w.closeOnce.Do(func() {
		if err := w.stdin.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			log.Printf("[VIDEO] Error closing encoder input: %v", err)
		}

		select {
		case err := <-w.waitErr:
			w.closeErr = err
		case <-time.After(encoderStopTimeout):
			log.Printf("[VIDEO] Encoder did not finish in %v, killing process", encoderStopTimeout)
			_ = w.cmd.Process.Kill()
			w.closeErr = <-w.waitErr
		}

		if w.closeErr != nil {
			w.closeErr = fmt.Errorf("ffmpeg encoder failed: %w: %s", w.closeErr, strings.TrimSpace(w.stderr.String()))
		}
	})
	return w.closeErr
}
