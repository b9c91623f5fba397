package camera

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMJPEGReaderSplitsFrames(t *testing.T) {
	first := []byte{0xFF, 0xD8, 0x01, 0xFF, 0x00, 0x02, 0xFF, 0xD9}
	second := []byte{0xFF, 0xD8, 0x03, 0x04, 0xFF, 0xD9}
	truncated := []byte{0xFF, 0xD8, 0x05}

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x12, 0xFF}) // noise before the first frame
	stream.Write(first)
	stream.Write(second)
	stream.Write(truncated)

	r := newMJPEGReader(&stream)

	got, err := r.Next()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Errorf("first frame = % x, want % x", got, first)
	}

	got, err = r.Next()
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Errorf("second frame = % x, want % x", got, second)
	}

	if _, err := r.Next(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF for truncated frame, got %v", err)
	}
}

func TestMJPEGReaderEmptyStream(t *testing.T) {
	r := newMJPEGReader(bytes.NewReader(nil))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFFmpegSourceArgs(t *testing.T) {
	src := NewFFmpegSource("", "/dev/video0", "")
	args := src.Args(StreamConfig{Width: 1280, Height: 720, FrameRate: 10})

	joined := strings.Join(args, " ")
	for _, want := range []string{"-f v4l2", "-video_size 1280x720", "-framerate 10", "-i /dev/video0", "-f image2pipe", "-c:v mjpeg"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "-" {
		t.Errorf("expected output to stdout, got %s", args[len(args)-1])
	}
}
