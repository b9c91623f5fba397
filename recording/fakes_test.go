package recording

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"dashcam/camera"
	"dashcam/database"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

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

type fakeFrames struct {
	frame camera.Frame
	ok    bool
}

func (f *fakeFrames) Latest() (camera.Frame, bool) {
	return f.frame, f.ok
}

type fakeCatalog struct {
	mu    sync.Mutex
	media []database.MediaRecord
}

func (c *fakeCatalog) CreateMedia(media database.MediaRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media = append(c.media, media)
	return nil
}

func (c *fakeCatalog) Media() []database.MediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]database.MediaRecord(nil), c.media...)
}

type fakeStream struct {
	frames  chan []byte
	readErr error
	closed  chan struct{}
	once    sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{frames: make(chan []byte, 64), closed: make(chan struct{})}
}

func (s *fakeStream) ReadFrame() ([]byte, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			if s.readErr != nil {
				return nil, s.readErr
			}
			return nil, io.EOF
		}
		return f, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeSource struct {
	stream  camera.FrameStream
	err     error
	lastCfg camera.StreamConfig
}

func (s *fakeSource) Open(ctx context.Context, cfg camera.StreamConfig) (camera.FrameStream, error) {
	s.lastCfg = cfg
	if s.err != nil {
		return nil, s.err
	}
	return s.stream, nil
}

type fakeWriter struct {
	mu     sync.Mutex
	frames int
	closed bool
}

func (w *fakeWriter) WriteFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("write after close")
	}
	w.frames++
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

type fakeEncoders struct {
	writer   *fakeWriter
	err      error
	lastPath string
}

func (e *fakeEncoders) Create(path string, cfg VideoConfig) (FrameWriter, error) {
	e.lastPath = path
	if e.err != nil {
		return nil, e.err
	}
	return e.writer, nil
}
