package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"dashcam/camera"
	"dashcam/signaling"
)

type fakeTransport struct {
	lines   chan string
	readErr error

	mu     sync.Mutex
	sent   []string
	closed chan struct{}
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{lines: make(chan string, 16), closed: make(chan struct{})}
}

func (f *fakeTransport) ReadLine() (string, error) {
	select {
	case line, ok := <-f.lines:
		if !ok {
			if f.readErr != nil {
				return "", f.readErr
			}
			return "", io.EOF
		}
		return line, nil
	case <-f.closed:
		return "", io.ErrClosedPipe
	}
}

func (f *fakeTransport) Send(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeCapture struct {
	mu      sync.Mutex
	stopped int
}

func (c *fakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
}

func (c *fakeCapture) Stopped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (s *fakeSnapshots) Save() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return "", s.err
}

func (s *fakeSnapshots) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type fakeRepeat struct {
	mu       sync.Mutex
	interval time.Duration
	started  bool
	stopped  bool
	done     chan struct{}
	once     sync.Once

	// firstLine is posted on Start, like the first snapshot's status line
	messages  *signaling.MessageQueue
	firstLine string
}

func (r *fakeRepeat) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	if r.firstLine != "" {
		r.messages.Post(r.firstLine)
	}
}

// finish simulates the task ending by itself
func (r *fakeRepeat) finish() {
	r.once.Do(func() { close(r.done) })
}

func (r *fakeRepeat) SetInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = d
}

func (r *fakeRepeat) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

func (r *fakeRepeat) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *fakeRepeat) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *fakeRepeat) Done() <-chan struct{} {
	return r.done
}

type fakeVideo struct {
	startErr error
	done     chan struct{}
	once     sync.Once

	mu      sync.Mutex
	started bool
	stopped bool
}

func (v *fakeVideo) Start(ctx context.Context) error {
	if v.startErr != nil {
		return v.startErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.started = true
	return nil
}

func (v *fakeVideo) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
	v.finish()
}

func (v *fakeVideo) Started() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started
}

func (v *fakeVideo) Stopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

// finish simulates the recording ending by itself
func (v *fakeVideo) finish() {
	v.once.Do(func() { close(v.done) })
}

func (v *fakeVideo) Done() <-chan struct{} {
	return v.done
}

// harness builds a controller whose task factories record what they create
type harness struct {
	transport *fakeTransport
	capture   *fakeCapture
	snapshots *fakeSnapshots
	messages  *signaling.MessageQueue

	mu              sync.Mutex
	repeats         []*fakeRepeat
	videos          []*fakeVideo
	videoErr        error
	repeatFirstLine string

	ctrl *Controller
}

func newHarness() *harness {
	h := &harness{
		transport: newFakeTransport(),
		capture:   &fakeCapture{},
		snapshots: &fakeSnapshots{},
		messages:  signaling.NewMessageQueue(),
	}
	h.ctrl = NewController(Options{
		Transport: h.transport,
		Messages:  h.messages,
		Capture:   h.capture,
		Snapshots: h.snapshots,
		NewRepeat: func(interval time.Duration) RepeatRunner {
			h.mu.Lock()
			defer h.mu.Unlock()
			r := &fakeRepeat{
				interval:  interval,
				done:      make(chan struct{}),
				messages:  h.messages,
				firstLine: h.repeatFirstLine,
			}
			h.repeats = append(h.repeats, r)
			return r
		},
		NewVideo: func() VideoRunner {
			h.mu.Lock()
			defer h.mu.Unlock()
			v := &fakeVideo{startErr: h.videoErr, done: make(chan struct{})}
			h.videos = append(h.videos, v)
			return v
		},
	})
	return h
}

// run dispatches lines synchronously, as one batch
func (h *harness) run(lines ...string) []string {
	for _, line := range lines {
		h.ctrl.commands.Push(line)
	}
	h.ctrl.dispatchBatch(context.Background())
	return h.messages.Drain()
}

type staticFrames struct {
	frame camera.Frame
}

func (f *staticFrames) Latest() (camera.Frame, bool) {
	return f.frame, true
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}
