package camera

import (
	"context"
	"errors"
	"io"
	"sync"
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

type fakeStream struct {
	frames  chan []byte
	readErr error
	closed  chan struct{}
	once    sync.Once

	mu     sync.Mutex
	closes int
}

func newFakeStream() *fakeStream {
	return &fakeStream{frames: make(chan []byte, 16), closed: make(chan struct{})}
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
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeSource struct {
	stream  FrameStream
	err     error
	lastCfg StreamConfig
}

func (s *fakeSource) Open(ctx context.Context, cfg StreamConfig) (FrameStream, error) {
	s.lastCfg = cfg
	if s.err != nil {
		return nil, s.err
	}
	if s.stream == nil {
		return nil, errors.New("no stream")
	}
	return s.stream, nil
}
