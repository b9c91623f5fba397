package camera

import (
	"sync"
	"time"
)

// Frame is one JPEG image delivered by the camera
type Frame struct {
	Data       []byte
	CapturedAt time.Time
	Seq        uint64
}

// Slot holds the most recent frame. Writers overwrite, readers get a copy;
// there is no history.
type Slot struct {
	mu    sync.RWMutex
	frame Frame
	ok    bool
}

// Store replaces the current frame with data
func (s *Slot) Store(data []byte, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = Frame{Data: data, CapturedAt: at, Seq: s.frame.Seq + 1}
	s.ok = true
}

// Latest returns a copy of the current frame, false until the first Store
func (s *Slot) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return Frame{}, false
	}
	f := s.frame
	f.Data = make([]byte, len(s.frame.Data))
	copy(f.Data, s.frame.Data)
	return f, true
}
