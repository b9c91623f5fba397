package signaling

import (
	"fmt"
	"log"
)

// LineWriter is the write half of a Transport
type LineWriter interface {
	Send(msg string) error
}

// Emitter writes queued messages to the transport
type Emitter struct {
	writer LineWriter
	queue  *MessageQueue
}

// NewEmitter creates an emitter draining queue into writer
func NewEmitter(writer LineWriter, queue *MessageQueue) *Emitter {
	return &Emitter{writer: writer, queue: queue}
}

// Flush sends every queued message in FIFO order. On a write failure the
// remaining messages of the batch are dropped and the error wraps
// ErrTransportDisconnected.
func (e *Emitter) Flush() error {
	msgs := e.queue.Drain()
	for i, msg := range msgs {
		if err := e.writer.Send(msg); err != nil {
			log.Printf("[SERIAL] Failed to send message, dropping %d queued: %v", len(msgs)-i, err)
			return fmt.Errorf("%w: %v", ErrTransportDisconnected, err)
		}
	}
	return nil
}
