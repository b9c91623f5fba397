package signaling

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"
)

// LineReader is the read half of a Transport
type LineReader interface {
	ReadLine() (string, error)
}

// Ingestor reads command lines from the transport into the command queue
type Ingestor struct {
	reader LineReader
	queue  *CommandQueue
}

// NewIngestor creates an ingestor; it reads nothing until Run
func NewIngestor(reader LineReader, queue *CommandQueue) *Ingestor {
	return &Ingestor{reader: reader, queue: queue}
}

// Run reads until ctx is cancelled or the transport fails. A read failure
// returns an error wrapping ErrTransportDisconnected. The owner must close the
// transport to unblock a pending read after cancelling ctx.
func (i *Ingestor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := i.reader.ReadLine()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrTransportDisconnected, err)
		}

		cmd := CleanLine(line)
		if cmd == "" {
			continue
		}
		log.Printf("[SERIAL] Received command: %q", cmd)
		i.queue.Push(cmd)
	}
}

// CleanLine decodes raw bytes as UTF-8 and strips trailing whitespace
func CleanLine(raw string) string {
	return strings.TrimRightFunc(strings.ToValidUTF8(raw, "\uFFFD"), unicode.IsSpace)
}
