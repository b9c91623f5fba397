package signaling

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrTransportDisconnected is returned when the command channel can no longer be read or written
var ErrTransportDisconnected = errors.New("transport disconnected")

// Transport is the bidirectional line channel to the phone
type Transport interface {
	ReadLine() (string, error)
	Send(msg string) error
	Close() error
}

// LineTransport frames an arbitrary byte stream (serial port, socket) into lines
type LineTransport struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewLineTransport wraps rwc; the transport owns rwc and closes it on Close
func NewLineTransport(rwc io.ReadWriteCloser) *LineTransport {
	return &LineTransport{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

// ReadLine blocks until a full line arrives. The terminator is included;
// a final unterminated line is returned before io.EOF.
func (t *LineTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if line != "" && err == io.EOF {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// Send writes msg as is; messages carry their own CRLF
func (t *LineTransport) Send(msg string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := io.WriteString(t.rwc, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the underlying connection once
func (t *LineTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.rwc.Close()
	})
	return t.closeErr
}
