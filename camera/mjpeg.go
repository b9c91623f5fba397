package camera

import (
	"bufio"
	"io"
)

// JPEG markers
const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
)

// mjpegReader splits a concatenated MJPEG byte stream into JPEG images
type mjpegReader struct {
	r *bufio.Reader
}

func newMJPEGReader(r io.Reader) *mjpegReader {
	return &mjpegReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next complete JPEG image including its SOI/EOI markers.
// Bytes before the first SOI are discarded.
func (m *mjpegReader) Next() ([]byte, error) {
	var prev byte
	for {
		b, err := m.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if prev == markerPrefix && b == markerSOI {
			break
		}
		prev = b
	}

	frame := make([]byte, 2, 128*1024)
	frame[0], frame[1] = markerPrefix, markerSOI
	prev = 0
	for {
		b, err := m.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		frame = append(frame, b)
		if prev == markerPrefix && b == markerEOI {
			return frame, nil
		}
		prev = b
	}
}
