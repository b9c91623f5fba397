package signaling

import (
	"fmt"
	"log"

	"github.com/tarm/serial"
)

// OpenSerial opens the Bluetooth RFCOMM tty (e.g. /dev/rfcomm0, bound by
// `rfcomm watch`) or any other serial port and frames it into lines.
func OpenSerial(portName string, baud int) (*LineTransport, error) {
	config := &serial.Config{
		Name: portName,
		Baud: baud,
	}

	port, err := serial.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	log.Printf("[SERIAL] Connected on %s at %d baud", portName, baud)
	return NewLineTransport(port), nil
}
