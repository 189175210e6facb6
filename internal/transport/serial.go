package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens a real serial port at the given path using the provided
// mode. The returned port satisfies BytePort directly: go.bug.st/serial
// ports implement Read, Close, and SetReadTimeout with the timeout
// semantics the pipeline expects (zero-byte read at deadline).
func OpenSerial(path string, mode *PortMode) (BytePort, error) {
	if mode == nil {
		mode = DefaultPortMode()
	}

	m := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
	}

	switch mode.Parity {
	case NoParity:
		m.Parity = serial.NoParity
	case OddParity:
		m.Parity = serial.OddParity
	case EvenParity:
		m.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unsupported parity: %d", mode.Parity)
	}

	switch mode.StopBits {
	case OneStopBit:
		m.StopBits = serial.OneStopBit
	case TwoStopBits:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %d", mode.StopBits)
	}

	port, err := serial.Open(path, m)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	return port, nil
}
