// Package transport provides an abstraction over the sensor's serial link.
// The acquisition loop reads raw frame bytes through a BytePort whose reads
// are bounded by a deadline, so a disconnected sensor can never stall the
// pipeline indefinitely.
package transport

import (
	"io"
	"time"
)

// BytePort defines the minimal interface needed for the sensor byte stream.
// This abstraction enables unit testing without real serial hardware.
//
// After SetReadTimeout, a Read that hits the deadline returns (0, nil),
// matching the semantics of go.bug.st/serial ports.
type BytePort interface {
	io.Reader
	io.Closer

	// SetReadTimeout sets the deadline applied to each subsequent Read.
	SetReadTimeout(timeout time.Duration) error
}

// PortMode defines serial port configuration parameters.
type PortMode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// Parity defines serial port parity options.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits defines serial port stop bit options.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// DefaultPortMode returns the default mode for the MLX90640 UART bridge.
func DefaultPortMode() *PortMode {
	return &PortMode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

// Opener is a function type for opening byte ports.
// This abstraction enables dependency injection of port creation.
type Opener func(path string, mode *PortMode) (BytePort, error)
