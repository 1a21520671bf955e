package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate (GRBL senders default to 115200)
	Baud int

	// Read timeout in milliseconds (0 = blocking). A timed out read looks
	// like end of input to the plotter loop, so keep it at 0 there.
	ReadTimeout int
}

// DefaultConfig returns a default configuration for a GRBL sender link
func DefaultConfig(device string) *Config {
	return &Config{
		Device: device,
		Baud:   115200,
	}
}
