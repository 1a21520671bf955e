//go:build rp2040 || rp2350

package main

import (
	"machine"

	"tinygo.org/x/drivers"
)

var _ drivers.UART = usbSerial{}

// usbSerial exposes machine.Serial (USB CDC on the Pico) as a drivers.UART.
// Read only returns what is already buffered and never blocks.
type usbSerial struct{}

// InitUSB initializes USB serial communication
func InitUSB() error {
	return machine.Serial.Configure(machine.UARTConfig{})
}

func (usbSerial) Buffered() int {
	return machine.Serial.Buffered()
}

func (usbSerial) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (usbSerial) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
