package core

import (
	"fmt"
	"sync"
)

// PinMode records how a MemoryGPIO pin was configured
type PinMode uint8

const (
	PinUnconfigured PinMode = iota
	PinOutput
	PinInputPullUp
	PinInputPullDown
)

// MemoryGPIO is a GPIODriver that keeps pin levels in memory.
// It backs host dry runs and tests; inputs can be driven with Drive.
type MemoryGPIO struct {
	mu     sync.Mutex
	modes  map[GPIOPin]PinMode
	levels map[GPIOPin]bool
	writes map[GPIOPin]int
	maxPin GPIOPin
}

// NewMemoryGPIO creates a driver accepting pins 0..maxPin
func NewMemoryGPIO(maxPin GPIOPin) *MemoryGPIO {
	return &MemoryGPIO{
		modes:  make(map[GPIOPin]PinMode),
		levels: make(map[GPIOPin]bool),
		writes: make(map[GPIOPin]int),
		maxPin: maxPin,
	}
}

func (m *MemoryGPIO) configure(pin GPIOPin, mode PinMode, level bool) error {
	if pin > m.maxPin {
		return fmt.Errorf("invalid pin %d", pin)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[pin] = mode
	m.levels[pin] = level
	return nil
}

func (m *MemoryGPIO) ConfigureOutput(pin GPIOPin) error {
	return m.configure(pin, PinOutput, false)
}

func (m *MemoryGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	return m.configure(pin, PinInputPullUp, true)
}

func (m *MemoryGPIO) ConfigureInputPullDown(pin GPIOPin) error {
	return m.configure(pin, PinInputPullDown, false)
}

func (m *MemoryGPIO) SetPin(pin GPIOPin, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes[pin] != PinOutput {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	m.levels[pin] = value
	m.writes[pin]++
	return nil
}

func (m *MemoryGPIO) GetPin(pin GPIOPin) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes[pin] == PinUnconfigured {
		return false, fmt.Errorf("pin %d is not configured", pin)
	}
	return m.levels[pin], nil
}

// Drive sets the level seen on an input pin
func (m *MemoryGPIO) Drive(pin GPIOPin, value bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = value
}

// Mode returns how a pin was configured
func (m *MemoryGPIO) Mode(pin GPIOPin) PinMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modes[pin]
}

// Writes returns the number of SetPin calls seen on a pin
func (m *MemoryGPIO) Writes(pin GPIOPin) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[pin]
}

// Level returns the current level of a pin
func (m *MemoryGPIO) Level(pin GPIOPin) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin]
}
