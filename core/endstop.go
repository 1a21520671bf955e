// Endstop handling for GPIO-based limit switches
package core

import "fmt"

// Endstop reports whether a motor has reached its home limit
type Endstop interface {
	Triggered() bool
}

// PinEndstop is a mechanical switch on a GPIO input
type PinEndstop struct {
	driver     GPIODriver
	pin        GPIOPin
	activeHigh bool
}

// NewPinEndstop configures pin as an endstop input. Active-low switches get
// a pull-up, active-high ones a pull-down.
func NewPinEndstop(driver GPIODriver, pin GPIOPin, activeHigh bool) (*PinEndstop, error) {
	var err error
	if activeHigh {
		err = driver.ConfigureInputPullDown(pin)
	} else {
		err = driver.ConfigureInputPullUp(pin)
	}
	if err != nil {
		return nil, fmt.Errorf("configure endstop pin %d: %w", pin, err)
	}
	return &PinEndstop{driver: driver, pin: pin, activeHigh: activeHigh}, nil
}

// Triggered samples the switch. A read failure counts as triggered so the
// motor stops instead of driving into the frame.
func (e *PinEndstop) Triggered() bool {
	level, err := e.driver.GetPin(e.pin)
	if err != nil {
		return true
	}
	return level == e.activeHigh
}

// Pin returns the input pin
func (e *PinEndstop) Pin() GPIOPin {
	return e.pin
}
