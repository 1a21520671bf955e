package stepgen

import (
	"fmt"
	"log/slog"
	"time"

	"gplotter/core"
	"gplotter/standalone"
)

var (
	// two coils energized per phase
	fullStepSequence = [][4]bool{
		{true, true, false, false},
		{false, true, true, false},
		{false, false, true, true},
		{true, false, false, true},
	}

	// alternating one and two coils
	halfStepSequence = [][4]bool{
		{true, false, false, false},
		{true, true, false, false},
		{false, true, false, false},
		{false, true, true, false},
		{false, false, true, false},
		{false, false, true, true},
		{false, false, false, true},
		{true, false, false, true},
	}

	released = [4]bool{}
)

// Motor drives a four-coil unipolar stepper. Its counter is the distance
// from home in steps and stays within [0, MaxSteps].
type Motor struct {
	name     string
	driver   core.GPIODriver
	pins     [4]core.GPIOPin
	sequence [][4]bool
	delay    time.Duration

	endstop    core.Endstop
	endstopDir int // direction of travel toward home
	maxSteps   int
	current    int

	logger   *slog.Logger
	observer standalone.Observer
	sleep    func(time.Duration)
}

// NewMotor configures the coil pins and endstop of one motor. A motor with
// an endstop direction but no endstop pin uses a virtual endstop that
// triggers when the counter reaches zero.
func NewMotor(name string, driver core.GPIODriver, config standalone.MotorConfig, delay time.Duration) (*Motor, error) {
	m := &Motor{
		name:       name,
		driver:     driver,
		sequence:   fullStepSequence,
		delay:      delay,
		endstopDir: config.Direction,
		maxSteps:   config.MaxSteps,
		logger:     slog.New(slog.DiscardHandler),
		observer:   standalone.NopObserver{},
		sleep:      time.Sleep,
	}
	if config.HalfStep {
		m.sequence = halfStepSequence
	}
	if m.endstopDir > 0 {
		m.endstopDir = 1
	} else if m.endstopDir < 0 {
		m.endstopDir = -1
	}

	for i, p := range config.Pins {
		m.pins[i] = core.GPIOPin(p)
		if err := driver.ConfigureOutput(m.pins[i]); err != nil {
			return nil, fmt.Errorf("motor %s: configure coil pin %d: %w", name, p, err)
		}
	}

	switch {
	case config.Endstop != nil:
		e, err := core.NewPinEndstop(driver, core.GPIOPin(*config.Endstop), config.Invert)
		if err != nil {
			return nil, fmt.Errorf("motor %s: %w", name, err)
		}
		m.endstop = e
	case m.endstopDir != 0:
		m.endstop = virtualEndstop{m}
	}

	if err := m.Release(); err != nil {
		return nil, err
	}
	return m, nil
}

// virtualEndstop triggers at the home end of the counter
type virtualEndstop struct {
	m *Motor
}

func (v virtualEndstop) Triggered() bool {
	return v.m.current == 0
}

// SetLogger replaces the motor logger
func (m *Motor) SetLogger(logger *slog.Logger) {
	m.logger = logger.With("motor", m.name)
}

// SetObserver replaces the event observer
func (m *Motor) SetObserver(o standalone.Observer) {
	m.observer = o
}

// Name returns the motor name
func (m *Motor) Name() string { return m.name }

// CurrentStep returns the distance from home in steps
func (m *Motor) CurrentStep() int { return m.current }

// MaxSteps returns the travel limit
func (m *Motor) MaxSteps() int { return m.maxSteps }

// homeDirection is the travel direction that decreases the counter
func (m *Motor) homeDirection() int {
	if m.endstopDir != 0 {
		return m.endstopDir
	}
	return -1
}

// Move runs up to steps full phase cycles in direction (+1 or -1) and returns
// the signed number of steps completed. Travel stops early when the endstop
// triggers while moving home, or when the counter reaches MaxSteps while
// moving away. The coils are released afterwards.
func (m *Motor) Move(steps int, direction int) (int, error) {
	if direction >= 0 {
		direction = 1
	} else {
		direction = -1
	}
	toward := direction == m.homeDirection()

	count := 0
	var err error
	for count < steps {
		if toward && m.endstop != nil && m.endstop.Triggered() {
			m.current = 0
			m.logger.Info("endstop reached")
			m.observer.EndstopHit(m.name)
			break
		}
		if !toward && m.maxSteps > 0 && m.current >= m.maxSteps {
			m.logger.Info("max steps reached", "max_steps", m.maxSteps)
			break
		}

		if err = m.step(direction); err != nil {
			break
		}

		count++
		if toward {
			m.current = max(0, m.current-1)
		} else {
			m.current++
		}
	}

	if relErr := m.Release(); err == nil {
		err = relErr
	}
	moved := count * direction
	if count > 0 {
		m.observer.StepsMoved(m.name, moved)
	}
	return moved, err
}

// step drives one pass of the phase table
func (m *Motor) step(direction int) error {
	n := len(m.sequence)
	for i := 0; i < n; i++ {
		phase := i
		if direction < 0 {
			phase = n - 1 - i
		}
		if err := m.apply(m.sequence[phase]); err != nil {
			return err
		}
		if m.delay > 0 {
			m.sleep(m.delay)
		}
	}
	return nil
}

func (m *Motor) apply(coils [4]bool) error {
	if err := core.WritePins(m.driver, m.pins[:], coils[:]); err != nil {
		return fmt.Errorf("motor %s: %w", m.name, err)
	}
	return nil
}

// Release de-energizes all coils
func (m *Motor) Release() error {
	return m.apply(released)
}

// Home drives the motor onto its endstop and zeroes the counter. Motors
// without an endstop only zero the counter.
func (m *Motor) Home() error {
	if m.endstopDir != 0 {
		m.current = m.maxSteps
		if _, err := m.Move(m.maxSteps, m.endstopDir); err != nil {
			return err
		}
	}
	m.current = 0
	return nil
}
