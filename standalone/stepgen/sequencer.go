package stepgen

import (
	"errors"
	"fmt"
	"log/slog"

	"gplotter/core"
	"gplotter/standalone"
	"gplotter/standalone/geom"
	"gplotter/standalone/kinematics"
)

// Sequencer is the stepper-driven Sink. X runs to completion before Y;
// the pen is a third motor without an endstop.
type Sequencer struct {
	config     *standalone.MachineConfig
	kinematics kinematics.Kinematics
	x, y, pen  *Motor
	penDown    bool
	logger     *slog.Logger
}

// NewSequencer builds the three motors of the plotter on driver
func NewSequencer(config *standalone.MachineConfig, driver core.GPIODriver, logger *slog.Logger, observer standalone.Observer) (*Sequencer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if observer == nil {
		observer = standalone.NopObserver{}
	}

	kin, err := kinematics.NewCartesian(config)
	if err != nil {
		return nil, err
	}

	s := &Sequencer{
		config:     config,
		kinematics: kin,
		logger:     logger.With("component", "sequencer"),
	}

	delay := config.StepDelay.Std()
	motors := []struct {
		dst  **Motor
		name string
		cfg  standalone.MotorConfig
	}{
		{&s.x, "X", config.X},
		{&s.y, "Y", config.Y},
		{&s.pen, "Z", config.Pen},
	}
	for _, mc := range motors {
		m, err := NewMotor(mc.name, driver, mc.cfg, delay)
		if err != nil {
			return nil, err
		}
		m.SetLogger(s.logger)
		m.SetObserver(observer)
		*mc.dst = m
	}

	return s, nil
}

// Motors returns the X, Y and pen motors
func (s *Sequencer) Motors() (x, y, pen *Motor) {
	return s.x, s.y, s.pen
}

// PenIsDown reports the pen state
func (s *Sequencer) PenIsDown() bool {
	return s.penDown
}

// Move drives the motors by the delta between from and to
func (s *Sequencer) Move(from, to geom.Point) error {
	moves := s.kinematics.CalcMoves(to.Sub(from))
	axes := []*Motor{s.x, s.y}

	for i, mv := range moves {
		if mv.Steps == 0 {
			continue
		}
		done, err := axes[i].Move(mv.Steps, mv.Direction)
		if err != nil {
			return err
		}
		if abs(done) < mv.Steps {
			s.logger.Warn("move truncated",
				"axis", mv.Axis, "requested", mv.Steps*mv.Direction, "done", done)
			s.kinematics.ResetAxis(i)
		}
	}
	return nil
}

// PenUp raises the pen if it is down
func (s *Sequencer) PenUp() error {
	if !s.penDown {
		return nil
	}
	if _, err := s.pen.Move(s.config.PenSteps, -1); err != nil {
		return fmt.Errorf("pen up: %w", err)
	}
	s.penDown = false
	return nil
}

// PenDown lowers the pen if it is up
func (s *Sequencer) PenDown() error {
	if s.penDown {
		return nil
	}
	if _, err := s.pen.Move(s.config.PenSteps, 1); err != nil {
		return fmt.Errorf("pen down: %w", err)
	}
	s.penDown = true
	return nil
}

// Home lifts the pen and homes X then Y
func (s *Sequencer) Home() error {
	if err := s.PenUp(); err != nil {
		return err
	}
	if err := s.x.Home(); err != nil {
		return err
	}
	if err := s.y.Home(); err != nil {
		return err
	}
	s.kinematics.Reset()
	return nil
}

// Dot travels to at with the pen up and taps the pen once
func (s *Sequencer) Dot(from, at geom.Point) error {
	if err := s.PenUp(); err != nil {
		return err
	}
	if err := s.Move(from, at); err != nil {
		return err
	}
	if err := s.PenDown(); err != nil {
		return err
	}
	return s.PenUp()
}

// End lifts the pen and releases every coil
func (s *Sequencer) End() error {
	err := s.PenUp()
	for _, m := range []*Motor{s.x, s.y, s.pen} {
		err = errors.Join(err, m.Release())
	}
	return err
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
