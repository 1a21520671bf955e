package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gplotter/standalone"
)

// LoadConfig parses a YAML (or JSON) configuration and returns a MachineConfig
func LoadConfig(data []byte) (*standalone.MachineConfig, error) {
	config := DefaultPlotterConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Apply defaults
	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*standalone.MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadConfig(data)
}

// Marshal renders a configuration as YAML
func Marshal(config *standalone.MachineConfig) ([]byte, error) {
	return yaml.Marshal(config)
}

// applyDefaults fills in zero values that have no meaning
func applyDefaults(config *standalone.MachineConfig) {
	if config.Name == "" {
		config.Name = "plotter"
	}
	if config.StepDelay == 0 {
		config.StepDelay = standalone.Duration(1500 * time.Microsecond)
	}
	if config.LineIncrement <= 0 {
		config.LineIncrement = 0.25
	}
	if config.PenSteps == 0 {
		config.PenSteps = 40
	}

	for _, motor := range []*standalone.MotorConfig{&config.X, &config.Y, &config.Pen} {
		if motor.MaxSteps == 0 {
			motor.MaxSteps = 1100
		}
	}

	// Default session timing
	timing := &config.Timing
	if timing.QuickRequest == 0 {
		timing.QuickRequest = standalone.Duration(1500 * time.Millisecond)
	}
	if timing.StatusEvery == 0 {
		timing.StatusEvery = standalone.Duration(2000 * time.Millisecond)
	}
	if timing.IdleReset == 0 {
		timing.IdleReset = standalone.Duration(8000 * time.Millisecond)
	}
	if timing.PollInterval == 0 {
		timing.PollInterval = standalone.Duration(10 * time.Millisecond)
	}
}

// Validate rejects configurations the machine cannot run
func Validate(config *standalone.MachineConfig) error {
	if config.StepsPerUnit <= 0 {
		return fmt.Errorf("steps_per_unit must be positive, got %v", config.StepsPerUnit)
	}
	if config.Precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", config.Precision)
	}
	if config.PenSteps < 0 {
		return fmt.Errorf("pen_steps must not be negative, got %d", config.PenSteps)
	}

	motors := map[string]standalone.MotorConfig{"x": config.X, "y": config.Y, "pen": config.Pen}
	for name, motor := range motors {
		if motor.MaxSteps < 0 {
			return fmt.Errorf("%s: max_steps must not be negative", name)
		}
		switch motor.Direction {
		case -1, 0, 1:
		default:
			return fmt.Errorf("%s: endstop_direction must be -1, 0 or 1, got %d", name, motor.Direction)
		}
	}
	return nil
}

// DefaultPlotterConfig returns the configuration of the reference pen plotter:
// two half-stepped 28BYJ-48 axes homing onto switches and a full-stepped pen lift
func DefaultPlotterConfig() *standalone.MachineConfig {
	xEndstop, yEndstop := 14, 15
	return &standalone.MachineConfig{
		Name:          "plotter",
		StepsPerUnit:  11,
		StepDelay:     standalone.Duration(1500 * time.Microsecond),
		Precision:     0,
		LineIncrement: 0.25,
		PenSteps:      40,
		X: standalone.MotorConfig{
			Pins:      [4]uint8{4, 5, 6, 7},
			HalfStep:  true,
			MaxSteps:  1100,
			Endstop:   &xEndstop,
			Direction: -1,
		},
		Y: standalone.MotorConfig{
			Pins:      [4]uint8{0, 1, 2, 3},
			HalfStep:  true,
			MaxSteps:  1100,
			Endstop:   &yEndstop,
			Direction: 1,
		},
		Pen: standalone.MotorConfig{
			Pins:     [4]uint8{8, 9, 10, 11},
			MaxSteps: 1100,
		},
		Timing: standalone.TimingConfig{
			QuickRequest: standalone.Duration(1500 * time.Millisecond),
			StatusEvery:  standalone.Duration(2000 * time.Millisecond),
			IdleReset:    standalone.Duration(8000 * time.Millisecond),
			PollInterval: standalone.Duration(10 * time.Millisecond),
		},
	}
}
