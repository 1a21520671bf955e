package kinematics

import (
	"errors"
	"math"

	"gplotter/standalone"
	"gplotter/standalone/geom"
)

// Cartesian maps X and Y one to one onto two motors
type Cartesian struct {
	stepsPerUnit float64
	homeDir      [2]int
	remainder    [2]float64
}

// NewCartesian creates a new Cartesian kinematics instance
func NewCartesian(config *standalone.MachineConfig) (*Cartesian, error) {
	if config.StepsPerUnit <= 0 {
		return nil, errors.New("steps_per_unit must be positive")
	}

	return &Cartesian{
		stepsPerUnit: config.StepsPerUnit,
		homeDir:      [2]int{homeDirection(config.X), homeDirection(config.Y)},
	}, nil
}

// homeDirection is the motor direction that decreases the coordinate.
// Axes without an endstop count -1 as home.
func homeDirection(m standalone.MotorConfig) int {
	if m.Direction > 0 {
		return 1
	}
	return -1
}

// CalcMoves converts a planar delta into X then Y step moves. Negative deltas
// travel toward the endstop. The fractional part of each axis is carried into
// the next call so long runs of short moves do not drift. The carry tracks
// commanded steps; callers reset it when a motor stops short.
func (k *Cartesian) CalcMoves(delta geom.Point) []AxisMove {
	d := [2]float64{delta.X, delta.Y}
	names := k.GetAxisNames()
	moves := make([]AxisMove, 2)

	for i := range d {
		exact := d[i]*k.stepsPerUnit + k.remainder[i]
		steps := math.Trunc(exact)
		k.remainder[i] = exact - steps

		dir := -k.homeDir[i]
		if steps < 0 {
			dir = k.homeDir[i]
		}
		moves[i] = AxisMove{Axis: names[i], Steps: int(math.Abs(steps)), Direction: dir}
	}
	return moves
}

// GetAxisNames returns the axis names for Cartesian kinematics
func (k *Cartesian) GetAxisNames() []string {
	return []string{"x", "y"}
}

// Reset discards carried fractional steps, used after homing
func (k *Cartesian) Reset() {
	k.remainder = [2]float64{}
}

// ResetAxis discards the carry of axis i
func (k *Cartesian) ResetAxis(i int) {
	if i >= 0 && i < len(k.remainder) {
		k.remainder[i] = 0
	}
}
