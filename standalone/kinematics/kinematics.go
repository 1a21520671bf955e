package kinematics

import "gplotter/standalone/geom"

// Kinematics defines the interface for coordinate transformations
type Kinematics interface {
	// CalcMoves converts a planar delta into one step move per axis
	CalcMoves(delta geom.Point) []AxisMove

	// GetAxisNames returns the names of axes controlled by this kinematics,
	// in the order CalcMoves reports them
	GetAxisNames() []string

	// Reset discards any carried fractional steps
	Reset()

	// ResetAxis discards the carry of one axis, indexed as in CalcMoves.
	// Used when the motor stopped short of the requested steps.
	ResetAxis(i int)
}

// AxisMove is a step count and motor direction for one axis
type AxisMove struct {
	Axis      string
	Steps     int
	Direction int // -1 or +1
}
