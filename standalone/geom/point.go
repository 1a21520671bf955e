// Package geom provides the planar primitives used by the motion controller.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoArc is returned when no arc of the requested radius can join two points
var ErrNoArc = errors.New("no arc with this radius can connect the 2 points")

// Point is an immutable position in the XY plane
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("[(%.2f, %.2f)]", p.X, p.Y)
}

// Add returns p + o
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p - o
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Vector returns the vector from center to p
func (p Point) Vector(center Point) Point {
	return p.Sub(center)
}

// Distance returns the euclidean distance between p and o
func (p Point) Distance(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Midpoint returns the point halfway between p and o
func (p Point) Midpoint(o Point) Point {
	return Point{X: (p.X + o.X) / 2, Y: (p.Y + o.Y) / 2}
}

// Angle returns the angle of p around center, in [0, 2π)
func (p Point) Angle(center Point) float64 {
	a := math.Atan2(p.Y-center.Y, p.X-center.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Round rounds both coordinates to the given number of decimals.
// Ties round half away from zero.
func (p Point) Round(decimals int) Point {
	return Point{X: RoundTo(p.X, decimals), Y: RoundTo(p.Y, decimals)}
}

// Equal reports exact coordinate equality
func (p Point) Equal(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}

// RoundTo rounds v to the given number of decimals, half away from zero
func RoundTo(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// CircleCenter returns the center of the circle of the given radius that passes
// through p and o. A negative radius selects the center on the other side of the
// chord, and clockwise mirrors the choice. ErrNoArc is returned if the points are
// further apart than the diameter.
//
// When p and o coincide the chord direction is taken as +X.
func (p Point) CircleCenter(o Point, radius float64, clockwise bool) (Point, error) {
	d := p.Distance(o)
	if d > math.Abs(radius)*2 {
		return Point{}, fmt.Errorf("%w: distance %.3f, radius %.3f", ErrNoArc, d, radius)
	}

	factor := 1.0
	if radius < 0 {
		factor = -1.0
	}
	h := math.Sqrt(math.Max(0, radius*radius-(d/2)*(d/2))) * factor
	mid := p.Midpoint(o)

	// unit chord vector
	vx, vy := 1.0, 0.0
	if d > 0 {
		vx = (o.X - p.X) / d
		vy = (o.Y - p.Y) / d
	}

	// perpendicular
	px, py := -vy, vx

	if clockwise {
		return Point{X: mid.X + h*px, Y: mid.Y + h*py}, nil
	}
	return Point{X: mid.X - h*px, Y: mid.Y - h*py}, nil
}
