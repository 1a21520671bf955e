package geom

import "math"

// RasterLine walks from p to o on a grid of the given increment using
// Bresenham's algorithm and returns every visited point, p first and o last.
//
// Offsets that are not a whole number of increments are snapped to the nearest
// grid step; the final sample is always exactly o.
func (p Point) RasterLine(o Point, increment float64) []Point {
	if increment <= 0 {
		increment = 1
	}

	dxSteps := int(math.Round(math.Abs(o.X-p.X) / increment))
	dySteps := int(math.Round(math.Abs(o.Y-p.Y) / increment))

	sx, sy := increment, increment
	if o.X < p.X {
		sx = -increment
	}
	if o.Y < p.Y {
		sy = -increment
	}

	points := make([]Point, 0, max(dxSteps, dySteps)+2)
	points = append(points, p)

	x, y := 0, 0
	err := dxSteps - dySteps
	for x != dxSteps || y != dySteps {
		e2 := 2 * err
		if e2 > -dySteps {
			err -= dySteps
			x++
		}
		if e2 < dxSteps {
			err += dxSteps
			y++
		}
		points = append(points, Point{X: p.X + float64(x)*sx, Y: p.Y + float64(y)*sy})
	}

	// grid drift and fractional remainders are absorbed by the last sample
	last := len(points) - 1
	if last == 0 {
		if !p.Equal(o) {
			points = append(points, o)
		}
		return points
	}
	points[last] = o
	return points
}
