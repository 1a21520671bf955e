package planner

import (
	"fmt"
	"log/slog"
	"math"

	"gplotter/standalone"
	"gplotter/standalone/geom"
)

// minArcLength is the length under which an arc collapses to a single move
const minArcLength = 1e-9

// Planner owns the machine position and expands lines and arcs into the
// primitive moves it streams to a Sink.
type Planner struct {
	config *standalone.MachineConfig
	sink   standalone.Sink
	logger *slog.Logger

	// Current state
	pos standalone.Position
}

// NewPlanner creates a new motion planner
func NewPlanner(config *standalone.MachineConfig, sink standalone.Sink, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{
		config: config,
		sink:   sink,
		logger: logger.With("component", "planner"),
	}
}

// Position returns a snapshot of the current machine state
func (p *Planner) Position() standalone.Position {
	return p.pos
}

// Mode returns the active coordinate mode
func (p *Planner) Mode() standalone.Mode {
	return p.pos.Mode
}

// SetMode switches between absolute and incremental coordinates
func (p *Planner) SetMode(mode standalone.Mode) {
	p.pos.Mode = mode
}

// Resolve returns the absolute target for x and y under the current mode.
// A nil coordinate holds that axis.
func (p *Planner) Resolve(x, y *float64) geom.Point {
	cur := p.pos.Point()
	if p.pos.Mode == standalone.Incremental {
		return cur.Add(geom.Pt(valueOr(x, 0), valueOr(y, 0)))
	}
	return geom.Pt(valueOr(x, cur.X), valueOr(y, cur.Y))
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Move travels to the resolved target in a single sink move
func (p *Planner) Move(x, y *float64) error {
	return p.moveTo(p.Resolve(x, y))
}

func (p *Planner) moveTo(target geom.Point) error {
	if err := p.sink.Move(p.pos.Point(), target); err != nil {
		return fmt.Errorf("move to %v: %w", target, err)
	}
	p.pos.X, p.pos.Y = target.X, target.Y
	return nil
}

// Line rasterizes the segment to the resolved target at the configured
// increment and replays every sample after the starting one as a move.
func (p *Planner) Line(x, y *float64) error {
	start := p.pos.Point()
	target := p.Resolve(x, y)
	points := start.RasterLine(target, p.config.LineIncrement)

	p.logger.Debug("line", "start", start, "end", target, "samples", len(points)-1)
	for _, pt := range points[1:] {
		if err := p.moveTo(pt); err != nil {
			return err
		}
	}
	return nil
}

// Circle draws an arc of the given radius from the current position to the
// resolved target. The pen is lifted to reach the first sample and lowered
// for the rest of the arc.
func (p *Planner) Circle(x, y *float64, radius float64, clockwise bool) error {
	start := p.pos.Point()
	end := p.Resolve(x, y)

	center, err := start.CircleCenter(end, radius, clockwise)
	if err != nil {
		return err
	}

	startAngle := start.Angle(center)
	endAngle := end.Angle(center)
	sweep := arcSweep(startAngle, endAngle, clockwise)
	arcLength := math.Abs(sweep) * math.Abs(radius)
	precision := p.config.Precision
	finalPoint := end.Round(precision)

	p.logger.Debug("arc",
		"start", start, "end", end, "center", center,
		"start_angle", startAngle, "end_angle", endAngle, "sweep", sweep)

	if arcLength < minArcLength {
		return p.moveTo(finalPoint)
	}

	samples := p.arcSamples(center, math.Abs(radius), startAngle, sweep, arcLength)

	if err := p.PenUp(); err != nil {
		return err
	}
	if err := p.moveTo(samples[0]); err != nil {
		return err
	}
	if err := p.PenDown(); err != nil {
		return err
	}
	for _, pt := range samples[1:] {
		if err := p.moveTo(pt); err != nil {
			return err
		}
	}
	if !samples[len(samples)-1].Equal(finalPoint) {
		return p.moveTo(finalPoint)
	}
	return nil
}

// arcSweep normalizes the raw angular delta into (-π, π] and then forces it
// into the requested direction: negative for clockwise, positive otherwise.
func arcSweep(startAngle, endAngle float64, clockwise bool) float64 {
	delta := endAngle - startAngle
	for delta <= -math.Pi {
		delta += 2 * math.Pi
	}
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}

	if clockwise && delta > 0 {
		return delta - 2*math.Pi
	}
	if !clockwise && delta < 0 {
		return delta + 2*math.Pi
	}
	return delta
}

// arcSamples returns the rounded, deduplicated sample points of an arc
func (p *Planner) arcSamples(center geom.Point, radius, startAngle, sweep, arcLength float64) []geom.Point {
	steps := int(math.Floor(arcLength * p.config.StepsPerUnit))
	if steps < 1 {
		steps = 1
	}

	samples := make([]geom.Point, 0, steps)
	for n := 0; n < steps; n++ {
		theta := startAngle + float64(n)/float64(steps)*sweep
		pt := geom.Pt(
			center.X+radius*math.Cos(theta),
			center.Y+radius*math.Sin(theta),
		).Round(p.config.Precision)

		if len(samples) > 0 && samples[len(samples)-1].Equal(pt) {
			continue
		}
		samples = append(samples, pt)
	}
	return samples
}

// Dot lifts the pen, travels to the resolved target and marks a single point
func (p *Planner) Dot(x, y *float64) error {
	target := p.Resolve(x, y)
	if err := p.sink.Dot(p.pos.Point(), target); err != nil {
		return fmt.Errorf("dot at %v: %w", target, err)
	}
	p.pos.X, p.pos.Y = target.X, target.Y
	p.pos.PenDown = false
	return nil
}

// PenUp raises the pen
func (p *Planner) PenUp() error {
	if err := p.sink.PenUp(); err != nil {
		return fmt.Errorf("pen up: %w", err)
	}
	p.pos.PenDown = false
	return nil
}

// PenDown lowers the pen
func (p *Planner) PenDown() error {
	if err := p.sink.PenDown(); err != nil {
		return fmt.Errorf("pen down: %w", err)
	}
	p.pos.PenDown = true
	return nil
}

// Home returns to the origin with the pen up. The coordinate mode is kept.
func (p *Planner) Home() error {
	if err := p.sink.Home(); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	p.pos = standalone.Position{Mode: p.pos.Mode}
	return nil
}

// End finishes the program: pen up and motors released
func (p *Planner) End() error {
	if err := p.sink.End(); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	p.pos.PenDown = false
	return nil
}
