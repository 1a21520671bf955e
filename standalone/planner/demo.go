package planner

import "gplotter/standalone"

// RelativeDemo draws a box with a circle inside it and two diagonals, using
// incremental coordinates from the home position.
func RelativeDemo(p *Planner) error {
	f := func(v float64) *float64 { return &v }

	steps := []func() error{
		p.Home,
		func() error { p.SetMode(standalone.Incremental); return nil },

		// box
		p.PenUp,
		func() error { return p.Move(f(50), f(80)) },
		p.PenDown,
		func() error { return p.Line(f(40), f(0)) },
		func() error { return p.Line(f(0), f(-40)) },
		func() error { return p.Line(f(-40), f(0)) },
		func() error { return p.Line(f(0), f(40)) },

		// circle in the box
		p.PenUp,
		func() error { return p.Move(f(20), f(-50)) },
		p.PenDown,
		func() error { return p.Circle(f(.1), f(0), 30, true) },

		// diagonals
		p.PenUp,
		func() error { return p.Move(f(0), f(10)) },
		p.PenDown,
		func() error { return p.Line(f(-20), f(40)) },
		p.PenUp,
		func() error { return p.Line(f(20), f(-40)) },
		p.PenDown,
		func() error { return p.Line(f(20), f(40)) },

		p.Home,
		p.End,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
