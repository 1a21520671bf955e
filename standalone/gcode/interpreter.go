package gcode

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gplotter/protocol"
	"gplotter/standalone"
	"gplotter/standalone/planner"
)

var (
	// ErrEndOfProgram is returned by m30 and ends the read loop
	ErrEndOfProgram = errors.New("end of program")

	// ErrMissingRadius is returned by arc commands without an r word
	ErrMissingRadius = errors.New("arc requires a radius (r)")
)

// Interpreter executes command lines against the planner and writes the
// protocol replies.
type Interpreter struct {
	parser    *Parser
	planner   *planner.Planner
	session   *Session
	out       *protocol.ReplyWriter
	rasterize bool
	logger    *slog.Logger
	observer  standalone.Observer
}

// NewInterpreter creates a new command interpreter
func NewInterpreter(config *standalone.MachineConfig, p *planner.Planner, out *protocol.ReplyWriter, logger *slog.Logger, observer standalone.Observer, now time.Time) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if observer == nil {
		observer = standalone.NopObserver{}
	}
	return &Interpreter{
		parser:    NewParser(),
		planner:   p,
		session:   NewSession(config.Timing, now),
		out:       out,
		rasterize: config.RasterizeFeeds,
		logger:    logger.With("component", "interpreter"),
		observer:  observer,
	}
}

// Session returns the status handshake state
func (it *Interpreter) Session() *Session {
	return it.session
}

// Planner returns the motion controller
func (it *Interpreter) Planner() *planner.Planner {
	return it.planner
}

// Execute runs one input line received at now. Unknown commands are reported
// inline and are not errors. ErrEndOfProgram signals m30.
func (it *Interpreter) Execute(line string, now time.Time) error {
	if i := strings.LastIndexByte(line, protocol.SoftReset); i >= 0 {
		it.logger.Info("soft reset")
		it.session.Reset()
		line = line[i+1:]
	}

	cmd, err := it.parser.ParseLine(line)
	if err != nil {
		it.observer.CommandHandled("invalid", err)
		return err
	}
	if cmd == nil {
		return nil
	}

	c, ok := Lookup(cmd.Name)
	if !ok {
		it.logger.Debug("unknown command", "line", cmd.Raw)
		it.observer.CommandHandled("unknown", nil)
		return it.out.Line(UnknownCommand + cmd.Raw)
	}

	err = c.run(it, cmd, now)
	it.observer.CommandHandled(c.Name, err)
	return err
}

// Tick runs the per-iteration session checks
func (it *Interpreter) Tick(now time.Time) {
	if it.session.Tick(now) {
		it.logger.Debug("session idle, waiting for a new client")
	}
}

// Idle emits the unsolicited status line of the polling loop when due
func (it *Interpreter) Idle(now time.Time) error {
	if !it.session.Unsolicited(now) {
		return nil
	}
	it.observer.StatusReported()
	return it.out.Line(StatusLine(it.planner.Position()))
}

// Shutdown lifts the pen and releases the motors
func (it *Interpreter) Shutdown() error {
	return it.planner.End()
}

func (it *Interpreter) ok() error {
	return it.out.Line(ReplyOK)
}

func (it *Interpreter) rapid(cmd *standalone.GCodeCommand, _ time.Time) error {
	if err := it.planner.PenUp(); err != nil {
		return err
	}
	if err := it.planner.Move(cmd.Param('x'), cmd.Param('y')); err != nil {
		return err
	}
	return it.ok()
}

func (it *Interpreter) feed(cmd *standalone.GCodeCommand, _ time.Time) error {
	if err := it.planner.PenDown(); err != nil {
		return err
	}
	move := it.planner.Move
	if it.rasterize {
		move = it.planner.Line
	}
	if err := move(cmd.Param('x'), cmd.Param('y')); err != nil {
		return err
	}
	return it.ok()
}

func (it *Interpreter) arc(cmd *standalone.GCodeCommand, clockwise bool) error {
	if !cmd.HasParameter('r') {
		return ErrMissingRadius
	}
	r := cmd.GetParameter('r', 0)
	if err := it.planner.Circle(cmd.Param('x'), cmd.Param('y'), r, clockwise); err != nil {
		return err
	}
	return it.ok()
}

func (it *Interpreter) arcCW(cmd *standalone.GCodeCommand, _ time.Time) error {
	return it.arc(cmd, true)
}

func (it *Interpreter) arcCCW(cmd *standalone.GCodeCommand, _ time.Time) error {
	return it.arc(cmd, false)
}

func (it *Interpreter) home(_ *standalone.GCodeCommand, _ time.Time) error {
	if err := it.planner.Home(); err != nil {
		return err
	}
	return it.ok()
}

func (it *Interpreter) absolute(_ *standalone.GCodeCommand, _ time.Time) error {
	it.planner.SetMode(standalone.Absolute)
	return it.ok()
}

func (it *Interpreter) incremental(_ *standalone.GCodeCommand, _ time.Time) error {
	it.planner.SetMode(standalone.Incremental)
	return it.ok()
}

func (it *Interpreter) endProgram(_ *standalone.GCodeCommand, _ time.Time) error {
	return ErrEndOfProgram
}

// jog is a rapid move; a g90 or g91 word applies to this jog only
func (it *Interpreter) jog(cmd *standalone.GCodeCommand, now time.Time) error {
	mode := it.planner.Mode()
	defer it.planner.SetMode(mode)

	for _, w := range cmd.Words {
		switch w {
		case "g90":
			it.planner.SetMode(standalone.Absolute)
		case "g91":
			it.planner.SetMode(standalone.Incremental)
		}
	}
	return it.rapid(cmd, now)
}

func (it *Interpreter) status(_ *standalone.GCodeCommand, now time.Time) error {
	switch it.session.Question(now) {
	case ReplyBanner:
		it.logger.Info("client connected, sending banner")
		it.observer.BannerSent()
		status := StatusLine(it.planner.Position())
		return it.out.Lines(BannerLine, BannerStatus, BannerUnlock, status, status, status, ReplyOK)
	case ReplyStatus:
		it.observer.StatusReported()
		return it.out.Line(StatusLine(it.planner.Position()))
	}
	return nil
}

func (it *Interpreter) settings(_ *standalone.GCodeCommand, _ time.Time) error {
	lines := make([]string, 0, len(Settings)+1)
	for _, s := range Settings {
		lines = append(lines, s.String())
	}
	return it.out.Lines(append(lines, ReplyOK)...)
}

func (it *Interpreter) help(_ *standalone.GCodeCommand, _ time.Time) error {
	lines := make([]string, 0, len(vocabulary))
	for _, c := range vocabulary {
		lines = append(lines, fmt.Sprintf("%s: %s", c.Usage, c.Description))
	}
	return it.out.Lines(lines...)
}

func (it *Interpreter) info(_ *standalone.GCodeCommand, _ time.Time) error {
	return it.out.Lines(InfoVersion, InfoOptions, ReplyOK)
}

func (it *Interpreter) unlock(_ *standalone.GCodeCommand, _ time.Time) error {
	return it.out.Lines(UnlockMessage, ReplyOK)
}

func (it *Interpreter) fileBoundary(_ *standalone.GCodeCommand, _ time.Time) error {
	return it.ok()
}
