package manager

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"tinygo.org/x/drivers"

	"gplotter/core"
	"gplotter/protocol"
	"gplotter/standalone"
	"gplotter/standalone/config"
	"gplotter/standalone/gcode"
	"gplotter/standalone/planner"
	"gplotter/standalone/stepgen"
)

var (
	errNotInitialized     = errors.New("manager not initialized")
	errAlreadyInitialized = errors.New("already initialized")
)

// Manager wires the plotter together: configuration, the motion sink, the
// planner, the command interpreter and its read loops.
type Manager struct {
	config   *standalone.MachineConfig
	replies  *protocol.ReplyWriter
	logger   *slog.Logger
	observer standalone.Observer
	clock    func() time.Time

	sink        standalone.Sink
	planner     *planner.Planner
	interpreter *gcode.Interpreter

	initialized bool
}

// NewManager creates a manager from configuration data
func NewManager(configData []byte, out io.Writer, logger *slog.Logger, observer standalone.Observer) (*Manager, error) {
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}
	return NewManagerWithConfig(cfg, out, logger, observer), nil
}

// NewManagerWithConfig creates a manager with an existing config. Replies to
// the sender are written to out.
func NewManagerWithConfig(cfg *standalone.MachineConfig, out io.Writer, logger *slog.Logger, observer standalone.Observer) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if observer == nil {
		observer = standalone.NopObserver{}
	}
	return &Manager{
		config:   cfg,
		replies:  protocol.NewReplyWriter(out),
		logger:   logger,
		observer: observer,
		clock:    time.Now,
	}
}

// SetClock replaces time.Now for the interpreter and its loops
func (m *Manager) SetClock(clock func() time.Time) {
	m.clock = clock
}

// Initialize drives the steppers on gpioDriver
func (m *Manager) Initialize(gpioDriver core.GPIODriver) error {
	if m.initialized {
		return errAlreadyInitialized
	}
	seq, err := stepgen.NewSequencer(m.config, gpioDriver, m.logger, m.observer)
	if err != nil {
		return err
	}
	return m.InitializeSink(seq)
}

// InitializeSink sends motion to an arbitrary sink, such as a Recorder for
// dry runs
func (m *Manager) InitializeSink(sink standalone.Sink) error {
	if m.initialized {
		return errAlreadyInitialized
	}

	m.sink = sink
	m.planner = planner.NewPlanner(m.config, sink, m.logger)
	m.interpreter = gcode.NewInterpreter(m.config, m.planner, m.replies, m.logger, m.observer, m.clock())

	m.initialized = true
	m.logger.Info("plotter ready", "name", m.config.Name)
	return nil
}

// ProcessLine executes a single line of G-code
func (m *Manager) ProcessLine(line string) error {
	if !m.initialized {
		return errNotInitialized
	}
	return m.interpreter.Execute(line, m.clock())
}

// BlockingLoop reads commands from r, waiting for each line
func (m *Manager) BlockingLoop(r io.Reader, opts ...gcode.Option) (*gcode.Loop, error) {
	if !m.initialized {
		return nil, errNotInitialized
	}
	return gcode.NewBlockingLoop(m.interpreter, r, m.replies, m.loopOptions(opts)...), nil
}

// PollingLoop polls uart for commands and reports status while idle
func (m *Manager) PollingLoop(uart drivers.UART, opts ...gcode.Option) (*gcode.Loop, error) {
	if !m.initialized {
		return nil, errNotInitialized
	}
	return gcode.NewPollingLoop(m.interpreter, uart, m.replies, m.loopOptions(opts)...), nil
}

func (m *Manager) loopOptions(extra []gcode.Option) []gcode.Option {
	opts := []gcode.Option{
		gcode.WithLogger(m.logger),
		gcode.WithClock(m.clock),
		gcode.WithPollInterval(m.config.Timing.PollInterval.Std()),
	}
	return append(opts, extra...)
}

// Config returns the machine configuration
func (m *Manager) Config() *standalone.MachineConfig {
	return m.config
}

// Planner returns the motion controller, nil before initialization
func (m *Manager) Planner() *planner.Planner {
	return m.planner
}

// Sink returns the motion sink, nil before initialization
func (m *Manager) Sink() standalone.Sink {
	return m.sink
}

// GetState returns the current pen position
func (m *Manager) GetState() (standalone.Position, error) {
	if !m.initialized {
		return standalone.Position{}, errNotInitialized
	}
	return m.planner.Position(), nil
}

// EmergencyStop lifts the pen and releases the motors outside of a loop
func (m *Manager) EmergencyStop() error {
	if !m.initialized {
		return errNotInitialized
	}
	return m.interpreter.Shutdown()
}
