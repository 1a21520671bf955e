package standalone

import (
	"strconv"
	"time"

	"gplotter/standalone/geom"
)

// Mode selects how coordinates in commands are resolved
type Mode int

const (
	Absolute    Mode = iota // G90
	Incremental             // G91
)

func (m Mode) String() string {
	if m == Incremental {
		return "incremental"
	}
	return "absolute"
}

// Position is the machine state owned by the planner
type Position struct {
	X       float64
	Y       float64
	PenDown bool
	Mode    Mode
}

// Point returns the planar part of the position
func (p Position) Point() geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// Sink receives primitive actuation commands from the planner.
// The stepper sequencer, the recorder and any preview renderer implement it.
type Sink interface {
	Move(from, to geom.Point) error
	PenUp() error
	PenDown() error
	Home() error
	Dot(from, at geom.Point) error
	End() error
}

// Observer is notified of machine events (metrics, tracing)
type Observer interface {
	CommandHandled(command string, err error)
	StepsMoved(motor string, steps int)
	EndstopHit(motor string)
	StatusReported()
	BannerSent()
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) CommandHandled(string, error) {}
func (NopObserver) StepsMoved(string, int)       {}
func (NopObserver) EndstopHit(string)            {}
func (NopObserver) StatusReported()              {}
func (NopObserver) BannerSent()                  {}

// GCodeCommand represents a parsed command line
type GCodeCommand struct {
	Name       string           // First token, lower case ("g1", "$h", "?")
	Parameters map[byte]float64 // Parameters keyed by lower case letter
	Words      []string         // Remaining raw tokens
	Raw        string           // Cleaned line (comment stripped, trimmed)
}

// HasParameter checks if a parameter exists in the command
func (cmd *GCodeCommand) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *GCodeCommand) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}

// Param returns a parameter as a pointer, nil when absent
func (cmd *GCodeCommand) Param(param byte) *float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return &val
	}
	return nil
}

// MotorConfig describes one unipolar stepper and its optional endstop
type MotorConfig struct {
	Pins      [4]uint8 `yaml:"pins" json:"pins"`
	HalfStep  bool     `yaml:"half_step" json:"half_step"`
	MaxSteps  int      `yaml:"max_steps" json:"max_steps"`
	Endstop   *int     `yaml:"endstop_pin,omitempty" json:"endstop_pin,omitempty"`
	Direction int      `yaml:"endstop_direction" json:"endstop_direction"` // -1, +1 or 0 for none
	Invert    bool     `yaml:"endstop_invert" json:"endstop_invert"`       // true for active-high switches
}

// HasEndstop reports whether homing can rely on an endstop
func (m MotorConfig) HasEndstop() bool {
	return m.Direction != 0
}

// TimingConfig holds the session thresholds of the protocol front end
type TimingConfig struct {
	QuickRequest Duration `yaml:"quick_request" json:"quick_request"`
	StatusEvery  Duration `yaml:"status_interval" json:"status_interval"`
	IdleReset    Duration `yaml:"idle_reset" json:"idle_reset"`
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
}

// MachineConfig represents the complete machine configuration
type MachineConfig struct {
	Name           string       `yaml:"name" json:"name"`
	StepsPerUnit   float64      `yaml:"steps_per_unit" json:"steps_per_unit"`
	StepDelay      Duration     `yaml:"step_delay" json:"step_delay"`
	Precision      int          `yaml:"precision" json:"precision"`
	LineIncrement  float64      `yaml:"line_increment" json:"line_increment"`
	PenSteps       int          `yaml:"pen_steps" json:"pen_steps"`
	RasterizeFeeds bool         `yaml:"rasterize_feeds" json:"rasterize_feeds"`
	X              MotorConfig  `yaml:"x" json:"x"`
	Y              MotorConfig  `yaml:"y" json:"y"`
	Pen            MotorConfig  `yaml:"pen" json:"pen"`
	Timing         TimingConfig `yaml:"timing" json:"timing"`
}

// Duration is a time.Duration that decodes from "1500ms" style strings or
// from a bare integer number of milliseconds.
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
