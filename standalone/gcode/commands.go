package gcode

import (
	"fmt"
	"time"

	"gplotter/protocol"
	"gplotter/standalone"
)

// handler runs one recognized command
type handler func(it *Interpreter, cmd *standalone.GCodeCommand, now time.Time) error

// Command is one entry of the command vocabulary
type Command struct {
	Name        string
	Usage       string
	Description string
	run         handler
}

var (
	// vocabulary lists every command in help order
	vocabulary []Command

	// commandTable maps tokens to commands
	commandTable map[string]*Command
)

func init() {
	vocabulary = []Command{
		{"g00", "g00 [x?] [y?]", "Rapid move, no printing", (*Interpreter).rapid},
		{"g01", "g01 [x?] [y?]", "Slow move straight line with printing", (*Interpreter).feed},
		{"g02", "g02 x10 y7 r5", "Clockwise circle to x,y from starting point using radius R", (*Interpreter).arcCW},
		{"g03", "g03", "Counter-clockwise, same params as g02", (*Interpreter).arcCCW},
		{"g28", "g28", "Return home", (*Interpreter).home},
		{"g90", "g90", "Switch to absolute mode", (*Interpreter).absolute},
		{"g91", "g91", "Switch to incremental mode", (*Interpreter).incremental},
		{"m30", "m30", "End of program", (*Interpreter).endProgram},
		{"g0", "g0 [x?] [y?]", "GRBL rapid move, no printing", (*Interpreter).rapid},
		{"g1", "g1 [x?] [y?]", "GRBL Line to x,y. Same as g01", (*Interpreter).feed},
		{"g3", "g3", "GRBL Counter-clockwise, same params as g02", (*Interpreter).arcCCW},
		{"g2", "g2", "GRBL Clockwise, same params as g02", (*Interpreter).arcCW},
		{"$h", "$h", "GRBL return home", (*Interpreter).home},
		{"$x", "$x", "GRBL unlock", (*Interpreter).unlock},
		{"$j", "$j", "GRBL jog, same x y params as g0", (*Interpreter).jog},
		{"$i", "$i", "GRBL info", (*Interpreter).info},
		{"$$", "$$", "GRBL Settings", (*Interpreter).settings},
		{"?", "?", "GRBL status report", (*Interpreter).status},
		{"$", "$", "Help", (*Interpreter).help},
		{"%", "%", "Begin and end of file", (*Interpreter).fileBoundary},
	}

	commandTable = make(map[string]*Command, len(vocabulary))
	for i := range vocabulary {
		commandTable[vocabulary[i].Name] = &vocabulary[i]
	}
}

// Lookup resolves a command token
func Lookup(name string) (*Command, bool) {
	c, ok := commandTable[name]
	return c, ok
}

// Commands returns the vocabulary in help order
func Commands() []Command {
	return append([]Command(nil), vocabulary...)
}

// Setting is one line of the $$ report
type Setting struct {
	Key         int
	Value       string
	Description string
}

func (s Setting) String() string {
	return fmt.Sprintf("$%d=%s (%s)", s.Key, s.Value, s.Description)
}

// Settings is the fixed $$ report
var Settings = []Setting{
	{0, "10", "Step pulse, usec"},
	{1, "25", "Step idle delay, msec"},
	{2, "0", "Step port invert mask"},
	{3, "0", "Dir port invert mask"},
	{4, "0", "Step enable invert, bool"},
	{5, "0", "Limit pins invert, bool"},
	{6, "0", "Probe pin invert, bool"},
	{10, "3", "Status report mask"},
	{11, "0.01", "Junction deviation, mm"},
	{12, "0.002", "Arc tolerance, mm"},
	{13, "0", "Report in inches, bool"},
	{20, "0", "Soft limits enable, bool"},
	{21, "0", "Hard limits enable, bool"},
	{22, "0", "Homing cycle enable, bool"},
	{23, "0", "Homing dir invert mask"},
	{24, "25.0", "Homing feed, mm/min"},
	{25, "500.0", "Homing seek, mm/min"},
	{26, "250", "Homing debounce, msec"},
	{27, "1.0", "Homing pull-off, mm"},
	{30, "1000", "Max spindle speed, RPM"},
	{31, "0", "Min spindle speed, RPM"},
	{32, "1", "Laser-mode enable, bool"},
}

// Fixed replies
const (
	ReplyOK        = "ok"
	BannerLine     = "Grbl " + protocol.Version + " ['$' for help]"
	BannerStatus   = "<Idle|MPos:0.000,0.000,0.000|FS:0,0>"
	BannerUnlock   = "MSG: '$X' to unlock]"
	UnlockMessage  = "[MSG:Caution: Unlocked]"
	InfoVersion    = "[VER:MicroPythonGRBL:1.1]"
	InfoOptions    = "[OPT:MPY,USB,3AXIS]"
	UnknownCommand = "Unknown G-code command: "
)

// StatusLine formats a status report for pos
func StatusLine(pos standalone.Position) string {
	z := 0.0
	if pos.PenDown {
		z = -1
	}
	return fmt.Sprintf("<Idle|MPos:%.3f,%.3f,%.3f|FS:0,0>", pos.X, pos.Y, z)
}
