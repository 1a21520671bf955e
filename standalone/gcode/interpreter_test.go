package gcode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gplotter/protocol"
	"gplotter/standalone"
	"gplotter/standalone/geom"
	"gplotter/standalone/planner"
)

type harness struct {
	it  *Interpreter
	rec *planner.Recorder
	out *bytes.Buffer
}

func newHarness(t *testing.T, mutate ...func(*standalone.MachineConfig)) *harness {
	t.Helper()
	cfg := &standalone.MachineConfig{
		StepsPerUnit:  11,
		LineIncrement: 1,
	}
	for _, m := range mutate {
		m(cfg)
	}
	rec := planner.NewRecorder(nil)
	out := &bytes.Buffer{}
	p := planner.NewPlanner(cfg, rec, nil)
	it := NewInterpreter(cfg, p, protocol.NewReplyWriter(out), nil, nil, t0)
	return &harness{it: it, rec: rec, out: out}
}

// run executes lines one millisecond apart and returns the replies
func (h *harness) run(t *testing.T, lines ...string) string {
	t.Helper()
	h.out.Reset()
	for i, line := range lines {
		require.NoError(t, h.it.Execute(line, at(i)), line)
	}
	return h.out.String()
}

func TestExecuteRapidAndFeed(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "G0 X10 Y5", "G1 X20")
	assert.Equal(t, "ok\r\nok\r\n", out)

	pos := h.it.Planner().Position()
	assert.Equal(t, geom.Pt(20, 5), pos.Point())
	assert.True(t, pos.PenDown)

	kinds := []planner.OpKind{}
	for _, op := range h.rec.Ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []planner.OpKind{planner.OpPenUp, planner.OpMove, planner.OpPenDown, planner.OpMove}, kinds)
}

func TestExecuteFeedRasterized(t *testing.T) {
	h := newHarness(t, func(c *standalone.MachineConfig) { c.RasterizeFeeds = true })

	h.run(t, "g1 x5")
	assert.Len(t, h.rec.Moves(), 5)
	assert.Equal(t, geom.Pt(5, 0), h.it.Planner().Position().Point())
}

func TestExecuteModes(t *testing.T) {
	h := newHarness(t)

	h.run(t, "g91", "g0 x5", "g0 y2", "g0 x1")
	assert.Equal(t, geom.Pt(6, 2), h.it.Planner().Position().Point())

	h.run(t, "g90", "g0 y9")
	assert.Equal(t, geom.Pt(6, 9), h.it.Planner().Position().Point())
	assert.Equal(t, standalone.Absolute, h.it.Planner().Mode())
}

func TestExecuteArc(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "g2 x10 y0 r10")
	assert.Equal(t, "ok\r\n", out)
	pos := h.it.Planner().Position()
	assert.InDelta(t, 10, pos.X, 1e-6)
	assert.InDelta(t, 0, pos.Y, 1e-6)

	h.run(t, "g03 x0 y0 r5")
	assert.Equal(t, geom.Pt(0, 0), h.it.Planner().Position().Point())
}

func TestExecuteArcErrors(t *testing.T) {
	h := newHarness(t)

	err := h.it.Execute("g2 x10 y0", t0)
	assert.ErrorIs(t, err, ErrMissingRadius)

	err = h.it.Execute("g2 x30 y0 r5", t0)
	assert.ErrorIs(t, err, geom.ErrNoArc)
	assert.Empty(t, h.rec.Ops)
	assert.Empty(t, h.out.String())
}

func TestExecuteHome(t *testing.T) {
	h := newHarness(t)

	h.run(t, "g1 x3 y4")
	assert.Equal(t, "ok\r\nok\r\n", h.run(t, "g28", "$H"))

	pos := h.it.Planner().Position()
	assert.Equal(t, geom.Pt(0, 0), pos.Point())
	assert.False(t, pos.PenDown)
	assert.Equal(t, 2, h.rec.Count(planner.OpHome))
}

func TestExecuteUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.run(t, "g1 x3 y4")
	before := h.it.Planner().Position()
	ops := len(h.rec.Ops)

	out := h.run(t, "G99 X1 ; comment", "m3 s1000")
	assert.Equal(t, "Unknown G-code command: g99 x1\r\nUnknown G-code command: m3 s1000\r\n", out)
	assert.Equal(t, before, h.it.Planner().Position())
	assert.Len(t, h.rec.Ops, ops)
}

func TestExecuteUnknownCommandWithQuotes(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, `foo"bar`, `FOO 'x1`, "g0 x5 y2 \\")
	assert.Equal(t, "Unknown G-code command: foo\"bar\r\nUnknown G-code command: foo 'x1\r\nok\r\n", out)
	assert.Equal(t, geom.Pt(5, 2), h.it.Planner().Position().Point())
}

func TestExecuteEndOfProgram(t *testing.T) {
	h := newHarness(t)
	err := h.it.Execute("M30", t0)
	assert.True(t, errors.Is(err, ErrEndOfProgram))
	assert.Empty(t, h.out.String())
}

func TestExecuteJog(t *testing.T) {
	h := newHarness(t)

	h.run(t, "g0 x10 y10", "$J=G91 X5 F1000")
	assert.Equal(t, geom.Pt(15, 10), h.it.Planner().Position().Point())
	assert.Equal(t, standalone.Absolute, h.it.Planner().Mode(), "jog mode does not stick")

	h.run(t, "j= x1 y1")
	assert.Equal(t, geom.Pt(1, 1), h.it.Planner().Position().Point())
	assert.False(t, h.it.Planner().Position().PenDown)
}

func TestExecuteMetaCommands(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "$X")
	assert.Equal(t, "[MSG:Caution: Unlocked]\r\nok\r\n", out)

	out = h.run(t, "$I")
	assert.Equal(t, "[VER:MicroPythonGRBL:1.1]\r\n[OPT:MPY,USB,3AXIS]\r\nok\r\n", out)

	out = h.run(t, "%")
	assert.Equal(t, "ok\r\n", out)
}

func TestExecuteSettings(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "$$")
	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")
	require.Len(t, lines, 23)
	assert.Equal(t, "$0=10 (Step pulse, usec)", lines[0])
	assert.Equal(t, "$11=0.01 (Junction deviation, mm)", lines[8])
	assert.Equal(t, "$24=25.0 (Homing feed, mm/min)", lines[15])
	assert.Equal(t, "$32=1 (Laser-mode enable, bool)", lines[21])
	assert.Equal(t, "ok", lines[22])
}

func TestExecuteHelp(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "$")
	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")
	require.Len(t, lines, 20)
	assert.Equal(t, "g00 [x?] [y?]: Rapid move, no printing", lines[0])
	assert.Equal(t, "%: Begin and end of file", lines[19])
	assert.NotContains(t, out, "ok\r\n")
}

func TestExecuteStatusHandshake(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.it.Execute("g1 x1.5 y2", t0))
	h.out.Reset()

	require.NoError(t, h.it.Execute("?", at(0)))
	assert.Empty(t, h.out.String())

	require.NoError(t, h.it.Execute("?", at(1000)))
	status := "<Idle|MPos:1.500,2.000,-1.000|FS:0,0>\r\n"
	want := "Grbl 1.1f ['$' for help]\r\n" +
		"<Idle|MPos:0.000,0.000,0.000|FS:0,0>\r\n" +
		"MSG: '$X' to unlock]\r\n" +
		status + status + status +
		"ok\r\n"
	assert.Equal(t, want, h.out.String())

	h.out.Reset()
	require.NoError(t, h.it.Execute("?", at(2500)))
	assert.Empty(t, h.out.String(), "throttled")

	require.NoError(t, h.it.Execute("?", at(3100)))
	assert.Equal(t, status, h.out.String())
}

func TestExecuteSoftReset(t *testing.T) {
	h := newHarness(t)
	h.run(t, "?", "?")
	require.True(t, h.it.Session().BannerSent)

	require.NoError(t, h.it.Execute("\x18", at(10)))
	assert.False(t, h.it.Session().BannerSent)

	h.out.Reset()
	require.NoError(t, h.it.Execute("\x18g0 x2", at(11)))
	assert.Equal(t, "ok\r\n", h.out.String())
	assert.Equal(t, geom.Pt(2, 0), h.it.Planner().Position().Point())
}

func TestExecuteBlankLine(t *testing.T) {
	h := newHarness(t)
	assert.Empty(t, h.run(t, "", "   ", "; note"))
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "<Idle|MPos:0.000,0.000,0.000|FS:0,0>", StatusLine(standalone.Position{}))
	assert.Equal(t, "<Idle|MPos:-1.250,10.000,-1.000|FS:0,0>",
		StatusLine(standalone.Position{X: -1.25, Y: 10, PenDown: true}))
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"g0", "g00", "g1", "g01", "g2", "g02", "g3", "g03", "g28", "$h", "g90", "g91", "m30", "?", "$$", "$", "$i", "$x", "$j", "%"} {
		_, ok := Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := Lookup("g4")
	assert.False(t, ok)
	assert.Len(t, Commands(), 20)
}
