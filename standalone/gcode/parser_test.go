package gcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicCommands(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input  string
		name   string
		params map[byte]float64
	}{
		{"G0 X10 Y20", "g0", map[byte]float64{'x': 10, 'y': 20}},
		{"G1 X100.5 Y200.25 F3000", "g1", map[byte]float64{'x': 100.5, 'y': 200.25}},
		{"G28", "g28", map[byte]float64{}},
		{"g02 x10 y7 r5", "g02", map[byte]float64{'x': 10, 'y': 7, 'r': 5}},
		{"  $$  ", "$$", map[byte]float64{}},
		{"?", "?", map[byte]float64{}},
		{"G1 Z-1", "g1", map[byte]float64{'z': -1}},
	}

	for _, tt := range tests {
		cmd, err := parser.ParseLine(tt.input)
		require.NoError(t, err, tt.input)
		require.NotNil(t, cmd, tt.input)

		assert.Equal(t, tt.name, cmd.Name, tt.input)
		assert.Equal(t, tt.params, cmd.Parameters, tt.input)
	}
}

func TestParseNegativeNumbers(t *testing.T) {
	cmd, err := NewParser().ParseLine("G1 X-10.5 Y-20")
	require.NoError(t, err)

	assert.Equal(t, -10.5, cmd.GetParameter('x', 0))
	assert.Equal(t, -20.0, cmd.GetParameter('y', 0))
	assert.False(t, cmd.HasParameter('r'))
	assert.Nil(t, cmd.Param('r'))
}

func TestParseComments(t *testing.T) {
	parser := NewParser()

	cmd, err := parser.ParseLine("G0 X10 ; Move to X10")
	require.NoError(t, err)
	assert.Equal(t, "g0 x10", cmd.Raw)
	assert.Equal(t, []string{"x10"}, cmd.Words)

	for _, line := range []string{"; This is a comment", "", "   \t", ";"} {
		cmd, err := parser.ParseLine(line)
		require.NoError(t, err)
		assert.Nil(t, cmd, "%q", line)
	}
}

func TestParseMalformedNumber(t *testing.T) {
	parser := NewParser()

	for _, line := range []string{"g0 x", "g1 y1.2.3", "g2 x1 y1 rfive"} {
		_, err := parser.ParseLine(line)
		assert.Error(t, err, line)
	}

	// words outside x, y, z and r are ignored
	cmd, err := parser.ParseLine("g1 x1 fbogus")
	require.NoError(t, err)
	assert.Equal(t, 1.0, cmd.GetParameter('x', 0))
}

func TestParseJog(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input string
		words []string
		x     float64
	}{
		{"$J=G91 X10 F500", []string{"g91", "x10", "f500"}, 10},
		{"$j=x-3 y2", []string{"x-3", "y2"}, -3},
		{"j= x7", []string{"x7"}, 7},
		{"$j x1", []string{"x1"}, 1},
	}

	for _, tt := range tests {
		cmd, err := parser.ParseLine(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, "$j", cmd.Name, tt.input)
		assert.Equal(t, tt.words, cmd.Words, tt.input)
		assert.Equal(t, tt.x, cmd.GetParameter('x', 0), tt.input)
	}
}

func TestParseUnknownIsNotTokenized(t *testing.T) {
	parser := NewParser()

	for _, line := range []string{`foo"bar`, `foo'bar x1`, `m3 \`, "g99 xabc"} {
		cmd, err := parser.ParseLine(line)
		require.NoError(t, err, line)
		require.NotNil(t, cmd, line)
		assert.Equal(t, strings.Fields(Clean(line))[0], cmd.Name, line)
		assert.Equal(t, Clean(line), cmd.Raw, line)
		assert.Empty(t, cmd.Parameters, line)
	}
}

func TestParseQuotingFallsBackToWhitespace(t *testing.T) {
	parser := NewParser()

	cmd, err := parser.ParseLine(`g0 x5 \`)
	require.NoError(t, err)
	assert.Equal(t, "g0", cmd.Name)
	assert.Equal(t, 5.0, cmd.GetParameter('x', 0))

	cmd, err = parser.ParseLine(`G0 X5 Y2 "`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x5", "y2", `"`}, cmd.Words)
	assert.Equal(t, 2.0, cmd.GetParameter('y', 0))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "g1 x10", Clean("  G1 X10  ; draw\r"))
	assert.Equal(t, "", Clean(";only"))
}
