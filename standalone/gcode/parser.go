package gcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"gplotter/standalone"
)

// numeric parameters understood by the motion commands
const paramLetters = "xyzr"

// jog prefixes; the rest of the token is the first jog word
var jogPrefixes = []string{"$j=", "j="}

// Parser handles G-code parsing
type Parser struct{}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{}
}

// Clean strips the inline comment, trims and lower-cases a line
func Clean(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.ToLower(strings.TrimSpace(line))
}

// ParseLine parses a single command line. Blank and comment-only lines
// return a nil command.
func (p *Parser) ParseLine(line string) (*standalone.GCodeCommand, error) {
	cleaned := Clean(line)
	if cleaned == "" {
		return nil, nil
	}

	fields := strings.Fields(cleaned)
	name, _ := jogName(fields[0])
	if _, ok := Lookup(name); !ok {
		// unknown commands are reported verbatim, whatever they contain
		return &standalone.GCodeCommand{
			Name:       fields[0],
			Parameters: make(map[byte]float64),
			Raw:        cleaned,
		}, nil
	}

	tokens, err := shlex.Split(cleaned)
	if err != nil || len(tokens) == 0 {
		// unbalanced quote or trailing escape
		tokens = fields
	}

	cmd := &standalone.GCodeCommand{
		Name:       tokens[0],
		Parameters: make(map[byte]float64),
		Words:      tokens[1:],
		Raw:        cleaned,
	}

	if jog, rest := jogName(cmd.Name); jog != cmd.Name {
		cmd.Name = jog
		if rest != "" {
			cmd.Words = append([]string{rest}, cmd.Words...)
		}
	}

	for _, word := range cmd.Words {
		if word == "" {
			continue
		}
		letter := word[0]
		if strings.IndexByte(paramLetters, letter) < 0 {
			continue
		}
		value, err := strconv.ParseFloat(word[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %c value %q", letter, word[1:])
		}
		cmd.Parameters[letter] = value
	}

	return cmd, nil
}

// jogName maps a jog prefixed token to "$j" plus the word glued to it
func jogName(token string) (string, string) {
	for _, prefix := range jogPrefixes {
		if rest, ok := strings.CutPrefix(token, prefix); ok {
			return "$j", rest
		}
	}
	return token, ""
}
