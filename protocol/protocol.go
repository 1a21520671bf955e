// Package protocol implements the serial plumbing of the GRBL line protocol:
// byte buffering, line framing and CRLF replies.
package protocol

// Version is reported in the firmware identification lines
const Version = "1.1f"

// Protocol constants
const (
	LineMax   = 256  // Longest accepted command line
	SoftReset = 0x18 // Ctrl-X, handled as soon as it arrives
	EOL       = "\r\n"
)
