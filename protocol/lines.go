package protocol

import (
	"bytes"
	"errors"
	"io"

	"tinygo.org/x/drivers"
)

// ErrLineTooLong is returned when a line does not fit the line buffer
var ErrLineTooLong = errors.New("line too long")

// LineReader frames lines from a UART without ever blocking on it
type LineReader struct {
	uart    drivers.UART
	fifo    *FifoBuffer
	scratch []byte
	eof     bool

	// set after an overflow until the rest of that line has been dropped
	discarding bool
}

// NewLineReader creates a line reader on uart
func NewLineReader(uart drivers.UART) *LineReader {
	return &LineReader{
		uart:    uart,
		fifo:    NewFifoBuffer(LineMax + 1),
		scratch: make([]byte, LineMax),
	}
}

// Poll moves whatever the UART has buffered into the line buffer and returns
// the next complete line if there is one. io.EOF is returned once the UART
// has reported end of input and no complete line remains; a trailing partial
// line is returned first. After ErrLineTooLong the remainder of the
// offending line is dropped up to its newline, so no part of it is ever
// framed as a command.
func (r *LineReader) Poll() (string, bool, error) {
	if line, ok := r.next(); ok {
		return line, true, nil
	}

	if !r.eof {
		if want := min(r.uart.Buffered(), r.fifo.Free(), len(r.scratch)); want > 0 {
			n, err := r.uart.Read(r.scratch[:want])
			r.fifo.Write(r.scratch[:n])
			if err != nil && !errors.Is(err, io.EOF) {
				return "", false, err
			}
			r.eof = err != nil
		}
		if !r.eof && r.uart.Buffered() == 0 {
			// probe for end of input
			if _, err := r.uart.Read(r.scratch[:0]); errors.Is(err, io.EOF) {
				r.eof = true
			}
		}
		if line, ok := r.next(); ok {
			return line, true, nil
		}
	}

	if r.fifo.Free() == 0 {
		r.fifo.Reset()
		r.discarding = true
		return "", false, ErrLineTooLong
	}

	if r.eof {
		if !r.fifo.IsEmpty() {
			line := string(r.fifo.Data())
			r.fifo.Reset()
			return line, true, nil
		}
		return "", false, io.EOF
	}
	return "", false, nil
}

func (r *LineReader) next() (string, bool) {
	if r.discarding {
		r.discard()
		if r.discarding {
			return "", false
		}
	}
	return r.fifo.NextLine()
}

// discard drops the tail of an overlong line. A soft reset still ends it.
func (r *LineReader) discard() {
	data := r.fifo.Data()
	nl := bytes.IndexByte(data, '\n')
	if rst := bytes.IndexByte(data, SoftReset); rst >= 0 && (nl < 0 || rst < nl) {
		r.fifo.Pop(rst)
		r.discarding = false
		return
	}
	if nl < 0 {
		r.fifo.Reset()
		return
	}
	r.fifo.Pop(nl + 1)
	r.discarding = false
}
