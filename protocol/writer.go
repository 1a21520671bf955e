package protocol

import (
	"io"
	"sync"
)

// ReplyWriter writes CRLF terminated reply lines
type ReplyWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReplyWriter wraps w
func NewReplyWriter(w io.Writer) *ReplyWriter {
	return &ReplyWriter{w: w}
}

// Line writes one reply line
func (r *ReplyWriter) Line(s string) error {
	return r.Lines(s)
}

// Lines writes several reply lines in a single write
func (r *ReplyWriter) Lines(lines ...string) error {
	n := 0
	for _, l := range lines {
		n += len(l) + len(EOL)
	}
	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, EOL...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.w.Write(buf)
	return err
}
