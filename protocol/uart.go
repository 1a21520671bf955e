package protocol

import (
	"errors"
	"io"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

var _ drivers.UART = (*AsyncUART)(nil)

// AsyncUART adapts a blocking host stream (stdin, a serial port) to the
// drivers.UART readiness model used by microcontroller serial ports. A reader
// goroutine fills a FIFO; Buffered reports how much can be read without
// blocking.
type AsyncUART struct {
	src io.Reader
	dst io.Writer

	mu   sync.Mutex
	fifo *FifoBuffer
	err  error

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewAsyncUART starts reading src in the background
func NewAsyncUART(src io.Reader, dst io.Writer, capacity int) *AsyncUART {
	if capacity <= 0 {
		capacity = 4 * LineMax
	}
	u := &AsyncUART{
		src:      src,
		dst:      dst,
		fifo:     NewFifoBuffer(capacity),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go u.readLoop()
	return u
}

func (u *AsyncUART) readLoop() {
	defer close(u.doneChan)

	buffer := make([]byte, 64)
	for {
		n, err := u.src.Read(buffer)
		if n > 0 && !u.push(buffer[:n]) {
			return
		}
		if err != nil {
			u.mu.Lock()
			u.err = err
			u.mu.Unlock()
			return
		}
	}
}

// push waits for room in the FIFO; false means the UART was closed
func (u *AsyncUART) push(data []byte) bool {
	for len(data) > 0 {
		u.mu.Lock()
		n := u.fifo.Write(data)
		u.mu.Unlock()
		data = data[n:]
		if len(data) == 0 {
			break
		}
		select {
		case <-u.stopChan:
			return false
		case <-time.After(time.Millisecond):
		}
	}
	return true
}

// Buffered returns the number of bytes ready to read
func (u *AsyncUART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.fifo.Available()
}

// Read drains buffered bytes without blocking. Once the source has ended and
// the FIFO is empty it returns the source error (io.EOF at end of input).
func (u *AsyncUART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := u.fifo.Read(p)
	if n == 0 && u.err != nil {
		return 0, u.err
	}
	return n, nil
}

// Write passes data straight to the destination
func (u *AsyncUART) Write(p []byte) (int, error) {
	return u.dst.Write(p)
}

// Done is closed once the source has ended
func (u *AsyncUART) Done() <-chan struct{} {
	return u.doneChan
}

// Close stops the reader and closes the source if it can be closed
func (u *AsyncUART) Close() error {
	var err error
	u.stopOnce.Do(func() {
		close(u.stopChan)
		if c, ok := u.src.(io.Closer); ok {
			err = c.Close()
		}
	})
	if errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
