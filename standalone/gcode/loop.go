package gcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"gplotter/protocol"
)

// DefaultPollInterval is the idle sleep of the polling loop
const DefaultPollInterval = 10 * time.Millisecond

// Loop reads command lines and feeds them to an Interpreter until end of
// input, m30 or cancellation. The machine is shut down exactly once when
// Run returns.
type Loop struct {
	interp *Interpreter
	out    *protocol.ReplyWriter
	logger *slog.Logger
	clock  func() time.Time
	poll   time.Duration

	// exactly one source is set
	reader io.Reader
	uart   drivers.UART

	shutdownOnce sync.Once
}

// Option configures a Loop
type Option func(*Loop)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(l *Loop) { l.clock = clock }
}

// WithPollInterval sets the idle sleep of the polling loop
func WithPollInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.poll = d
		}
	}
}

// WithLogger sets the loop logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

func newLoop(interp *Interpreter, out *protocol.ReplyWriter, opts []Option) *Loop {
	l := &Loop{
		interp: interp,
		out:    out,
		logger: slog.New(slog.DiscardHandler),
		clock:  time.Now,
		poll:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "loop")
	return l
}

// NewBlockingLoop reads lines from r, waiting for each one
func NewBlockingLoop(interp *Interpreter, r io.Reader, out *protocol.ReplyWriter, opts ...Option) *Loop {
	l := newLoop(interp, out, opts)
	l.reader = r
	return l
}

// NewPollingLoop checks uart for input and sleeps between polls. While idle
// it keeps the session checks and the periodic status line running.
func NewPollingLoop(interp *Interpreter, uart drivers.UART, out *protocol.ReplyWriter, opts ...Option) *Loop {
	l := newLoop(interp, out, opts)
	l.uart = uart
	return l
}

// Run processes input until end of input, m30 or ctx is done. It returns
// nil on m30 and end of input, and the context error on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	if l.uart != nil {
		return l.runPolling(ctx)
	}
	return l.runBlocking(ctx)
}

type lineResult struct {
	line string
	err  error
}

func (l *Loop) runBlocking(ctx context.Context) error {
	lines := make(chan lineResult)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		send := func(res lineResult) bool {
			select {
			case lines <- res:
				return true
			case <-done:
				return false
			}
		}

		// same limit as the polling line buffer
		br := bufio.NewReaderSize(l.reader, protocol.LineMax)
		discarding := false
		for {
			frag, err := br.ReadSlice('\n')
			switch {
			case errors.Is(err, bufio.ErrBufferFull):
				if !discarding {
					discarding = true
					if !send(lineResult{err: protocol.ErrLineTooLong}) {
						return
					}
				}
				continue
			case discarding:
				// tail of the overlong line
				discarding = false
			case len(frag) > 0:
				line := bytes.TrimSuffix(bytes.TrimSuffix(frag, []byte("\n")), []byte("\r"))
				if !send(lineResult{line: string(line)}) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					send(lineResult{err: err})
				}
				return
			}
		}
	}()

	for {
		var res lineResult
		var ok bool
		select {
		case <-ctx.Done():
			l.logger.Info("interrupted")
			return ctx.Err()
		case res, ok = <-lines:
		}
		if !ok {
			l.logger.Info("end of input")
			return nil
		}

		// session checks run when the line arrives, not when the wait began
		now := l.clock()
		l.interp.Tick(now)

		switch {
		case errors.Is(res.err, protocol.ErrLineTooLong):
			l.report(res.err)
			continue
		case res.err != nil:
			return fmt.Errorf("read input: %w", res.err)
		}
		if l.handle(res.line, now) {
			return nil
		}
	}
}

func (l *Loop) runPolling(ctx context.Context) error {
	reader := protocol.NewLineReader(l.uart)

	for {
		now := l.clock()
		l.interp.Tick(now)

		if err := ctx.Err(); err != nil {
			l.logger.Info("interrupted")
			return err
		}

		line, ok, err := reader.Poll()
		switch {
		case errors.Is(err, io.EOF):
			l.logger.Info("end of input")
			return nil
		case errors.Is(err, protocol.ErrLineTooLong):
			l.report(err)
			continue
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		if !ok {
			if err := l.interp.Idle(now); err != nil {
				l.logger.Warn("status write failed", "error", err)
			}
			select {
			case <-ctx.Done():
			case <-time.After(l.poll):
			}
			continue
		}

		if l.handle(line, now) {
			return nil
		}
	}
}

// handle dispatches one line and reports whether the program ended
func (l *Loop) handle(line string, now time.Time) bool {
	err := l.dispatch(line, now)
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEndOfProgram):
		l.logger.Info("end of program")
		return true
	default:
		l.report(err)
		return false
	}
}

func (l *Loop) dispatch(line string, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return l.interp.Execute(line, now)
}

func (l *Loop) report(err error) {
	l.logger.Warn("command failed", "error", err)
	if werr := l.out.Line("error: " + err.Error()); werr != nil {
		l.logger.Error("reply write failed", "error", werr)
	}
}

func (l *Loop) shutdown() {
	l.shutdownOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("shutdown panicked", "panic", r)
			}
		}()
		if err := l.interp.Shutdown(); err != nil {
			l.logger.Warn("shutdown failed", "error", err)
		}
	})
}
