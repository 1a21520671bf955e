package sender

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gplotter/host/serial"
	"gplotter/protocol"
	"gplotter/standalone/gcode"
)

// DefaultTimeout bounds the wait for a reply to one command. Long moves on
// a slow plotter can take a while before their ok arrives.
const DefaultTimeout = 2 * time.Minute

var (
	// ErrUnknownCommand is returned when the plotter rejects a command word
	ErrUnknownCommand = errors.New("unknown command")

	// ErrClosed is returned when the plotter stops replying for good
	ErrClosed = errors.New("connection closed")

	errNotConnected = errors.New("not connected to plotter")
)

// CommandError is an "error: ..." reply to a command
type CommandError struct {
	Line    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Line, e.Message)
}

// Sender streams G-code to a plotter that speaks the GRBL reply protocol,
// one line at a time, waiting for each reply before sending the next.
type Sender struct {
	port    io.ReadWriteCloser
	replies chan string
	timeout time.Duration
	logger  *slog.Logger

	connected bool
}

// Result summarizes a streamed program
type Result struct {
	Sent   int
	Failed int
}

// New starts a sender on an open connection
func New(port io.ReadWriteCloser, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Sender{
		port:      port,
		replies:   make(chan string, 16),
		timeout:   DefaultTimeout,
		logger:    logger.With("component", "sender"),
		connected: true,
	}
	go s.readReplies()
	return s
}

// Connect opens a serial connection to a plotter
func Connect(cfg *serial.Config, logger *slog.Logger) (*Sender, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return New(port, logger), nil
}

// SetTimeout changes the per-command reply timeout
func (s *Sender) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Close closes the connection
func (s *Sender) Close() error {
	s.connected = false
	return s.port.Close()
}

func (s *Sender) readReplies() {
	defer close(s.replies)
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		s.replies <- strings.TrimRight(scanner.Text(), "\r")
	}
}

func (s *Sender) next(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("no reply after %v", s.timeout)
	case line, ok := <-s.replies:
		if !ok {
			return "", ErrClosed
		}
		return line, nil
	}
}

func (s *Sender) write(line string) error {
	if !s.connected {
		return errNotConnected
	}
	_, err := io.WriteString(s.port, line+"\n")
	return err
}

// Handshake announces a new client with two quick status queries and waits
// for the banner. It returns the banner line.
func (s *Sender) Handshake(ctx context.Context) (string, error) {
	for range 2 {
		if err := s.write("?"); err != nil {
			return "", err
		}
	}

	banner := ""
	for {
		line, err := s.next(ctx)
		if err != nil {
			return "", fmt.Errorf("handshake: %w", err)
		}
		if strings.HasPrefix(line, "Grbl ") {
			banner = line
		}
		if banner != "" && line == gcode.ReplyOK {
			s.logger.Info("connected", "banner", banner)
			return banner, nil
		}
	}
}

// Send sends one command and waits for its reply. Status and message lines
// arriving meanwhile are skipped.
func (s *Sender) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(line); err != nil {
		return err
	}
	for {
		reply, err := s.next(ctx)
		if err != nil {
			return err
		}
		switch {
		case reply == gcode.ReplyOK:
			return nil
		case strings.HasPrefix(reply, "error: "):
			return &CommandError{Line: line, Message: strings.TrimPrefix(reply, "error: ")}
		case strings.HasPrefix(reply, gcode.UnknownCommand):
			return fmt.Errorf("%w: %s", ErrUnknownCommand, strings.TrimPrefix(reply, gcode.UnknownCommand))
		default:
			s.logger.Debug("skipping reply", "reply", reply)
		}
	}
}

// Stream sends every command in r. Rejected commands are logged and counted;
// transport errors abort the stream. m30 is sent last and not waited for,
// since the plotter ends the program without replying.
func (s *Sender) Stream(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := gcode.Clean(scanner.Text())
		if line == "" || line == "%" {
			continue
		}
		if len(line) > protocol.LineMax {
			res.Failed++
			s.logger.Warn("skipping long line", "length", len(line))
			continue
		}

		if line == "m30" {
			if err := s.write(line); err != nil {
				return res, err
			}
			res.Sent++
			return res, nil
		}

		err := s.Send(ctx, line)
		res.Sent++

		var cmdErr *CommandError
		switch {
		case err == nil:
		case errors.As(err, &cmdErr), errors.Is(err, ErrUnknownCommand):
			res.Failed++
			s.logger.Warn("command rejected", "line", line, "error", err)
		default:
			return res, err
		}
	}
	return res, scanner.Err()
}
