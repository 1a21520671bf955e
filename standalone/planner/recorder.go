package planner

import (
	"fmt"
	"log/slog"

	"gplotter/standalone/geom"
)

// OpKind identifies a recorded sink operation
type OpKind string

const (
	OpMove    OpKind = "move"
	OpPenUp   OpKind = "penup"
	OpPenDown OpKind = "pendown"
	OpHome    OpKind = "home"
	OpDot     OpKind = "dot"
	OpEnd     OpKind = "end"
)

// Op is one call received by a Recorder
type Op struct {
	Kind OpKind
	From geom.Point
	To   geom.Point
}

func (o Op) String() string {
	switch o.Kind {
	case OpMove, OpDot:
		return fmt.Sprintf("%s %v -> %v", o.Kind, o.From, o.To)
	default:
		return string(o.Kind)
	}
}

// Recorder is a Sink that keeps every operation it receives. It backs the
// dry-run mode and the demo command, and is the fake used in tests.
type Recorder struct {
	Ops []Op

	// MaxOps bounds the history; zero keeps everything
	MaxOps int

	logger  *slog.Logger
	penDown bool
}

// NewRecorder creates a recorder. A nil logger disables tracing.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

func (r *Recorder) record(op Op) {
	if r.logger != nil {
		r.logger.Info("sink", "op", op.Kind, "from", op.From, "to", op.To)
	}
	r.Ops = append(r.Ops, op)
	if r.MaxOps > 0 && len(r.Ops) > r.MaxOps {
		r.Ops = append(r.Ops[:0], r.Ops[len(r.Ops)-r.MaxOps:]...)
	}
}

func (r *Recorder) Move(from, to geom.Point) error {
	r.record(Op{Kind: OpMove, From: from, To: to})
	return nil
}

func (r *Recorder) PenUp() error {
	r.penDown = false
	r.record(Op{Kind: OpPenUp})
	return nil
}

func (r *Recorder) PenDown() error {
	r.penDown = true
	r.record(Op{Kind: OpPenDown})
	return nil
}

func (r *Recorder) Home() error {
	r.penDown = false
	r.record(Op{Kind: OpHome})
	return nil
}

func (r *Recorder) Dot(from, at geom.Point) error {
	r.penDown = false
	r.record(Op{Kind: OpDot, From: from, To: at})
	return nil
}

func (r *Recorder) End() error {
	r.penDown = false
	r.record(Op{Kind: OpEnd})
	return nil
}

// PenIsDown reports the pen state implied by the recorded calls
func (r *Recorder) PenIsDown() bool {
	return r.penDown
}

// Moves returns the recorded moves only
func (r *Recorder) Moves() []Op {
	var moves []Op
	for _, op := range r.Ops {
		if op.Kind == OpMove {
			moves = append(moves, op)
		}
	}
	return moves
}

// Count returns how many operations of the given kind were recorded
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Reset clears the history
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
}
