package gcode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gplotter/protocol"
	"gplotter/standalone"
	"gplotter/standalone/geom"
	"gplotter/standalone/planner"
)

// stepClock advances by step on every call
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// panicSink panics on the first move
type panicSink struct {
	planner.Recorder
}

func (s *panicSink) Move(from, to geom.Point) error {
	panic("coil driver fault")
}

// failingEnd fails its shutdown
type failingEnd struct {
	planner.Recorder
	ends int
}

func (s *failingEnd) End() error {
	s.ends++
	return errors.New("coils stuck")
}

func newLoopHarness(sink standalone.Sink) (*Interpreter, *bytes.Buffer, *protocol.ReplyWriter) {
	cfg := &standalone.MachineConfig{StepsPerUnit: 11, LineIncrement: 1}
	out := &bytes.Buffer{}
	w := protocol.NewReplyWriter(out)
	p := planner.NewPlanner(cfg, sink, nil)
	return NewInterpreter(cfg, p, w, nil, nil, t0), out, w
}

func TestBlockingLoopEndOfInput(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)
	clock := &stepClock{now: t0, step: 100 * time.Millisecond}

	in := strings.NewReader("g0 x1\nbogus\ng2 x50 y0 r1\n?\n?\n")
	err := NewBlockingLoop(it, in, w, WithClock(clock.Now)).Run(context.Background())
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "ok\r\nUnknown G-code command: bogus\r\nerror: "), got)
	assert.Contains(t, got, "no arc with this radius can connect the 2 points")
	assert.Contains(t, got, "Grbl 1.1f ['$' for help]\r\n")
	assert.Equal(t, 1, rec.Count(planner.OpEnd))
	assert.Equal(t, geom.Pt(1, 0), it.Planner().Position().Point())
}

func TestBlockingLoopEndOfProgram(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)

	in := strings.NewReader("g0 x1\nm30\ng0 x5\n")
	require.NoError(t, NewBlockingLoop(it, in, w).Run(context.Background()))

	assert.Equal(t, "ok\r\n", out.String())
	assert.Equal(t, geom.Pt(1, 0), it.Planner().Position().Point())
	assert.Equal(t, 1, rec.Count(planner.OpEnd))
}

func overlongInput(n int) string {
	return "g0 x1\n" + "g0 x2 ;" + strings.Repeat("a", n) + "g0 x50\n" + "g0 x3\n"
}

func TestBlockingLoopSkipsOverlongLine(t *testing.T) {
	for _, n := range []int{300, 70000} {
		rec := planner.NewRecorder(nil)
		it, out, w := newLoopHarness(rec)

		in := strings.NewReader(overlongInput(n))
		require.NoError(t, NewBlockingLoop(it, in, w).Run(context.Background()), "n=%d", n)

		assert.Equal(t, "ok\r\nerror: line too long\r\nok\r\n", out.String(), "n=%d", n)
		assert.Equal(t, geom.Pt(3, 0), it.Planner().Position().Point(), "n=%d", n)
	}
}

func TestBlockingLoopAcceptsFullLine(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)

	// LineMax bytes including the newline
	line := "g0 x4 ;" + strings.Repeat("a", protocol.LineMax-8) + "\n"
	require.Len(t, line, protocol.LineMax)
	require.NoError(t, NewBlockingLoop(it, strings.NewReader(line), w).Run(context.Background()))

	assert.Equal(t, "ok\r\n", out.String())
	assert.Equal(t, geom.Pt(4, 0), it.Planner().Position().Point())
}

func TestBlockingLoopCancel(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, _, w := newLoopHarness(rec)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewBlockingLoop(it, pr, w).Run(ctx)
	}()

	_, err := pw.Write([]byte("g0 x2\n"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 1, rec.Count(planner.OpEnd))
}

func TestLoopRecoversPanics(t *testing.T) {
	sink := &panicSink{}
	it, out, w := newLoopHarness(sink)

	in := strings.NewReader("g0 x1\n$x\n")
	require.NoError(t, NewBlockingLoop(it, in, w).Run(context.Background()))

	assert.Equal(t, "error: coil driver fault\r\n[MSG:Caution: Unlocked]\r\nok\r\n", out.String())
	assert.Equal(t, 1, sink.Count(planner.OpEnd))
}

func TestLoopSuppressesShutdownError(t *testing.T) {
	sink := &failingEnd{}
	it, _, w := newLoopHarness(sink)

	loop := NewBlockingLoop(it, strings.NewReader("m30\n"), w)
	require.NoError(t, loop.Run(context.Background()))
	loop.shutdown()
	assert.Equal(t, 1, sink.ends)
}

func TestBlockingLoopIdleReset(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)

	times := []time.Time{at(0), at(100), at(9000), at(9100)}
	i := 0
	clock := func() time.Time {
		now := times[min(i, len(times)-1)]
		i++
		return now
	}

	in := strings.NewReader("?\n?\n?\n?\n")
	require.NoError(t, NewBlockingLoop(it, in, w, WithClock(clock)).Run(context.Background()))

	assert.Equal(t, 2, strings.Count(out.String(), "Grbl 1.1f"))
}

func TestPollingLoop(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)
	clock := &stepClock{now: t0, step: 300 * time.Millisecond}

	uart := protocol.NewAsyncUART(strings.NewReader("?\n?\ng91\ng0 x1 y1\ng0 x1\n"), io.Discard, 0)
	<-uart.Done()

	loop := NewPollingLoop(it, uart, w, WithClock(clock.Now), WithPollInterval(time.Millisecond))
	require.NoError(t, loop.Run(context.Background()))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Grbl 1.1f"), got)
	assert.True(t, strings.HasSuffix(got, "ok\r\nok\r\nok\r\n"), got)
	assert.Equal(t, geom.Pt(2, 1), it.Planner().Position().Point())
	assert.Equal(t, 1, rec.Count(planner.OpEnd))
}

func TestPollingLoopSkipsOverlongLine(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)
	clock := &stepClock{now: t0, step: time.Millisecond}

	uart := protocol.NewAsyncUART(strings.NewReader(overlongInput(300)), io.Discard, 0)
	<-uart.Done()

	loop := NewPollingLoop(it, uart, w, WithClock(clock.Now), WithPollInterval(time.Millisecond))
	require.NoError(t, loop.Run(context.Background()))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "error: line too long\r\n"), got)
	assert.Equal(t, 2, strings.Count(got, "ok\r\n"), got)
	assert.Equal(t, geom.Pt(3, 0), it.Planner().Position().Point())
}

// idleUART never has input
type idleUART struct{}

func (idleUART) Read(p []byte) (int, error)  { return 0, nil }
func (idleUART) Write(p []byte) (int, error) { return len(p), nil }
func (idleUART) Buffered() int               { return 0 }

func TestPollingLoopUnsolicitedStatus(t *testing.T) {
	rec := planner.NewRecorder(nil)
	it, out, w := newLoopHarness(rec)

	// a connected client
	require.NoError(t, it.Execute("?", at(0)))
	require.NoError(t, it.Execute("?", at(100)))
	out.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &stepClock{now: at(200), step: 500 * time.Millisecond}
	clock := func() time.Time {
		now := inner.Now()
		if !it.Session().BannerSent {
			cancel()
		}
		return now
	}

	loop := NewPollingLoop(it, idleUART{}, w, WithClock(clock), WithPollInterval(time.Millisecond))
	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)

	// statuses every 2.5s until the session went idle after 8s
	assert.Equal(t, 3, strings.Count(out.String(), "<Idle|MPos:0.000,0.000,0.000|FS:0,0>"))
	assert.Equal(t, 1, rec.Count(planner.OpEnd))
}
